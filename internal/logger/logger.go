package logger

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger handles leveled logging to the console with optional file output.
// Debug lines reach the console only in verbose mode but always reach the
// file log once one is configured.
type Logger struct {
	Verbose bool

	mu      sync.Mutex
	sugar   *zap.SugaredLogger
	fileLog *lumberjack.Logger
	hasBar  atomic.Bool
	nop     bool
}

// New creates a console logger.
func New(verbose bool) *Logger {
	l := &Logger{Verbose: verbose}
	l.rebuild()
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{nop: true, sugar: zap.NewNop().Sugar()}
}

// SetFileLog additionally writes every message, debug included, to a
// size-rotated file at path.
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	f.Close()

	l.fileLog = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	l.rebuildLocked()
	return nil
}

// SetProgressBar silences non-error console output while a bar is drawn.
func (l *Logger) SetProgressBar(active bool) {
	l.hasBar.Store(active)
}

// Close flushes and closes the file log if open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.sugar.Sync()
	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		return err
	}
	return nil
}

func (l *Logger) Info(format string, args ...interface{})  { l.current().Infof(format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.current().Debugf(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.current().Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.current().Errorf(format, args...) }

func (l *Logger) current() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sugar
}

func (l *Logger) rebuild() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rebuildLocked()
}

func (l *Logger) rebuildLocked() {
	if l.nop {
		return
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEnc := zapcore.NewConsoleEncoder(encCfg)

	stdout := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		if lvl >= zapcore.ErrorLevel {
			return false
		}
		if l.hasBar.Load() && !l.Verbose {
			return false
		}
		return l.Verbose || lvl >= zapcore.InfoLevel
	})
	stderr := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stdout), stdout),
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), stderr),
	}

	if l.fileLog != nil {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileCfg),
			zapcore.AddSync(l.fileLog),
			zapcore.DebugLevel,
		))
	}

	l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
}
