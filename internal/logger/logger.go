package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *logrus.Logger

// Options controls where rotated log files go.
type Options struct {
	Level      string
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    io.Writer
}

func defaultOptions(level, dir string) Options {
	return Options{
		Level:      level,
		Dir:        dir,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Console:    os.Stdout,
	}
}

// InitLogger initializes the global logger with per-level rotating files under dir.
func InitLogger(logLevel, dir string) error {
	return InitWithOptions(defaultOptions(logLevel, dir))
}

func InitWithOptions(opts Options) error {
	l := logrus.New()

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return err
	}

	rotating := func(name string) *lumberjack.Logger {
		return &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, name),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	l.AddHook(&FileHook{
		ErrorWriter: rotating("error.log"),
		InfoWriter:  rotating("info.log"),
		DebugWriter: rotating("debug.log"),
	})

	if opts.Console == nil {
		opts.Console = io.Discard
	}
	l.SetOutput(opts.Console)

	Logger = l
	return nil
}

// InitFallback installs a console-only logger so errors raised before the
// configuration is loaded are still reported.
func InitFallback(w io.Writer) {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetOutput(w)
	Logger = l
}

// FileHook implements logrus.Hook to write different log levels to different files
type FileHook struct {
	ErrorWriter io.Writer
	InfoWriter  io.Writer
	DebugWriter io.Writer
}

func (hook *FileHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	var w io.Writer
	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		w = hook.ErrorWriter
	case logrus.WarnLevel, logrus.InfoLevel:
		w = hook.InfoWriter
	case logrus.DebugLevel, logrus.TraceLevel:
		w = hook.DebugWriter
	}
	if w == nil {
		return nil
	}

	_, err = w.Write([]byte(line))
	return err
}

func (hook *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func Error(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Error(msg)
	}
}

func Info(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Info(msg)
	}
}

func Debug(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Debug(msg)
	}
}

func Warn(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Warn(msg)
	}
}

// Fatal logs at fatal level and exits the process. Without an initialized
// logger it still exits.
func Fatal(msg string, fields map[string]interface{}) {
	if Logger != nil {
		Logger.WithFields(fields).Fatal(msg)
	}
	os.Exit(1)
}

func InfoMsg(msg string) {
	Info(msg, nil)
}
