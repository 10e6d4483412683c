package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel.
// Unknown names fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a leveled logger backed by zap. It satisfies the
// Debugf/Infof/Warnf/Errorf interface expected by the usvscope packages.
type Logger struct {
	mu    sync.Mutex
	cfg   Config
	level zap.AtomicLevel
	zl    *zap.Logger
	sugar *zap.SugaredLogger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	JSON       bool
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Prefix:     "",
		Colorize:   true,
		ShowCaller: false,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}

	l := &Logger{cfg: cfg, level: zap.NewAtomicLevelAt(cfg.Level.zapLevel())}
	l.build()
	return l
}

// NewFromZap wraps an existing zap logger, e.g. one produced by zaptest.
func NewFromZap(zl *zap.Logger) *Logger {
	return &Logger{
		cfg:   DefaultConfig(),
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
		zl:    zl,
		sugar: zl.Sugar(),
	}
}

// build must be called with mu held (or before the logger is shared).
func (l *Logger) build() {
	encCfg := zap.NewDevelopmentEncoderConfig()
	if l.cfg.JSON {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	} else if l.cfg.Colorize {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if l.cfg.ShowTime {
		if !l.cfg.JSON {
			encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(l.cfg.TimeFormat)
		}
	} else {
		encCfg.TimeKey = ""
	}
	if !l.cfg.ShowCaller {
		encCfg.CallerKey = ""
	}

	var enc zapcore.Encoder
	if l.cfg.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(l.cfg.Output)), l.level)
	opts := []zap.Option{}
	if l.cfg.ShowCaller {
		// Skip the wrapper frame so callers see their own file:line.
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	zl := zap.New(core, opts...)
	if l.cfg.Prefix != "" {
		zl = zl.Named(l.cfg.Prefix)
	}
	l.zl = zl
	l.sugar = zl.Sugar()
}

func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
			cfg.Level = ParseLevel(envLevel)
		}
		if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
			cfg.JSON = true
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl
}

// With returns a child logger carrying the given key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{cfg: l.cfg, level: l.level}
	child.sugar = l.sugar.With(keysAndValues...)
	child.zl = child.sugar.Desugar()
	return child
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Level = level
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Output = w
	l.build()
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Colorize = colorize
	l.build()
}

func (l *Logger) SetShowCaller(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.ShowCaller = show
	l.build()
}

func (l *Logger) s() *zap.SugaredLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sugar
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	err := l.s().Sync()
	if err != nil && strings.Contains(err.Error(), "inappropriate ioctl for device") {
		return nil
	}
	return err
}

func (l *Logger) Debug(msg string, args ...any) { l.s().Debugf(msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.s().Infof(msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.s().Warnf(msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.s().Errorf(msg, args...) }

// Fatal logs at FATAL level and exits the program.
func (l *Logger) Fatal(msg string, args ...any) { l.s().Fatalf(msg, args...) }

func (l *Logger) Debugf(format string, args ...any) { l.s().Debugf(format, args...) }

func (l *Logger) Infof(format string, args ...any) { l.s().Infof(format, args...) }

func (l *Logger) Warnf(format string, args ...any) { l.s().Warnf(format, args...) }

func (l *Logger) Errorf(format string, args ...any) { l.s().Errorf(format, args...) }

func (l *Logger) Fatalf(format string, args ...any) { l.s().Fatalf(format, args...) }

// Package-level convenience functions using the default logger

func Debugf(format string, args ...any) { GetLogger().Debugf(format, args...) }

func Infof(format string, args ...any) { GetLogger().Infof(format, args...) }

func Warnf(format string, args ...any) { GetLogger().Warnf(format, args...) }

func Errorf(format string, args ...any) { GetLogger().Errorf(format, args...) }

func Fatalf(format string, args ...any) { GetLogger().Fatalf(format, args...) }

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

// SetOutput sets the output for the default logger
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}
