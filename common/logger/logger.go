package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	conf "github.com/abcfe/abcfe-vault/config"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Nop until InitLogger runs so library packages can log from tests.
var logger = zap.NewNop()
var stag string

func InitLogger(cfg *conf.Config) error {
	now := time.Now()
	lPath := fmt.Sprintf("%s_%s.log", cfg.LogInfo.Path, now.Format("2006-01-02"))

	if err := os.MkdirAll(filepath.Dir(lPath), 0700); err != nil {
		return err
	}

	// Check -debug flag
	hasDebugFlag := false
	for _, arg := range os.Args {
		if arg == "-debug" || arg == "--debug" {
			hasDebugFlag = true
			break
		}
	}

	// If -debug flag is present use "alpha", otherwise keep configured level (default prod)
	if hasDebugFlag {
		cfg.Common.Level = "alpha"
	} else if cfg.Common.Level == "" {
		cfg.Common.Level = "prod"
	}

	rotator, err := rotatelogs.New(
		lPath,
		rotatelogs.WithMaxAge(time.Duration(cfg.LogInfo.MaxAgeHour)*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(cfg.LogInfo.RotateHour)*time.Hour))
	if err != nil {
		return err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "date",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	w := zapcore.AddSync(rotator)
	cw := zapcore.AddSync(os.Stdout)
	var core zapcore.Core
	stag = cfg.Common.Level
	if stag == "alpha" {
		core = zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.DebugLevel),
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), cw, zap.DebugLevel),
		)
	} else {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, zap.InfoLevel)
	}
	logger = zap.New(core).Named(cfg.Common.ServiceName)

	logger.Info("logging init file start")
	return nil
}

// SetLogger replaces the package logger (tests, embedding)
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func join(ctx []interface{}) string {
	var b bytes.Buffer
	for _, str := range ctx {
		b.WriteString(fmt.Sprintf("%v", str))
	}
	return b.String()
}

func Debug(ctx ...interface{}) {
	logger.Debug("debug", zap.String("Debug", join(ctx)))
}

// Info is a convenient alias for Root().Info
func Info(ctx ...interface{}) {
	logger.Info("info", zap.String("Info", join(ctx)))
}

// Warn is a convenient alias for Root().Warn
func Warn(ctx ...interface{}) {
	logger.Warn("warn", zap.String("Warn", join(ctx)))
}

// Error is a convenient alias for Root().Error
func Error(ctx ...interface{}) {
	logger.Error("error", zap.String("Err", join(ctx)))
}

func Crit(ctx ...interface{}) {
	logger.Fatal("panic", zap.String("Crit", join(ctx)))
}

// Sync flushes buffered entries
func Sync() {
	_ = logger.Sync()
}

// Error handling
func HandleErr(err error) {
	if err != nil {
		Error(err)
	}
}
