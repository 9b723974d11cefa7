package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局 logger, Init 之前是 Nop, 库代码可以直接调用.
var Log = zap.NewNop()

// Init 按运行环境构建全局 logger: production 输出 JSON, 其余输出彩色 console.
func Init(env string) {
	l, err := newConfig(env).Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	Log = l
	zap.ReplaceGlobals(Log)
}

func newConfig(env string) zap.Config {
	if env == "production" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}

// Named returns a child of the global logger for a component. Components
// that are handed a nil logger fall back to this.
func Named(name string) *zap.Logger {
	return Log.WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

func Sync() {
	_ = Log.Sync()
}

func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
}
