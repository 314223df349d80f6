package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log defaults to a no-op logger until Init is called.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// Init 初始化全局日志, level 取值 debug/info/warn/error
func Init(level string) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Log.Sync()
}
