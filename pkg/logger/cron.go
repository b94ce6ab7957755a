package logger

import "github.com/robfig/cron/v3"

// cronLogger 把 cron 内部日志 (跳过任务、panic 恢复) 接到 zap
type cronLogger struct{}

// NewCronLogger 返回实现 cron.Logger 的适配器
func NewCronLogger() cron.Logger {
	return cronLogger{}
}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	Log.Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	Log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
