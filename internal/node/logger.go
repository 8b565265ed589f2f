package node

import (
	"github.com/hashicorp/go-hclog"
	"go.uber.org/zap"
)

// newRaftLogger 把 raft 的 hclog 输出逐行转给 zap，级别沿用节点配置。
func newRaftLogger(logger *zap.Logger, level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        "raft",
		Level:       hclog.LevelFromString(level),
		Output:      zap.NewStdLog(logger).Writer(),
		DisableTime: true,
	})
}
