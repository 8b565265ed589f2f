package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"permissioned_ledger_go/config"
	"permissioned_ledger_go/internal/node"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "config/config.yml", "path to YAML config; LEDGER_* env vars override it")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	n, err := node.NewNode(cfg, logger)
	if err != nil {
		logger.Fatal("start node", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutting down", zap.Stringer("signal", s))
	case err := <-errCh:
		logger.Error("http server stopped", zap.Error(err))
	}
	if err := n.Close(); err != nil {
		logger.Error("close node", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
