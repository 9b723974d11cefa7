package main

import (
	"context"
	"flag"
	"time"

	"transfers-client/internal/bootstrap"
	"transfers-client/internal/handler"
	"transfers-client/internal/server"
	"transfers-client/pkg/config"
	"transfers-client/pkg/logger"
	"transfers-client/pkg/validator"

	"go.uber.org/zap"

	_ "transfers-client/docs/swagger"
)

// @title Transfers Client API
// @version 1.0
// @description Encrypted balance client for the transfers contract

// @host localhost:8080
// @BasePath /

func main() {
	configFile := flag.String("config", "", "config file (default ./config.yaml)")
	account := flag.String("account", "", "account to connect at startup, empty for the chain.from keyring entry")
	connect := flag.Bool("connect", true, "connect the session at startup")
	flag.Parse()

	// 0. 初始化 Config
	config.Init(*configFile)

	// 初始化 Validator
	validator.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 组装组件 (redis / mq / chain clients)
	ctx := context.Background()
	c, err := bootstrap.New(ctx, &config.Global)
	if err != nil {
		logger.Fatal("初始化失败", zap.Error(err))
	}
	defer c.Close()

	// 3. 连接会话账户, 失败时仍可通过 POST /api/v1/session 重试
	if *connect {
		if addr, err := c.Wallet.Connect(ctx, *account); err != nil {
			logger.Warn("startup connect failed", zap.Error(err))
		} else {
			logger.Info("session connected", zap.String("account", addr))
		}
	}

	// 4. HTTP Router
	r := server.NewHTTPRouter(handler.NewWalletHandler(c.Wallet), c.Registry)

	// 5. 启动应用 (阻塞), 等待中的余额请求最多等一个响应超时
	app := server.New(server.Config{
		HttpPort:        config.Global.App.HttpPort,
		ShutdownTimeout: config.Global.Balance.ResponseTimeout + 5*time.Second,
	}, r)
	app.OnStop(func(ctx context.Context) {
		// 断开账户会话, 进行中的请求已随 HTTP 连接结束
		if err := c.Flow.Disconnect(ctx); err != nil {
			logger.Warn("disconnect on shutdown", zap.Error(err))
		}
	})

	if err := app.Run(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
	logger.Info("系统已退出")
}
