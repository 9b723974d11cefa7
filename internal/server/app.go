package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfers-client/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	HttpPort string
	// ShutdownTimeout bounds the graceful stop; a pending balance request
	// may be waiting for a block.
	ShutdownTimeout time.Duration
}

type App struct {
	httpServer *http.Server
	timeout    time.Duration
	onStop     []func(context.Context)
}

func New(cfg Config, httpHandler *gin.Engine) *App {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &App{
		httpServer: &http.Server{
			Addr:              ":" + cfg.HttpPort,
			Handler:           httpHandler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		timeout: timeout,
	}
}

// OnStop registers cleanup that runs after the HTTP server has drained.
func (a *App) OnStop(fn func(context.Context)) {
	a.onStop = append(a.onStop, fn)
}

// Run 启动服务并阻塞，直到收到关闭信号
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is done or the listener fails.
func (a *App) RunContext(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP Server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("HTTP Server failure", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	for _, fn := range a.onStop {
		fn(shutdownCtx)
	}
	logger.Info("Server exited properly")
	return nil
}
