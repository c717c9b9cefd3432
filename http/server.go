// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	MaxBodyBytes   int64
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		RateLimit:      20,
		RateBurst:      40,
		MaxBodyBytes:   1 << 16,
	}
}

// NewHandler 组装路由与中间件，测试中可直接使用
func NewHandler(config ServerConfig, h *Handlers) http.Handler {
	mux := http.NewServeMux()
	RegisterHandlers(mux, h)

	var observer RequestObserver
	if h.deps.Metrics != nil {
		observer = h.deps.Metrics
	}

	// 创建中间件链
	chain := Chain(
		RecoveryMiddleware(h.deps.Logger),                       // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(h.deps.Logger, observer),               // 2. 日志中间件
		SecurityHeadersMiddleware,                               // 3. 安全头中间件
		CORSMiddleware(config.AllowedOrigins),                   // 4. CORS中间件
		RateLimitMiddleware(config.RateLimit, config.RateBurst), // 5. 限流中间件
		RequestSizeMiddleware(config.MaxBodyBytes),              // 6. 请求大小限制
		TimeoutMiddleware(config.Timeout),                       // 7. 超时中间件
	)
	return chain(mux)
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, h *Handlers) *Server {
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewHandler(config, h),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: h.deps.Logger,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	s.logger.Info("prediction websocket endpoint", zap.String("url", fmt.Sprintf("ws://localhost%s/api/ws/predict", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
