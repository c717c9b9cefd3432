package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"medcost/config"
	qhttp "medcost/http"
	"medcost/logging"
	"medcost/ml"
	"medcost/monitoring"
)

func main() {
	configFlag := flag.String("config", "", "path to config.yaml (default: ./config.yaml or ../config.yaml)")
	flag.Parse()

	// 1. Load config
	cfg, configPath, err := loadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	if configPath != "" {
		logger.Info("config loaded", zap.String("path", configPath))
	} else {
		logger.Info("no config file found, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Model store and predictor
	metrics := monitoring.NewMetrics()
	store := ml.NewModelStore(cfg.Model.Path, logger)
	store.OnLoad(metrics.ModelLoaded)
	checkModel(logger, store)

	if cfg.Model.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Warn("model watcher stopped", zap.Error(err))
			}
		}()
	}

	predictor, err := ml.NewPredictor(store, cfg.Model.CacheSize,
		ml.WithObserver(metrics),
		ml.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create predictor", zap.Error(err))
	}

	handlers, err := qhttp.NewHandlers(qhttp.Dependencies{
		Predictor:      predictor,
		Models:         store,
		Metrics:        metrics,
		Logger:         logger,
		Language:       qhttp.ParseLanguage(cfg.UI.Language),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	})
	if err != nil {
		logger.Fatal("failed to create handlers", zap.Error(err))
	}

	// 3. Start HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		RateBurst:      cfg.HTTP.RateBurst,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}, handlers)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 4. Handle graceful shutdown
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = config.Find("config.yaml")
	}
	if path == "" {
		cfg := config.Default()
		return &cfg, "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	cfg.Resolve(path)
	return cfg, path, nil
}

// checkModel 启动时加载一次模型并核对特征列，失败只告警，页面会提示模型不可用
func checkModel(logger *zap.Logger, store *ml.ModelStore) {
	model, err := store.Artifact()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("model artifact not found", zap.String("path", store.Path()))
			return
		}
		logger.Warn("model artifact could not be loaded", zap.String("path", store.Path()), zap.Error(err))
		return
	}
	if err := ml.CheckSchema(model); err != nil {
		logger.Error("model feature schema does not match the encoder", zap.Error(err))
		return
	}
	logger.Info("model ready", zap.String("path", store.Path()))
}
