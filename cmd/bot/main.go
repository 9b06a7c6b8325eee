package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	"github.com/xaenox/mind-bot/internal/bot"
	"github.com/xaenox/mind-bot/internal/chat"
	"github.com/xaenox/mind-bot/internal/classifier"
	"github.com/xaenox/mind-bot/internal/corpus"
	"github.com/xaenox/mind-bot/internal/responder"
	"github.com/xaenox/mind-bot/internal/server"
	"github.com/xaenox/mind-bot/internal/storage"
	"github.com/xaenox/mind-bot/internal/translate"
	"github.com/xaenox/mind-bot/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		zap.NewExample().Fatal("Failed to create logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		logger.Fatal("Failed to load intents", zap.Error(err), zap.String("path", cfg.Corpus.Path))
	}
	logger.Info("Loaded intents",
		zap.Int("patterns", table.Len()),
		zap.Int("tags", len(table.Tags())))

	backend, err := backends.New()
	if err != nil {
		logger.Fatal("Failed to create compute backend", zap.Error(err))
	}
	defer backend.Finalize()
	logger.Info("Compute backend ready", zap.String("backend", backend.Name()))

	clf, err := classifier.Bootstrap(ctx, backend, table, classifier.Options{
		CheckpointDir: cfg.Model.CheckpointDir,
		MaxLen:        cfg.Model.MaxLen,
		Dropout:       cfg.Model.Dropout,
		Backbone: classifier.BackboneConfig{
			Kind:       cfg.Model.Backbone,
			Repo:       cfg.Model.Repo,
			ONNXFile:   cfg.Model.ONNXFile,
			AuthToken:  cfg.Model.HFToken,
			Encoding:   cfg.Model.Encoding,
			HiddenSize: cfg.Model.HiddenSize,
			NumLayers:  cfg.Model.NumLayers,
			NumHeads:   cfg.Model.NumHeads,
		},
		Train: classifier.TrainConfig{
			Epochs:       cfg.Training.Epochs,
			BatchSize:    cfg.Training.BatchSize,
			LearningRate: cfg.Training.LearningRate,
			WeightDecay:  cfg.Training.WeightDecay,
			TrainSplit:   cfg.Training.TrainSplit,
			Seed:         cfg.Training.Seed,
		},
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize classifier", zap.Error(err))
	}

	engine, err := translate.ParseEngineType(cfg.Translation.Engine)
	if err != nil {
		logger.Fatal("Invalid translation engine", zap.Error(err))
	}
	translator, err := translate.NewTranslator(translate.Config{
		Engine:     engine,
		BaseURL:    cfg.Translation.URL,
		APIKey:     cfg.Translation.APIKey,
		Timeout:    cfg.Translation.Timeout,
		MaxRetries: cfg.Translation.MaxRetries,
		OpenAI: translate.OpenAIConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Failed to create translator", zap.Error(err))
	}
	if err := translator.CheckHealth(ctx); err != nil {
		logger.Warn("Translation backend is not reachable yet", zap.Error(err))
	} else if missing, err := translate.Unserved(ctx, translator); err != nil {
		logger.Warn("Failed to list backend languages", zap.Error(err))
	} else if len(missing) > 0 {
		logger.Warn("Translation backend does not serve some advertised languages",
			zap.Strings("languages", missing))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(ctx, dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	svc := chat.NewService(translator, clf, responder.NewSelector(table), store, logger)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, svc, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.Start()
	}()

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, svc, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		go func() {
			errCh <- b.Start(ctx)
		}()
	} else {
		logger.Info("Telegram token not set, bot disabled")
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
