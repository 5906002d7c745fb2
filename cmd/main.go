package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	infra "github.com/pot-code/learning-path/internal/infrastructure"
	"github.com/pot-code/learning-path/internal/infrastructure/driver"
	"github.com/pot-code/learning-path/internal/infrastructure/logging"
	"github.com/pot-code/learning-path/internal/infrastructure/uuid"
	"github.com/pot-code/learning-path/internal/infrastructure/validate"
	"github.com/pot-code/learning-path/internal/interfaces/rest"
	"github.com/pot-code/learning-path/internal/learningpath"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := driver.GetKeyValueDB(ctx, &driver.KVConfig{
		Driver:   option.KVStore.Driver,
		Host:     option.KVStore.Host,
		Port:     option.KVStore.Port,
		Password: option.KVStore.Password,
		DB:       option.KVStore.DB,
		User:     option.KVStore.User,
		Schema:   option.KVStore.Schema,
		Query:    option.KVStore.Query,
		Protocol: option.KVStore.Protocol,
		MaxConn:  option.KVStore.MaxConn,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to create kv connection", zap.Error(err))
	}
	defer kv.Close()
	logger.Debug("Create kv connection instance", zap.String("kv.driver", option.KVStore.Driver),
		zap.String("kv.host", option.KVStore.Host),
		zap.Int("kv.port", option.KVStore.Port),
		zap.String("kv.key", option.KVStore.Key),
	)

	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength).WithAlphabet(option.Security.IDAlphabet)
	LearningPathRepo := learningpath.NewLearningPathKV(kv, option.KVStore.Key, UUIDGenerator, validate.NewValidator(option.Validation.Locale), logger)
	LearningPathUseCase := learningpath.NewProvider(LearningPathRepo, logger)
	if err := LearningPathUseCase.Start(ctx); err != nil {
		// served with LastError set until a refresh succeeds
		logger.Error("Failed to load learning paths", zap.Error(err))
	}

	if err := rest.Serve(ctx, kv, option, LearningPathUseCase, logger); err != nil {
		logger.Error("Server exited", zap.Error(err))
	}
}
