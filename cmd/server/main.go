package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docdex/internal/api"
	"docdex/internal/config"
	"docdex/internal/database/kafka"
	"docdex/internal/database/milvus"
	"docdex/internal/database/minio"
	"docdex/internal/database/mongo"
	"docdex/internal/database/mysql"
	"docdex/internal/embedding"
	"docdex/internal/rag/interfaces"
	"docdex/internal/rag/pipeline"
	"docdex/internal/rag/storages/vectorstore"
	"docdex/internal/registry"
	"docdex/internal/storage"
	"docdex/internal/tasks"
	"docdex/internal/validation"
	"docdex/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.Init(*logLevel)
	log := logger.New("server")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		log.WithError(err).Fatal("Failed to create upload directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc, err := milvus.NewClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Milvus")
	}
	defer mc.Close()

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.WithError(err).Fatal("Failed to build embedding model")
	}

	scope, err := buildScope(ctx, cfg, mc, embedder, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build retrieval scope")
	}

	mongoClient, err := mongo.NewClient(ctx, &cfg.Databases.Mongo)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())
	taskStore := tasks.NewMongoTaskStore(mongoClient, cfg.Databases.Mongo.Database, cfg.Databases.Mongo.TaskCollection)

	if err := kafka.EnsureTopic(&cfg.Databases.Kafka); err != nil {
		log.WithError(err).Fatal("Failed to ensure Kafka topic")
	}
	publisher := tasks.NewPublisher(kafka.NewWriter(&cfg.Databases.Kafka), log)
	defer publisher.Close()

	db, err := mysql.NewDB(&cfg.Databases.MySQL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MySQL")
	}
	reg, err := registry.New(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize document registry")
	}

	var archive *storage.Archive
	if cfg.Databases.MinIO.Endpoint != "" {
		minioClient, err := minio.NewClient(ctx, &cfg.Databases.MinIO)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MinIO")
		}
		archive, err = storage.NewArchive(ctx, minioClient, cfg.Databases.MinIO.Bucket, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize upload archive")
		}
	}

	validator := validation.New(int64(cfg.Ingestion.MaxFileSizeMB) * 1024 * 1024)
	handlers := api.NewHandlers(validator, scope, taskStore, publisher, reg, archive, cfg.Server.UploadDir, log)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		log.WithPayload(map[string]interface{}{"address": cfg.Server.Address}).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// buildScope constructs the retrieval scope named by the configuration. The
// metadata scope uses one collection; the dual scope keeps summaries and
// chunks in separate collections.
func buildScope(ctx context.Context, cfg *config.AppConfig, mc *milvus.Client, embedder interfaces.EmbeddingModel, log *logger.Logger) (pipeline.DocumentScope, error) {
	switch cfg.Retrieval.Scope {
	case "dual":
		if err := mc.EnsureCollection(ctx, cfg.Databases.Milvus.SummaryCollection); err != nil {
			return nil, err
		}
		if err := mc.EnsureCollection(ctx, cfg.Databases.Milvus.ChunkCollection); err != nil {
			return nil, err
		}
		summaries, err := vectorstore.NewMilvusStore(mc, embedder, cfg.Databases.Milvus.SummaryCollection, log)
		if err != nil {
			return nil, err
		}
		chunks, err := vectorstore.NewMilvusStore(mc, embedder, cfg.Databases.Milvus.ChunkCollection, log)
		if err != nil {
			return nil, err
		}
		return pipeline.NewDualStoreScope(summaries, chunks), nil
	default:
		if err := mc.EnsureCollection(ctx, cfg.Databases.Milvus.Collection); err != nil {
			return nil, err
		}
		store, err := vectorstore.NewMilvusStore(mc, embedder, cfg.Databases.Milvus.Collection, log)
		if err != nil {
			return nil, err
		}
		return pipeline.NewMetadataScope(store), nil
	}
}
