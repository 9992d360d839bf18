package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"docdex/internal/config"
	"docdex/internal/database/kafka"
	"docdex/internal/database/milvus"
	"docdex/internal/database/mongo"
	"docdex/internal/database/mysql"
	"docdex/internal/database/redis"
	"docdex/internal/embedding"
	"docdex/internal/rag/pipeline"
	"docdex/internal/rag/splitters"
	"docdex/internal/rag/storages/vectorstore"
	"docdex/internal/registry"
	"docdex/internal/tasks"
	"docdex/internal/validation"
	"docdex/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.Init(*logLevel)
	log := logger.New("worker")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc, err := milvus.NewClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Milvus")
	}
	defer mc.Close()
	if err := mc.EnsureCollection(ctx, cfg.Databases.Milvus.Collection); err != nil {
		log.WithError(err).Fatal("Failed to prepare Milvus collection")
	}

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		log.WithError(err).Fatal("Failed to build embedding model")
	}
	store, err := vectorstore.NewMilvusStore(mc, embedder, cfg.Databases.Milvus.Collection, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build vector store")
	}

	splitter, err := splitters.NewCharacterSplitter(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	if err != nil {
		log.WithError(err).Fatal("Invalid chunking configuration")
	}
	validator := validation.New(int64(cfg.Ingestion.MaxFileSizeMB) * 1024 * 1024)
	ingestion := pipeline.NewIngestionPipeline(validator, splitter, store, cfg.Databases.Milvus.Collection, log)

	mongoClient, err := mongo.NewClient(ctx, &cfg.Databases.Mongo)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())
	taskStore := tasks.NewMongoTaskStore(mongoClient, cfg.Databases.Mongo.Database, cfg.Databases.Mongo.TaskCollection)

	rdb, err := redis.NewClient(ctx, &cfg.Databases.Redis)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer rdb.Close()
	lock := tasks.NewSourceLock(rdb, time.Duration(cfg.Ingestion.LockTTL)*time.Second)

	db, err := mysql.NewDB(&cfg.Databases.MySQL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MySQL")
	}
	reg, err := registry.New(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize document registry")
	}

	if err := kafka.EnsureTopic(&cfg.Databases.Kafka); err != nil {
		log.WithError(err).Fatal("Failed to ensure Kafka topic")
	}
	consumer := tasks.NewConsumer(kafka.NewReader(&cfg.Databases.Kafka), log)
	defer consumer.Close()

	w := &worker{
		ingestion: ingestion,
		taskStore: taskStore,
		lock:      lock,
		registry:  reg,
		log:       log,
	}

	log.Info("Worker consuming ingestion jobs")
	if err := consumer.Run(ctx, w.handle); err != nil {
		log.WithError(err).Fatal("Consumer stopped")
	}
	log.Info("Worker shut down")
}

type worker struct {
	ingestion *pipeline.IngestionPipeline
	taskStore tasks.TaskStore
	lock      *tasks.SourceLock
	registry  *registry.Registry
	log       *logger.Logger
}

// handle runs one ingestion job end to end, moving its task record from
// pending through running to a terminal state.
func (w *worker) handle(ctx context.Context, job *tasks.IngestionJob) error {
	task, err := w.taskStore.GetByID(ctx, job.TaskID)
	if err != nil {
		return fmt.Errorf("failed to load task for job %s: %w", job.TaskID, err)
	}

	task.Status = tasks.StatusRunning
	if err := w.taskStore.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to mark task %s running: %w", task.ID, err)
	}

	sourceID := task.SourceFile
	acquired, err := w.lock.Acquire(ctx, sourceID)
	if err != nil {
		return w.fail(ctx, task, err)
	}
	if !acquired {
		return w.fail(ctx, task, fmt.Errorf("source %s is already being ingested", sourceID))
	}
	defer func() {
		if err := w.lock.Release(context.Background(), sourceID); err != nil {
			w.log.WithError(err).Warn("Failed to release ingestion lock")
		}
	}()

	report, err := w.ingestion.Ingest(ctx, job.Path)
	if err != nil {
		return w.fail(ctx, task, err)
	}

	var sizeBytes int64
	if info, statErr := os.Stat(job.Path); statErr == nil {
		sizeBytes = info.Size()
	}
	rec := &registry.DocumentRecord{
		SourceID:   report.SourceID,
		FileName:   report.SourceID,
		Extension:  filepath.Ext(report.SourceID),
		SizeBytes:  sizeBytes,
		ChunkCount: report.ChunksStored,
		IngestedAt: time.Now().UTC(),
	}
	if err := w.registry.Upsert(ctx, rec); err != nil {
		w.log.WithError(err).Warn("Failed to record document in registry")
	}

	now := time.Now().UTC()
	task.Status = tasks.StatusSuccess
	task.Report = report
	task.CompletedAt = &now
	return w.taskStore.Update(ctx, task)
}

func (w *worker) fail(ctx context.Context, task *tasks.TaskRecord, cause error) error {
	now := time.Now().UTC()
	task.Status = tasks.StatusFailed
	task.Error = cause.Error()
	task.CompletedAt = &now
	if err := w.taskStore.Update(ctx, task); err != nil {
		w.log.WithError(err).Error("Failed to mark task failed")
	}
	return cause
}
