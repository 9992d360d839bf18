package tasks

import (
	"time"

	"docdex/internal/rag/pipeline"
)

// TaskStatus is the lifecycle state of an ingestion task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusSuccess TaskStatus = "success"
	StatusFailed  TaskStatus = "failed"
)

// TaskRecord is the persisted state of one ingestion task. The upload handler
// creates it as pending; the worker moves it through running to a terminal
// state.
type TaskRecord struct {
	ID          string                    `bson:"_id" json:"task_id"`
	SourceFile  string                    `bson:"source_file" json:"source_file"`
	Status      TaskStatus                `bson:"status" json:"status"`
	Report      *pipeline.IngestionReport `bson:"report,omitempty" json:"report,omitempty"`
	Error       string                    `bson:"error,omitempty" json:"error,omitempty"`
	SubmittedAt time.Time                 `bson:"submitted_at" json:"submitted_at"`
	CompletedAt *time.Time                `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// IngestionJob is the message published to the job queue for each upload.
type IngestionJob struct {
	TaskID      string    `json:"task_id"`
	Path        string    `json:"path"`
	SubmittedAt time.Time `json:"submitted_at"`
}
