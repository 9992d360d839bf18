package registry

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRecord is one row of the ingested-document registry. The vector
// store answers similarity queries; this table answers "what is indexed"
// without scanning it.
type DocumentRecord struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	SourceID   string    `gorm:"uniqueIndex;size:512" json:"source_id"`
	FileName   string    `gorm:"size:512" json:"file_name"`
	Extension  string    `gorm:"size:16" json:"extension"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// TableName keeps the table name stable across GORM naming-strategy changes.
func (DocumentRecord) TableName() string { return "documents" }

// Registry tracks which documents have been ingested.
type Registry struct {
	db *gorm.DB
}

// New migrates the registry table and returns the registry.
func New(db *gorm.DB) (*Registry, error) {
	if err := db.AutoMigrate(&DocumentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document registry: %w", err)
	}
	return &Registry{db: db}, nil
}

// Upsert records a completed ingestion, replacing any previous row for the
// same source.
func (r *Registry) Upsert(ctx context.Context, rec *DocumentRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_name", "extension", "size_bytes", "chunk_count", "ingested_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert document record %s: %w", rec.SourceID, err)
	}
	return nil
}

// List returns all registered documents, most recently ingested first.
func (r *Registry) List(ctx context.Context) ([]DocumentRecord, error) {
	var records []DocumentRecord
	err := r.db.WithContext(ctx).Order("ingested_at DESC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list document records: %w", err)
	}
	return records, nil
}

// Get returns the record for one source, or gorm.ErrRecordNotFound.
func (r *Registry) Get(ctx context.Context, sourceID string) (*DocumentRecord, error) {
	var rec DocumentRecord
	err := r.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
