package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"docdex/internal/rag/pipeline"
	"docdex/internal/registry"
	"docdex/internal/storage"
	"docdex/internal/tasks"
	"docdex/internal/validation"
	"docdex/pkg/logger"
)

// Handlers carries the dependencies of the HTTP API.
type Handlers struct {
	validator *validation.Validator
	scope     pipeline.DocumentScope
	inspector *pipeline.Inspector
	taskStore tasks.TaskStore
	publisher *tasks.Publisher
	registry  *registry.Registry
	archive   *storage.Archive // nil when archiving is disabled
	uploadDir string
	log       *logger.Logger
}

// NewHandlers wires the API dependencies.
func NewHandlers(
	validator *validation.Validator,
	scope pipeline.DocumentScope,
	taskStore tasks.TaskStore,
	publisher *tasks.Publisher,
	reg *registry.Registry,
	archive *storage.Archive,
	uploadDir string,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		validator: validator,
		scope:     scope,
		inspector: pipeline.NewInspector(scope),
		taskStore: taskStore,
		publisher: publisher,
		registry:  reg,
		archive:   archive,
		uploadDir: uploadDir,
		log:       log,
	}
}

// Upload accepts a multipart file, validates it and enqueues an ingestion
// job. It responds 202 with a task ID; ingestion itself happens in a worker.
func (h *Handlers) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	dst := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.log.WithError(err).Error("Failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	report, err := h.validator.Validate(dst)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "kind": string(verr.Kind)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.archive != nil {
		if err := h.archive.Store(c.Request.Context(), report.FileName, dst, report.ContentType); err != nil {
			h.log.WithError(err).Warn("Raw upload archiving failed")
		}
	}

	task := &tasks.TaskRecord{
		ID:          uuid.NewString(),
		SourceFile:  report.FileName,
		Status:      tasks.StatusPending,
		SubmittedAt: time.Now().UTC(),
	}
	if err := h.taskStore.Create(c.Request.Context(), task); err != nil {
		h.log.WithError(err).Error("Failed to create task record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	job := &tasks.IngestionJob{TaskID: task.ID, Path: dst, SubmittedAt: task.SubmittedAt}
	if err := h.publisher.Publish(c.Request.Context(), job); err != nil {
		task.Status = tasks.StatusFailed
		task.Error = "failed to enqueue ingestion job"
		_ = h.taskStore.Update(c.Request.Context(), task)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue ingestion job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":    task.ID,
		"status":     task.Status,
		"validation": report,
	})
}

// GetTask returns the state of one ingestion task.
func (h *Handlers) GetTask(c *gin.Context) {
	task, err := h.taskStore.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.log.WithError(err).Error("Failed to load task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

type queryResultItem struct {
	Text          string                 `json:"text"`
	Score         float32                `json:"score"`
	SimilarityPct float64                `json:"similarity_pct"`
	DocumentScore float32                `json:"document_score"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// Query runs the two-stage hierarchical search.
func (h *Handlers) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query field is required"})
		return
	}

	nDocs, nChunks := queryBudget(req.K)
	retriever := pipeline.NewHierarchicalRetriever(h.scope, nDocs, nChunks, h.log)
	results, err := retriever.Retrieve(c.Request.Context(), req.Query)
	if err != nil {
		h.log.WithError(err).Error("Retrieval failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retrieval failed"})
		return
	}

	items := make([]queryResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, queryResultItem{
			Text:          r.Document.Text,
			Score:         r.Score,
			SimilarityPct: similarityPct(r.Score),
			DocumentScore: r.ParentSummaryScore,
			Metadata:      r.Document.Metadata,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": items, "count": len(items)})
}

// ListDocuments returns the document registry.
func (h *Handlers) ListDocuments(c *gin.Context) {
	records, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": records, "count": len(records)})
}

// GetDocument reconstructs one ingested document from its chunks.
func (h *Handlers) GetDocument(c *gin.Context) {
	sourceID := c.Param("source_id")

	if _, err := h.registry.Get(c.Request.Context(), sourceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.log.WithError(err).Error("Failed to look up document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up document"})
		return
	}

	chunks, err := h.inspector.Reconstruct(c.Request.Context(), sourceID)
	if err != nil {
		h.log.WithError(err).Error("Failed to reconstruct document")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconstruct document"})
		return
	}
	summary, err := h.inspector.Summary(c.Request.Context(), sourceID)
	if err != nil {
		h.log.WithError(err).Error("Failed to load document summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document summary"})
		return
	}

	type chunkView struct {
		Index int    `json:"chunk_index"`
		Text  string `json:"text"`
	}
	views := make([]chunkView, 0, len(chunks))
	for _, ch := range chunks {
		idx, _ := ch.ChunkIndex()
		views = append(views, chunkView{Index: idx, Text: ch.Text})
	}
	resp := gin.H{"source_id": sourceID, "chunks": views, "count": len(views)}
	if summary != nil {
		resp["summary"] = summary.Text
	}
	c.JSON(http.StatusOK, resp)
}

// Stats reports corpus-level counts from the vector store.
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.inspector.CorpusStats(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to compute corpus stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// queryBudget maps a requested result count k to the two stage widths. k is
// clamped to [1, 20]; a zero k means "use the defaults".
func queryBudget(k int) (nDocs, nChunks int) {
	if k <= 0 {
		return 3, 5
	}
	if k > 20 {
		k = 20
	}
	nDocs = k / 3
	if nDocs < 2 {
		nDocs = 2
	}
	nChunks = k / nDocs
	if nChunks < 3 {
		nChunks = 3
	}
	return nDocs, nChunks
}

// similarityPct converts an L2 distance into a rough percentage for display.
// Lower distance means higher similarity; the scale bottoms out at zero.
func similarityPct(score float32) float64 {
	pct := 100 - float64(score)*10
	if pct < 0 {
		pct = 0
	}
	return pct
}
