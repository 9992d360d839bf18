package api

import "github.com/gin-gonic/gin"

// NewRouter builds the HTTP API.
func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.POST("/upload", h.Upload)
	r.GET("/tasks/:id", h.GetTask)
	r.POST("/query", h.Query)
	r.GET("/documents", h.ListDocuments)
	r.GET("/documents/:source_id", h.GetDocument)
	r.GET("/stats", h.Stats)

	return r
}
