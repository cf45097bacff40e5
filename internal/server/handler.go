package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/async"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
	"github.com/joseph-ayodele/convenio-extractor/internal/export"
	"github.com/joseph-ayodele/convenio-extractor/internal/ingest"
	"github.com/joseph-ayodele/convenio-extractor/internal/repository"
)

// JobTable is the view of the job manager the HTTP layer works against.
type JobTable interface {
	Create(id, filename, path string) (entity.Job, error)
	Get(id string) (entity.Job, bool)
	Progress(id string) (entity.Progress, bool)
	Result(id string) (entity.JobResult, bool)
	Cancel(id string) error
	List(status *constants.JobStatus) []entity.Job
}

// Config carries the collaborators of the HTTP front end. Archive may be nil
// when no archive database is configured.
type Config struct {
	Jobs           JobTable
	Queue          async.Queue
	Store          *ingest.Store
	Exporter       *export.Service
	Archive        repository.ArchiveRepository
	ResultsDir     string
	MaxUploadBytes int64
	Workers        int
	Logger         *slog.Logger
}

// Handler wires HTTP routes to the job table, the worker queue and the exporter.
type Handler struct {
	jobs       JobTable
	queue      async.Queue
	store      *ingest.Store
	exporter   *export.Service
	archive    repository.ArchiveRepository
	resultsDir string
	maxUpload  int64
	workers    int
	logger     *slog.Logger
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	return &Handler{
		jobs:       cfg.Jobs,
		queue:      cfg.Queue,
		store:      cfg.Store,
		exporter:   exporter,
		archive:    cfg.Archive,
		resultsDir: cfg.ResultsDir,
		maxUpload:  cfg.MaxUploadBytes,
		workers:    cfg.Workers,
		logger:     logger,
	}
}

// NewRouter builds a gin engine with recovery, request logging and all routes.
func (h *Handler) NewRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)
	router.POST("/upload", h.upload)
	router.POST("/process/:id", h.requireJobID(), h.process)
	router.GET("/status/:id", h.requireJobID(), h.status)
	router.GET("/result/:id", h.requireJobID(), h.result)
	router.GET("/export/:id", h.requireJobID(), h.exportXLSX)
	router.DELETE("/job/:id", h.requireJobID(), h.cancel)
	router.GET("/jobs", h.listJobs)
	router.GET("/jobs/archive", h.listArchive)
}

// requestLogger tags each request with an id and logs it once it completes.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), reqID))

		c.Next()

		h.logger.Info("http.request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

// requireJobID rejects path ids that are not UUIDs before any lookup happens.
func (h *Handler) requireJobID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := common.ValidateJobID(c.Param("id")); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "workers": h.workers})
}
