package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/async"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
	"github.com/joseph-ayodele/convenio-extractor/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipartSlack leaves room for form boundaries and headers on top of the file itself.
const multipartSlack = 1 << 20

func (h *Handler) upload(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartSlack)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "arquivo excede o tamanho máximo"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "campo 'file' ausente no formulário"})
		return
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "arquivo excede o tamanho máximo"})
		return
	}
	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("filename", fh.Filename, common.Required, common.PDFFilename, common.MaxLength(255))); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "não foi possível ler o arquivo"})
		return
	}
	defer func() { _ = f.Close() }()

	id := uuid.NewString()
	stored, err := h.store.Save(id, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if _, err := h.jobs.Create(id, fh.Filename, stored.Path); err != nil {
		_ = h.store.Remove(id)
		h.writeError(c, err)
		return
	}
	common.Logger(c.Request.Context(), h.logger).Info("upload.accepted",
		"job_id", id, "filename", fh.Filename, "size", stored.Size, "sha256", stored.HashHex)
	c.JSON(http.StatusCreated, gin.H{
		"job_id":   id,
		"filename": fh.Filename,
		"message":  "Arquivo recebido. Use /process/" + id + " para iniciar o processamento.",
	})
}

func (h *Handler) process(c *gin.Context) {
	id := c.Param("id")
	job, ok := h.jobs.Get(id)
	if !ok {
		h.writeError(c, common.NotFoundErrorf("job %s not found", id))
		return
	}
	if job.Status != constants.JobStatusPending {
		h.writeError(c, common.InvalidStateErrorf("job %s is %s, expected %s", id, job.Status, constants.JobStatusPending))
		return
	}
	task := async.Task{JobID: id, Filename: job.Filename, Path: job.StoragePath, SubmittedAt: time.Now()}
	if err := h.queue.Submit(c.Request.Context(), task); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  id,
		"status":  constants.JobStatusPending,
		"message": "Processamento iniciado",
	})
}

func (h *Handler) status(c *gin.Context) {
	p, ok := h.jobs.Progress(c.Param("id"))
	if !ok {
		h.writeError(c, common.NotFoundErrorf("job %s not found", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, p)
}

type resultResponse struct {
	Status constants.JobStatus `json:"status"`
	entity.JobResult
}

func (h *Handler) result(c *gin.Context) {
	id := c.Param("id")
	job, ok := h.jobs.Get(id)
	if !ok {
		h.writeError(c, common.NotFoundErrorf("job %s not found", id))
		return
	}
	switch job.Status {
	case constants.JobStatusDone:
		res, _ := h.jobs.Result(id)
		c.JSON(http.StatusOK, resultResponse{Status: job.Status, JobResult: res})
	case constants.JobStatusProcessing:
		p, _ := h.jobs.Progress(id)
		c.JSON(http.StatusTooEarly, gin.H{"error": "processamento em andamento", "progress": p})
	case constants.JobStatusPending:
		c.JSON(http.StatusBadRequest, gin.H{"error": "processamento ainda não iniciado"})
	case constants.JobStatusError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": job.ErrorMessage})
	case constants.JobStatusCancelled:
		c.JSON(http.StatusGone, gin.H{"error": "processamento cancelado"})
	}
}

func (h *Handler) exportXLSX(c *gin.Context) {
	id := c.Param("id")
	job, ok := h.jobs.Get(id)
	if !ok || job.Status != constants.JobStatusDone {
		c.JSON(http.StatusNotFound, gin.H{"error": "resultado não disponível"})
		return
	}
	res, _ := h.jobs.Result(id)
	data, err := h.exporter.BuildXLSX(c.Request.Context(), res)
	if errors.Is(err, export.ErrNoRecords) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "nenhum registro para exportar"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	if h.resultsDir != "" {
		if _, err := export.WriteFile(h.resultsDir, id, data); err != nil {
			common.Logger(c.Request.Context(), h.logger).Warn("export.persist.failed", "job_id", id, "error", err)
		}
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(res)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) cancel(c *gin.Context) {
	id := c.Param("id")
	before, _ := h.jobs.Get(id)
	if err := h.jobs.Cancel(id); err != nil {
		h.writeError(c, err)
		return
	}
	// A running worker still reads the upload and removes it when it stops.
	if before.Status == constants.JobStatusPending {
		if err := h.store.Remove(id); err != nil {
			common.Logger(c.Request.Context(), h.logger).Warn("cancel.cleanup.failed", "job_id", id, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"job_id": id, "status": constants.JobStatusCancelled, "message": "Processamento cancelado"})
}

func (h *Handler) listJobs(c *gin.Context) {
	status, ok := parseStatusQuery(c)
	if !ok {
		return
	}
	jobs := h.jobs.List(status)
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

func (h *Handler) listArchive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "arquivo de jobs desabilitado"})
		return
	}
	status, ok := parseStatusQuery(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}
	jobs, err := h.archive.List(c.Request.Context(), status, limit)
	if err != nil {
		h.writeError(c, fmt.Errorf("list archive: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// parseStatusQuery reads the optional ?status= filter; it writes a 400 and
// returns false when the value is not a known status.
func parseStatusQuery(c *gin.Context) (*constants.JobStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	st, ok := constants.ParseJobStatus(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + strconv.Quote(raw)})
		return nil, false
	}
	return &st, true
}

// writeError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists), errors.Is(err, common.ErrInvalidState):
		code = http.StatusConflict
	case errors.Is(err, common.ErrTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrQueueFull), errors.Is(err, common.ErrShuttingDown):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		common.Logger(c.Request.Context(), h.logger).Error("http.error", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
