package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/iam-archie/school-chatbot/internal/application"
	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// TextCorpusRequest is the body of POST /api/v1/corpus/text.
type TextCorpusRequest struct {
	Source string   `json:"source" binding:"required"`
	Texts  []string `json:"texts" binding:"required,min=1"`
}

// SafetyMetricsResponse is the body of GET /api/v1/safety/metrics.
type SafetyMetricsResponse struct {
	Counters     map[string]int64 `json:"counters"`
	TotalBlocked int64            `json:"total_blocked"`
}

func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrBadRequestCode, "body must be a JSON object with a question", err)
		return
	}

	resp, err := s.opts.Queries.SubmitQuery(c.Request.Context(), req.Question)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, domain.ErrEmptyQuery):
		respondError(c, http.StatusBadRequest, ErrBadRequestCode, "question must not be empty", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(c, http.StatusRequestTimeout, ErrRequestTimeoutCode, "request was cancelled", err)
	default:
		respondError(c, http.StatusInternalServerError, ErrInternalCode, "could not answer the question", err)
	}
}

func (s *Server) loadText(c *gin.Context) {
	var req TextCorpusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrBadRequestCode, "body must name a source and list its texts", err)
		return
	}
	report, err := s.opts.Corpus.LoadTexts(c.Request.Context(), req.Source, req.Texts)
	s.respondIngest(c, report, err)
}

func (s *Server) loadPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, ErrPayloadTooLargeCode, "uploaded file is too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, ErrBadRequestCode, "multipart field \"file\" is required", err)
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrBadRequestCode, "could not read uploaded file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrBadRequestCode, "could not read uploaded file", err)
		return
	}

	name := filepath.Base(header.Filename)
	report, err := s.opts.Corpus.LoadPDFReader(c.Request.Context(), name, bytes.NewReader(data), int64(len(data)))
	s.respondIngest(c, report, err)
}

func (s *Server) loadSample(c *gin.Context) {
	report, err := s.opts.Corpus.LoadSample(c.Request.Context())
	s.respondIngest(c, report, err)
}

func (s *Server) respondIngest(c *gin.Context, report *application.IngestReport, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, report)
	case errors.Is(err, domain.ErrEmptyCorpus):
		respondError(c, http.StatusUnprocessableEntity, ErrEmptyCorpusCode, "no text could be extracted", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(c, http.StatusRequestTimeout, ErrRequestTimeoutCode, "request was cancelled", err)
	case errors.Is(err, ports.ErrServiceUnavailable):
		respondError(c, http.StatusBadGateway, ErrServiceUnavailableCode, "embedding service failed", err)
	default:
		respondError(c, http.StatusUnprocessableEntity, ErrBadRequestCode, "could not read the document", err)
	}
}

func (s *Server) safetyMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, SafetyMetricsResponse{
		Counters:     s.opts.Safety.Snapshot(),
		TotalBlocked: s.opts.Safety.TotalBlocked(),
	})
}

func (s *Server) safetyReport(c *gin.Context) {
	c.String(http.StatusOK, s.opts.Safety.Report())
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.opts.Index != nil {
		n, err := s.opts.Index.Count(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, ErrServiceUnavailableCode, "index is unreachable", err)
			return
		}
		body["chunks"] = n
	}
	c.JSON(http.StatusOK, body)
}
