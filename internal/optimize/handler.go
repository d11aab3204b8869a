package optimize

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-tailor-backend/internal/generated"
	"cv-tailor-backend/internal/llm"
	"cv-tailor-backend/internal/render"
	"cv-tailor-backend/internal/shared/server/middleware"
	"cv-tailor-backend/internal/shared/server/respond"
	"cv-tailor-backend/internal/shared/telemetry"
	"cv-tailor-backend/internal/staging"
)

// Handler wires the tailoring pipeline to HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches pipeline routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/optimize-for-job", h.optimize)
	rg.GET("/download/:filename", h.download)
}

type optimizeResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Analysis any    `json:"analysis,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func (h *Handler) optimize(c *gin.Context) {
	jobDescription := c.PostForm("jobDescription")

	fileHeader, err := c.FormFile("cv")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "A CV file and a job description are required.", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "The uploaded CV file could not be read.", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "The uploaded CV file could not be read.", nil)
		return
	}

	result, err := h.Svc.Optimize(c.Request.Context(), Input{
		Data:           data,
		MediaType:      fileHeader.Header.Get("Content-Type"),
		FileName:       fileHeader.Filename,
		JobDescription: jobDescription,
		RequestID:      middleware.RequestIDFromContext(c),
	})
	if err != nil {
		c.Set("pipelineState", string(stateFailed))
		h.respondPipelineError(c, err)
		return
	}

	c.Set("pipelineState", string(stateCompleted))
	respond.JSON(c, http.StatusOK, optimizeResponse{
		Success:  true,
		Message:  result.Message,
		Analysis: result.Analysis,
		Filename: result.Filename,
	})
}

// respondPipelineError maps pipeline failures to the wire contract:
// validation problems are actionable 400s, everything else is a generic 500
// with the full detail kept in the logs.
func (h *Handler) respondPipelineError(c *gin.Context, err error) {
	if errors.Is(err, staging.ErrValidation) {
		respond.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	telemetry.Error("optimize.pipeline.error", map[string]any{
		"request_id": middleware.RequestIDFromContext(c),
		"err":        err.Error(),
	})

	switch {
	case errors.Is(err, llm.ErrTransport),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.Is(err, llm.ErrMalformedResponse):
		respond.Error(c, http.StatusInternalServerError, "Failed to process the resume with the language model.", nil)
	case errors.Is(err, render.ErrRender):
		respond.Error(c, http.StatusInternalServerError, "Failed to generate the PDF file.", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "Failed to process the request.", nil)
	}
}

func (h *Handler) download(c *gin.Context) {
	filename := c.Param("filename")

	data, contentType, err := h.Svc.Download(c.Request.Context(), filename)
	if err != nil {
		if errors.Is(err, generated.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "File not found.", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "Failed to load the file.", nil)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
