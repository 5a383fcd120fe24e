package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fnolguard/internal/domain"
	"fnolguard/internal/middleware"
	"fnolguard/internal/service"
)

// Form fields accepted by Analyze.
const (
	FieldModel  = "model"
	FieldPrompt = "prompt"
	FieldFiles  = "files"
)

// Parts larger than this are spooled to temporary files while parsing.
const multipartMemory = 8 << 20

// AnalyzeResponse is the body of a successful analysis.
type AnalyzeResponse struct {
	FraudConfidenceScore domain.FraudScore     `json:"fraudConfidenceScore"`
	Rationale            []string              `json:"rationale"`
	FileProcessingErrors []domain.FileWarning  `json:"file_processing_errors"`
	RawAIResponsePreview string                `json:"raw_ai_response_preview"`
	Model                string                `json:"model"`
	ProcessedFiles       []domain.FileMetadata `json:"processed_files"`
}

// AnalysisHandler handles claim analysis requests.
type AnalysisHandler struct {
	analysisService service.AnalysisService
	maxRequestBytes int64
	log             *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, maxRequestBytes int64, log *zap.Logger) *AnalysisHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisHandler{analysisService: analysisService, maxRequestBytes: maxRequestBytes, log: log}
}

// Analyze handles POST /api/v1/analyze
// @Summary Analyze a claim
// @Description Store the attached files, describe them, and ask the selected model for a fraud confidence assessment
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param model formData string true "Model identity"
// @Param prompt formData string true "Claim narrative"
// @Param files formData file false "Supporting files (repeatable)"
// @Success 200 {object} AnalyzeResponse
// @Failure 400 {object} ErrorResponse "Invalid input or unknown model"
// @Failure 413 {object} ErrorResponse "Request too large"
// @Failure 500 {object} ErrorResponse "Model not configured or internal error"
// @Failure 502 {object} ErrorResponse "Model invocation failed"
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	// Registered before parsing so spooled parts are removed on every path.
	defer removeSpooledParts(c.Request)

	req, err := h.parseRequest(c)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	h.log.Debug("analysisHandler.Analyze: request parsed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("model", req.Model),
		zap.Int("files", len(req.Files)))

	result, err := h.analysisService.Analyze(c.Request.Context(), req)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, NewAnalyzeResponse(result))
}

func (h *AnalysisHandler) parseRequest(c *gin.Context) (domain.AnalysisRequest, error) {
	var req domain.AnalysisRequest
	if c.Request.Body == nil {
		return req, domain.ErrInvalidForm
	}
	if h.maxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	}

	err := c.Request.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = c.Request.ParseForm()
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return req, domain.ErrRequestTooLarge
		}
		return req, fmt.Errorf("%w: %v", domain.ErrInvalidForm, err)
	}

	req.Model = c.Request.PostFormValue(FieldModel)
	req.Narrative = c.Request.PostFormValue(FieldPrompt)

	if c.Request.MultipartForm == nil {
		return req, nil
	}
	for _, fh := range c.Request.MultipartForm.File[FieldFiles] {
		data, err := readPart(fh)
		if err != nil {
			return req, fmt.Errorf("reading file %s: %w", fh.Filename, err)
		}
		req.Files = append(req.Files, domain.UploadedFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return req, nil
}

func removeSpooledParts(r *http.Request) {
	if r != nil && r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// NewAnalyzeResponse converts a result into the response body, with empty
// lists rather than nulls.
func NewAnalyzeResponse(r *domain.AnalysisResult) AnalyzeResponse {
	resp := AnalyzeResponse{
		FraudConfidenceScore: r.Assessment.Score,
		Rationale:            r.Assessment.Rationale,
		FileProcessingErrors: r.FileWarnings,
		RawAIResponsePreview: r.Assessment.RawPreview,
		Model:                r.Model,
		ProcessedFiles:       r.Files,
	}
	if resp.Rationale == nil {
		resp.Rationale = []string{}
	}
	if resp.FileProcessingErrors == nil {
		resp.FileProcessingErrors = []domain.FileWarning{}
	}
	if resp.ProcessedFiles == nil {
		resp.ProcessedFiles = []domain.FileMetadata{}
	}
	return resp
}
