package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadilmartias/interview-evaluator/internal/dto"
	"github.com/fadilmartias/interview-evaluator/internal/middleware"
	"github.com/fadilmartias/interview-evaluator/internal/usecase"
	"github.com/fadilmartias/interview-evaluator/internal/util"
	"github.com/gofiber/fiber/v2"
)

type InterviewHandler struct {
	uc      *usecase.EvaluationUsecase
	maxSize int64
}

func NewInterviewHandler(uc *usecase.EvaluationUsecase, maxSize int64) *InterviewHandler {
	return &InterviewHandler{uc: uc, maxSize: maxSize}
}

func (h *InterviewHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/interviews", middleware.RateLimiter(10, 1*time.Minute), h.Upload)
	app.Post("/interviews/:id/evaluate", middleware.RateLimiter(10, 1*time.Minute), h.Evaluate)
	app.Get("/interviews/:id/status", h.Status)
	app.Get("/interviews/:id/result", h.Result)
	app.Get("/interviews", h.List)
}

// Upload accepts a multipart transcript plus candidate name and creates the
// interview in the uploaded state. Evaluation is a separate call.
func (h *InterviewHandler) Upload(c *fiber.Ctx) error {
	candidateName := c.FormValue("candidate_name")

	file, err := c.FormFile("file")
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "transcript file is required",
		}, err)
	}

	if file.Size > h.maxSize {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("transcript file is too large (max %d bytes)", h.maxSize),
		}, nil)
	}

	content, err := h.readTranscript(file)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: err.Error(),
		}, err)
	}

	iv, err := h.uc.Submit(candidateName, content)
	if err != nil {
		if errors.Is(err, usecase.ErrValidation) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
			}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to submit transcript",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Transcript uploaded",
		Data:    dto.UploadDTO{ID: iv.ID, Status: iv.Status},
	})
}

// Evaluate triggers the asynchronous judge run. The caller gets 202 and
// polls the status endpoint; a 409 means the interview is already being
// processed or is already evaluated.
func (h *InterviewHandler) Evaluate(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.uc.RequestEvaluation(id); err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusNotFound,
				Message: "interview not found",
			}, err)
		case errors.Is(err, usecase.ErrInvalidState):
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusConflict,
				Message: err.Error(),
			}, err)
		default:
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Message: "failed to start evaluation",
			}, err)
		}
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Evaluation started",
		Data:    fiber.Map{"id": id, "status": "processing"},
	})
}

func (h *InterviewHandler) Status(c *fiber.Ctx) error {
	iv, err := h.uc.GetStatus(c.Params("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusNotFound,
				Message: "interview not found",
			}, err)
		}
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to get interview status",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get interview status",
		Data:    dto.NewStatusDTO(iv),
	})
}

func (h *InterviewHandler) Result(c *fiber.Ctx) error {
	res, err := h.uc.GetResult(c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusNotFound,
				Message: "interview not found",
			}, err)
		case errors.Is(err, usecase.ErrNotReady):
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Code:    fiber.StatusConflict,
				Message: err.Error(),
			}, err)
		default:
			return util.ErrorResponse(c, util.ErrorResponseFormat{
				Message: "failed to get evaluation result",
			}, err)
		}
	}

	result := dto.NewEvaluationResultDTO(res)
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusOK,
		Message: "Success get evaluation result",
		Data:    result,
	})
}

func (h *InterviewHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	results, pagination, err := h.uc.List(page, pageSize)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to list evaluation results",
		}, err)
	}

	data := make([]dto.EvaluationResultDTO, 0, len(results))
	for i := range results {
		data = append(data, dto.NewEvaluationResultDTO(&results[i]))
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:       fiber.StatusOK,
		Message:    "Success list evaluation results",
		Data:       data,
		Pagination: pagination,
	})
}

// readTranscript pulls text out of the uploaded file. Plain text is taken
// as-is; PDFs go through text extraction. Anything else is rejected.
func (h *InterviewHandler) readTranscript(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open transcript file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read transcript file")
	}

	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".txt":
		return data, nil
	case ".pdf":
		text, err := util.ExtractPDFText(data)
		if err != nil {
			return nil, fmt.Errorf("failed to extract transcript text: %v", err)
		}
		return []byte(text), nil
	default:
		return nil, fmt.Errorf("unsupported transcript file type (use .txt or .pdf)")
	}
}
