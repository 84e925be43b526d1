package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"diaryapi/internal/markdown"
	"diaryapi/internal/model"
	"diaryapi/internal/service"
)

// dataResponse wraps every successful JSON payload.
type dataResponse struct {
	Data any `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type entryHTML struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil
}

// writeServiceError maps diary service failures onto the error envelope.
func writeServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "diary not found")
	}
	return writeError(c, fiber.StatusInternalServerError, "SAVE_FAILED", "save failed, check data directory permissions")
}

// ListDiaries godoc
// @Summary List or search diaries
// @Tags diaries
// @Produce json
// @Param search query string false "case-insensitive substring of title or content"
// @Success 200 {object} dataResponse{data=[]model.DiaryEntry}
// @Router /api/diaries [get]
func ListDiaries(svc service.DiaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var entries []model.DiaryEntry
		if q := c.Query("search"); q != "" {
			entries = svc.Search(c.UserContext(), q)
		} else {
			entries = svc.List(c.UserContext())
		}
		return c.JSON(dataResponse{Data: entries})
	}
}

// CreateDiary godoc
// @Summary Create a diary entry
// @Tags diaries
// @Accept json
// @Produce json
// @Param body body createDiaryRequest true "new entry"
// @Success 201 {object} dataResponse{data=model.DiaryEntry}
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/diaries [post]
func CreateDiary(svc service.DiaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createDiaryRequest
		if err := decodeJSON(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		if err := req.Validate(); err != nil {
			return writeErrorDetails(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request parameters", validationDetails(err))
		}

		e, err := svc.Create(c.UserContext(), req.toNewEntry())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(dataResponse{Data: e})
	}
}

// GetDiary godoc
// @Summary Get a diary entry
// @Tags diaries
// @Produce json
// @Param id path int true "entry id"
// @Success 200 {object} dataResponse{data=model.DiaryEntry}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/diaries/{id} [get]
func GetDiary(svc service.DiaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid diary id")
		}
		e, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(dataResponse{Data: e})
	}
}

// GetDiaryHTML godoc
// @Summary Render a diary entry's Markdown as sanitized HTML
// @Tags diaries
// @Produce json
// @Param id path int true "entry id"
// @Success 200 {object} dataResponse{data=entryHTML}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/diaries/{id}/html [get]
func GetDiaryHTML(svc service.DiaryService, renderer *markdown.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid diary id")
		}
		e, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		html, err := renderer.ToHTML(e.Content)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "RENDER_FAILED", "could not render diary")
		}
		return c.JSON(dataResponse{Data: entryHTML{ID: e.ID, Title: e.Title, HTML: html}})
	}
}

// UpdateDiary godoc
// @Summary Partially update a diary entry
// @Description Absent fields are left unchanged. A present images array replaces the list and removes files no longer referenced.
// @Tags diaries
// @Accept json
// @Produce json
// @Param id path int true "entry id"
// @Param body body updateDiaryRequest true "fields to change"
// @Success 200 {object} dataResponse{data=model.DiaryEntry}
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/diaries/{id} [put]
func UpdateDiary(svc service.DiaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid diary id")
		}
		var req updateDiaryRequest
		if err := decodeJSON(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		if err := req.Validate(); err != nil {
			return writeErrorDetails(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request parameters", validationDetails(err))
		}

		e, err := svc.Update(c.UserContext(), id, req.toPatch())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(dataResponse{Data: e})
	}
}

// DeleteDiary godoc
// @Summary Delete a diary entry and its images
// @Tags diaries
// @Produce json
// @Param id path int true "entry id"
// @Success 200 {object} messageResponse
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/diaries/{id} [delete]
func DeleteDiary(svc service.DiaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid diary id")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(messageResponse{Message: "diary deleted"})
	}
}
