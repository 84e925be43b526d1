package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"diaryapi/internal/export"
	"diaryapi/internal/repository"
	"diaryapi/internal/service"
)

type sweepResult struct {
	Deleted int `json:"deleted"`
}

// ExportDiaries godoc
// @Summary Download every diary entry
// @Tags maintenance
// @Produce json,text/markdown,text/html,application/zip
// @Param format query string false "json (default), markdown, html or zip"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Router /api/export [get]
func ExportDiaries(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := svc.Export(c.UserContext(), c.Query("format"))
		if err != nil {
			if errors.Is(err, export.ErrUnsupportedFormat) {
				return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_FORMAT", "unsupported export format")
			}
			return writeError(c, fiber.StatusInternalServerError, "EXPORT_FAILED", "export failed")
		}
		c.Set(fiber.HeaderContentType, f.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, f.Name))
		return c.Send(f.Body)
	}
}

// SweepOrphans godoc
// @Summary Delete every stored image no diary references
// @Tags maintenance
// @Produce json
// @Success 200 {object} dataResponse{data=sweepResult}
// @Failure 503 {object} errorPayload
// @Router /api/maintenance/sweep [post]
func SweepOrphans(svc service.DiaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := svc.SweepOrphans(c.UserContext())
		if err != nil {
			if errors.Is(err, repository.ErrStorageUnavailable) {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "diary storage unavailable")
			}
			return writeError(c, fiber.StatusInternalServerError, "SWEEP_FAILED", "sweep failed")
		}
		return c.JSON(dataResponse{Data: sweepResult{Deleted: n}})
	}
}
