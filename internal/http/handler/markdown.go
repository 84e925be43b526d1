package handler

import (
	"github.com/gofiber/fiber/v2"

	"diaryapi/internal/markdown"
)

type htmlResult struct {
	HTML string `json:"html"`
}

type markdownResult struct {
	Markdown string `json:"markdown"`
}

// PreviewMarkdown godoc
// @Summary Render Markdown to sanitized HTML
// @Tags markdown
// @Accept json
// @Produce json
// @Param body body markdownPreviewRequest true "markdown source"
// @Success 200 {object} dataResponse{data=htmlResult}
// @Failure 400 {object} errorPayload
// @Router /api/markdown/preview [post]
func PreviewMarkdown(r *markdown.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req markdownPreviewRequest
		if err := decodeJSON(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		html, err := r.ToHTML(req.Content)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "RENDER_FAILED", "could not render markdown")
		}
		return c.JSON(dataResponse{Data: htmlResult{HTML: html}})
	}
}

// MarkdownFromHTML godoc
// @Summary Convert pasted HTML to Markdown
// @Tags markdown
// @Accept json
// @Produce json
// @Param body body htmlConvertRequest true "html source"
// @Success 200 {object} dataResponse{data=markdownResult}
// @Failure 400 {object} errorPayload
// @Router /api/markdown/from-html [post]
func MarkdownFromHTML(r *markdown.Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req htmlConvertRequest
		if err := decodeJSON(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		md, err := r.FromHTML(req.HTML)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "CONVERT_FAILED", "could not convert html")
		}
		return c.JSON(dataResponse{Data: markdownResult{Markdown: md}})
	}
}
