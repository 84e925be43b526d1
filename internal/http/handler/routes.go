package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	_ "diaryapi/docs"
	"diaryapi/internal/markdown"
	"diaryapi/internal/service"
	"diaryapi/internal/version"
)

// Dependencies are the collaborators the HTTP routes are built from.
type Dependencies struct {
	Health   Pinger
	Diaries  service.DiaryService
	Uploads  service.UploadService
	Exports  service.ExportService
	Markdown *markdown.Renderer
	Version  *version.Reporter
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers translate between HTTP and the services and hold no business logic.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Get("/health", HealthCheck(d.Health))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Get("/version", VersionInfo(d.Version))

	diaries := api.Group("/diaries")
	diaries.Get("/", ListDiaries(d.Diaries))
	diaries.Post("/", CreateDiary(d.Diaries))
	diaries.Get("/:id", GetDiary(d.Diaries))
	diaries.Get("/:id/html", GetDiaryHTML(d.Diaries, d.Markdown))
	diaries.Put("/:id", UpdateDiary(d.Diaries))
	diaries.Delete("/:id", DeleteDiary(d.Diaries))

	api.Post("/upload", UploadImage(d.Uploads))
	app.Get("/uploads/:name", ServeUpload(d.Uploads))

	api.Get("/export", ExportDiaries(d.Exports))
	api.Post("/maintenance/sweep", SweepOrphans(d.Diaries))

	api.Post("/markdown/preview", PreviewMarkdown(d.Markdown))
	api.Post("/markdown/from-html", MarkdownFromHTML(d.Markdown))
}

// RegisterSwagger serves the Swagger UI and its document under /swagger.
// The shared document is never modified per request; with no host set,
// clients send requests to the host that served the UI.
func RegisterSwagger(app *fiber.App) {
	app.Get("/swagger/*", swagger.HandlerDefault)
}
