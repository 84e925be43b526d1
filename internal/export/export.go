// Package export serializes the diary collection into downloadable documents.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"diaryapi/internal/markdown"
	"diaryapi/internal/model"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format names an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatZip      Format = "zip"
)

// ExportVersion is the schema version written into JSON exports.
const ExportVersion = "1.0"

const summaryLength = 120

// ParseFormat accepts a format name; an empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "zip":
		return FormatZip, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatZip:
		return "application/zip"
	default:
		return "application/json"
	}
}

// FileName returns the download name, e.g. diaries-2024-05-01.json.
func FileName(f Format, now time.Time) string {
	return fmt.Sprintf("diaries-%s.%s", now.UTC().Format(time.DateOnly), f.Extension())
}

// Exporter writes entries in any supported format.
type Exporter struct {
	renderer *markdown.Renderer
	loc      *time.Location
}

// NewExporter returns an Exporter that prints dates in loc.
func NewExporter(renderer *markdown.Renderer, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{renderer: renderer, loc: loc}
}

// Write encodes entries to w. Entries are written in the order given.
func (e *Exporter) Write(w io.Writer, f Format, entries []model.DiaryEntry, now time.Time) error {
	switch f {
	case FormatJSON:
		return e.writeJSON(w, entries, now)
	case FormatMarkdown:
		return e.writeMarkdown(w, entries)
	case FormatHTML:
		return e.writeHTML(w, entries, now)
	case FormatZip:
		return e.writeZip(w, entries)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

type jsonDocument struct {
	Version    string             `json:"version"`
	ExportedAt model.Timestamp    `json:"exportedAt"`
	Total      int                `json:"total"`
	Data       []model.DiaryEntry `json:"data"`
}

func (e *Exporter) writeJSON(w io.Writer, entries []model.DiaryEntry, now time.Time) error {
	if entries == nil {
		entries = []model.DiaryEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDocument{
		Version:    ExportVersion,
		ExportedAt: model.NewTimestamp(now),
		Total:      len(entries),
		Data:       entries,
	})
}

// date prints the calendar day of ts, or its stored text when it is not a recognizable instant.
func (e *Exporter) date(ts model.Timestamp) string {
	if !ts.Valid() {
		return ts.String()
	}
	return ts.In(e.loc).Format(time.DateOnly)
}

func (e *Exporter) writeMarkdown(w io.Writer, entries []model.DiaryEntry) error {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, fmt.Sprintf("# %s\n\n%s\n\n*%s*\n\n---\n", entry.Title, entry.Content, e.date(entry.CreatedAt)))
	}
	_, err := io.WriteString(w, strings.Join(parts, "\n"))
	return err
}

var htmlPage = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Diary export {{.Date}}</title>
</head>
<body>
{{range .Entries}}<article id="entry-{{.ID}}">
<h1>{{.Title}}</h1>
<p><time datetime="{{.CreatedAt}}">{{.Date}}</time></p>
{{.Body}}
</article>
<hr>
{{end}}</body>
</html>
`))

type htmlEntry struct {
	ID        int64
	Title     string
	CreatedAt string
	Date      string
	Body      template.HTML
}

func (e *Exporter) writeHTML(w io.Writer, entries []model.DiaryEntry, now time.Time) error {
	page := struct {
		Date    string
		Entries []htmlEntry
	}{Date: now.In(e.loc).Format(time.DateOnly)}

	for _, entry := range entries {
		body, err := e.renderer.ToHTML(entry.Content)
		if err != nil {
			return fmt.Errorf("render entry %d: %w", entry.ID, err)
		}
		page.Entries = append(page.Entries, htmlEntry{
			ID:        entry.ID,
			Title:     entry.Title,
			CreatedAt: entry.CreatedAt.String(),
			Date:      e.date(entry.CreatedAt),
			// Already sanitized by the renderer's UGC policy.
			Body: template.HTML(body),
		})
	}
	return htmlPage.Execute(w, page)
}

type frontMatter struct {
	ID        int64           `yaml:"id"`
	Title     string          `yaml:"title"`
	CreatedAt model.Timestamp `yaml:"created_at"`
	UpdatedAt model.Timestamp `yaml:"updated_at"`
	Images    []string        `yaml:"images"`
	Summary   string          `yaml:"summary"`
}

// writeZip stores one Markdown file with YAML front-matter per entry.
func (e *Exporter) writeZip(w io.Writer, entries []model.DiaryEntry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		fm, err := yaml.Marshal(frontMatter{
			ID:        entry.ID,
			Title:     entry.Title,
			CreatedAt: entry.CreatedAt,
			UpdatedAt: entry.UpdatedAt,
			Images:    model.CloneImages(entry.Images),
			Summary:   e.renderer.Excerpt(entry.Content, summaryLength),
		})
		if err != nil {
			return fmt.Errorf("encode front-matter of entry %d: %w", entry.ID, err)
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     EntryFileName(entry),
			Method:   zip.Deflate,
			Modified: entry.UpdatedAt.Time,
		})
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		buf.WriteString("---\n")
		buf.Write(fm)
		buf.WriteString("---\n\n")
		buf.WriteString(entry.Content)
		buf.WriteString("\n")
		if _, err := fw.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return zw.Close()
}

// EntryFileName names an entry inside a ZIP export: zero-padded id plus a title slug.
func EntryFileName(entry model.DiaryEntry) string {
	return fmt.Sprintf("%04d-%s.md", entry.ID, slug(entry.Title))
}

func slug(title string) string {
	var b strings.Builder
	dash := false
	n := 0
	for _, r := range strings.ToLower(title) {
		if n >= 40 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			n++
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
			n++
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "entry"
	}
	return s
}
