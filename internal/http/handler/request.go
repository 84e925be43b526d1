package handler

import (
	"encoding/json"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"diaryapi/internal/model"
	"diaryapi/internal/sanitize"
)

const maxTitleRunes = 100

var (
	titleRules   = []validation.Rule{validation.Required.Error("title is required"), validation.RuneLength(1, maxTitleRunes).Error("title must be at most 100 characters")}
	contentRules = []validation.Rule{validation.Required.Error("content is required")}
	createdRules = []validation.Rule{validation.Date(time.RFC3339Nano).Error("must be an ISO-8601 date-time")}
)

// createDiaryRequest is the body of POST /api/diaries.
type createDiaryRequest struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	CreatedAt string   `json:"created_at"`
}

func (r createDiaryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, titleRules...),
		validation.Field(&r.Content, contentRules...),
		validation.Field(&r.Images, validation.Each(validation.Required.Error("must not be empty"))),
		validation.Field(&r.CreatedAt, createdRules...),
	)
}

// toNewEntry sanitizes text fields. Call only after Validate.
func (r createDiaryRequest) toNewEntry() model.NewEntry {
	in := model.NewEntry{
		Title:   sanitize.Text(r.Title),
		Content: sanitize.Text(r.Content),
		Images:  model.CloneImages(r.Images),
	}
	if r.CreatedAt != "" {
		if ts, err := model.ParseTimestamp(r.CreatedAt); err == nil {
			in.CreatedAt = model.Some(ts)
		}
	}
	return in
}

// updateDiaryRequest is the body of PUT /api/diaries/:id. Absent fields are left unchanged;
// a present empty images array clears the images.
type updateDiaryRequest struct {
	Title     model.Optional[string]   `json:"title"`
	Content   model.Optional[string]   `json:"content"`
	Images    model.Optional[[]string] `json:"images"`
	CreatedAt model.Optional[string]   `json:"created_at"`
}

func (r updateDiaryRequest) Validate() error {
	errs := validation.Errors{}
	if v, ok := r.Title.Get(); ok {
		errs["title"] = validation.Validate(v, titleRules...)
	}
	if v, ok := r.Content.Get(); ok {
		errs["content"] = validation.Validate(v, contentRules...)
	}
	if v, ok := r.Images.Get(); ok {
		errs["images"] = validation.Validate(v, validation.Each(validation.Required.Error("must not be empty")))
	}
	if v, ok := r.CreatedAt.Get(); ok {
		errs["created_at"] = validation.Validate(v, append([]validation.Rule{validation.Required}, createdRules...)...)
	}
	return errs.Filter()
}

// toPatch sanitizes text fields. Call only after Validate.
func (r updateDiaryRequest) toPatch() model.EntryPatch {
	var p model.EntryPatch
	if v, ok := r.Title.Get(); ok {
		p.Title = model.Some(sanitize.Text(v))
	}
	if v, ok := r.Content.Get(); ok {
		p.Content = model.Some(sanitize.Text(v))
	}
	if v, ok := r.Images.Get(); ok {
		p.Images = model.Some(model.CloneImages(v))
	}
	if v, ok := r.CreatedAt.Get(); ok {
		if ts, err := model.ParseTimestamp(v); err == nil {
			p.CreatedAt = model.Some(ts)
		}
	}
	return p
}

type markdownPreviewRequest struct {
	Content string `json:"content"`
}

type htmlConvertRequest struct {
	HTML string `json:"html"`
}

// validationDetails flattens ozzo errors into field -> message.
// A non-validation error (e.g. a misconfigured rule) is reported under "_".
func validationDetails(err error) map[string]string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for field, fe := range errs {
		out[field] = fe.Error()
	}
	return out
}

// decodeJSON unmarshals body into v, treating an empty body as malformed.
func decodeJSON(body []byte, v any) error {
	if len(body) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(body, v)
}
