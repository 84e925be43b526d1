package model

// DiaryEntry is one persisted diary record.
// Field order and JSON names define the on-disk layout of the diary file and must not change.
type DiaryEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Images    []string  `json:"images"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// NewEntry carries the input of a create operation.
// Images may be nil; CreatedAt defaults to the current time when unset.
type NewEntry struct {
	Title     string
	Content   string
	Images    []string
	CreatedAt Optional[Timestamp]
}

// EntryPatch describes a partial update. Only fields that are set replace the stored value,
// so Images set to an empty slice clears the list while an unset Images keeps it.
type EntryPatch struct {
	Title     Optional[string]
	Content   Optional[string]
	Images    Optional[[]string]
	CreatedAt Optional[Timestamp]
}

// Apply merges the set fields of p into e.
func (p EntryPatch) Apply(e *DiaryEntry) {
	if v, ok := p.Title.Get(); ok {
		e.Title = v
	}
	if v, ok := p.Content.Get(); ok {
		e.Content = v
	}
	if v, ok := p.Images.Get(); ok {
		e.Images = CloneImages(v)
	}
	if v, ok := p.CreatedAt.Get(); ok {
		e.CreatedAt = v
	}
}

// CloneImages returns a copy of images that is never nil, so it always encodes as a JSON array.
func CloneImages(images []string) []string {
	out := make([]string, len(images))
	copy(out, images)
	return out
}
