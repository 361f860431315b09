// Package draft keeps an in-progress add-item form synchronised to durable
// storage: the in-memory Store, the on-disk Codec, and the debounced
// Persistence layer between them.
package draft

import "slices"

// DefaultStore is the retailer preselected on a fresh form.
const DefaultStore = "LEGO"

// FormData is the persisted shape of an in-progress wishlist item.
// Optional fields are nil when absent; they are never encoded as null.
type FormData struct {
	Title       string   `json:"title"`
	Store       string   `json:"store"`
	SetNumber   *string  `json:"setNumber,omitempty"`
	SourceURL   *string  `json:"sourceUrl,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
	Price       *string  `json:"price,omitempty"`
	PieceCount  *int     `json:"pieceCount,omitempty" validate:"omitempty,gte=0"`
	ReleaseDate *string  `json:"releaseDate,omitempty"`
	Tags        []string `json:"tags"`
	Priority    int      `json:"priority" validate:"gte=0,lte=5"`
	Notes       *string  `json:"notes,omitempty"`
}

// NewFormData returns a form with every field at its default.
func NewFormData() FormData {
	return FormData{
		Store: DefaultStore,
		Tags:  []string{},
	}
}

// Clone returns a deep copy so callers cannot alias store-owned memory.
func (f FormData) Clone() FormData {
	out := f
	out.SetNumber = cloneString(f.SetNumber)
	out.SourceURL = cloneString(f.SourceURL)
	out.ImageURL = cloneString(f.ImageURL)
	out.Price = cloneString(f.Price)
	out.ReleaseDate = cloneString(f.ReleaseDate)
	out.Notes = cloneString(f.Notes)
	if f.PieceCount != nil {
		n := *f.PieceCount
		out.PieceCount = &n
	}
	out.Tags = slices.Clone(f.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// HasContent reports whether any field differs from its default.
// A store equal to DefaultStore does not count as content, so a form where the
// user only ever saw the preselected retailer is not offered for resume.
func (f FormData) HasContent() bool {
	return f.Title != "" ||
		f.Store != DefaultStore ||
		f.SetNumber != nil ||
		f.SourceURL != nil ||
		f.ImageURL != nil ||
		f.Price != nil ||
		f.PieceCount != nil ||
		f.ReleaseDate != nil ||
		f.Notes != nil ||
		len(f.Tags) > 0 ||
		f.Priority > 0
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
