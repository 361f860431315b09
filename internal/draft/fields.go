package draft

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names a FormData field by its JSON key.
type Field string

const (
	FieldTitle       Field = "title"
	FieldStore       Field = "store"
	FieldSetNumber   Field = "setNumber"
	FieldSourceURL   Field = "sourceUrl"
	FieldImageURL    Field = "imageUrl"
	FieldPrice       Field = "price"
	FieldPieceCount  Field = "pieceCount"
	FieldReleaseDate Field = "releaseDate"
	FieldTags        Field = "tags"
	FieldPriority    Field = "priority"
	FieldNotes       Field = "notes"
)

// FieldUpdate is a single typed assignment to one FormData field.
// Build one with the Set* constructors, Unset, or ParseFieldUpdate.
type FieldUpdate struct {
	field Field
	apply func(*FormData)
}

// Field returns the field this update assigns.
func (u FieldUpdate) Field() Field { return u.field }

func SetTitle(v string) FieldUpdate {
	return FieldUpdate{FieldTitle, func(f *FormData) { f.Title = v }}
}

func SetStore(v string) FieldUpdate {
	return FieldUpdate{FieldStore, func(f *FormData) { f.Store = v }}
}

func SetSetNumber(v string) FieldUpdate {
	return FieldUpdate{FieldSetNumber, func(f *FormData) { f.SetNumber = &v }}
}

func SetSourceURL(v string) FieldUpdate {
	return FieldUpdate{FieldSourceURL, func(f *FormData) { f.SourceURL = &v }}
}

func SetImageURL(v string) FieldUpdate {
	return FieldUpdate{FieldImageURL, func(f *FormData) { f.ImageURL = &v }}
}

func SetPrice(v string) FieldUpdate {
	return FieldUpdate{FieldPrice, func(f *FormData) { f.Price = &v }}
}

func SetPieceCount(v int) FieldUpdate {
	return FieldUpdate{FieldPieceCount, func(f *FormData) { f.PieceCount = &v }}
}

func SetReleaseDate(v string) FieldUpdate {
	return FieldUpdate{FieldReleaseDate, func(f *FormData) { f.ReleaseDate = &v }}
}

func SetTags(v []string) FieldUpdate {
	tags := append([]string{}, v...)
	return FieldUpdate{FieldTags, func(f *FormData) { f.Tags = tags }}
}

func SetPriority(v int) FieldUpdate {
	return FieldUpdate{FieldPriority, func(f *FormData) { f.Priority = v }}
}

func SetNotes(v string) FieldUpdate {
	return FieldUpdate{FieldNotes, func(f *FormData) { f.Notes = &v }}
}

// Unset removes an optional field, or restores a required field to its default.
func Unset(field Field) (FieldUpdate, error) {
	var apply func(*FormData)
	switch field {
	case FieldTitle:
		apply = func(f *FormData) { f.Title = "" }
	case FieldStore:
		apply = func(f *FormData) { f.Store = DefaultStore }
	case FieldSetNumber:
		apply = func(f *FormData) { f.SetNumber = nil }
	case FieldSourceURL:
		apply = func(f *FormData) { f.SourceURL = nil }
	case FieldImageURL:
		apply = func(f *FormData) { f.ImageURL = nil }
	case FieldPrice:
		apply = func(f *FormData) { f.Price = nil }
	case FieldPieceCount:
		apply = func(f *FormData) { f.PieceCount = nil }
	case FieldReleaseDate:
		apply = func(f *FormData) { f.ReleaseDate = nil }
	case FieldTags:
		apply = func(f *FormData) { f.Tags = []string{} }
	case FieldPriority:
		apply = func(f *FormData) { f.Priority = 0 }
	case FieldNotes:
		apply = func(f *FormData) { f.Notes = nil }
	default:
		return FieldUpdate{}, fmt.Errorf("unknown field: %q", field)
	}
	return FieldUpdate{field, apply}, nil
}

// fieldParsers converts raw text into a typed update, one entry per field.
var fieldParsers = map[Field]func(raw string) (FieldUpdate, error){
	FieldTitle:       func(raw string) (FieldUpdate, error) { return SetTitle(raw), nil },
	FieldStore:       func(raw string) (FieldUpdate, error) { return SetStore(raw), nil },
	FieldSetNumber:   func(raw string) (FieldUpdate, error) { return SetSetNumber(raw), nil },
	FieldSourceURL:   func(raw string) (FieldUpdate, error) { return SetSourceURL(raw), nil },
	FieldImageURL:    func(raw string) (FieldUpdate, error) { return SetImageURL(raw), nil },
	FieldPrice:       func(raw string) (FieldUpdate, error) { return SetPrice(raw), nil },
	FieldReleaseDate: func(raw string) (FieldUpdate, error) { return SetReleaseDate(raw), nil },
	FieldNotes:       func(raw string) (FieldUpdate, error) { return SetNotes(raw), nil },
	FieldPieceCount: func(raw string) (FieldUpdate, error) {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return FieldUpdate{}, fmt.Errorf("pieceCount must be a whole number: %w", err)
		}
		return SetPieceCount(n), nil
	},
	FieldPriority: func(raw string) (FieldUpdate, error) {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return FieldUpdate{}, fmt.Errorf("priority must be a whole number: %w", err)
		}
		return SetPriority(n), nil
	},
	FieldTags: func(raw string) (FieldUpdate, error) {
		tags := []string{}
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return SetTags(tags), nil
	},
}

// ParseFieldUpdate builds a typed update from a field name and its text form.
// Tags are comma-separated. Range checks are left to submit-time validation.
func ParseFieldUpdate(name, raw string) (FieldUpdate, error) {
	parse, ok := fieldParsers[Field(name)]
	if !ok {
		return FieldUpdate{}, fmt.Errorf("unknown field: %q", name)
	}
	return parse(raw)
}

// Fields lists every field name in form order.
func Fields() []Field {
	return []Field{
		FieldTitle, FieldStore, FieldSetNumber, FieldSourceURL, FieldImageURL,
		FieldPrice, FieldPieceCount, FieldReleaseDate, FieldTags, FieldPriority, FieldNotes,
	}
}
