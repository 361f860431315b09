package draft

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var priceRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// SubmissionError lists the fields that block submitting a draft, keyed by
// JSON field name.
type SubmissionError struct {
	Fields map[string]string
}

func (e *SubmissionError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid wishlist item: " + strings.Join(parts, "; ")
}

// submission mirrors FormData with the rules a new wishlist item must meet.
// sourceUrl and price accept "" as "not provided"; imageUrl does not.
type submission struct {
	Title       string  `json:"title" validate:"required"`
	Store       string  `json:"store" validate:"required"`
	SourceURL   string  `json:"sourceUrl" validate:"omitempty,url"`
	ImageURL    *string `json:"imageUrl" validate:"omitnil,url"`
	Price       string  `json:"price" validate:"omitempty,price"`
	PieceCount  *int    `json:"pieceCount" validate:"omitnil,gte=0"`
	ReleaseDate *string `json:"releaseDate" validate:"omitnil,rfc3339"`
	Priority    int     `json:"priority" validate:"gte=0,lte=5"`
}

var submissionMessages = map[string]string{
	"title":       "Title is required",
	"store":       "Store is required",
	"sourceUrl":   "Invalid URL format",
	"imageUrl":    "Invalid image URL format",
	"price":       "Price must be a valid decimal with up to 2 decimal places",
	"pieceCount":  "Piece count cannot be negative",
	"releaseDate": "Invalid release date format",
	"priority":    "Priority must be between 0 and 5",
}

// ValidateSubmission checks that data is acceptable as a new wishlist item.
// It returns a *SubmissionError describing every failing field.
func (c *Codec) ValidateSubmission(data FormData) error {
	s := submission{
		Title:       data.Title,
		Store:       data.Store,
		ImageURL:    data.ImageURL,
		PieceCount:  data.PieceCount,
		ReleaseDate: data.ReleaseDate,
		Priority:    data.Priority,
	}
	if data.SourceURL != nil {
		s.SourceURL = *data.SourceURL
	}
	if data.Price != nil {
		s.Price = *data.Price
	}

	err := c.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := submissionMessages[fe.Field()]
		if !ok {
			msg = "is invalid"
		}
		fields[fe.Field()] = msg
	}
	return &SubmissionError{Fields: fields}
}

func registerSubmissionRules(v *validator.Validate) {
	mustRegister(v, "price", func(fl validator.FieldLevel) bool {
		return priceRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "rfc3339", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
}

// mustRegister panics if a rule cannot be registered. Tags are constants, so
// a failure is a programming error.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %q validation: %v", tag, err))
	}
}
