package draft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const msPerDay = 24 * 60 * 60 * 1000

// DefaultMaxAge is how long a persisted draft stays loadable.
const DefaultMaxAge = 7 * 24 * time.Hour

// Record is a persisted draft as read back from storage.
type Record struct {
	FormData  FormData
	Timestamp *time.Time
}

// Status is the outcome of decoding a stored draft.
type Status int

const (
	StatusAbsent Status = iota
	StatusCorrupted
	StatusExpired
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusCorrupted:
		return "corrupted"
	case StatusExpired:
		return "expired"
	case StatusLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DecodeResult describes what Decode found. Err explains a corrupted record;
// AgeDays is set for expired ones.
type DecodeResult struct {
	Status  Status
	Err     error
	AgeDays int64
}

type envelope struct {
	FormData  json.RawMessage `json:"formData"`
	Timestamp *int64          `json:"timestamp,omitempty"`
}

// Codec converts drafts to and from their stored JSON form.
type Codec struct {
	maxAge   time.Duration
	validate *validator.Validate
}

// NewCodec creates a codec that treats records older than maxAge as expired.
// A zero maxAge means DefaultMaxAge.
func NewCodec(maxAge time.Duration) *Codec {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Codec{maxAge: maxAge, validate: newValidator()}
}

// Encode serialises data stamped with ts.
func (c *Codec) Encode(data FormData, ts time.Time) ([]byte, error) {
	data = data.Clone()
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding form data: %w", err)
	}
	ms := ts.UnixMilli()
	out, err := json.Marshal(envelope{FormData: raw, Timestamp: &ms})
	if err != nil {
		return nil, fmt.Errorf("encoding draft record: %w", err)
	}
	return out, nil
}

// Decode parses a stored record. It never fails outright: malformed or
// schema-invalid input is StatusCorrupted, stale input is StatusExpired.
func (c *Codec) Decode(data []byte, now time.Time) (*Record, DecodeResult) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, DecodeResult{Status: StatusAbsent}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, corrupted(fmt.Errorf("parsing draft record: %w", err))
	}

	form, err := c.decodeFormData(env.FormData)
	if err != nil {
		return nil, corrupted(err)
	}

	rec := &Record{FormData: form}
	if env.Timestamp != nil {
		ts := time.UnixMilli(*env.Timestamp)
		rec.Timestamp = &ts

		ageMs := now.UnixMilli() - *env.Timestamp
		maxAgeMs := c.maxAge.Milliseconds()
		if ageMs > maxAgeMs {
			return nil, DecodeResult{Status: StatusExpired, AgeDays: ageMs / msPerDay}
		}
	}

	return rec, DecodeResult{Status: StatusLoaded}
}

func (c *Codec) decodeFormData(raw json.RawMessage) (FormData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FormData{}, errors.New("formData is missing")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return FormData{}, fmt.Errorf("formData is not an object: %w", err)
	}
	for name, v := range fields {
		v = bytes.TrimSpace(v)
		if bytes.Equal(v, []byte("null")) {
			return FormData{}, fmt.Errorf("formData.%s is null", name)
		}
		if len(v) == 0 || v[0] != '[' {
			continue
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(v, &elems); err != nil {
			return FormData{}, fmt.Errorf("formData.%s is not an array: %w", name, err)
		}
		for i, e := range elems {
			if bytes.Equal(bytes.TrimSpace(e), []byte("null")) {
				return FormData{}, fmt.Errorf("formData.%s[%d] is null", name, i)
			}
		}
	}

	form := NewFormData()
	if err := json.Unmarshal(trimmed, &form); err != nil {
		return FormData{}, fmt.Errorf("decoding formData: %w", err)
	}
	if err := c.validate.Struct(form); err != nil {
		return FormData{}, fmt.Errorf("validating formData: %w", err)
	}
	return form, nil
}

func corrupted(err error) DecodeResult {
	return DecodeResult{Status: StatusCorrupted, Err: err}
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	registerSubmissionRules(v)
	return v
}
