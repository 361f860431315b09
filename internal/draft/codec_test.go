package draft_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"wishlist-go/internal/draft"
)

var codecNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func record(formData string, ts time.Time) []byte {
	return []byte(fmt.Sprintf(`{"formData":%s,"timestamp":%d}`, formData, ts.UnixMilli()))
}

func TestCodec_Encode(t *testing.T) {
	codec := draft.NewCodec(0)
	form := draft.NewFormData()
	form.Title = "LEGO Star Wars"

	data, err := codec.Encode(form, codecNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Encode() produced invalid JSON: %v", err)
	}
	if ts, _ := got["timestamp"].(float64); int64(ts) != codecNow.UnixMilli() {
		t.Errorf("timestamp = %v, want %d", got["timestamp"], codecNow.UnixMilli())
	}
	fd, _ := got["formData"].(map[string]any)
	if fd["title"] != "LEGO Star Wars" {
		t.Errorf("formData.title = %v", fd["title"])
	}
	if tags, ok := fd["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("formData.tags = %v, want []", fd["tags"])
	}
	if _, ok := fd["notes"]; ok {
		t.Error("absent optional field was encoded")
	}
}

func TestCodec_Decode(t *testing.T) {
	codec := draft.NewCodec(0)

	tests := []struct {
		name    string
		data    []byte
		want    draft.Status
		ageDays int64
	}{
		{
			name: "empty input",
			data: nil,
			want: draft.StatusAbsent,
		},
		{
			name: "valid record",
			data: record(`{"title":"Falcon","store":"LEGO","tags":[],"priority":2}`, codecNow.Add(-2*24*time.Hour)),
			want: draft.StatusLoaded,
		},
		{
			name: "partial form data fills defaults",
			data: record(`{"title":"Falcon"}`, codecNow),
			want: draft.StatusLoaded,
		},
		{
			name: "missing timestamp loads",
			data: []byte(`{"formData":{"title":"Falcon"}}`),
			want: draft.StatusLoaded,
		},
		{
			name: "malformed JSON",
			data: []byte(`{"formData":`),
			want: draft.StatusCorrupted,
		},
		{
			name: "missing form data",
			data: []byte(`{"timestamp":1}`),
			want: draft.StatusCorrupted,
		},
		{
			name: "form data not an object",
			data: record(`"oops"`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name: "null field",
			data: record(`{"title":null}`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name: "null tag",
			data: record(`{"title":"Falcon","tags":["a",null]}`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name: "only null tag",
			data: record(`{"tags":[null]}`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name: "tags with values",
			data: record(`{"title":"Falcon","tags":["space","ucs"]}`, codecNow),
			want: draft.StatusLoaded,
		},
		{
			name: "wrong field type",
			data: record(`{"priority":"high"}`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name: "priority out of range",
			data: record(`{"priority":9}`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name: "negative piece count",
			data: record(`{"pieceCount":-1}`, codecNow),
			want: draft.StatusCorrupted,
		},
		{
			name:    "eight days old",
			data:    record(`{"title":"Falcon"}`, codecNow.Add(-8*24*time.Hour)),
			want:    draft.StatusExpired,
			ageDays: 8,
		},
		{
			name: "exactly seven days old",
			data: record(`{"title":"Falcon"}`, codecNow.Add(-7*24*time.Hour)),
			want: draft.StatusLoaded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := codec.Decode(tt.data, codecNow)
			if res.Status != tt.want {
				t.Fatalf("Decode() status = %v, want %v (err %v)", res.Status, tt.want, res.Err)
			}
			if tt.want == draft.StatusLoaded && rec == nil {
				t.Fatal("Decode() returned nil record for loaded status")
			}
			if tt.want != draft.StatusLoaded && rec != nil {
				t.Errorf("Decode() returned record for status %v", res.Status)
			}
			if tt.want == draft.StatusCorrupted && res.Err == nil {
				t.Error("Decode() corrupted result has no cause")
			}
			if res.AgeDays != tt.ageDays {
				t.Errorf("AgeDays = %d, want %d", res.AgeDays, tt.ageDays)
			}
		})
	}
}

func TestCodec_DecodeDefaults(t *testing.T) {
	codec := draft.NewCodec(0)

	rec, res := codec.Decode(record(`{"title":"Falcon"}`, codecNow), codecNow)
	if res.Status != draft.StatusLoaded {
		t.Fatalf("Decode() status = %v", res.Status)
	}
	if rec.FormData.Store != draft.DefaultStore {
		t.Errorf("Store = %q, want %q", rec.FormData.Store, draft.DefaultStore)
	}
	if rec.FormData.Tags == nil {
		t.Error("Tags = nil, want empty slice")
	}
	if rec.Timestamp == nil || !rec.Timestamp.Equal(codecNow) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, codecNow)
	}
}

func TestCodec_EncodeDecode(t *testing.T) {
	codec := draft.NewCodec(0)
	form := draft.NewFormData()
	form.Title = "Optimus Prime"
	form.Store = "Other"
	n := 1508
	form.PieceCount = &n
	form.Tags = []string{"transformers"}
	form.Priority = 5

	data, err := codec.Encode(form, codecNow)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	rec, res := codec.Decode(data, codecNow.Add(time.Hour))
	if res.Status != draft.StatusLoaded {
		t.Fatalf("Decode() status = %v, err %v", res.Status, res.Err)
	}
	got := rec.FormData
	if got.Title != form.Title || got.Store != form.Store || *got.PieceCount != n || got.Priority != 5 || got.Tags[0] != "transformers" {
		t.Errorf("decoded FormData = %+v, want %+v", got, form)
	}
}

func TestCodec_ValidateSubmission(t *testing.T) {
	codec := draft.NewCodec(0)
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	valid := func() draft.FormData {
		f := draft.NewFormData()
		f.Title = "Millennium Falcon"
		return f
	}

	tests := []struct {
		name   string
		mutate func(*draft.FormData)
		field  string
	}{
		{name: "minimal item", mutate: func(*draft.FormData) {}},
		{name: "missing title", mutate: func(f *draft.FormData) { f.Title = "" }, field: "title"},
		{name: "missing store", mutate: func(f *draft.FormData) { f.Store = "" }, field: "store"},
		{name: "empty source url", mutate: func(f *draft.FormData) { f.SourceURL = str("") }},
		{name: "bad source url", mutate: func(f *draft.FormData) { f.SourceURL = str("not a url") }, field: "sourceUrl"},
		{name: "good image url", mutate: func(f *draft.FormData) { f.ImageURL = str("https://bucket.s3.amazonaws.com/a.jpg") }},
		{name: "empty image url", mutate: func(f *draft.FormData) { f.ImageURL = str("") }, field: "imageUrl"},
		{name: "price", mutate: func(f *draft.FormData) { f.Price = str("849.99") }},
		{name: "empty price", mutate: func(f *draft.FormData) { f.Price = str("") }},
		{name: "price with three decimals", mutate: func(f *draft.FormData) { f.Price = str("1.999") }, field: "price"},
		{name: "negative piece count", mutate: func(f *draft.FormData) { f.PieceCount = num(-5) }, field: "pieceCount"},
		{name: "release date", mutate: func(f *draft.FormData) { f.ReleaseDate = str("2024-10-01T00:00:00Z") }},
		{name: "bad release date", mutate: func(f *draft.FormData) { f.ReleaseDate = str("October") }, field: "releaseDate"},
		{name: "priority too high", mutate: func(f *draft.FormData) { f.Priority = 6 }, field: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid()
			tt.mutate(&form)

			err := codec.ValidateSubmission(form)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("ValidateSubmission() error = %v", err)
				}
				return
			}

			var subErr *draft.SubmissionError
			if !errors.As(err, &subErr) {
				t.Fatalf("ValidateSubmission() error = %v, want *SubmissionError", err)
			}
			if _, ok := subErr.Fields[tt.field]; !ok {
				t.Errorf("SubmissionError fields = %v, want %q", subErr.Fields, tt.field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Error() = %q, want mention of %q", err.Error(), tt.field)
			}
		})
	}
}
