package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

// PresetName identifies a compression preset.
type PresetName string

const (
	PresetLowBandwidth PresetName = "low-bandwidth"
	PresetBalanced     PresetName = "balanced"
	PresetHighQuality  PresetName = "high-quality"
)

// SkipCompressionThreshold is the size at or under which an image that
// already fits the preset's dimensions is uploaded as is.
const SkipCompressionThreshold = 500 * 1024

// minQuality is the lowest JPEG quality tried when shrinking toward MaxSize.
const minQuality = 40

// Preset trades image quality for upload size.
type Preset struct {
	Name          PresetName
	Label         string
	Quality       int   // JPEG quality, 1-100
	MaxDimension  int   // longest side in pixels
	MaxSize       int64 // target bytes; quality is lowered until met or minQuality
	EstimatedSize string
}

// Presets lists the available presets, smallest output first.
var Presets = []Preset{
	{Name: PresetLowBandwidth, Label: "Low bandwidth", Quality: 60, MaxDimension: 1200, MaxSize: 512 * 1024, EstimatedSize: "~300KB"},
	{Name: PresetBalanced, Label: "Balanced", Quality: 80, MaxDimension: 1920, MaxSize: 1024 * 1024, EstimatedSize: "~800KB"},
	{Name: PresetHighQuality, Label: "High quality", Quality: 90, MaxDimension: 2400, MaxSize: 2 * 1024 * 1024, EstimatedSize: "~1.5MB"},
}

// PresetByName returns the named preset, or Balanced for unknown names.
func PresetByName(name string) Preset {
	for _, p := range Presets {
		if string(p.Name) == name {
			return p
		}
	}
	return Presets[1]
}

// IsValidPreset reports whether name is a known preset.
func IsValidPreset(name string) bool {
	for _, p := range Presets {
		if string(p.Name) == name {
			return true
		}
	}
	return false
}

// CompressionResult describes what compression did to a file. Compressed is
// false when the original was kept: it was already small, compressing made
// it larger, or compression failed (Error is set).
type CompressionResult struct {
	Compressed   bool
	OriginalSize int64
	FinalSize    int64
	Ratio        float64
	Error        string
}

// Compressor shrinks an image before upload. It never fails: on any problem
// it returns a file carrying the original bytes and records why in the result.
type Compressor interface {
	Compress(ctx context.Context, f File, preset Preset, onProgress func(percent int)) (File, CompressionResult)
}

// ImageCompressor downscales JPEG, PNG and GIF images to the preset's
// dimensions and re-encodes them as JPEG.
type ImageCompressor struct {
	threshold int64
}

func NewImageCompressor() *ImageCompressor {
	return &ImageCompressor{threshold: SkipCompressionThreshold}
}

func (c *ImageCompressor) Compress(ctx context.Context, f File, preset Preset, onProgress func(int)) (File, CompressionResult) {
	report := func(p int) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	data, err := io.ReadAll(f.Body)
	original := f
	original.Body = bytes.NewReader(data)
	original.Size = int64(len(data))
	res := CompressionResult{OriginalSize: int64(len(data)), FinalSize: int64(len(data)), Ratio: 1}
	if err != nil {
		res.Error = fmt.Sprintf("reading image: %v", err)
		return original, res
	}
	report(10)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		res.Error = fmt.Sprintf("decoding image: %v", err)
		return original, res
	}
	if int64(len(data)) <= c.threshold && max(cfg.Width, cfg.Height) <= preset.MaxDimension {
		report(100)
		return original, res
	}
	if ctx.Err() != nil {
		return original, res
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		res.Error = fmt.Sprintf("decoding image: %v", err)
		return original, res
	}
	report(40)

	dim := uint(preset.MaxDimension)
	img = resize.Thumbnail(dim, dim, img, resize.Lanczos3)
	report(70)

	var buf bytes.Buffer
	for quality := preset.Quality; ; quality -= 10 {
		if ctx.Err() != nil {
			return original, res
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			res.Error = fmt.Sprintf("encoding image: %v", err)
			return original, res
		}
		if int64(buf.Len()) <= preset.MaxSize || quality-10 < minQuality {
			break
		}
	}
	report(100)

	if buf.Len() >= len(data) {
		return original, res
	}

	res.Compressed = true
	res.FinalSize = int64(buf.Len())
	res.Ratio = float64(res.FinalSize) / float64(res.OriginalSize)
	return File{
		Name:     jpegName(f.Name),
		Size:     res.FinalSize,
		MimeType: "image/jpeg",
		Body:     &buf,
	}, res
}

func jpegName(name string) string {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".jpg") || strings.EqualFold(ext, ".jpeg") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

var _ Compressor = (*ImageCompressor)(nil)
