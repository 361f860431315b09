// Package objectstore issues upload credentials and moves image bytes to
// where they are stored: memory, a local directory, or S3.
package objectstore

import (
	"context"
	"io"
	"path"
	"strings"

	"wishlist-go/internal/wishlist"
)

// keyPrefix groups uploaded images under one directory in every store.
const keyPrefix = "wishlist"

// newKey returns "<prefix>/wishlist/<id><ext>", keeping the file's extension
// so the stored object stays recognisable.
func newKey(prefix, id, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return path.Join(prefix, keyPrefix, id+ext)
}

// progressReader reports transfer progress as bytes are read and stops with
// the context's error once it is cancelled.
type progressReader struct {
	ctx        context.Context
	r          io.Reader
	total      int64
	read       int64
	lastPct    int
	onProgress func(wishlist.Progress)
}

func newProgressReader(ctx context.Context, req wishlist.TransferRequest) *progressReader {
	return &progressReader{ctx: ctx, r: req.Body, total: req.Size, lastPct: -1, onProgress: req.OnProgress}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.read += int64(n)
		pr.report()
	}
	if err == io.EOF && pr.read == 0 {
		pr.report()
	}
	return n, err
}

// report emits only when the whole-number percentage changes.
func (pr *progressReader) report() {
	if pr.onProgress == nil {
		return
	}
	pct := 100
	if pr.total > 0 {
		pct = int(pr.read * 100 / pr.total)
		if pct > 100 {
			pct = 100
		}
	}
	if pct == pr.lastPct {
		return
	}
	pr.lastPct = pct
	pr.onProgress(wishlist.Progress{Percent: pct, Loaded: pr.read, Total: pr.total})
}
