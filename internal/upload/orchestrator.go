package upload

import (
	"context"
	"errors"
	"net"
	"sync"

	"wishlist-go/internal/wishlist"
)

// State is the phase an upload is in.
type State string

const (
	StateIdle        State = "idle"
	StateCompressing State = "compressing"
	StatePreparing   State = "preparing"
	StateUploading   State = "uploading"
	StateComplete    State = "complete"
	StateError       State = "error"
)

const (
	prepareFailedMessage = "Failed to prepare upload. Please try again."
	uploadFailedMessage  = "Upload failed. Please try again."
)

// Snapshot is the observable state of an Orchestrator. ImageURL and ImageKey
// are set together, only once an upload completes. Compression and Preset
// are set once the compressing phase finishes and stay nil/empty when it was
// skipped.
type Snapshot struct {
	State               State
	Progress            int
	CompressionProgress int
	Compression         *CompressionResult
	Preset              PresetName
	Error               string
	ImageURL            string
	ImageKey            string
}

// Options tunes a single upload.
type Options struct {
	SkipCompression bool
	Preset          string // preset name; unknown or empty means balanced
}

// Orchestrator runs one upload at a time against an ObjectStore. Each
// instance owns its state and cancellation handle; instances share nothing.
// Safe for concurrent use.
type Orchestrator struct {
	objects   wishlist.ObjectStore
	validator *Validator
	logger    wishlist.Logger
	observer  wishlist.Observer

	mu         sync.Mutex
	compressor Compressor
	snap       Snapshot
	lastErr    error
	cancel     context.CancelFunc
	run        uint64
	nextID     int
	watchers   []watcher
}

type watcher struct {
	id int
	fn func(Snapshot)
}

// NewOrchestrator creates an idle orchestrator. A nil validator applies the
// defaults.
func NewOrchestrator(objects wishlist.ObjectStore, validator *Validator, logger wishlist.Logger, observer wishlist.Observer) *Orchestrator {
	if validator == nil {
		validator = NewValidator(0, nil)
	}
	if logger == nil {
		logger = wishlist.NewNopLogger()
	}
	if observer == nil {
		observer = wishlist.NopObserver{}
	}
	return &Orchestrator{
		objects:   objects,
		validator: validator,
		logger:    logger,
		observer:  observer,
		snap:      Snapshot{State: StateIdle},
	}
}

// SetCompressor enables the compressing phase. A nil compressor disables it.
func (o *Orchestrator) SetCompressor(c Compressor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compressor = c
}

// Upload runs UploadWithOptions with the default options.
func (o *Orchestrator) Upload(ctx context.Context, f File) (string, bool) {
	return o.UploadWithOptions(ctx, f, Options{})
}

// UploadWithOptions validates f, compresses it when a compressor is set,
// obtains a write credential and transfers the file. It returns the public
// URL of the stored object, or false when the upload did not complete; the
// reason is in Snapshot. A run that is cancelled or superseded never changes
// state again, even if its transfer later succeeds.
func (o *Orchestrator) UploadWithOptions(ctx context.Context, f File, opts Options) (string, bool) {
	if err := o.validator.Validate(f); err != nil {
		o.mu.Lock()
		o.abandonLocked()
		o.snap = Snapshot{State: StateError, Error: err.Error()}
		o.lastErr = err
		o.unlockAndNotify()
		o.logger.Debug("upload rejected", "file", f.Name, "error", err)
		o.observer.UploadFinished(string(StateError))
		return "", false
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.abandonLocked()
	o.run++
	run := o.run
	o.cancel = cancel
	o.lastErr = nil
	compressor := o.compressor
	if opts.SkipCompression {
		compressor = nil
	}
	if compressor != nil {
		o.snap = Snapshot{State: StateCompressing}
	} else {
		o.snap = Snapshot{State: StatePreparing}
	}
	o.unlockAndNotify()

	if compressor != nil {
		preset := PresetByName(opts.Preset)
		out, res := compressor.Compress(runCtx, f, preset, func(p int) {
			o.update(run, func(s *Snapshot) {
				if s.State == StateCompressing {
					s.CompressionProgress = clampPercent(p)
				}
			})
		})
		if runCtx.Err() != nil {
			o.finish(run, nil, func(s *Snapshot) { s.State = StateIdle; s.CompressionProgress = 0 })
			return "", false
		}
		if res.Error != "" {
			o.logger.Warn("image compression failed, uploading original", "file", f.Name, "error", res.Error)
		} else if res.Compressed {
			o.logger.Debug("image compressed", "file", f.Name, "preset", preset.Name, "originalSize", res.OriginalSize, "finalSize", res.FinalSize)
		}
		f = out
		if !o.update(run, func(s *Snapshot) {
			s.State = StatePreparing
			s.CompressionProgress = 100
			s.Compression = &res
			s.Preset = preset.Name
		}) {
			return "", false
		}
	}

	cred, err := o.objects.IssueUploadCredential(runCtx, wishlist.UploadRequest{FileName: f.Name, MimeType: f.MimeType})
	if err != nil {
		if runCtx.Err() != nil {
			o.finish(run, nil, toIdle)
			return "", false
		}
		o.logger.Warn("failed to prepare upload", "file", f.Name, "error", err)
		o.finish(run, err, toError(messageOr(err, prepareFailedMessage)))
		return "", false
	}
	if runCtx.Err() != nil {
		o.finish(run, nil, toIdle)
		return "", false
	}

	if !o.update(run, func(s *Snapshot) { s.State = StateUploading; s.Progress = 0 }) {
		return "", false
	}

	err = o.objects.Transfer(runCtx, wishlist.TransferRequest{
		Destination: cred.URL,
		Body:        f.Body,
		Size:        f.Size,
		MimeType:    f.MimeType,
		OnProgress: func(p wishlist.Progress) {
			o.update(run, func(s *Snapshot) {
				if s.State == StateUploading {
					s.Progress = clampPercent(p.Percent)
				}
			})
		},
	})
	if err != nil {
		if isAbort(err) || runCtx.Err() != nil {
			o.logger.Debug("upload aborted", "file", f.Name, "error", err)
			o.finish(run, nil, toIdle)
			return "", false
		}
		o.logger.Warn("upload failed", "file", f.Name, "error", err)
		o.finish(run, err, toError(messageOr(err, uploadFailedMessage)))
		return "", false
	}

	url := o.objects.PublicURL(cred.Key)
	if !o.finish(run, nil, func(s *Snapshot) {
		s.State = StateComplete
		s.Progress = 100
		s.Error = ""
		s.ImageURL = url
		s.ImageKey = cred.Key
	}) {
		return "", false
	}
	o.logger.Info("upload complete", "file", f.Name, "key", cred.Key)
	return url, true
}

// Err returns the error behind the current error state, or nil. A rejected
// file yields a *ValidationError.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap.State != StateError {
		return nil
	}
	return o.lastErr
}

func toIdle(s *Snapshot) {
	s.State = StateIdle
	s.Progress = 0
	s.CompressionProgress = 0
	s.Error = ""
}

func toError(msg string) func(*Snapshot) {
	return func(s *Snapshot) {
		s.State = StateError
		s.Progress = 0
		s.Error = msg
	}
}

// Cancel aborts the active run, if any, and returns to idle with no progress,
// no error and no compression result. A completed upload's URL and key are
// kept.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.abandonLocked()
	o.snap = Snapshot{State: StateIdle, ImageURL: o.snap.ImageURL, ImageKey: o.snap.ImageKey}
	o.lastErr = nil
	o.unlockAndNotify()
}

// Reset cancels and clears any completed result.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.abandonLocked()
	o.snap = Snapshot{State: StateIdle}
	o.lastErr = nil
	o.unlockAndNotify()
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Watch calls fn with every subsequent state change. The returned func stops
// the notifications.
func (o *Orchestrator) Watch(fn func(Snapshot)) (stop func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.watchers = append(o.watchers, watcher{id: id, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, w := range o.watchers {
			if w.id == id {
				o.watchers = append(o.watchers[:i:i], o.watchers[i+1:]...)
				return
			}
		}
	}
}

// abandonLocked cancels the active run and makes it unable to write state.
func (o *Orchestrator) abandonLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.run++
}

// update applies fn if run is still current and reports whether it did.
func (o *Orchestrator) update(run uint64, fn func(*Snapshot)) bool {
	o.mu.Lock()
	if run != o.run {
		o.mu.Unlock()
		return false
	}
	fn(&o.snap)
	o.unlockAndNotify()
	return true
}

// finish moves a still-current run into a terminal state and releases its
// cancellation handle. err is kept for Err.
func (o *Orchestrator) finish(run uint64, err error, fn func(*Snapshot)) bool {
	o.mu.Lock()
	if run != o.run {
		o.mu.Unlock()
		return false
	}
	fn(&o.snap)
	o.cancel = nil
	o.lastErr = err
	state := o.snap.State
	o.unlockAndNotify()

	o.observer.UploadFinished(string(state))
	return true
}

// unlockAndNotify releases mu and then delivers the current snapshot to watchers.
func (o *Orchestrator) unlockAndNotify() {
	snap := o.snap
	fns := make([]func(Snapshot), len(o.watchers))
	for i, w := range o.watchers {
		fns[i] = w.fn
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func isAbort(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func messageOr(err error, fallback string) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
