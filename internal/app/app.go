package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"wishlist-go/internal/config"
	"wishlist-go/internal/draft"
	"wishlist-go/internal/encryption"
	"wishlist-go/internal/fs"
	"wishlist-go/internal/metrics"
	"wishlist-go/internal/objectstore"
	"wishlist-go/internal/storage"
	"wishlist-go/internal/upload"
	"wishlist-go/internal/wishlist"
)

// ErrNotSignedIn is returned by operations that need a user when the config
// has none.
var ErrNotSignedIn = errors.New("no user signed in: set user_id in the config")

// WishlistApp is the application layer between the CLI and the draft and
// upload engines. It constructs all dependencies from config, exposes
// high-level operations that accept raw strings and paths, and flushes the
// draft on Close.
type WishlistApp struct {
	cfg          *config.Config
	storage      wishlist.Storage
	encryptor    wishlist.Encryptor
	objects      wishlist.ObjectStore
	session      *wishlist.Session
	store        *draft.Store
	persistence  *draft.Persistence
	orchestrator *upload.Orchestrator
	metrics      *metrics.Observer
	logger       wishlist.Logger
	op           *Operation
	logFile      *os.File
}

// NewWishlistApp creates a fully wired WishlistApp from the given config.
// operation identifies the CLI command being run (e.g. "DraftSet", "Upload").
// The caller must call Close when done.
func NewWishlistApp(ctx context.Context, cfg *config.Config, operation string) (*WishlistApp, error) {
	clock := wishlist.RealClock{}
	op := NewOperation(operation, clock.Now())

	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a, err := newWishlistApp(ctx, cfg, op, logger, clock)
	if err != nil {
		logFile.Close()
		return nil, err
	}
	a.logFile = logFile
	return a, nil
}

func newWishlistApp(ctx context.Context, cfg *config.Config, op *Operation, logger wishlist.Logger, clock wishlist.RealClock) (*WishlistApp, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	st, err := storage.NewStorageFromConfig(cfg.Storage, enc, clock)
	if err != nil {
		return nil, fmt.Errorf("creating storage: %w", err)
	}

	objects, err := objectstore.NewObjectStoreFromConfig(ctx, cfg.ObjectStore, wishlist.UUIDGenerator{})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	var observer wishlist.Observer = wishlist.NopObserver{}
	var m *metrics.Observer
	if cfg.Metrics.Enabled {
		m = metrics.NewObserver()
		observer = m
	}

	session := wishlist.NewSession(cfg.UserID)
	store := draft.NewStore(clock)
	persistence := draft.NewPersistence(store, st, session, clock, clock, logger, observer, draft.Options{
		Namespace: cfg.Draft.Namespace,
		FormName:  cfg.Draft.FormName,
		Debounce:  time.Duration(cfg.Draft.DebounceMS) * time.Millisecond,
		MaxAge:    time.Duration(cfg.Draft.MaxAgeDays) * 24 * time.Hour,
	})

	validator := upload.NewValidator(cfg.Upload.MaxFileSize, cfg.Upload.AllowedMimeTypes)
	orchestrator := upload.NewOrchestrator(objects, validator, logger, observer)
	orchestrator.SetCompressor(upload.NewImageCompressor())

	return &WishlistApp{
		cfg:          cfg,
		storage:      st,
		encryptor:    enc,
		objects:      objects,
		session:      session,
		store:        store,
		persistence:  persistence,
		orchestrator: orchestrator,
		metrics:      m,
		logger:       logger,
		op:           op,
	}, nil
}

// NeedsPassphrase reports whether stored drafts are encrypted and must be
// unlocked before they can be read.
func (a *WishlistApp) NeedsPassphrase() bool {
	es, ok := a.storage.(*storage.EncryptedStorage)
	return ok && es.Locked()
}

// Unlock opens encrypted draft storage for reading.
func (a *WishlistApp) Unlock(passphrase string) error {
	es, ok := a.storage.(*storage.EncryptedStorage)
	if !ok {
		return nil
	}
	if err := es.Unlock(passphrase); err != nil {
		return fmt.Errorf("unlocking draft storage: %w", err)
	}
	return nil
}

// SetupKeys generates the key pair used to encrypt drafts at rest.
func (a *WishlistApp) SetupKeys(passphrase string) error {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	return nil
}

// Restore loads the signed-in user's stored draft, if any. It reports whether
// a draft was restored.
func (a *WishlistApp) Restore() bool {
	restored := a.persistence.Rehydrate()
	if restored {
		a.logger.Info("draft restored", "user", a.cfg.UserID)
	}
	return restored
}

// Draft returns the current draft state.
func (a *WishlistApp) Draft() draft.State {
	return a.store.State()
}

// SetField parses raw for the named field and applies it to the draft.
func (a *WishlistApp) SetField(name, raw string) error {
	u, err := draft.ParseFieldUpdate(name, raw)
	if err != nil {
		return err
	}
	a.store.UpdateField(u)
	return nil
}

// UnsetField clears an optional field.
func (a *WishlistApp) UnsetField(name string) error {
	u, err := draft.Unset(draft.Field(name))
	if err != nil {
		return err
	}
	a.store.UpdateField(u)
	return nil
}

// ClearDraft discards the draft and removes it from storage.
func (a *WishlistApp) ClearDraft() {
	a.store.ClearDraft()
}

// Submit validates the draft as a new wishlist item. On success the draft is
// cleared and the submitted form data returned.
func (a *WishlistApp) Submit() (draft.FormData, error) {
	if _, ok := a.session.UserID(); !ok {
		return draft.FormData{}, ErrNotSignedIn
	}
	data := a.store.State().FormData
	if err := a.persistence.Codec().ValidateSubmission(data); err != nil {
		return draft.FormData{}, err
	}
	a.store.ClearDraft()
	a.logger.Info("wishlist item submitted", "title", data.Title)
	return data, nil
}

// WatchUpload calls fn with each upload state change.
func (a *WishlistApp) WatchUpload(fn func(upload.Snapshot)) (stop func()) {
	return a.orchestrator.Watch(fn)
}

// CancelUpload aborts a running upload.
func (a *WishlistApp) CancelUpload() {
	a.orchestrator.Cancel()
}

// UploadImage uploads the image at rawPath and returns its public URL. With
// attach set, the URL is stored as the draft's image.
func (a *WishlistApp) UploadImage(ctx context.Context, rawPath string, attach bool, opts upload.Options) (string, error) {
	f, err := fs.Open(rawPath)
	if err != nil {
		return "", fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	if opts.Preset == "" {
		opts.Preset = a.cfg.Upload.Preset
	}
	opts.SkipCompression = opts.SkipCompression || a.cfg.Upload.SkipCompression

	url, ok := a.orchestrator.UploadWithOptions(ctx, f.UploadFile(), opts)
	if !ok {
		if err := a.orchestrator.Err(); err != nil {
			return "", err
		}
		return "", context.Canceled
	}

	if attach {
		a.store.UpdateField(draft.SetImageURL(url))
	}
	return url, nil
}

// CheckObjectStore verifies the configured object store is reachable.
func (a *WishlistApp) CheckObjectStore(ctx context.Context) error {
	return a.objects.ValidateSetup(ctx)
}

// StorageKey returns the key the signed-in user's draft is stored under.
func (a *WishlistApp) StorageKey() (string, error) {
	userID, ok := a.session.UserID()
	if !ok {
		return "", ErrNotSignedIn
	}
	return a.persistence.Key(userID), nil
}

// Fail marks the operation as failed in the log written on Close.
func (a *WishlistApp) Fail(err error) {
	a.op.Fail(err)
}

// Close writes any pending draft, exports metrics and closes all resources.
func (a *WishlistApp) Close() error {
	var firstErr error

	a.persistence.Flush()
	a.persistence.Close()

	if err := a.storage.Close(); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}

	if a.metrics != nil && a.cfg.Metrics.TextfilePath != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
			a.logger.Warn("failed to export metrics", "error", err)
		}
	}

	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status, "duration", time.Since(a.op.Started).Round(time.Millisecond))

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
