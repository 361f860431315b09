package wishlist

// Draft load outcomes reported to an Observer.
const (
	LoadOutcomeAbsent    = "absent"
	LoadOutcomeCorrupted = "corrupted"
	LoadOutcomeExpired   = "expired"
	LoadOutcomeLoaded    = "loaded"
)

// Observer receives diagnostic signals from the draft and upload engines.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	DraftLoaded(outcome string)
	DraftWritten()
	DraftWriteDropped(reason string)
	DraftCleared()
	UploadFinished(state string)
}

// NopObserver discards all signals.
type NopObserver struct{}

func (NopObserver) DraftLoaded(string)       {}
func (NopObserver) DraftWritten()            {}
func (NopObserver) DraftWriteDropped(string) {}
func (NopObserver) DraftCleared()            {}
func (NopObserver) UploadFinished(string)    {}
