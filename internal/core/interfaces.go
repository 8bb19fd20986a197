// Package core defines the domain types and stage interfaces of the promo pipeline.
package core

import "context"

// Logger is the subset of the book-expert logger the pipeline stages write to.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// CatalogQuery returns the candidate items for a filter.
// Implementations never fail: an upstream error yields an empty slice.
type CatalogQuery interface {
	Search(ctx context.Context, filter Filter) []CatalogItem
}

// ScriptGenerator drafts the promotional text for one item.
type ScriptGenerator interface {
	Generate(ctx context.Context, item CatalogItem) (string, error)
}

// SpeechEngine renders text to raw audio bytes.
type SpeechEngine interface {
	Render(ctx context.Context, text string) ([]byte, error)
}

// VoiceSynthesizer turns a script into an audio artifact on storage.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (AudioArtifact, error)
}

// VideoAssembler is the boundary to the external video-assembly step.
type VideoAssembler interface {
	Assemble(ctx context.Context, audio AudioArtifact, videoPath string) (VideoArtifact, error)
}

// Publisher uploads a finished video to a publishing platform.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
}

// OutcomeNotifier announces a published item to downstream listeners.
type OutcomeNotifier interface {
	Notify(ctx context.Context, outcome Outcome) error
}
