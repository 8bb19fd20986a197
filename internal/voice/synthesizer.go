package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/promo-pipeline/internal/artifact"
	"github.com/book-expert/promo-pipeline/internal/core"
)

const audioFilePerm = 0o600

// ErrUploadMismatch is returned when the stored copy differs in size from the
// rendered audio.
var ErrUploadMismatch = errors.New("stored audio does not match rendered audio")

// Synthesizer writes engine output to the requested path and, when a store is
// set, uploads a durable copy under the request's store key and reads it back.
type Synthesizer struct {
	engine core.SpeechEngine
	store  core.ObjectStore
	log    core.Logger
}

var _ core.VoiceSynthesizer = (*Synthesizer)(nil)

// NewSynthesizer creates a synthesizer. store may be nil.
func NewSynthesizer(engine core.SpeechEngine, store core.ObjectStore, log core.Logger) *Synthesizer {
	return &Synthesizer{
		engine: engine,
		store:  store,
		log:    log,
	}
}

// Synthesize renders req.Text unchanged and overwrites req.OutputPath.
func (s *Synthesizer) Synthesize(ctx context.Context, req core.SpeechRequest) (core.AudioArtifact, error) {
	audioData, err := s.engine.Render(ctx, req.Text)
	if err != nil {
		return core.AudioArtifact{}, fmt.Errorf("failed to render speech: %w", err)
	}

	dirErr := artifact.EnsureDir(filepath.Dir(req.OutputPath))
	if dirErr != nil {
		return core.AudioArtifact{}, fmt.Errorf("failed to prepare audio directory: %w", dirErr)
	}

	writeErr := os.WriteFile(req.OutputPath, audioData, audioFilePerm)
	if writeErr != nil {
		return core.AudioArtifact{}, fmt.Errorf("failed to write audio to %s: %w", req.OutputPath, writeErr)
	}

	audio := core.AudioArtifact{
		Path:     req.OutputPath,
		StoreKey: "",
		Size:     int64(len(audioData)),
	}

	if s.store != nil && req.StoreKey != "" {
		uploadErr := s.store.Upload(ctx, req.StoreKey, audioData)
		if uploadErr != nil {
			return core.AudioArtifact{}, fmt.Errorf("failed to upload audio %s: %w", req.StoreKey, uploadErr)
		}

		verifyErr := s.verifyUpload(ctx, req.StoreKey, audio.Size)
		if verifyErr != nil {
			return core.AudioArtifact{}, verifyErr
		}

		audio.StoreKey = req.StoreKey
	}

	s.log.Info("Wrote voiceover %s (%s)", audio.Path, artifact.FormatFileSize(audio.Size))

	return audio, nil
}

func (s *Synthesizer) verifyUpload(ctx context.Context, key string, size int64) error {
	stored, err := s.store.Download(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to read back audio %s: %w", key, err)
	}

	if int64(len(stored)) != size {
		return fmt.Errorf("%w: %s has %d bytes, rendered %d", ErrUploadMismatch, key, len(stored), size)
	}

	return nil
}
