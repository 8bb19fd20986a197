// Package voice renders review scripts to audio files.
package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/book-expert/promo-pipeline/internal/core"
)

// OutputPlaceholder is replaced in engine arguments by the path the engine
// must write its audio to.
const OutputPlaceholder = "{output}"

var (
	// ErrBinaryEmpty is returned when no synthesis binary is configured.
	ErrBinaryEmpty = errors.New("synthesis binary cannot be empty")
	// ErrEmptyAudio is returned when an engine produced no audio.
	ErrEmptyAudio = errors.New("engine produced empty audio")
)

// CommandEngine runs a local synthesis binary. The text is written to the
// process stdin. When an argument contains OutputPlaceholder the audio is read
// from that file, otherwise from stdout.
type CommandEngine struct {
	binary string
	args   []string
	log    core.Logger
}

var _ core.SpeechEngine = (*CommandEngine)(nil)

// NewCommandEngine creates an engine for binary.
func NewCommandEngine(binary string, args []string, log core.Logger) (*CommandEngine, error) {
	if binary == "" {
		return nil, ErrBinaryEmpty
	}

	return &CommandEngine{
		binary: binary,
		args:   append([]string(nil), args...),
		log:    log,
	}, nil
}

// Render runs the binary once and returns the audio it produced.
func (e *CommandEngine) Render(ctx context.Context, text string) ([]byte, error) {
	if !e.writesToFile() {
		return e.renderToStdout(ctx, text)
	}

	tempFile, err := os.CreateTemp("", "promo-voice-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for speech output: %w", err)
	}

	closeErr := tempFile.Close()
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close temp file for speech output: %w", closeErr)
	}

	defer func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			e.log.Warn("Failed to remove temp file '%s': %v", tempFile.Name(), removeErr)
		}
	}()

	args := make([]string, len(e.args))
	for i, arg := range e.args {
		args[i] = strings.ReplaceAll(arg, OutputPlaceholder, tempFile.Name())
	}

	// #nosec G204 -- binary and arguments come from the operator's configuration
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(text)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s execution failed: %w - output: %s", e.binary, err, string(output))
	}

	audioData, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data from temp file: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, e.binary)
	}

	return audioData, nil
}

func (e *CommandEngine) renderToStdout(ctx context.Context, text string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	// #nosec G204 -- binary and arguments come from the operator's configuration
	cmd := exec.CommandContext(ctx, e.binary, e.args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("%s execution failed: %w - output: %s", e.binary, err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, e.binary)
	}

	return stdout.Bytes(), nil
}

func (e *CommandEngine) writesToFile() bool {
	for _, arg := range e.args {
		if strings.Contains(arg, OutputPlaceholder) {
			return true
		}
	}

	return false
}
