// Package assembly is the boundary to the external video-assembly step. The
// step's only contract is a video file at an agreed path.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
)

// Placeholders substituted in command arguments.
const (
	AudioPlaceholder = "{audio}"
	VideoPlaceholder = "{video}"
)

var (
	// ErrVideoMissing is returned when the assembly command did not produce the video.
	ErrVideoMissing = errors.New("assembled video not found")
	// ErrCommandEmpty is returned for a command assembler without a program.
	ErrCommandEmpty = errors.New("assembly command cannot be empty")
)

// AgreedPath trusts an external process to place the video at the agreed
// path. It never inspects the file.
type AgreedPath struct{}

var _ core.VideoAssembler = AgreedPath{}

// Assemble returns videoPath unchanged.
func (AgreedPath) Assemble(_ context.Context, _ core.AudioArtifact, videoPath string) (core.VideoArtifact, error) {
	return core.VideoArtifact{Path: videoPath}, nil
}

// CommandAssembler runs a configured external program for every item.
type CommandAssembler struct {
	command string
	args    []string
}

var _ core.VideoAssembler = (*CommandAssembler)(nil)

// NewCommandAssembler creates an assembler for command.
func NewCommandAssembler(command string, args []string) (*CommandAssembler, error) {
	if command == "" {
		return nil, ErrCommandEmpty
	}

	return &CommandAssembler{
		command: command,
		args:    append([]string(nil), args...),
	}, nil
}

// Assemble runs the program and checks that it left a file at videoPath.
func (a *CommandAssembler) Assemble(ctx context.Context, audio core.AudioArtifact, videoPath string) (core.VideoArtifact, error) {
	replacer := strings.NewReplacer(AudioPlaceholder, audio.Path, VideoPlaceholder, videoPath)

	args := make([]string, len(a.args))
	for i, arg := range a.args {
		args[i] = replacer.Replace(arg)
	}

	// #nosec G204 -- command and arguments come from the operator's configuration
	cmd := exec.CommandContext(ctx, a.command, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return core.VideoArtifact{}, fmt.Errorf("assembly command %s failed: %w - output: %s", a.command, err, string(output))
	}

	info, statErr := os.Stat(videoPath)
	if statErr != nil {
		return core.VideoArtifact{}, fmt.Errorf("%w at %s: %w", ErrVideoMissing, videoPath, statErr)
	}

	if info.IsDir() {
		return core.VideoArtifact{}, fmt.Errorf("%w: %s is a directory", ErrVideoMissing, videoPath)
	}

	return core.VideoArtifact{Path: videoPath}, nil
}

// New selects the assembler for cfg.Mode.
func New(cfg config.AssemblyConfig) (core.VideoAssembler, error) {
	switch cfg.Mode {
	case config.AssemblyAgreed, "":
		return AgreedPath{}, nil
	case config.AssemblyCommand:
		assembler, err := NewCommandAssembler(cfg.Command, cfg.Args)
		if err != nil {
			return nil, err
		}

		return assembler, nil
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownAssembly, cfg.Mode)
	}
}
