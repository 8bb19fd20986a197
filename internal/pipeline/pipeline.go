// Package pipeline drives catalog items through script, voice, assembly and
// publishing, one item at a time in catalog order.
package pipeline

import (
	"context"
	"fmt"

	"github.com/book-expert/promo-pipeline/internal/core"
)

// ArtifactLayout reserves the per-item artifact paths of a run.
type ArtifactLayout interface {
	RunID() string
	ItemPaths(index int, item core.CatalogItem) (core.ItemPaths, error)
}

// Deps wires the stages into the driver. Notifier is optional.
type Deps struct {
	Catalog    core.CatalogQuery
	Scripts    core.ScriptGenerator
	Voice      core.VoiceSynthesizer
	Assembler  core.VideoAssembler
	Publisher  core.Publisher
	Notifier   core.OutcomeNotifier
	Layout     ArtifactLayout
	Filter     core.Filter
	Visibility string
	Log        core.Logger
}

// Summary counts what a run did.
type Summary struct {
	Fetched   int
	Published int
}

// Driver runs one batch.
type Driver struct {
	catalog    core.CatalogQuery
	scripts    core.ScriptGenerator
	voice      core.VoiceSynthesizer
	assembler  core.VideoAssembler
	publisher  core.Publisher
	notifier   core.OutcomeNotifier
	layout     ArtifactLayout
	filter     core.Filter
	visibility string
	log        core.Logger
}

// New constructs the driver. An empty visibility means public.
func New(deps Deps) *Driver {
	visibility := deps.Visibility
	if visibility == "" {
		visibility = core.VisibilityPublic
	}

	return &Driver{
		catalog:    deps.Catalog,
		scripts:    deps.Scripts,
		voice:      deps.Voice,
		assembler:  deps.Assembler,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		layout:     deps.Layout,
		filter:     deps.Filter,
		visibility: visibility,
		log:        deps.Log,
	}
}

// ReviewTags returns the tags attached to every published video.
func ReviewTags() []string {
	return []string{"affiliate", "product review", "Amazon"}
}

// Run processes every item the catalog returns. The first stage failure stops
// the batch; items after it are never attempted.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	runID := d.layout.RunID()

	d.log.Info("Promo run %s started: category=%q price=[%.2f, %.2f] min_rating=%.1f",
		runID, d.filter.Category, d.filter.MinPrice, d.filter.MaxPrice, d.filter.MinRating)

	items := d.catalog.Search(ctx, d.filter)
	summary := Summary{Fetched: len(items), Published: 0}

	for index, item := range items {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return summary, fmt.Errorf("run %s interrupted before item %d of %d: %w", runID, index+1, len(items), ctxErr)
		}

		result, err := d.processItem(ctx, runID, index, item)
		if err != nil {
			return summary, fmt.Errorf("item %d of %d (%q): %w", index+1, len(items), item.Name, err)
		}

		summary.Published++

		d.log.Info("Published item %d of %d %q: %s (%s)", index+1, len(items), item.Name, result.URL, result.Visibility)
	}

	d.log.Info("Promo run %s finished: %d fetched, %d published", runID, summary.Fetched, summary.Published)

	return summary, nil
}

func (d *Driver) processItem(ctx context.Context, runID string, index int, item core.CatalogItem) (core.PublishResult, error) {
	paths, err := d.layout.ItemPaths(index, item)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to reserve artifact paths: %w", err)
	}

	text, err := d.scripts.Generate(ctx, item)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to generate script: %w", err)
	}

	audio, err := d.voice.Synthesize(ctx, core.SpeechRequest{
		Text:       text,
		OutputPath: paths.AudioPath,
		StoreKey:   paths.StoreKey,
	})
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to synthesize voiceover: %w", err)
	}

	video, err := d.assembler.Assemble(ctx, audio, paths.VideoPath)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to assemble video: %w", err)
	}

	result, err := d.publisher.Publish(ctx, core.PublishRequest{
		VideoPath:   video.Path,
		Title:       item.Name,
		Description: text,
		Tags:        ReviewTags(),
		Visibility:  d.visibility,
	})
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to publish video: %w", err)
	}

	if d.notifier != nil {
		notifyErr := d.notifier.Notify(ctx, core.Outcome{
			RunID:  runID,
			Index:  index,
			Item:   item,
			Audio:  audio,
			Result: result,
		})
		if notifyErr != nil {
			d.log.Error("Failed to announce item %d %q: %v", index+1, item.Name, notifyErr)
		}
	}

	return result, nil
}
