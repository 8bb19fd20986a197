// Package publish uploads finished videos to YouTube.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

var insertParts = []string{"snippet", "status"}

var (
	// ErrUnsupportedVisibility is returned for a visibility the platform does not know.
	ErrUnsupportedVisibility = errors.New("unsupported visibility")
	// ErrCredentialsIncomplete is returned when the OAuth2 client is not fully configured.
	ErrCredentialsIncomplete = errors.New("youtube credentials are incomplete")
)

// YouTubePublisher inserts videos through the YouTube Data API v3.
type YouTubePublisher struct {
	service    *youtube.Service
	categoryID string
	visibility string
}

var _ core.Publisher = (*YouTubePublisher)(nil)

// New authenticates with the configured refresh token. Extra client options
// are applied last.
func New(ctx context.Context, cfg config.PublishConfig, opts ...option.ClientOption) (*YouTubePublisher, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, ErrCredentialsIncomplete
	}

	visibility := cfg.Visibility
	if visibility == "" {
		visibility = core.VisibilityPublic
	}

	if !IsSupportedVisibility(visibility) {
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedVisibility, visibility)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &YouTubePublisher{
		service:    service,
		categoryID: cfg.CategoryID,
		visibility: visibility,
	}, nil
}

// Publish uploads req.VideoPath and blocks until the platform acknowledges it.
// An empty req.Visibility uses the configured default.
func (p *YouTubePublisher) Publish(ctx context.Context, req core.PublishRequest) (core.PublishResult, error) {
	visibility := req.Visibility
	if visibility == "" {
		visibility = p.visibility
	}

	if !IsSupportedVisibility(visibility) {
		return core.PublishResult{}, fmt.Errorf("%w: '%s'", ErrUnsupportedVisibility, visibility)
	}

	file, err := os.Open(req.VideoPath)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to open video %s: %w", req.VideoPath, err)
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  p.categoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: visibility,
		},
	}

	inserted, err := p.service.Videos.Insert(insertParts, video).Media(file).Context(ctx).Do()
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to upload video %q: %w", req.Title, err)
	}

	result := core.PublishResult{
		VideoID:    inserted.Id,
		URL:        watchURLPrefix + inserted.Id,
		Visibility: visibility,
	}

	if inserted.Status != nil && inserted.Status.PrivacyStatus != "" {
		result.Visibility = inserted.Status.PrivacyStatus
	}

	return result, nil
}

// IsSupportedVisibility reports whether visibility is a YouTube privacy status.
func IsSupportedVisibility(visibility string) bool {
	switch visibility {
	case core.VisibilityPublic, core.VisibilityUnlisted, core.VisibilityPrivate:
		return true
	default:
		return false
	}
}
