// Package notify announces published items on a NATS subject.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

var (
	// ErrSubjectEmpty indicates that the outcome subject is empty.
	ErrSubjectEmpty = errors.New("outcome subject cannot be empty")
	// ErrConnectionNil indicates that no NATS connection was given.
	ErrConnectionNil = errors.New("nats connection cannot be nil")
)

// PromoPublishedEvent is emitted once per published item. The header's
// WorkflowID is the run id.
type PromoPublishedEvent struct {
	Header        events.EventHeader `json:"header"`
	Position      int                `json:"position"`
	ItemID        string             `json:"item_id,omitempty"`
	ItemName      string             `json:"item_name"`
	Category      string             `json:"category"`
	Price         float64            `json:"price"`
	Rating        float64            `json:"rating"`
	AffiliateLink string             `json:"affiliate_link"`
	AudioPath     string             `json:"audio_path"`
	AudioKey      string             `json:"audio_key,omitempty"`
	VideoID       string             `json:"video_id"`
	VideoURL      string             `json:"video_url"`
	Visibility    string             `json:"visibility"`
}

// NatsNotifier publishes PromoPublishedEvent messages.
type NatsNotifier struct {
	natsConnection *nats.Conn
	subject        string
	now            func() time.Time
}

var _ core.OutcomeNotifier = (*NatsNotifier)(nil)

// NewNatsNotifier creates a notifier for subject.
func NewNatsNotifier(natsConnection *nats.Conn, subject string) (*NatsNotifier, error) {
	if natsConnection == nil {
		return nil, ErrConnectionNil
	}

	if subject == "" {
		return nil, ErrSubjectEmpty
	}

	return &NatsNotifier{
		natsConnection: natsConnection,
		subject:        subject,
		now:            time.Now,
	}, nil
}

// Notify publishes the event and waits, at most flushTimeout, for the server
// to receive it.
func (n *NatsNotifier) Notify(ctx context.Context, outcome core.Outcome) error {
	event := NewPromoPublishedEvent(outcome, n.now())

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome event: %w", err)
	}

	err = n.natsConnection.Publish(n.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish outcome event to %s: %w", n.subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	flushErr := n.natsConnection.FlushWithContext(flushCtx)
	if flushErr != nil {
		return fmt.Errorf("failed to flush outcome event: %w", flushErr)
	}

	return nil
}

// NewPromoPublishedEvent builds the event for outcome.
func NewPromoPublishedEvent(outcome core.Outcome, timestamp time.Time) PromoPublishedEvent {
	return PromoPublishedEvent{
		Header: events.EventHeader{
			Timestamp:  timestamp,
			WorkflowID: outcome.RunID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		Position:      outcome.Index + 1,
		ItemID:        outcome.Item.ID,
		ItemName:      outcome.Item.Name,
		Category:      outcome.Item.Category,
		Price:         outcome.Item.Price,
		Rating:        outcome.Item.Rating,
		AffiliateLink: outcome.Item.AffiliateLink,
		AudioPath:     outcome.Audio.Path,
		AudioKey:      outcome.Audio.StoreKey,
		VideoID:       outcome.Result.VideoID,
		VideoURL:      outcome.Result.URL,
		Visibility:    outcome.Result.Visibility,
	}
}
