// Package notify_test tests the NATS outcome notifier.
package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/book-expert/promo-pipeline/internal/notify"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func sampleOutcome() core.Outcome {
	return core.Outcome{
		RunID: "a1b2c3d4",
		Index: 0,
		Item: core.CatalogItem{
			ID:            "B000WIDGET",
			Name:          "Widget",
			Category:      "electronics",
			Price:         99,
			Rating:        4.5,
			AffiliateLink: "http://x/y",
		},
		Audio: core.AudioArtifact{
			Path:     "/work/a1b2c3d4/001-b000widget/voiceover.wav",
			StoreKey: "a1b2c3d4/001-b000widget/voiceover.wav",
			Size:     2048,
		},
		Result: core.PublishResult{
			VideoID:    "vid-1",
			URL:        "https://www.youtube.com/watch?v=vid-1",
			Visibility: "public",
		},
	}
}

func TestNatsNotifier_PublishesOutcome(t *testing.T) {
	t.Parallel()

	// 1. Setup
	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	subscription, err := natsConnection.SubscribeSync("promo.published")
	require.NoError(t, err)
	require.NoError(t, natsConnection.Flush())

	notifier, err := notify.NewNatsNotifier(natsConnection, "promo.published")
	require.NoError(t, err)

	// 2. Execute
	err = notifier.Notify(context.Background(), sampleOutcome())
	require.NoError(t, err)

	// 3. Assert
	msg, err := subscription.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var event notify.PromoPublishedEvent

	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "a1b2c3d4", event.Header.WorkflowID)
	assert.NotEmpty(t, event.Header.EventID)
	assert.False(t, event.Header.Timestamp.IsZero())
	assert.Equal(t, 1, event.Position)
	assert.Equal(t, "Widget", event.ItemName)
	assert.Equal(t, "a1b2c3d4/001-b000widget/voiceover.wav", event.AudioKey)
	assert.Equal(t, "vid-1", event.VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid-1", event.VideoURL)
}

func TestNatsNotifier_CancelableContextWithoutDeadline(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	subscription, err := natsConnection.SubscribeSync("promo.published")
	require.NoError(t, err)
	require.NoError(t, natsConnection.Flush())

	notifier, err := notify.NewNatsNotifier(natsConnection, "promo.published")
	require.NoError(t, err)

	// Same shape as the process context: cancelable, no deadline.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, hasDeadline := ctx.Deadline()
	require.False(t, hasDeadline)

	require.NoError(t, notifier.Notify(ctx, sampleOutcome()))

	_, err = subscription.NextMsg(5 * time.Second)
	require.NoError(t, err)
}

func TestNewPromoPublishedEvent_UniqueEventIDs(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := notify.NewPromoPublishedEvent(sampleOutcome(), now)
	second := notify.NewPromoPublishedEvent(sampleOutcome(), now)

	assert.Equal(t, now, first.Header.Timestamp)
	assert.NotEqual(t, first.Header.EventID, second.Header.EventID)
}

func TestNewNatsNotifier_Validation(t *testing.T) {
	t.Parallel()

	_, err := notify.NewNatsNotifier(nil, "promo.published")
	require.ErrorIs(t, err, notify.ErrConnectionNil)

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	_, err = notify.NewNatsNotifier(natsConnection, "")
	require.ErrorIs(t, err, notify.ErrSubjectEmpty)
}
