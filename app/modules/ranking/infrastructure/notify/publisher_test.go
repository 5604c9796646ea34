package rankingnotify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	rankingevents "github.com/Black-And-White-Club/rhythm-ranker/app/modules/ranking/domain/events"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublisher_PublishesTypedEvents(t *testing.T) {
	ctx := context.Background()
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	scores, err := pubsub.Subscribe(ctx, rankingevents.ScoreUpdatedSubject)
	require.NoError(t, err)
	captures, err := pubsub.Subscribe(ctx, rankingevents.ClanCaptureChangedSubject)
	require.NoError(t, err)

	p := NewPublisher(pubsub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	scoreEvent := rankingevents.ScoreUpdatedEvent{
		ScoreID:       42,
		PlayerID:      "p1",
		LeaderboardID: "lb1",
		Context:       "general",
		ModifiedScore: 900,
		Accuracy:      0.9,
		PP:            312.5,
		Rank:          1,
		PlayerPP:      1000,
		OccurredAt:    at,
	}
	require.NoError(t, p.PublishScore(ctx, scoreEvent))

	msg := receive(t, scores)
	assert.Equal(t, rankingevents.ScoreUpdatedSubject, msg.Metadata.Get("subject"))
	assert.Equal(t, rankingevents.RankingStreamName, msg.Metadata.Get("stream"))
	var gotScore rankingevents.ScoreUpdatedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &gotScore))
	assert.Equal(t, scoreEvent, gotScore)

	current := "clan-b"
	captureEvent := rankingevents.ClanCaptureChangedEvent{
		LeaderboardID:   "lb1",
		CurrentCaptorID: &current,
		Description:     "[B] captured leaderboard lb1",
		OccurredAt:      at,
	}
	require.NoError(t, p.PublishClanCapture(ctx, captureEvent))

	msg = receive(t, captures)
	var gotCapture rankingevents.ClanCaptureChangedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &gotCapture))
	assert.Equal(t, captureEvent, gotCapture)
	assert.Nil(t, gotCapture.PreviousCaptorID)
}

type failingPublisher struct{}

func (failingPublisher) Publish(topic string, messages ...*message.Message) error {
	return errors.New("broker down")
}

func (failingPublisher) Close() error { return nil }

func TestPublisher_ReturnsPublishErrors(t *testing.T) {
	p := NewPublisher(failingPublisher{}, nil)
	err := p.PublishScore(context.Background(), rankingevents.ScoreUpdatedEvent{ScoreID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), rankingevents.ScoreUpdatedSubject)
	assert.Contains(t, err.Error(), "broker down")
}
