package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-insight/cmd/internal/trace"
)

func TestRetryTopicsRoundTripThroughParser(t *testing.T) {
	topic := NewTopic("brand-insight.trend.events")

	assert.Equal(t, "brand-insight.trend.events.dlq", topic.DLQ())
	retryTopics := topic.GetRetryTopics()
	require.Len(t, retryTopics, len(RetryDelays))

	for i, name := range retryTopics {
		got, err := topic.GetRetryTopic(i + 1)
		require.NoError(t, err)
		assert.Equal(t, name, got)

		delay, ok := ParseRetryDelayFromTopicName(name)
		require.True(t, ok, name)
		assert.Equal(t, RetryDelays[i], delay)
	}

	_, err := topic.GetRetryTopic(len(RetryDelays) + 1)
	assert.ErrorIs(t, err, ErrMaxRetryExceeded)
	_, err = topic.GetRetryTopic(0)
	assert.ErrorIs(t, err, ErrMaxRetryExceeded)
}

func TestParseRetryDelayRejectsUnknownNames(t *testing.T) {
	for _, name := range []string{
		"brand-insight.trend.events",
		"brand-insight.trend.events.retry.",
		"brand-insight.trend.events.retry.10s",
		"brand-insight.trend.events.retry.99",
	} {
		_, ok := ParseRetryDelayFromTopicName(name)
		assert.False(t, ok, name)
	}
}

type samplePayload struct {
	BrandID     int64     `json:"brand_id"`
	CollectedAt time.Time `json:"collected_at"`
}

func TestJSONEventHelpers(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	evt, err := NewJSONEvent(context.Background(), samplePayload{BrandID: 7, CollectedAt: at})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Empty(t, evt.TraceID)
	assert.Equal(t, len(RetryDelays), evt.MaxRetry)

	var got samplePayload
	require.NoError(t, json.Unmarshal(evt.Payload, &got))
	assert.Equal(t, int64(7), got.BrandID)
	assert.True(t, at.Equal(got.CollectedAt))

	_, err = NewJSONEvent(context.Background(), func() {})
	assert.Error(t, err)
}

type identifiedPayload struct {
	ID string `json:"id"`
}

func (p identifiedPayload) EventID() string { return p.ID }

func TestNewJSONEventUsesPayloadIDAndTrace(t *testing.T) {
	ctx := trace.WithRequestAndSpan(context.Background(), "req-42", 0)

	evt, err := NewJSONEvent(ctx, identifiedPayload{ID: "evt-1"})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", evt.ID)
	assert.Equal(t, "req-42", evt.TraceID)
	assert.Zero(t, evt.Retry)
}

func TestRetryAttemptFromTopicName(t *testing.T) {
	n, ok := RetryAttemptFromTopicName("brand-insight.trend.events.retry.3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestTopicSpecsCoverRetryAndDLQ(t *testing.T) {
	specs := topicSpecs(NewTopic("brand-insight.trend.events"), 0)
	require.Len(t, specs, 2+len(RetryDelays))

	byName := map[string]int{}
	for _, s := range specs {
		byName[s.Topic] = s.NumPartitions
	}
	assert.Equal(t, 1, byName["brand-insight.trend.events"])
	assert.Equal(t, 1, byName["brand-insight.trend.events.dlq"])
	assert.Equal(t, 1, byName["brand-insight.trend.events.retry.4"])

	specs = topicSpecs(NewTopic("x"), 3)
	assert.Equal(t, 3, specs[0].NumPartitions)
	assert.Equal(t, 1, specs[1].NumPartitions)
	assert.Equal(t, 3, specs[2].NumPartitions)
}
