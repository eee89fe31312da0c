package eventbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRouteFailureWalksRetryTopicsThenDLQ(t *testing.T) {
	topic := NewTopic("brand-insight.trend.events")
	evt := Event{ID: "e-1", MaxRetry: 2}

	first := routeFailure(topic, evt, errors.New("bus closed"))
	assert.False(t, first.DeadLetter)
	assert.Equal(t, "brand-insight.trend.events.retry.1", first.Topic)
	assert.Equal(t, 1, first.Event.Retry)
	assert.Equal(t, "bus closed", first.Event.LastError)

	second := routeFailure(topic, first.Event, errors.New("still closed"))
	assert.Equal(t, "brand-insight.trend.events.retry.2", second.Topic)

	last := routeFailure(topic, second.Event, errors.New("gave up"))
	assert.True(t, last.DeadLetter)
	assert.Equal(t, "brand-insight.trend.events.dlq", last.Topic)
	assert.Equal(t, 2, last.Event.Retry)
	assert.Equal(t, "gave up", last.Event.LastError)
}

func TestRouteFailureDefaultsMaxRetry(t *testing.T) {
	topic := NewTopic("t")
	route := routeFailure(topic, Event{Retry: len(RetryDelays) - 1}, errors.New("x"))
	assert.False(t, route.DeadLetter)
	assert.Equal(t, len(RetryDelays), route.Event.MaxRetry)

	route = routeFailure(topic, route.Event, errors.New("x"))
	assert.True(t, route.DeadLetter)
}

func TestReinjectWait(t *testing.T) {
	produced := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	topic := NewTopic("t")
	name, _ := topic.GetRetryTopic(1)

	wait, ok := reinjectWait(name, produced, produced.Add(4*time.Second))
	assert.True(t, ok)
	assert.Equal(t, RetryDelays[0]-4*time.Second, wait)

	wait, ok = reinjectWait(name, produced, produced.Add(time.Hour))
	assert.True(t, ok)
	assert.Zero(t, wait)

	_, ok = reinjectWait("t", produced, produced)
	assert.False(t, ok)
}

func TestPollIntervalIsClamped(t *testing.T) {
	assert.Equal(t, maxReinjectPoll, pollInterval(time.Minute))
	assert.Equal(t, minReinjectPoll, pollInterval(time.Millisecond))
	assert.Equal(t, 200*time.Millisecond, pollInterval(200*time.Millisecond))
}

func TestPositiveIntFromEnv(t *testing.T) {
	t.Setenv(envMaxPollIntervalMs, "600000")
	v, ok := positiveIntFromEnv(envMaxPollIntervalMs)
	assert.True(t, ok)
	assert.Equal(t, 600000, v)

	for _, raw := range []string{"", "abc", "0", "-5"} {
		t.Setenv(envMaxPollIntervalMs, raw)
		_, ok := positiveIntFromEnv(envMaxPollIntervalMs)
		assert.False(t, ok, raw)
	}

	t.Setenv(envMessageMaxBytes, "2097152")
	cfg := producerConfig("localhost:9092")
	assert.Equal(t, 2097152, (*cfg)["message.max.bytes"])
	assert.Equal(t, "all", (*cfg)["acks"])
}
