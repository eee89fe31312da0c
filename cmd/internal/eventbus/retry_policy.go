package eventbus

import (
	"time"
)

const (
	minReinjectPoll = 50 * time.Millisecond
	maxReinjectPoll = 500 * time.Millisecond
)

// failureRoute 는 핸들러가 실패한 이벤트를 어디로 다시 보낼지를 나타낸다.
type failureRoute struct {
	Topic      string
	Event      Event
	DeadLetter bool
}

// normalizeMaxRetry 는 설정되지 않았거나 재시도 토픽 수를 넘는 MaxRetry 를 보정한다.
func normalizeMaxRetry(evt Event) Event {
	if evt.MaxRetry <= 0 || evt.MaxRetry > len(RetryDelays) {
		evt.MaxRetry = len(RetryDelays)
	}
	return evt
}

// routeFailure 는 다음 재시도 토픽을 고르고, 이벤트의 MaxRetry 를 다 쓴 경우 DLQ 로 보낸다.
func routeFailure(topic Topic, evt Event, cause error) failureRoute {
	evt = normalizeMaxRetry(evt)
	if cause != nil {
		evt.LastError = cause.Error()
	}

	next := evt.Retry + 1
	if next > evt.MaxRetry {
		return failureRoute{Topic: topic.DLQ(), Event: evt, DeadLetter: true}
	}
	retryTopic, err := topic.GetRetryTopic(next)
	if err != nil {
		return failureRoute{Topic: topic.DLQ(), Event: evt, DeadLetter: true}
	}
	evt.Retry = next
	return failureRoute{Topic: retryTopic, Event: evt}
}

// reinjectWait 는 재시도 토픽 메시지가 기본 토픽으로 돌아가기까지 남은 시간이다.
// 토픽 이름이 재시도 형식이 아니면 false.
func reinjectWait(topicName string, producedAt, now time.Time) (time.Duration, bool) {
	delay, ok := ParseRetryDelayFromTopicName(topicName)
	if !ok {
		return 0, false
	}
	remaining := producedAt.Add(delay).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// pollInterval 은 준비되지 않은 메시지를 다시 검사하기 전 대기 시간이다.
// 컨슈머를 오래 막지 않도록 짧게 자른다.
func pollInterval(remaining time.Duration) time.Duration {
	switch {
	case remaining > maxReinjectPoll:
		return maxReinjectPoll
	case remaining < minReinjectPoll:
		return minReinjectPoll
	default:
		return remaining
	}
}
