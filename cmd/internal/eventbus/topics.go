package eventbus

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RetryDelays 는 n 번째 재시도(1부터)가 기본 토픽으로 돌아가기 전 기다리는 시간이다.
var RetryDelays = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
}

const (
	retryInfix = ".retry."
	dlqSuffix  = ".dlq"
)

// Topic 은 기본 토픽 이름에서 재시도 토픽(base.retry.<n>)과 DLQ(base.dlq) 이름을 만든다.
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string {
	return t.base
}

func (t Topic) DLQ() string {
	return t.base + dlqSuffix
}

func (t Topic) GetRetryTopics() []string {
	topics := make([]string, 0, len(RetryDelays))
	for n := 1; n <= len(RetryDelays); n++ {
		topics = append(topics, t.retryTopic(n))
	}
	return topics
}

// GetRetryTopic 은 n 번째 재시도 토픽 이름이다. 범위를 벗어나면 ErrMaxRetryExceeded.
func (t Topic) GetRetryTopic(n int) (string, error) {
	if n <= 0 || n > len(RetryDelays) {
		return "", ErrMaxRetryExceeded
	}
	return t.retryTopic(n), nil
}

func (t Topic) retryTopic(n int) string {
	return fmt.Sprintf("%s%s%d", t.base, retryInfix, n)
}

// RetryAttemptFromTopicName 은 재시도 토픽 이름에서 n 을 꺼낸다.
func RetryAttemptFromTopicName(name string) (int, bool) {
	idx := strings.LastIndex(name, retryInfix)
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+len(retryInfix):])
	if err != nil || n <= 0 || n > len(RetryDelays) {
		return 0, false
	}
	return n, true
}

// ParseRetryDelayFromTopicName 은 재시도 토픽 이름에 해당하는 지연 시간이다.
func ParseRetryDelayFromTopicName(name string) (time.Duration, bool) {
	n, ok := RetryAttemptFromTopicName(name)
	if !ok {
		return 0, false
	}
	return RetryDelays[n-1], true
}
