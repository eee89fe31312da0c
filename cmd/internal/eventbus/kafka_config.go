package eventbus

import (
	"os"
	"strconv"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"brand-insight/cmd/internal/logger"
)

const (
	envMessageMaxBytes   = "KAFKA_MESSAGE_MAX_BYTES"
	envMaxPollIntervalMs = "KAFKA_MAX_POLL_INTERVAL_MS"
)

// producerConfig 는 acks=all 로 브로커 전체 복제를 기다린다.
func producerConfig(brokers string) *kafka.ConfigMap {
	cfg := &kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
	}
	if v, ok := positiveIntFromEnv(envMessageMaxBytes); ok {
		(*cfg)["message.max.bytes"] = v
	}
	return cfg
}

// consumerConfig 는 메인 컨슈머와 재주입기가 함께 쓴다. 재시도 라우팅이 끝난 뒤에만 커밋하므로 자동 커밋은 끈다.
func consumerConfig(brokers, groupID string) *kafka.ConfigMap {
	cfg := &kafka.ConfigMap{
		"bootstrap.servers":             brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "earliest",
		"enable.auto.commit":            false,
		"partition.assignment.strategy": "range",
	}
	if v, ok := positiveIntFromEnv(envMaxPollIntervalMs); ok {
		(*cfg)["max.poll.interval.ms"] = v
	}
	return cfg
}

// positiveIntFromEnv 는 비어 있거나 파싱할 수 없거나 0 이하이면 false 를 돌려 라이브러리 기본값을 쓰게 한다.
func positiveIntFromEnv(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logger.WarnWithFields("ignoring invalid kafka env override", logger.Fields{"key": key, "value": raw})
		return 0, false
	}
	return v, true
}
