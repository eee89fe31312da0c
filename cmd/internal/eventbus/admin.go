package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const adminTimeout = 30 * time.Second

// EnsureTopics 는 기본 토픽, 재시도 토픽, DLQ 토픽을 만든다. 이미 있는 토픽은 성공으로 본다.
func EnsureTopics(brokers string, topic Topic, basePartitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("AdminClient 생성 실패: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), adminTimeout)
	defer cancel()

	results, err := admin.CreateTopics(ctx, topicSpecs(topic, basePartitions))
	if err != nil {
		return fmt.Errorf("토픽 생성 요청 실패: %w", err)
	}
	for _, r := range results {
		code := r.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("토픽 %s 생성 실패: %v", r.Topic, r.Error)
		}
	}
	return nil
}

// topicSpecs 는 재시도 토픽을 기본 토픽과 같은 파티션 수로 만들어 브랜드 키 순서를 유지한다.
// DLQ 는 1 파티션이다.
func topicSpecs(topic Topic, partitions int) []kafka.TopicSpecification {
	if partitions <= 0 {
		partitions = 1
	}
	spec := func(name string, n int) kafka.TopicSpecification {
		return kafka.TopicSpecification{Topic: name, NumPartitions: n, ReplicationFactor: 1}
	}

	specs := []kafka.TopicSpecification{
		spec(topic.Base(), partitions),
		spec(topic.DLQ(), 1),
	}
	for _, retryTopic := range topic.GetRetryTopics() {
		specs = append(specs, spec(retryTopic, partitions))
	}
	return specs
}
