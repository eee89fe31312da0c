package eventbus

import (
	"os"

	"brand-insight/config"
)

// GetBrokers returns Kafka bootstrap servers from env KAFKA_BOOTSTRAP_SERVERS
func GetBrokers() string {
	v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	if v == "" {
		panic("KAFKA_BOOTSTRAP_SERVERS environment variable is required")
	}
	return v
}

// GetGroupID returns consumer group id from env KAFKA_GROUP_ID
func GetGroupID() string {
	v := os.Getenv("KAFKA_GROUP_ID")
	if v == "" {
		panic("KAFKA_GROUP_ID environment variable is required")
	}
	return v
}

// TrendTopic 은 설정 파일의 트렌드 이벤트 토픽이다.
func TrendTopic(cfg config.KafkaConfig) Topic {
	return NewTopic(cfg.TrendTopic)
}

// AllTopics 는 재시도 워커와 토픽 생성이 다루는 토픽 목록이다.
func AllTopics(cfg config.KafkaConfig) []Topic {
	return []Topic{TrendTopic(cfg)}
}

// LookupBrokers 는 GetBrokers 와 같지만 값이 없으면 false 를 돌려준다.
// Kafka 없이도 기동할 수 있는 서비스에서 쓴다.
func LookupBrokers() (string, bool) {
	v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS")
	return v, v != ""
}
