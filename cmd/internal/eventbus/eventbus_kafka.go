package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"brand-insight/cmd/internal/logger"
	"brand-insight/cmd/internal/trace"
)

const (
	readTimeout    = 100 * time.Millisecond
	readErrorPause = 500 * time.Millisecond
	flushTimeoutMs = 5000
	seekTimeoutMs  = 1000
)

// KafkaEventBus 는 confluent-kafka-go 기반 EventBus 구현체다.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Brokers  string
}

var _ EventBus = (*KafkaEventBus)(nil)

func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	p, err := kafka.NewProducer(producerConfig(brokers))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	// 동기 Publish 가 받지 않는 전달 보고서와 클라이언트 오류
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.ErrorWithFields("kafka delivery failed", logger.Fields{
						"topic": topicName(ev),
						"error": ev.TopicPartition.Error.Error(),
					})
				}
			case kafka.Error:
				logger.ErrorWithFields("kafka client error", logger.Fields{"error": ev.Error(), "code": ev.Code().String()})
			}
		}
	}()

	return &KafkaEventBus{Producer: p, Brokers: brokers}, nil
}

func (k *KafkaEventBus) Close() {
	if k.Producer == nil {
		return
	}
	if remaining := k.Producer.Flush(flushTimeoutMs); remaining > 0 {
		logger.WarnWithFields("kafka producer closed with unflushed messages", logger.Fields{"remaining": remaining})
	}
	k.Producer.Close()
	logger.InfoWithFields("kafka producer closed", logger.Fields{})
}

// Publish 는 전달 보고서를 받을 때까지 기다린다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic string, event Event) error {
	if event.TraceID == "" {
		event.TraceID = trace.RequestIDFromContext(ctx)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	// ctx 가 먼저 끝나도 전달 보고서가 들어올 수 있으므로 채널은 닫지 않는다.
	deliveryChan := make(chan kafka.Event, 1)
	err = k.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
		Key:            []byte(event.ID),
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	select {
	case ev := <-deliveryChan:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe 는 기본 토픽을 소비한다. 핸들러가 실패하면 다음 재시도 토픽이나 DLQ 로 보낸 뒤에 커밋하고,
// 그 발행마저 실패하면 커밋하지 않아 같은 메시지를 다시 읽는다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := kafka.NewConsumer(consumerConfig(k.Brokers, groupID))
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{topic.Base()}, nil); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic.Base(), err)
	}
	logger.InfoWithFields("kafka consumer started", logger.Fields{"group_id": groupID, "topic": topic.Base()})

	for {
		if ctx.Err() != nil {
			logger.InfoWithFields("kafka consumer stopping", logger.Fields{"group_id": groupID})
			return ctx.Err()
		}

		msg, err := c.ReadMessage(readTimeout)
		if err != nil {
			if fatal := readError(err); fatal != nil {
				return fatal
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.ErrorWithFields("skipping undecodable event", logger.Fields{"topic": topicName(msg), "error": err.Error()})
			commit(c, msg)
			continue
		}
		evt = normalizeMaxRetry(evt)

		handlerCtx := trace.Ensure(ctx, evt.TraceID)
		fields := logger.TraceFields(handlerCtx).With(logger.Fields{
			"event_id":  evt.ID,
			"topic":     topicName(msg),
			"retry":     evt.Retry,
			"max_retry": evt.MaxRetry,
		})
		logger.DebugWithFields("handling event", fields)

		if herr := handler(handlerCtx, evt); herr != nil {
			route := routeFailure(topic, evt, herr)
			routeFields := fields.With(logger.Fields{"route": route.Topic, "error": herr.Error()})
			if route.DeadLetter {
				logger.ErrorWithFields("event exhausted retries, sending to DLQ", routeFields)
			} else {
				logger.WarnWithFields("event failed, scheduling retry", routeFields)
			}
			if perr := k.Publish(ctx, route.Topic, route.Event); perr != nil {
				logger.ErrorWithFields("failed to route failed event, offset not committed", routeFields.With(logger.Fields{"publish_error": perr.Error()}))
				continue
			}
		}
		commit(c, msg)
	}
}

// StartRetryReinjector 는 재시도 토픽들을 소비해 지연 시간이 지난 이벤트를 기본 토픽으로 되돌린다.
func (k *KafkaEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	c, err := kafka.NewConsumer(consumerConfig(k.Brokers, groupID))
	if err != nil {
		return fmt.Errorf("create kafka retry reinjector: %w", err)
	}
	defer c.Close()

	retryTopics := topic.GetRetryTopics()
	if err := c.SubscribeTopics(retryTopics, nil); err != nil {
		return fmt.Errorf("subscribe retry topics %v: %w", retryTopics, err)
	}
	logger.InfoWithFields("retry reinjector started", logger.Fields{"group_id": groupID, "topics": retryTopics})

	for {
		if ctx.Err() != nil {
			logger.InfoWithFields("retry reinjector stopping", logger.Fields{"group_id": groupID})
			return ctx.Err()
		}

		msg, err := c.ReadMessage(readTimeout)
		if err != nil {
			if fatal := readError(err); fatal != nil {
				return fatal
			}
			continue
		}

		wait, ok := reinjectWait(topicName(msg), msg.Timestamp, time.Now())
		if !ok {
			logger.ErrorWithFields("skipping message on unknown retry topic", logger.Fields{"topic": topicName(msg)})
			commit(c, msg)
			continue
		}
		if wait > 0 {
			// 같은 오프셋으로 되감아 준비될 때까지 다시 검사한다.
			time.Sleep(pollInterval(wait))
			if err := c.Seek(msg.TopicPartition, seekTimeoutMs); err != nil {
				logger.ErrorWithFields("retry reinjector seek failed", logger.Fields{"topic": topicName(msg), "error": err.Error()})
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.ErrorWithFields("skipping undecodable retry event", logger.Fields{"topic": topicName(msg), "error": err.Error()})
			commit(c, msg)
			continue
		}

		fields := logger.Fields{
			"event_id":   evt.ID,
			"from_topic": topicName(msg),
			"to_topic":   topic.Base(),
			"retry":      evt.Retry,
			"request_id": evt.TraceID,
		}
		if err := k.Publish(ctx, topic.Base(), evt); err != nil {
			logger.ErrorWithFields("reinject failed, offset not committed", fields.With(logger.Fields{"error": err.Error()}))
			continue
		}
		logger.InfoWithFields("event reinjected", fields)
		commit(c, msg)
	}
}

// readError 는 치명적인 컨슈머 오류만 돌려준다. 타임아웃과 일시 오류는 nil.
func readError(err error) error {
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		if kerr.Code() == kafka.ErrTimedOut {
			return nil
		}
		if kerr.IsFatal() {
			return fmt.Errorf("fatal kafka consumer error: %w", err)
		}
	}
	logger.ErrorWithFields("kafka read error", logger.Fields{"error": err.Error()})
	time.Sleep(readErrorPause)
	return nil
}

func commit(c *kafka.Consumer, msg *kafka.Message) {
	if _, err := c.CommitMessage(msg); err != nil {
		logger.ErrorWithFields("offset commit failed", logger.Fields{"topic": topicName(msg), "error": err.Error()})
	}
}

func topicName(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}
