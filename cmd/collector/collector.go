package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"brand-insight/cmd/collector/feeder"
	"brand-insight/cmd/collector/parser"
	"brand-insight/cmd/collector/renderer"
	"brand-insight/cmd/internal/eventbus"
	"brand-insight/cmd/internal/logger"
	"brand-insight/config"
	"brand-insight/events"
	"brand-insight/models"
)

const (
	eventSource       = "collector"
	summaryMaxRunes   = 400
	snapshotSourceRSS = "rss"
)

type SnapshotStore interface {
	Insert(ctx context.Context, s *models.TrendSnapshot) error
}

type DocumentStore interface {
	UpsertByPlace(ctx context.Context, d *models.StoreDocument) (*mongo.UpdateResult, error)
}

type FeedSource interface {
	FetchRssFeeds(ctx context.Context, rssURL string, limit int) ([]feeder.RssFeedItem, error)
}

// EventPublisher 는 eventbus.KafkaEventBus 가 구현한다.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event eventbus.Event) error
}

// CollectorService 는 설정된 브랜드별로 트렌드 스냅샷과 경쟁 매장 문서를 수집한다.
type CollectorService struct {
	brands    []config.BrandSource
	feedLimit int

	feeds     FeedSource
	pages     renderer.Fetcher
	snapshots SnapshotStore
	documents DocumentStore
	publisher EventPublisher
	topic     eventbus.Topic

	now func() time.Time
}

type CollectorDeps struct {
	Feeds     FeedSource
	Pages     renderer.Fetcher
	Snapshots SnapshotStore
	Documents DocumentStore
	// Publisher 가 nil 이면 스냅샷을 저장만 하고 이벤트는 발행하지 않는다.
	Publisher EventPublisher
	Topic     eventbus.Topic
}

func NewCollectorService(cfg config.CollectorConfig, d CollectorDeps) *CollectorService {
	return &CollectorService{
		brands:    cfg.Brands,
		feedLimit: cfg.FeedLimit,
		feeds:     d.Feeds,
		pages:     d.Pages,
		snapshots: d.Snapshots,
		documents: d.Documents,
		publisher: d.Publisher,
		topic:     d.Topic,
		now:       time.Now,
	}
}

// RunOnce 는 모든 브랜드를 한 번 수집한다. 한 브랜드의 실패가 다른 브랜드 수집을 막지 않는다.
func (s *CollectorService) RunOnce(ctx context.Context) error {
	if len(s.brands) == 0 {
		logger.WarnWithFields("no brands configured in config.yaml (key: collector.brands)", logger.Fields{})
		return nil
	}

	var errs []error
	for _, brand := range s.brands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if brand.TrendFeedURL != "" {
			if err := s.collectTrend(ctx, brand); err != nil {
				errs = append(errs, fmt.Errorf("brand %d trend: %w", brand.ID, err))
			}
		}
		if err := s.collectCompetitors(ctx, brand); err != nil {
			errs = append(errs, fmt.Errorf("brand %d competitors: %w", brand.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *CollectorService) collectTrend(ctx context.Context, brand config.BrandSource) error {
	items, err := s.feeds.FetchRssFeeds(ctx, brand.TrendFeedURL, s.feedLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		logger.InfoWithFields("trend feed is empty", logger.Fields{"brand_id": brand.ID, "feed": brand.TrendFeedURL})
		return nil
	}

	snap := &models.TrendSnapshot{
		BrandID:     brand.ID,
		CollectedAt: s.now().UTC(),
		Source:      snapshotSourceRSS,
		Payload: map[string]any{
			"keywords": feeder.Keywords(items),
			"feed_url": brand.TrendFeedURL,
		},
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return fmt.Errorf("insert trend snapshot: %w", err)
	}

	fields := logger.Fields{
		"brand_id":    brand.ID,
		"snapshot_id": snap.ID.Hex(),
		"keywords":    len(items),
	}
	if s.publisher == nil {
		logger.InfoWithFields("trend snapshot stored (event bus disabled)", fields)
		return nil
	}

	ev, err := eventbus.NewJSONEvent(ctx, events.NewTrendSnapshotCollected(eventSource, snap))
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, s.topic.Base(), ev); err != nil {
		return fmt.Errorf("publish TrendSnapshotCollected: %w", err)
	}
	logger.InfoWithFields("published TrendSnapshotCollected event", fields)
	return nil
}

func (s *CollectorService) collectCompetitors(ctx context.Context, brand config.BrandSource) error {
	var errs []error
	for _, page := range brand.Competitors {
		if page.PlaceID == "" {
			continue
		}
		if err := s.collectCompetitor(ctx, brand, page); err != nil {
			logger.WarnWithFields("failed to collect competitor page", logger.Fields{
				"brand_id": brand.ID,
				"place_id": page.PlaceID,
				"url":      page.URL,
				"error":    err.Error(),
			})
			errs = append(errs, fmt.Errorf("place %s: %w", page.PlaceID, err))
		}
	}
	return errors.Join(errs...)
}

// collectCompetitor 는 페이지 본문을 속성으로 바꿔 (brand_id, place_id) 기준으로 덮어쓴다.
// URL 이 없으면 설정의 순위/점수만 반영한다.
func (s *CollectorService) collectCompetitor(ctx context.Context, brand config.BrandSource, page config.CompetitorPage) error {
	attrs := map[string]string{}
	for k, v := range brand.Attributes {
		attrs[k] = v
	}

	if page.URL != "" {
		htmlStr, err := s.pages.Fetch(ctx, page.URL)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		parsed, err := parser.ParsePage(htmlStr, page.URL)
		if err != nil {
			return fmt.Errorf("parse: %w", err)
		}
		attrs["url"] = page.URL
		if parsed.Title != "" {
			attrs["name"] = parsed.Title
		}
		attrs["summary"] = parser.Summary(parsed.PlainTextContent, summaryMaxRunes)
		if parsed.TopImage != "" {
			attrs["top_image"] = parsed.TopImage
		}
		attrs["extractor"] = parsed.Extractor
	}

	doc := &models.StoreDocument{
		BrandID:    brand.ID,
		PlaceID:    page.PlaceID,
		Attributes: attrs,
		Rank:       page.Rank,
		Score:      page.Score,
		UpdatedAt:  s.now().UTC(),
	}
	if _, err := s.documents.UpsertByPlace(ctx, doc); err != nil {
		return fmt.Errorf("upsert store document: %w", err)
	}
	logger.DebugWithFields("store document upserted", logger.Fields{
		"brand_id": brand.ID,
		"place_id": page.PlaceID,
	})
	return nil
}
