package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"brand-insight/cmd/collector/feeder"
	"brand-insight/cmd/internal/eventbus"
	"brand-insight/config"
	"brand-insight/events"
	"brand-insight/models"
)

type fakeFeeds struct {
	items map[string][]feeder.RssFeedItem
	err   error
}

func (f *fakeFeeds) FetchRssFeeds(ctx context.Context, rssURL string, limit int) ([]feeder.RssFeedItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[rssURL], nil
}

type fakePages struct {
	bodies map[string]string
}

func (f *fakePages) Fetch(ctx context.Context, url string) (string, error) {
	body, ok := f.bodies[url]
	if !ok {
		return "", errors.New("not found")
	}
	return body, nil
}

type memSnapshots struct{ saved []*models.TrendSnapshot }

func (m *memSnapshots) Insert(ctx context.Context, s *models.TrendSnapshot) error {
	s.ID = primitive.NewObjectID()
	m.saved = append(m.saved, s)
	return nil
}

type memDocuments struct{ saved []*models.StoreDocument }

func (m *memDocuments) UpsertByPlace(ctx context.Context, d *models.StoreDocument) (*mongo.UpdateResult, error) {
	m.saved = append(m.saved, d)
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

type capturePublisher struct {
	topics []string
	events []eventbus.Event
}

func (c *capturePublisher) Publish(ctx context.Context, topic string, event eventbus.Event) error {
	c.topics = append(c.topics, topic)
	c.events = append(c.events, event)
	return nil
}

func placePage(name string) string {
	para := "<p>" + name + " 은 시그니처 말차 라떼와 직접 구운 스콘이 유명하고 주말마다 대기 줄이 생기는 동네 카페다. 창가 좌석이 넓어 오래 머무는 손님이 많다.</p>"
	return "<html><head><title>" + name + "</title></head><body><article><h1>" + name + "</h1>" +
		strings.Repeat(para, 10) + "</article></body></html>"
}

func TestRunOnceStoresSnapshotAndPublishesEvent(t *testing.T) {
	at := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	feeds := &fakeFeeds{items: map[string][]feeder.RssFeedItem{
		"https://trends.example.com/rss": {
			{Title: "말차 라떼", Link: "https://trends.example.com/1", PublishedAt: at},
			{Title: "저당 디저트", Link: "https://trends.example.com/2"},
		},
	}}
	snaps := &memSnapshots{}
	docs := &memDocuments{}
	pub := &capturePublisher{}

	svc := NewCollectorService(config.CollectorConfig{
		FeedLimit: 10,
		Brands: []config.BrandSource{{
			ID:           7,
			TrendFeedURL: "https://trends.example.com/rss",
		}},
	}, CollectorDeps{
		Feeds:     feeds,
		Pages:     &fakePages{},
		Snapshots: snaps,
		Documents: docs,
		Publisher: pub,
		Topic:     eventbus.NewTopic("brand-insight.trend.events"),
	})
	svc.now = func() time.Time { return at }

	require.NoError(t, svc.RunOnce(context.Background()))

	require.Len(t, snaps.saved, 1)
	snap := snaps.saved[0]
	assert.Equal(t, int64(7), snap.BrandID)
	assert.Equal(t, "rss", snap.Source)
	assert.True(t, at.Equal(snap.CollectedAt))
	assert.Len(t, snap.Payload["keywords"], 2)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "brand-insight.trend.events", pub.topics[0])
	var ev events.TrendSnapshotCollectedEvent
	require.NoError(t, json.Unmarshal(pub.events[0].Payload, &ev))
	require.NoError(t, ev.Validate())
	assert.Equal(t, snap.ID, ev.SnapshotID)
	assert.Equal(t, "collector", ev.Source)
	assert.Equal(t, ev.ID, pub.events[0].ID)
}

func TestRunOnceUpsertsCompetitorDocuments(t *testing.T) {
	docs := &memDocuments{}
	svc := NewCollectorService(config.CollectorConfig{
		Brands: []config.BrandSource{{
			ID:         3,
			Attributes: map[string]string{"category": "cafe"},
			Competitors: []config.CompetitorPage{
				{PlaceID: "p-1", URL: "https://places.example.com/p-1", Rank: 1, Score: 4.6},
				{PlaceID: "p-2", Rank: 2},
			},
		}},
	}, CollectorDeps{
		Feeds:     &fakeFeeds{},
		Pages:     &fakePages{bodies: map[string]string{"https://places.example.com/p-1": placePage("성수 말차 하우스")}},
		Snapshots: &memSnapshots{},
		Documents: docs,
	})

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Len(t, docs.saved, 2)

	first := docs.saved[0]
	assert.Equal(t, "p-1", first.PlaceID)
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "cafe", first.Attributes["category"])
	assert.Equal(t, "https://places.example.com/p-1", first.Attributes["url"])
	assert.Contains(t, first.Attributes["summary"], "말차 라떼")

	second := docs.saved[1]
	assert.Equal(t, "p-2", second.PlaceID)
	assert.Empty(t, second.Attributes["summary"])
}

func TestRunOnceContinuesAfterBrandFailure(t *testing.T) {
	snaps := &memSnapshots{}
	docs := &memDocuments{}
	svc := NewCollectorService(config.CollectorConfig{
		Brands: []config.BrandSource{
			{ID: 1, TrendFeedURL: "https://broken.example.com/rss"},
			{ID: 2, Competitors: []config.CompetitorPage{{PlaceID: "p-9"}}},
		},
	}, CollectorDeps{
		Feeds:     &fakeFeeds{err: errors.New("feed down")},
		Pages:     &fakePages{},
		Snapshots: snaps,
		Documents: docs,
	})

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand 1 trend")
	assert.Empty(t, snaps.saved)
	require.Len(t, docs.saved, 1)
	assert.Equal(t, int64(2), docs.saved[0].BrandID)
}
