package feeder

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

type RssFeedItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
}

// Feeder 는 트렌드 RSS 피드를 읽는다.
type Feeder struct {
	client *http.Client
}

// New 는 client 로 피드를 가져오는 Feeder 를 만든다. nil 이면 http.DefaultClient 를 쓴다.
func New(client *http.Client) *Feeder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Feeder{client: client}
}

// FetchRssFeeds fetches RSS feeds from the given URL.
// If limit is greater than 0, it returns only the first limit items.
func (f *Feeder) FetchRssFeeds(ctx context.Context, rssURL string, limit int) ([]RssFeedItem, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []RssFeedItem
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		items = append(items, RssFeedItem{
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: published,
		})
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// Keywords 는 피드 항목을 트렌드 스냅샷 payload 의 keywords 배열로 바꾼다.
func Keywords(items []RssFeedItem) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		kw := map[string]any{
			"title": it.Title,
			"link":  it.Link,
		}
		if !it.PublishedAt.IsZero() {
			kw["published_at"] = it.PublishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, kw)
	}
	return out
}
