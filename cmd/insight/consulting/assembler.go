package consulting

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"brand-insight/models"
)

// LocationContext 는 요청마다 만들어지는 위치 메타데이터다. 저장하지 않는다.
type LocationContext struct {
	Category     string  `json:"category"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radius_meters"`
	Address      string  `json:"address"`
	BestPlaceID  string  `json:"best_place_id"`
	WorstPlaceID string  `json:"worst_place_id"`
}

// TrendSection 은 컨설팅 페이로드에 실리는 최신 트렌드 스냅샷 요약이다.
type TrendSection struct {
	SnapshotID  string         `json:"snapshot_id"`
	CollectedAt time.Time      `json:"collected_at"`
	Metrics     map[string]any `json:"metrics"`
}

// Payload 는 텍스트 인사이트 공급자에게 보내는 병합된 컨텍스트 문서다.
type Payload struct {
	BrandID            int64                  `json:"brand_id"`
	Location           LocationContext        `json:"location"`
	Documents          []models.StoreDocument `json:"documents"`
	Trend              *TrendSection          `json:"trend,omitempty"`
	Question           string                 `json:"question,omitempty"`
	Consulting         string                 `json:"consulting"`
	TruncatedDocuments int                    `json:"truncated_documents,omitempty"`
}

// Assembler 는 위치 정보, 매장 문서, 최신 트렌드를 하나의 제한된 페이로드로 합친다.
// 입력이 같으면 결과도 같고, 입력을 변경하지 않는다.
type Assembler struct {
	maxDocuments       int
	maxAttributeLength int
}

func NewAssembler(maxDocuments, maxAttributeLength int) *Assembler {
	if maxDocuments <= 0 {
		maxDocuments = 20
	}
	if maxAttributeLength <= 0 {
		maxAttributeLength = 500
	}
	return &Assembler{maxDocuments: maxDocuments, maxAttributeLength: maxAttributeLength}
}

// Assemble 은 latest 가 nil 이면 트렌드 항목을 비운 채로 페이로드를 만든다.
func (a *Assembler) Assemble(loc LocationContext, docs []models.StoreDocument, latest *models.TrendSnapshot) Payload {
	selected, truncated := a.selectDocuments(loc, docs)

	p := Payload{
		Location:           loc,
		Documents:          selected,
		TruncatedDocuments: truncated,
	}
	if latest != nil {
		p.BrandID = latest.BrandID
		p.Trend = &TrendSection{
			SnapshotID:  snapshotID(latest),
			CollectedAt: latest.CollectedAt,
			Metrics:     cloneMap(latest.Payload),
		}
	}
	p.Consulting = summarize(loc, selected, p.Trend)
	return p
}

// selectDocuments 는 순위 기준으로 정렬한 뒤 최대 개수만큼 고른다.
// best/worst 매장 문서는 한도와 관계없이 항상 포함된다.
func (a *Assembler) selectDocuments(loc LocationContext, docs []models.StoreDocument) ([]models.StoreDocument, int) {
	sorted := make([]models.StoreDocument, 0, len(docs))
	for _, d := range docs {
		sorted = append(sorted, a.boundDocument(d))
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessDocument(sorted[i], sorted[j])
	})

	pinned := map[string]bool{}
	if loc.BestPlaceID != "" {
		pinned[loc.BestPlaceID] = true
	}
	if loc.WorstPlaceID != "" {
		pinned[loc.WorstPlaceID] = true
	}

	budget := a.maxDocuments
	for _, d := range sorted {
		if pinned[d.PlaceID] {
			budget--
		}
	}

	out := make([]models.StoreDocument, 0, min(len(sorted), a.maxDocuments+len(pinned)))
	for _, d := range sorted {
		if pinned[d.PlaceID] {
			out = append(out, d)
			continue
		}
		if budget > 0 {
			out = append(out, d)
			budget--
		}
	}
	return out, len(sorted) - len(out)
}

// rank 0 은 순위 없음으로 취급해 뒤로 보낸다.
func lessDocument(x, y models.StoreDocument) bool {
	rx, ry := x.Rank, y.Rank
	if rx <= 0 {
		rx = int(^uint(0) >> 1)
	}
	if ry <= 0 {
		ry = int(^uint(0) >> 1)
	}
	if rx != ry {
		return rx < ry
	}
	if x.Score != y.Score {
		return x.Score > y.Score
	}
	return x.PlaceID < y.PlaceID
}

func (a *Assembler) boundDocument(d models.StoreDocument) models.StoreDocument {
	attrs := make(map[string]string, len(d.Attributes))
	for k, v := range d.Attributes {
		attrs[k] = truncateRunes(v, a.maxAttributeLength)
	}
	d.Attributes = attrs
	return d
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func snapshotID(s *models.TrendSnapshot) string {
	if s.ID.IsZero() {
		return ""
	}
	return s.ID.Hex()
}

func summarize(loc LocationContext, docs []models.StoreDocument, trend *TrendSection) string {
	var b strings.Builder

	if loc.Category != "" {
		fmt.Fprintf(&b, "업종: %s\n", loc.Category)
	}
	if loc.Address != "" || loc.Latitude != 0 || loc.Longitude != 0 {
		fmt.Fprintf(&b, "위치: %s (%.6f, %.6f) 반경 %dm\n", loc.Address, loc.Latitude, loc.Longitude, loc.RadiusMeters)
	}
	if loc.BestPlaceID != "" {
		fmt.Fprintf(&b, "우수 매장: %s\n", placeLabel(docs, loc.BestPlaceID))
	}
	if loc.WorstPlaceID != "" {
		fmt.Fprintf(&b, "개선 필요 매장: %s\n", placeLabel(docs, loc.WorstPlaceID))
	}
	fmt.Fprintf(&b, "비교 매장 수: %d\n", len(docs))

	if trend != nil {
		fmt.Fprintf(&b, "트렌드 수집 시각: %s\n", trend.CollectedAt.UTC().Format(time.RFC3339))
		if kws := Keywords(trend.Metrics); len(kws) > 0 {
			fmt.Fprintf(&b, "트렌드 키워드: %s\n", strings.Join(kws, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func placeLabel(docs []models.StoreDocument, placeID string) string {
	for _, d := range docs {
		if d.PlaceID != placeID {
			continue
		}
		if name := d.Attributes["name"]; name != "" {
			return fmt.Sprintf("%s(%s)", name, placeID)
		}
	}
	return placeID
}

// Keywords 는 트렌드 페이로드의 keywords 항목에서 키워드 문자열을 순서대로 꺼낸다.
// 수집기가 저장한 [{title: ...}] 형태와 문자열 배열 형태를 모두 허용한다.
func Keywords(metrics map[string]any) []string {
	items, ok := asSlice(metrics["keywords"])
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if kw, ok := item.(string); ok {
			out = append(out, kw)
			continue
		}
		if m, ok := asMap(item); ok {
			if title, ok := m["title"].(string); ok && title != "" {
				out = append(out, title)
			}
		}
	}
	return out
}

// cloneMap 은 스냅샷 페이로드를 깊게 복사한다. 페이로드를 바꿔도 공유 스냅샷은 그대로다.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case primitive.M:
		return primitive.M(cloneMap(x))
	case primitive.D:
		out := make(primitive.D, len(x))
		for i, e := range x {
			out[i] = primitive.E{Key: e.Key, Value: cloneValue(e.Value)}
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case primitive.A:
		out := make(primitive.A, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	}
	return v
}

// Mongo 에서 읽은 페이로드는 primitive.A / primitive.M 으로 디코딩된다.
func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case primitive.A:
		return []any(s), true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case primitive.M:
		return map[string]any(m), true
	case primitive.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}
