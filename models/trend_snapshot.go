package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrendSnapshot 은 한 브랜드의 시장/트렌드 지표를 특정 시점에 수집한 결과다.
// 생성 후 변경하지 않으며, 브랜드의 "현재" 스냅샷은 CollectedAt 이 가장 늦은 것이다.
// Collection: trend_snapshots
type TrendSnapshot struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BrandID     int64              `bson:"brand_id" json:"brand_id"`
	CollectedAt time.Time          `bson:"collected_at" json:"collected_at"`
	Source      string             `bson:"source" json:"source"`
	Payload     map[string]any     `bson:"payload" json:"payload"`
}

// NewerThan 은 s 가 other 보다 최신 수집분인지 판단한다. other 가 nil 이면 항상 true.
func (s *TrendSnapshot) NewerThan(other *TrendSnapshot) bool {
	if other == nil {
		return true
	}
	return s.CollectedAt.After(other.CollectedAt)
}
