package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoreDocument 는 브랜드 매장 또는 경쟁 매장 하나에 대한 자유 형식 속성 문서다.
// Collection: store_documents (unique: brand_id + place_id)
type StoreDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BrandID    int64              `bson:"brand_id" json:"brand_id"`
	PlaceID    string             `bson:"place_id" json:"place_id"`
	Attributes map[string]string  `bson:"attributes" json:"attributes"`
	Rank       int                `bson:"rank" json:"rank"`
	Score      float64            `bson:"score" json:"score"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"-"`
}
