package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"brand-insight/models"
)

type TrendSnapshotRepository struct {
	col *mongo.Collection
}

func NewTrendSnapshotRepository(db *mongo.Database) *TrendSnapshotRepository {
	return &TrendSnapshotRepository{col: db.Collection("trend_snapshots")}
}

// Insert 는 스냅샷을 새 문서로 저장하고 생성된 ID 를 s 에 채운다.
// 스냅샷은 변경하지 않으므로 upsert 하지 않는다.
func (r *TrendSnapshotRepository) Insert(ctx context.Context, s *models.TrendSnapshot) error {
	if s.CollectedAt.IsZero() {
		s.CollectedAt = time.Now()
	}
	res, err := r.col.InsertOne(ctx, s)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		s.ID = oid
	}
	return nil
}

// FindLatestByBrand 는 collected_at 이 가장 늦은 스냅샷을 돌려준다. 없으면 (nil, nil).
func (r *TrendSnapshotRepository) FindLatestByBrand(ctx context.Context, brandID int64) (*models.TrendSnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "collected_at", Value: -1}})

	var s models.TrendSnapshot
	err := r.col.FindOne(ctx, bson.M{"brand_id": brandID}, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
