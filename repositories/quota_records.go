package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"brand-insight/models"
)

type QuotaRecordRepository struct {
	col *mongo.Collection
}

func NewQuotaRecordRepository(db *mongo.Database) *QuotaRecordRepository {
	return &QuotaRecordRepository{col: db.Collection("quota_records")}
}

// DecrementIfPositive 는 남은 횟수가 0보다 클 때만 1 감소시킨다.
// 조건에 맞는 문서가 없으면(레코드 없음 또는 0) ok=false 를 돌려준다.
func (r *QuotaRecordRepository) DecrementIfPositive(ctx context.Context, memberID string) (remaining int, ok bool, err error) {
	filter := bson.M{"_id": memberID, "free_reports_remaining": bson.M{"$gt": 0}}
	update := bson.M{
		"$inc": bson.M{"free_reports_remaining": -1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rec models.QuotaRecord
	err = r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rec.FreeReportsRemaining, true, nil
}

// Increment 는 n 만큼 더한다. 레코드가 없으면 만든다.
func (r *QuotaRecordRepository) Increment(ctx context.Context, memberID string, n int) (int, error) {
	filter := bson.M{"_id": memberID}
	update := bson.M{
		"$inc": bson.M{"free_reports_remaining": n},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var rec models.QuotaRecord
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec); err != nil {
		return 0, err
	}
	return rec.FreeReportsRemaining, nil
}

// GetByMemberID 는 레코드가 없으면 (nil, nil) 을 돌려준다.
func (r *QuotaRecordRepository) GetByMemberID(ctx context.Context, memberID string) (*models.QuotaRecord, error) {
	var rec models.QuotaRecord
	err := r.col.FindOne(ctx, bson.M{"_id": memberID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
