package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"brand-insight/models"
)

type StoreDocumentRepository struct {
	col *mongo.Collection
}

func NewStoreDocumentRepository(db *mongo.Database) *StoreDocumentRepository {
	return &StoreDocumentRepository{col: db.Collection("store_documents")}
}

// UpsertByPlace upserts a document uniquely identified by (brand_id, place_id)
func (r *StoreDocumentRepository) UpsertByPlace(ctx context.Context, d *models.StoreDocument) (*mongo.UpdateResult, error) {
	d.UpdatedAt = time.Now()
	if d.Attributes == nil {
		d.Attributes = map[string]string{}
	}

	filter := bson.M{"brand_id": d.BrandID, "place_id": d.PlaceID}
	update := bson.M{
		"$set": bson.M{
			"brand_id":   d.BrandID,
			"place_id":   d.PlaceID,
			"attributes": d.Attributes,
			"rank":       d.Rank,
			"score":      d.Score,
			"updated_at": d.UpdatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)
	return r.col.UpdateOne(ctx, filter, update, opts)
}

// FindByBrand 는 rank 오름차순으로 브랜드의 매장 문서를 돌려준다.
func (r *StoreDocumentRepository) FindByBrand(ctx context.Context, brandID int64) ([]models.StoreDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}, {Key: "place_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"brand_id": brandID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StoreDocument
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
