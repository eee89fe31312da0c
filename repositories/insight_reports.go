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

type InsightReportRepository struct {
	col *mongo.Collection
}

func NewInsightReportRepository(db *mongo.Database) *InsightReportRepository {
	return &InsightReportRepository{col: db.Collection("insight_reports")}
}

func (r *InsightReportRepository) Insert(ctx context.Context, report *models.InsightReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, report)
	return err
}

// FindByID 는 문서가 없으면 (nil, nil) 을 돌려준다.
func (r *InsightReportRepository) FindByID(ctx context.Context, id string) (*models.InsightReport, error) {
	var report models.InsightReport
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListByMemberAndProject returns reports newest first. projectID 0 은 전체 프로젝트.
func (r *InsightReportRepository) ListByMemberAndProject(ctx context.Context, memberID string, projectID int64) ([]models.InsightReport, error) {
	filter := bson.M{"member_id": memberID}
	if projectID != 0 {
		filter["project_id"] = projectID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.InsightReport{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
