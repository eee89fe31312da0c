package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"brand-insight/models"
)

type SolutionRepository struct {
	col *mongo.Collection
}

func NewSolutionRepository(db *mongo.Database) *SolutionRepository {
	return &SolutionRepository{col: db.Collection("solutions")}
}

// UpsertByReportID upserts a solution uniquely identified by report_id and returns the stored document
func (r *SolutionRepository) UpsertByReportID(ctx context.Context, s *models.Solution) (*models.Solution, error) {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	filter := bson.M{"report_id": s.ReportID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": s.CreatedAt,
		},
		"$set": bson.M{
			"report_id":   s.ReportID,
			"member_id":   s.MemberID,
			"project_id":  s.ProjectID,
			"title":       s.Title,
			"content":     s.Content,
			"report_type": s.ReportType,
			"updated_at":  s.UpdatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.Solution
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}
	return &stored, nil
}
