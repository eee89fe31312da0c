package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AILog stores provider usage per pipeline run (system monitoring purpose)
// Collection: ai_logs
type AILog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID    string             `bson:"request_id" json:"request_id"`
	MemberID     string             `bson:"member_id" json:"member_id"`
	BrandID      int64              `bson:"brand_id" json:"brand_id"`
	Capability   string             `bson:"capability" json:"capability"`
	Provider     string             `bson:"provider" json:"provider"`
	ReportID     string             `bson:"report_id,omitempty" json:"report_id,omitempty"`
	DurationMs   int64              `bson:"duration_ms" json:"duration_ms"`
	ErrorMessage *string            `bson:"error_message,omitempty" json:"error_message,omitempty"`
	RequestedAt  time.Time          `bson:"requested_at" json:"requested_at"`
	CompletedAt  time.Time          `bson:"completed_at" json:"completed_at"`
}
