package models

import "time"

// Solution 은 리포트 초안을 확정 저장한 결과물이다. report_id 당 하나만 존재한다.
// Collection: solutions
type Solution struct {
	ReportID   string     `bson:"report_id" json:"report_id"`
	MemberID   string     `bson:"member_id" json:"member_id"`
	ProjectID  int64      `bson:"project_id" json:"project_id"`
	Title      string     `bson:"title" json:"title"`
	Content    string     `bson:"content" json:"content"`
	ReportType ReportType `bson:"report_type" json:"report_type"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}
