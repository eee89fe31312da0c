package models

import (
	"fmt"
	"time"
)

type ReportType string

const (
	ReportTypeMarketing   ReportType = "marketing"
	ReportTypeImprovement ReportType = "improvement"
)

// ParseReportType 는 문자열을 ReportType 으로 변환한다. 빈 값은 marketing 으로 본다.
func ParseReportType(s string) (ReportType, error) {
	switch ReportType(s) {
	case "":
		return ReportTypeMarketing, nil
	case ReportTypeMarketing, ReportTypeImprovement:
		return ReportType(s), nil
	default:
		return "", fmt.Errorf("unknown report type: %q", s)
	}
}

// InsightReport 는 공급자 호출과 한도 차감이 모두 성공한 뒤에만 만들어지는 리포트 초안이다.
// Collection: insight_reports
type InsightReport struct {
	ID         string     `bson:"_id" json:"id"`
	MemberID   string     `bson:"member_id" json:"member_id"`
	ProjectID  int64      `bson:"project_id" json:"project_id"`
	BrandID    int64      `bson:"brand_id" json:"brand_id"`
	Title      string     `bson:"title" json:"title"`
	Content    string     `bson:"content" json:"content"`
	ReportType ReportType `bson:"report_type" json:"report_type"`
	Provider   string     `bson:"provider" json:"provider"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}
