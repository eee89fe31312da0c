package models

import "time"

// QuotaRecord 는 회원별 남은 무료 리포트 생성 횟수다. 값은 0 미만이 되지 않는다.
// Collection: quota_records
type QuotaRecord struct {
	MemberID             string    `bson:"_id" json:"member_id"`
	FreeReportsRemaining int       `bson:"free_reports_remaining" json:"free_reports_remaining"`
	UpdatedAt            time.Time `bson:"updated_at" json:"updated_at"`
}
