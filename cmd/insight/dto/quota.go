package dto

// FreeReportCountDTO 는 남은 무료 리포트 횟수 조회 응답이다.
type FreeReportCountDTO struct {
	MemberID             string `json:"member_id" example:"m1"`
	FreeReportsRemaining int    `json:"free_reports_remaining" example:"3"`
}

// GrantFreeReportsRequestDTO 는 관리자 무료 리포트 부여 요청이다. amount 를 생략하면 기본 부여량을 쓴다.
type GrantFreeReportsRequestDTO struct {
	Amount int `json:"amount" example:"3"`
}
