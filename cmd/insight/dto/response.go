package dto

// ErrorResponseDTO는 공통 에러 응답 형식을 통일하기 위한 DTO이다.
type ErrorResponseDTO struct {
	Error   string `json:"error" example:"quota_exhausted"`
	Message string `json:"message,omitempty" example:"no free reports remaining"`
}

// PersistenceFailureDTO 는 공급자 결과는 받았지만 저장하지 못한 경우의 응답이다.
// draft 를 /insights/reports/draft 로 다시 보내면 공급자 재호출 없이 저장을 재시도한다.
type PersistenceFailureDTO struct {
	Error string           `json:"error" example:"report_not_saved"`
	Draft InsightReportDTO `json:"draft"`
}
