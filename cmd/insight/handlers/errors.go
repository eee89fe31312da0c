package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/insight/dto"
	"brand-insight/cmd/insight/orchestrator"
	"brand-insight/cmd/internal/logger"
)

// normalizeError 는 오케스트레이터 에러를 HTTP 상태와 error_code 로 바꾼다.
// 402 는 "업그레이드 필요", 503 은 "잠시 후 재시도" 로 클라이언트가 구분한다.
func normalizeError(err error) (int, string) {
	code := orchestrator.ErrorCode(err)
	switch code {
	case "quota_exhausted":
		return http.StatusPaymentRequired, code
	case "unsupported_provider", "invalid_request":
		return http.StatusBadRequest, code
	case "provider_rejected":
		return http.StatusUnprocessableEntity, code
	case "provider_unavailable":
		return http.StatusServiceUnavailable, code
	case "report_not_found":
		return http.StatusNotFound, code
	case "report_not_saved":
		return http.StatusInternalServerError, code
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError 는 표준 에러 응답을 쓴다. 저장 실패는 초안을 함께 돌려준다.
func writeError(c *gin.Context, err error) {
	status, code := normalizeError(err)

	fields := logger.TraceFields(c.Request.Context()).With(logger.Fields{
		"status":     status,
		"error_code": code,
		"error":      err.Error(),
	})
	if status >= http.StatusInternalServerError {
		logger.ErrorWithFields("insight request failed", fields)
	} else {
		logger.InfoWithFields("insight request rejected", fields)
	}

	var pe *orchestrator.PersistenceError
	if errors.As(err, &pe) && pe.Report != nil {
		c.JSON(status, dto.PersistenceFailureDTO{Error: code, Draft: dto.FromReport(pe.Report)})
		return
	}

	resp := dto.ErrorResponseDTO{Error: code}
	// 입력 오류만 상세 메시지를 노출한다.
	if code == "invalid_request" || code == "unsupported_provider" {
		resp.Message = err.Error()
	}
	c.JSON(status, resp)
}
