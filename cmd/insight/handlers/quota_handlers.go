package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/insight/dto"
)

// GetFreeReportCountHandler godoc
// @Summary      남은 무료 리포트 횟수
// @Tags         quota
// @Produce      json
// @Param        X-Member-Id  header    string  true  "member id"
// @Success      200          {object}  dto.FreeReportCountDTO
// @Router       /quota/free-reports [get]
func GetFreeReportCountHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		n, err := svc.GetFreeReportCount(c.Request.Context(), memberID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FreeReportCountDTO{MemberID: memberID, FreeReportsRemaining: n})
	}
}

// GrantFreeReportsHandler godoc
// @Summary      무료 리포트 부여 (관리자)
// @Description  amount 를 생략하면 quota.default_free_reports 만큼 부여한다.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        X-Admin-Token  header    string                          true   "admin token"
// @Param        member_id      path      string                          true   "member id"
// @Param        body           body      dto.GrantFreeReportsRequestDTO  false  "grant"
// @Success      200            {object}  dto.FreeReportCountDTO
// @Failure      400            {object}  dto.ErrorResponseDTO
// @Failure      403            {object}  dto.ErrorResponseDTO
// @Router       /admin/quota/{member_id}/grant [post]
func GrantFreeReportsHandler(svc InsightService, defaultAmount int) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID := strings.TrimSpace(c.Param("member_id"))
		var body dto.GrantFreeReportsRequestDTO
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
				return
			}
		}
		amount := body.Amount
		if amount == 0 {
			amount = defaultAmount
		}
		total, err := svc.GrantFreeReports(c.Request.Context(), memberID, amount)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FreeReportCountDTO{MemberID: memberID, FreeReportsRemaining: total})
	}
}

// queryInt64 는 비어 있으면 0 을 돌려준다.
func queryInt64(c *gin.Context, key string) (int64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: key + " must be an integer"})
		return 0, false
	}
	return v, true
}
