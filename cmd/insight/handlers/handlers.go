package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/insight/dto"
	"brand-insight/cmd/insight/orchestrator"
	"brand-insight/cmd/internal/trace"
	"brand-insight/models"
)

// HeaderMemberID 는 업스트림 게이트웨이가 인증 후 채워 주는 회원 식별자 헤더다.
const HeaderMemberID = "X-Member-Id"

// InsightService 는 orchestrator.Orchestrator 가 구현한다.
type InsightService interface {
	AskAiInsight(ctx context.Context, req orchestrator.InsightRequest, traceID string) (*orchestrator.InsightResult, error)
	GenerateSolutionReport(ctx context.Context, req orchestrator.InsightRequest, traceID string) (*models.InsightReport, error)
	SaveDraft(ctx context.Context, report *models.InsightReport, traceID string) (*models.InsightReport, error)
	SaveReportAsSolution(ctx context.Context, req orchestrator.SaveSolutionRequest, traceID string) (*models.Solution, error)
	AnalyzeImage(ctx context.Context, req orchestrator.ImageRequest, traceID string) (*orchestrator.InsightResult, error)
	GetFreeReportCount(ctx context.Context, memberID string) (int, error)
	GrantFreeReports(ctx context.Context, memberID string, n int) (int, error)
	GetReport(ctx context.Context, reportID, memberID string) (*models.InsightReport, error)
	ListReports(ctx context.Context, memberID string, projectID int64) ([]models.InsightReport, error)
}

func requireMemberID(c *gin.Context) (string, bool) {
	memberID := strings.TrimSpace(c.GetHeader(HeaderMemberID))
	if memberID == "" {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "member_required", Message: HeaderMemberID + " header is required"})
		return "", false
	}
	return memberID, true
}

func traceID(c *gin.Context) string {
	return trace.RequestIDFromContext(c.Request.Context())
}

func bindInsightRequest(c *gin.Context, memberID string) (orchestrator.InsightRequest, bool) {
	var body dto.InsightRequestDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
		return orchestrator.InsightRequest{}, false
	}
	return orchestrator.InsightRequest{
		MemberID:   memberID,
		ProjectID:  body.ProjectID,
		BrandID:    body.BrandID,
		Provider:   body.Provider,
		ReportType: models.ReportType(body.ReportType),
		Question:   body.Question,
		Location:   body.Location.ToContext(),
		Documents:  body.StoreDocuments(),
	}, true
}

func toResultDTO(r *orchestrator.InsightResult) dto.InsightResultDTO {
	return dto.InsightResultDTO{
		Provider:             r.Provider,
		Result:               r.Result,
		FreeReportsRemaining: r.FreeReportsRemaining,
		TrendSnapshotID:      r.TrendSnapshotID,
	}
}

// AskAiInsightHandler godoc
// @Summary      AI 인사이트 질의
// @Description  무료 리포트 1회를 차감하고 공급자 결과를 그대로 돌려준다. 리포트는 저장하지 않는다. 공급자 호출이 실패하면 차감은 되돌려진다.
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        X-Member-Id  header    string                 true  "member id"
// @Param        body         body      dto.InsightRequestDTO  true  "insight request"
// @Success      200          {object}  dto.InsightResultDTO
// @Failure      400          {object}  dto.ErrorResponseDTO
// @Failure      402          {object}  dto.ErrorResponseDTO  "무료 리포트 소진"
// @Failure      422          {object}  dto.ErrorResponseDTO
// @Failure      503          {object}  dto.ErrorResponseDTO
// @Router       /insights/ask [post]
func AskAiInsightHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		req, ok := bindInsightRequest(c, memberID)
		if !ok {
			return
		}
		res, err := svc.AskAiInsight(c.Request.Context(), req, traceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResultDTO(res))
	}
}

// GenerateSolutionReportHandler godoc
// @Summary      솔루션 리포트 생성
// @Description  무료 리포트 1회를 차감하고 공급자 결과로 리포트 초안을 저장한다. 저장 실패 시 500 과 함께 초안을 돌려준다.
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        X-Member-Id  header    string                 true  "member id"
// @Param        body         body      dto.InsightRequestDTO  true  "insight request"
// @Success      201          {object}  dto.InsightReportDTO
// @Failure      400          {object}  dto.ErrorResponseDTO
// @Failure      402          {object}  dto.ErrorResponseDTO
// @Failure      422          {object}  dto.ErrorResponseDTO
// @Failure      500          {object}  dto.PersistenceFailureDTO
// @Failure      503          {object}  dto.ErrorResponseDTO
// @Router       /insights/reports [post]
func GenerateSolutionReportHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		req, ok := bindInsightRequest(c, memberID)
		if !ok {
			return
		}
		report, err := svc.GenerateSolutionReport(c.Request.Context(), req, traceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.FromReport(report))
	}
}

// SaveDraftHandler godoc
// @Summary      리포트 초안 재저장
// @Description  report_not_saved 응답으로 받은 초안을 공급자 재호출 없이 저장한다. 본문에서는 id 만 쓰고 서버가 보관한 초안을 저장한다. 이미 저장된 초안이면 그대로 돌려준다.
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        X-Member-Id  header    string                true  "member id"
// @Param        body         body      dto.InsightReportDTO  true  "draft"
// @Success      201          {object}  dto.InsightReportDTO
// @Failure      400          {object}  dto.ErrorResponseDTO
// @Failure      402          {object}  dto.ErrorResponseDTO
// @Failure      404          {object}  dto.ErrorResponseDTO
// @Failure      500          {object}  dto.PersistenceFailureDTO
// @Router       /insights/reports/draft [post]
func SaveDraftHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		var body dto.InsightReportDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
			return
		}
		saved, err := svc.SaveDraft(c.Request.Context(), body.ToReport(memberID), traceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.FromReport(saved))
	}
}

// GetReportHandler godoc
// @Summary      리포트 조회
// @Tags         insights
// @Produce      json
// @Param        X-Member-Id  header    string  true  "member id"
// @Param        id           path      string  true  "report id"
// @Success      200          {object}  dto.InsightReportDTO
// @Failure      404          {object}  dto.ErrorResponseDTO
// @Router       /insights/reports/{id} [get]
func GetReportHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		report, err := svc.GetReport(c.Request.Context(), c.Param("id"), memberID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromReport(report))
	}
}

// ListReportsHandler godoc
// @Summary      리포트 목록
// @Description  최신순. project_id 를 생략하면 회원의 전체 리포트를 돌려준다.
// @Tags         insights
// @Produce      json
// @Param        X-Member-Id  header    string  true   "member id"
// @Param        project_id   query     int     false  "project id"
// @Success      200          {object}  dto.ReportListDTO
// @Failure      400          {object}  dto.ErrorResponseDTO
// @Router       /insights/reports [get]
func ListReportsHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		projectID, ok := queryInt64(c, "project_id")
		if !ok {
			return
		}
		reports, err := svc.ListReports(c.Request.Context(), memberID, projectID)
		if err != nil {
			writeError(c, err)
			return
		}
		out := dto.ReportListDTO{Items: make([]dto.InsightReportDTO, 0, len(reports))}
		for i := range reports {
			out.Items = append(out.Items, dto.FromReport(&reports[i]))
		}
		c.JSON(http.StatusOK, out)
	}
}

// SaveReportAsSolutionHandler godoc
// @Summary      리포트를 솔루션으로 저장
// @Description  무료 리포트를 차감하지 않는다. 같은 리포트로 여러 번 호출해도 솔루션은 하나다.
// @Tags         insights
// @Accept       json
// @Produce      json
// @Param        X-Member-Id  header    string                      true  "member id"
// @Param        id           path      string                      true  "report id"
// @Param        body         body      dto.SaveSolutionRequestDTO  true  "solution"
// @Success      200          {object}  dto.SolutionDTO
// @Failure      400          {object}  dto.ErrorResponseDTO
// @Failure      404          {object}  dto.ErrorResponseDTO
// @Router       /insights/reports/{id}/solution [put]
func SaveReportAsSolutionHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		var body dto.SaveSolutionRequestDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
			return
		}
		saved, err := svc.SaveReportAsSolution(c.Request.Context(), orchestrator.SaveSolutionRequest{
			ReportID:   c.Param("id"),
			MemberID:   memberID,
			Title:      body.Title,
			Content:    body.Content,
			ReportType: models.ReportType(body.ReportType),
		}, traceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromSolution(saved))
	}
}
