package dto

import (
	"time"

	"brand-insight/cmd/insight/consulting"
	"brand-insight/models"
)

type LocationDTO struct {
	Category     string  `json:"category" example:"bakery"`
	Latitude     float64 `json:"latitude" example:"37.5446"`
	Longitude    float64 `json:"longitude" example:"127.0557"`
	RadiusMeters int     `json:"radius_meters" example:"500"`
	Address      string  `json:"address" example:"서울 성동구 성수동2가"`
	BestPlaceID  string  `json:"best_place_id" example:"1183401234"`
	WorstPlaceID string  `json:"worst_place_id" example:"1320987654"`
}

func (l LocationDTO) ToContext() consulting.LocationContext {
	return consulting.LocationContext{
		Category:     l.Category,
		Latitude:     l.Latitude,
		Longitude:    l.Longitude,
		RadiusMeters: l.RadiusMeters,
		Address:      l.Address,
		BestPlaceID:  l.BestPlaceID,
		WorstPlaceID: l.WorstPlaceID,
	}
}

type StoreDocumentDTO struct {
	PlaceID    string            `json:"place_id" example:"1183401234"`
	Attributes map[string]string `json:"attributes"`
	Rank       int               `json:"rank" example:"1"`
	Score      float64           `json:"score" example:"4.7"`
}

// InsightRequestDTO 는 ask / report 생성 요청 본문이다.
// documents 를 생략하면 브랜드에 저장된 매장 문서를 사용한다.
type InsightRequestDTO struct {
	ProjectID  int64              `json:"project_id" example:"3"`
	BrandID    int64              `json:"brand_id" binding:"required" example:"7"`
	Provider   string             `json:"provider" binding:"required" example:"gemini"`
	ReportType string             `json:"report_type" example:"marketing"`
	Question   string             `json:"question" example:"주말 매출을 올리려면?"`
	Location   LocationDTO        `json:"location"`
	Documents  []StoreDocumentDTO `json:"documents"`
}

// StoreDocuments 는 요청에 문서가 없으면 nil 을 돌려준다.
func (r InsightRequestDTO) StoreDocuments() []models.StoreDocument {
	if r.Documents == nil {
		return nil
	}
	out := make([]models.StoreDocument, 0, len(r.Documents))
	for _, d := range r.Documents {
		out = append(out, models.StoreDocument{
			BrandID:    r.BrandID,
			PlaceID:    d.PlaceID,
			Attributes: d.Attributes,
			Rank:       d.Rank,
			Score:      d.Score,
		})
	}
	return out
}

type InsightResultDTO struct {
	Provider             string         `json:"provider" example:"gemini"`
	Result               map[string]any `json:"result"`
	FreeReportsRemaining *int           `json:"free_reports_remaining,omitempty" example:"2"`
	TrendSnapshotID      string         `json:"trend_snapshot_id,omitempty"`
}

type InsightReportDTO struct {
	ID         string    `json:"id" example:"5b0f3c9e-4c53-4b8e-9f0e-2f0d1c7c8a11"`
	ProjectID  int64     `json:"project_id" example:"3"`
	BrandID    int64     `json:"brand_id" example:"7"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ReportType string    `json:"report_type" example:"marketing"`
	Provider   string    `json:"provider" example:"gemini"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromReport(r *models.InsightReport) InsightReportDTO {
	return InsightReportDTO{
		ID:         r.ID,
		ProjectID:  r.ProjectID,
		BrandID:    r.BrandID,
		Title:      r.Title,
		Content:    r.Content,
		ReportType: string(r.ReportType),
		Provider:   r.Provider,
		CreatedAt:  r.CreatedAt,
	}
}

// ToReport 는 초안 재저장 요청을 모델로 바꾼다. 소유자는 요청 헤더의 회원이다.
func (d InsightReportDTO) ToReport(memberID string) *models.InsightReport {
	return &models.InsightReport{
		ID:         d.ID,
		MemberID:   memberID,
		ProjectID:  d.ProjectID,
		BrandID:    d.BrandID,
		Title:      d.Title,
		Content:    d.Content,
		ReportType: models.ReportType(d.ReportType),
		Provider:   d.Provider,
		CreatedAt:  d.CreatedAt,
	}
}

type ReportListDTO struct {
	Items []InsightReportDTO `json:"items"`
}

type SaveSolutionRequestDTO struct {
	Title      string `json:"title" example:"가을 시즌 마케팅 제안"`
	Content    string `json:"content"`
	ReportType string `json:"report_type" example:"marketing"`
}

type SolutionDTO struct {
	ReportID   string    `json:"report_id"`
	ProjectID  int64     `json:"project_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ReportType string    `json:"report_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func FromSolution(s *models.Solution) SolutionDTO {
	return SolutionDTO{
		ReportID:   s.ReportID,
		ProjectID:  s.ProjectID,
		Title:      s.Title,
		Content:    s.Content,
		ReportType: string(s.ReportType),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
