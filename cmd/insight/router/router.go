package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"brand-insight/cmd/insight/handlers"
	"brand-insight/cmd/insight/middleware"
	_ "brand-insight/docs"
)

type Deps struct {
	Insights handlers.InsightService
	TrendBus handlers.TrendBusInspector
	// Health 는 /health 에서 호출한다. nil 이면 항상 ok.
	Health func(ctx context.Context) error
	// Metrics 는 /metrics 핸들러다. nil 이면 노출하지 않는다.
	Metrics            http.Handler
	AdminToken         string
	DefaultFreeReports int
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace())

	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		api.POST("/insights/ask", handlers.AskAiInsightHandler(d.Insights))
		api.POST("/insights/reports", handlers.GenerateSolutionReportHandler(d.Insights))
		api.GET("/insights/reports", handlers.ListReportsHandler(d.Insights))
		api.POST("/insights/reports/draft", handlers.SaveDraftHandler(d.Insights))
		api.GET("/insights/reports/:id", handlers.GetReportHandler(d.Insights))
		api.PUT("/insights/reports/:id/solution", handlers.SaveReportAsSolutionHandler(d.Insights))
		api.POST("/insights/images", handlers.AnalyzeImageHandler(d.Insights))
		api.GET("/quota/free-reports", handlers.GetFreeReportCountHandler(d.Insights))

		admin := api.Group("/admin", middleware.AdminTokenMiddleware(d.AdminToken))
		admin.POST("/quota/:member_id/grant", handlers.GrantFreeReportsHandler(d.Insights, d.DefaultFreeReports))
		if d.TrendBus != nil {
			admin.GET("/trend-bus/stats", handlers.TrendBusStatsHandler(d.TrendBus))
		}
	}

	return r
}

// WithCORS 는 허용 origin 목록으로 CORS 를 처리하는 핸들러로 감싼다.
func WithCORS(h http.Handler, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", handlers.HeaderMemberID, middleware.HeaderAdminToken, "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Span-Id"},
	})
	return c.Handler(h)
}
