package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/insight/dto"
	"brand-insight/cmd/insight/trendbus"
)

// TrendBusInspector 는 trendbus.Bus 가 구현한다.
type TrendBusInspector interface {
	Stats() trendbus.BusStats
}

// TrendBusStatsHandler godoc
// @Summary      트렌드 버스 상태 (관리자)
// @Description  구독자별 전달/실패 건수와 대기 중인 이벤트 수
// @Tags         admin
// @Produce      json
// @Param        X-Admin-Token  header    string  true  "admin token"
// @Success      200            {object}  dto.TrendBusStatsDTO
// @Router       /admin/trend-bus/stats [get]
func TrendBusStatsHandler(bus TrendBusInspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := bus.Stats()
		out := dto.TrendBusStatsDTO{
			TotalPublished: stats.TotalPublished,
			Subscribers:    make(map[string]dto.SubscriberStatsDTO, len(stats.Subscribers)),
		}
		for id, s := range stats.Subscribers {
			out.Subscribers[id] = dto.SubscriberStatsDTO{Delivered: s.Delivered, Failed: s.Failed, Pending: s.Pending}
		}
		c.JSON(http.StatusOK, out)
	}
}
