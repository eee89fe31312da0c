package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"brand-insight/cmd/insight/dto"
	"brand-insight/cmd/insight/orchestrator"
)

const maxImageBytes = 10 << 20

// AnalyzeImageHandler godoc
// @Summary      이미지 분석
// @Description  등록된 이미지 분석 공급자로 매장 이미지를 분석한다. 차감 여부는 image_analysis.metered 설정을 따른다.
// @Tags         insights
// @Accept       multipart/form-data
// @Produce      json
// @Param        X-Member-Id  header    string  true  "member id"
// @Param        brand_id     formData  int     true  "brand id"
// @Param        provider     formData  string  true  "provider name"
// @Param        image        formData  file    true  "image file (<=10MB)"
// @Success      200          {object}  dto.InsightResultDTO
// @Failure      400          {object}  dto.ErrorResponseDTO
// @Failure      402          {object}  dto.ErrorResponseDTO
// @Failure      413          {object}  dto.ErrorResponseDTO
// @Failure      503          {object}  dto.ErrorResponseDTO
// @Router       /insights/images [post]
func AnalyzeImageHandler(svc InsightService) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := requireMemberID(c)
		if !ok {
			return
		}
		brandID, err := strconv.ParseInt(c.PostForm("brand_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: "brand_id must be an integer"})
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: "image file is required"})
			return
		}
		if fh.Size > maxImageBytes {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponseDTO{Error: "image_too_large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request", Message: err.Error()})
			return
		}

		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}

		res, err := svc.AnalyzeImage(c.Request.Context(), orchestrator.ImageRequest{
			MemberID: memberID,
			BrandID:  brandID,
			Provider: c.PostForm("provider"),
			Image:    data,
			MimeType: mimeType,
		}, traceID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toResultDTO(res))
	}
}
