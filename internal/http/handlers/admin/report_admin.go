package admin

import (
	"strconv"
	"time"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/http/response"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetUsageOverallStatistics 全量流水统计，时间窗可选
func (h *Handler) GetUsageOverallStatistics(c *gin.Context) {
	var from, to *time.Time
	if t, ok := parseTimeQuery(c.Query("from")); ok {
		from = &t
	}
	if t, ok := parseTimeQuery(c.Query("to")); ok {
		to = &t
	}
	stats, err := h.GiftCardReportService.OverallStatistics(from, to)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch usage statistics", err)
		return
	}
	response.Success(c, stats)
}

// GetUsageDailySummary 按自然日汇总流水，默认最近 30 天
func (h *Handler) GetUsageDailySummary(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if t, ok := parseTimeQuery(c.Query("from")); ok {
		from = t
	}
	if t, ok := parseTimeQuery(c.Query("to")); ok {
		to = t
	}
	rows, err := h.GiftCardReportService.DailySummary(from, to)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch daily summary", err)
		return
	}
	response.Success(c, rows)
}

// GetUsageMonthlySummary 按自然月汇总流水，默认最近 12 个月
func (h *Handler) GetUsageMonthlySummary(c *gin.Context) {
	to := time.Now()
	from := to.AddDate(-1, 0, 0)
	if t, ok := parseTimeQuery(c.Query("from")); ok {
		from = t
	}
	if t, ok := parseTimeQuery(c.Query("to")); ok {
		to = t
	}
	rows, err := h.GiftCardReportService.MonthlySummary(from, to)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch monthly summary", err)
		return
	}
	response.Success(c, rows)
}

// GetOrderUsages 获取订单关联的礼品卡流水
func (h *Handler) GetOrderUsages(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "invalid order id", nil)
		return
	}
	usages, reportErr := h.GiftCardReportService.OrderHistory(uint(orderID))
	if reportErr != nil {
		respondError(c, response.CodeInternal, "failed to fetch order usages", reportErr)
		return
	}
	response.Success(c, usages)
}

// GetCardPortfolio 按筛选条件统计在册卡片分布
func (h *Handler) GetCardPortfolio(c *gin.Context) {
	query := repository.NewGiftCardQuery(models.DB)
	if status := c.Query("status"); status != "" {
		query = query.WithStatus(status)
	}
	if customerID, err := strconv.ParseUint(c.Query("customer_id"), 10, 64); err == nil && customerID > 0 {
		query = query.ForCustomer(uint(customerID))
	}
	if c.Query("expiring_soon") == "true" {
		query = query.ExpiringWithin(constants.GiftCardExpiringSoonDays)
	}

	stats, err := h.GiftCardReportService.CardPortfolio(query)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch card portfolio", err)
		return
	}
	response.Success(c, stats)
}
