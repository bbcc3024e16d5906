package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giftcard-next/internal/http/response"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// IssueGiftCardRequest 发放礼品卡请求
type IssueGiftCardRequest struct {
	InitialValue       models.Money `json:"initial_value" binding:"required"`
	Quantity           int          `json:"quantity"`
	AssignedCustomerID uint         `json:"assigned_customer_id"`
	RecipientEmail     string       `json:"recipient_email"`
	RecipientName      string       `json:"recipient_name"`
}

// IssueGiftCards 发放礼品卡（quantity > 1 时批量发放）
func (h *Handler) IssueGiftCards(c *gin.Context) {
	var req IssueGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	input := service.IssueGiftCardInput{
		InitialValue:       req.InitialValue,
		AssignedCustomerID: req.AssignedCustomerID,
		RecipientEmail:     req.RecipientEmail,
		RecipientName:      req.RecipientName,
	}

	if req.Quantity > 1 {
		cards, err := h.GiftCardService.IssueBatch(req.Quantity, input)
		if err != nil {
			respondGiftCardError(c, err)
			return
		}
		response.Success(c, gin.H{"issued": len(cards), "cards": cards})
		return
	}

	card, err := h.GiftCardService.IssueGiftCard(input)
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, card)
}

// GetGiftCards 获取礼品卡列表
func (h *Handler) GetGiftCards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	input := service.GiftCardListInput{
		Code:           c.Query("code"),
		Status:         c.Query("status"),
		RecipientEmail: c.Query("recipient_email"),
		WithCustomer:   c.Query("with_customer") == "true",
		Page:           page,
		PageSize:       pageSize,
	}
	if customerID, err := strconv.ParseUint(c.Query("customer_id"), 10, 64); err == nil {
		input.CustomerID = uint(customerID)
	}
	if from, ok := parseTimeQuery(c.Query("created_from")); ok {
		input.CreatedFrom = &from
	}
	if to, ok := parseTimeQuery(c.Query("created_to")); ok {
		input.CreatedTo = &to
	}

	cards, total, err := h.GiftCardService.ListGiftCards(input)
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch gift cards", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, cards, pagination)
}

// GetGiftCard 获取礼品卡详情
func (h *Handler) GetGiftCard(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	card, err := h.GiftCardService.GetGiftCard(id)
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, card)
}

// UpdateGiftCardRequest 更新礼品卡请求
type UpdateGiftCardRequest struct {
	AssignedCustomerID *uint   `json:"assigned_customer_id"`
	RecipientEmail     *string `json:"recipient_email"`
	RecipientName      *string `json:"recipient_name"`
}

// UpdateGiftCard 更新礼品卡
func (h *Handler) UpdateGiftCard(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req UpdateGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	card, err := h.GiftCardService.UpdateGiftCard(id, service.UpdateGiftCardInput{
		AssignedCustomerID: req.AssignedCustomerID,
		RecipientEmail:     req.RecipientEmail,
		RecipientName:      req.RecipientName,
	})
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, card)
}

// CancelGiftCard 作废礼品卡
func (h *Handler) CancelGiftCard(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	card, err := h.GiftCardService.CancelGiftCard(id)
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, card)
}

// DeleteGiftCard 删除礼品卡（硬删除）
func (h *Handler) DeleteGiftCard(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.GiftCardService.DeleteGiftCard(id); err != nil {
		respondGiftCardError(c, err)
		return
	}
	requestLog(c).Infow("admin_gift_card_deleted", "gift_card_id", id)
	response.Success(c, nil)
}

// ApplyUsageRequest 记账请求，value_change 带符号
type ApplyUsageRequest struct {
	OrderID     uint         `json:"order_id" binding:"required"`
	ValueChange models.Money `json:"value_change" binding:"required"`
	Notes       string       `json:"notes" binding:"required"`
}

// ApplyGiftCardUsage 对礼品卡记一笔流水
func (h *Handler) ApplyGiftCardUsage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req ApplyUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	card, usage, err := h.GiftCardService.ApplyUsage(service.ApplyUsageInput{
		CardID:      id,
		OrderID:     req.OrderID,
		ValueChange: req.ValueChange,
		Notes:       req.Notes,
	})
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, gin.H{"card": card, "usage": usage})
}

// GetGiftCardUsages 获取礼品卡流水历史（最新在前）
func (h *Handler) GetGiftCardUsages(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	usages, err := h.GiftCardReportService.CardHistory(id, limit)
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, usages)
}

// GetGiftCardStatistics 获取单卡流水统计
func (h *Handler) GetGiftCardStatistics(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	stats, err := h.GiftCardReportService.CardStatistics(id)
	if err != nil {
		respondGiftCardError(c, err)
		return
	}
	response.Success(c, stats)
}

// ExportGiftCards 导出礼品卡 CSV
func (h *Handler) ExportGiftCards(c *gin.Context) {
	input := service.GiftCardListInput{
		Code:           c.Query("code"),
		Status:         c.Query("status"),
		RecipientEmail: c.Query("recipient_email"),
	}
	if customerID, err := strconv.ParseUint(c.Query("customer_id"), 10, 64); err == nil {
		input.CustomerID = uint(customerID)
	}

	filename := fmt.Sprintf("gift_cards_%s.csv", time.Now().Format("20060102150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	writer := csv.NewWriter(c.Writer)
	if err := h.GiftCardService.ExportGiftCardsCSV(input, writer); err != nil {
		requestLog(c).Errorw("gift_card_export_failed", "error", err)
	}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

func parseTimeQuery(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func respondGiftCardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGiftCardNotFound):
		respondError(c, response.CodeNotFound, "gift card not found", nil)
	case errors.Is(err, service.ErrGiftCardInvalid), errors.Is(err, service.ErrUsageInvalid):
		respondError(c, response.CodeBadRequest, "invalid gift card input", nil)
	case errors.Is(err, service.ErrGiftCardInactive):
		respondError(c, response.CodeBadRequest, "gift card is not active", nil)
	case errors.Is(err, service.ErrGiftCardInsufficientBalance):
		respondError(c, response.CodeBadRequest, "gift card balance is insufficient", nil)
	case errors.Is(err, service.ErrGiftCardDuplicateOrder):
		respondError(c, response.CodeBadRequest, "gift card already applied to this order", nil)
	default:
		respondError(c, response.CodeInternal, "gift card operation failed", err)
	}
}
