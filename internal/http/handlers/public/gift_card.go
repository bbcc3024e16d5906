package public

import (
	"errors"

	"github.com/giftcard-next/internal/http/response"
	"github.com/giftcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckBalanceRequest 余额查询请求
type CheckBalanceRequest struct {
	Code string `json:"code" binding:"required"`
}

// CheckGiftCardBalance 按卡号查询礼品卡余额。
// 仅返回状态与余额，不暴露归属客户等敏感字段。
func (h *Handler) CheckGiftCardBalance(c *gin.Context) {
	var req CheckBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	card, err := h.GiftCardService.GetGiftCardByCode(req.Code)
	if err != nil {
		if errors.Is(err, service.ErrGiftCardNotFound) {
			respondError(c, response.CodeNotFound, "gift card not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch gift card", err)
		return
	}

	response.Success(c, gin.H{
		"code":          card.Code,
		"status":        card.Status,
		"current_value": card.CurrentValue,
	})
}
