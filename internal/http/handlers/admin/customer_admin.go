package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/giftcard-next/internal/constants"
	"github.com/giftcard-next/internal/http/response"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"
	"github.com/giftcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetCustomers 获取客户列表
func (h *Handler) GetCustomers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" && status != constants.CustomerStatusActive && status != constants.CustomerStatusDisabled {
		respondError(c, response.CodeBadRequest, "invalid status", nil)
		return
	}

	customers, total, err := h.CustomerRepo.List(repository.CustomerListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("keyword"),
		Status:   status,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "failed to fetch customers", err)
		return
	}

	pagination := response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
	response.SuccessWithPage(c, customers, pagination)
}

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// CreateCustomer 创建客户
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	customer := &models.Customer{
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Name:   strings.TrimSpace(req.Name),
		Status: constants.CustomerStatusActive,
	}
	if err := h.CustomerRepo.Create(customer); err != nil {
		respondError(c, response.CodeInternal, "failed to create customer", err)
		return
	}
	response.Success(c, customer)
}

// GetCustomer 获取客户详情及名下礼品卡
func (h *Handler) GetCustomer(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	customer, err := h.CustomerRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, response.CodeNotFound, "customer not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "failed to fetch customer", err)
		return
	}

	cards, _, listErr := h.GiftCardService.ListGiftCards(service.GiftCardListInput{CustomerID: id})
	if listErr != nil {
		respondError(c, response.CodeInternal, "failed to fetch customer gift cards", listErr)
		return
	}
	response.Success(c, gin.H{"customer": customer, "gift_cards": cards})
}
