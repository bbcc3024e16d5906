package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giftcard-next/internal/models"

	"gorm.io/gorm"
)

// CustomerListFilter 查询客户列表的过滤条件
type CustomerListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Status   string
}

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	GetByID(id uint) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
}

// GormCustomerRepository GORM 客户仓储实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓储
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// GetByID 根据 ID 获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, notFoundError("customer", id)
	}
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("customer", id)
		}
		return nil, err
	}
	return &customer, nil
}

// GetByEmail 根据邮箱获取客户
func (r *GormCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, notFoundError("customer", email)
	}
	var customer models.Customer
	if err := r.db.Where("email = ?", email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("customer", email)
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	if customer == nil {
		return saveError("customer", 0, errors.New("nil customer"))
	}
	if err := r.db.Create(customer).Error; err != nil {
		return saveError("customer", 0, err)
	}
	return nil
}

// Update 更新客户
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	if customer == nil || customer.ID == 0 {
		return saveError("customer", 0, errors.New("nil customer"))
	}
	if err := r.db.Save(customer).Error; err != nil {
		return saveError("customer", customer.ID, err)
	}
	return nil
}

// List 查询客户列表
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := fmt.Sprintf("%%%s%%", keyword)
		operator := likeOperator(r.db)
		query = query.Where(
			fmt.Sprintf("email %s ? OR name %s ?", operator, operator),
			like, like,
		)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	customers := make([]models.Customer, 0)
	err := applyPagination(query, filter.Page, filter.PageSize).
		Order("id ASC").
		Find(&customers).Error
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}
