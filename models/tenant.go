package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"gorm.io/gorm"
)

// Tenant is a pangkalan (sub-depot) receiving stock from the agent.
type Tenant struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Code         string    `gorm:"size:50;uniqueIndex" json:"code"`
	Phone        string    `gorm:"size:20" json:"phone"`
	MonthlyQuota int64     `gorm:"default:0" json:"monthly_quota"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTenant struct {
	Name         string `json:"name" binding:"required" validate:"required,max=100"`
	Code         string `json:"code" validate:"max=50"`
	Phone        string `json:"phone" validate:"max=30"`
	MonthlyQuota int64  `json:"monthly_quota" validate:"gte=0"`
}

func CreateTenant(ctx context.Context, input *NewTenant) (*Tenant, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, &NotFoundError{Resource: "tenant", Id: 0}
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	phone := ""
	if input.Phone != "" {
		normalized, err := utils.NormalizePhoneNumber(input.Phone, utils.DefaultPhoneRegion)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}
	tenant := Tenant{
		Name:         input.Name,
		Code:         input.Code,
		Phone:        phone,
		MonthlyQuota: input.MonthlyQuota,
		IsActive:     utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&tenant).Error; err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &tenant, nil
}

func GetTenant(ctx context.Context, id int) (*Tenant, error) {
	if err := authorizeTenant(ctx, id); err != nil {
		return nil, err
	}
	var tenant Tenant
	err := config.GetDB().WithContext(ctx).First(&tenant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "tenant", Id: id}
		}
		return nil, err
	}
	return &tenant, nil
}

// ListActiveTenants returns active tenants; withQuota limits it to those with a positive quota.
func ListActiveTenants(ctx context.Context, withQuota bool) ([]*Tenant, error) {
	var tenants []*Tenant
	dbCtx := config.GetDB().WithContext(ctx).Where("is_active = ?", true)
	if withQuota {
		dbCtx = dbCtx.Where("monthly_quota > 0")
	}
	if err := dbCtx.Order("id").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

// SetMonthlyQuota replaces the tenant's allocation quota (admin only).
func SetMonthlyQuota(ctx context.Context, tenantId int, quota int64) (*Tenant, error) {
	if !utils.IsAdminContext(ctx) {
		return nil, &NotFoundError{Resource: "tenant", Id: tenantId}
	}
	if quota < 0 {
		return nil, invalidQty("monthly_quota", quota)
	}
	tenant, err := GetTenant(ctx, tenantId)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(tenant).Update("monthly_quota", quota).Error; err != nil {
		return nil, fmt.Errorf("set monthly quota: %w", err)
	}
	tenant.MonthlyQuota = quota
	return tenant, nil
}

// authorizeTenant allows distributor roles on any tenant and a pangkalan only on itself.
// A foreign tenant is reported as not found.
func authorizeTenant(ctx context.Context, tenantId int) error {
	if tenantId <= 0 {
		return &NotFoundError{Resource: "tenant", Id: tenantId}
	}
	if utils.IsAdminContext(ctx) {
		return nil
	}
	own, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || own <= 0 {
		return utils.ErrorTenantRequired
	}
	if own != tenantId {
		return &NotFoundError{Resource: "tenant", Id: tenantId}
	}
	return nil
}
