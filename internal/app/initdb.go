package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/events"
	"github.com/artisanhub/artisanhub/pkg/common"
)

const (
	superEmail           = "admin@artisanhub.local"
	defaultSuperPassword = "artisanhub"
)

// checkSuper makes sure the default administrator exists and can log in
func (a *Application) checkSuper() {
	var admin domain.User
	err := a.gormDB.Where("email = ?", superEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, err := common.HashPassword(defaultSuperPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.User{
			ID:        common.UUIDint64(),
			Name:      "administrator",
			Email:     superEmail,
			Password:  hashedPassword,
			Role:      domain.RoleAdmin,
			Verified:  true,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(admin.Password) == ""
	resetRole := admin.Role != domain.RoleAdmin

	if !resetPassword && !resetRole {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hashedPassword, err := common.HashPassword(defaultSuperPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		updates["password"] = hashedPassword
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}

	if err := a.gormDB.Model(&domain.User{}).Where("id = ?", admin.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default admin account",
		zap.String("email", superEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole))
}

// checkCategories initializes default listing categories
func (a *Application) checkCategories() {
	defaultCategories := []domain.ProductCategory{
		{Code: "pottery", Name: "Pottery & Ceramics", Remark: "Mugs, bowls, vases"},
		{Code: "textiles", Name: "Textiles", Remark: "Weaving, knitting, quilting"},
		{Code: "jewelry", Name: "Jewelry", Remark: "Metalwork and beading"},
		{Code: "woodwork", Name: "Woodwork", Remark: "Furniture, carving, turning"},
		{Code: "leather", Name: "Leather Goods", Remark: "Bags, wallets, belts"},
		{Code: "glass", Name: "Glass", Remark: "Blown and stained glass"},
		{Code: "art", Name: "Art & Prints", Remark: "Paintings, prints, illustration"},
		{Code: "other", Name: "Other", Remark: "Everything else"},
	}

	for _, c := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.ProductCategory{}).Where("code = ?", c.Code).Count(&count)
		if count == 0 {
			c.ID = common.UUIDint64()
			c.CreatedAt = time.Now()
			c.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&c).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("code", c.Code), zap.Error(err))
			} else {
				zap.L().Info("initialized default category", zap.String("code", c.Code), zap.String("name", c.Name))
			}
		}
	}
}

// checkEvents loads the default event catalogue into memory
func (a *Application) checkEvents() {
	if a.eventStore.Len() > 0 {
		return
	}
	for _, e := range events.DefaultEvents(time.Now()) {
		if _, err := a.eventStore.Add(e); err != nil {
			zap.L().Error("failed to add default event", zap.String("title", e.Title), zap.Error(err))
		}
	}
	zap.L().Info("initialized event catalogue", zap.Int("events", a.eventStore.Len()))
}

// checkDemoProducts initializes demo listings owned by the admin account
func (a *Application) checkDemoProducts() {
	var admin domain.User
	if err := a.gormDB.Where("email = ?", superEmail).First(&admin).Error; err != nil {
		return
	}
	defaultProducts := []domain.Product{
		{Name: "Speckled Stoneware Mug", Category: "pottery", Price: 28, Quantity: 12, Status: domain.ProductStatusActive},
		{Name: "Hand-woven Wool Throw", Category: "textiles", Price: 145, Quantity: 3, Status: domain.ProductStatusActive},
		{Name: "Walnut Serving Board", Category: "woodwork", Price: 64.5, Quantity: 6, Status: domain.ProductStatusDraft},
		{Name: "Silver Leaf Earrings", Category: "jewelry", Price: 52, Quantity: 0, Status: domain.ProductStatusSold},
	}

	for _, p := range defaultProducts {
		var count int64
		a.gormDB.Model(&domain.Product{}).Where("name = ?", p.Name).Count(&count)
		if count == 0 {
			now := time.Now()
			status := p.Status
			p.ID = common.UUIDint64()
			p.UserID = admin.ID
			p.Currency = "USD"
			p.Images = datatypes.JSON("[]")
			p.CreatedAt = now
			p.UpdatedAt = now
			p.ApplyStatus(status, now)
			if err := a.gormDB.Create(&p).Error; err != nil {
				zap.L().Error("failed to create demo product", zap.String("name", p.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized demo product", zap.String("name", p.Name))
			}
		}
	}
}
