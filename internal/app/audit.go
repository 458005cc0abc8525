package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/pkg/common"
)

// AddAuditLog records a security relevant action. Failures are logged only.
func (a *Application) AddAuditLog(actor, ip, action, detail string) {
	entry := domain.SysAuditLog{
		ID:        common.UUIDint64(),
		Actor:     actor,
		Ip:        ip,
		Action:    action,
		Detail:    common.Truncate(detail, 1000),
		CreatedAt: time.Now(),
	}
	if err := a.gormDB.Create(&entry).Error; err != nil {
		zap.L().Error("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

// subscribeAudit records bus events that have no other consumer
func (a *Application) subscribeAudit() error {
	if err := a.bus.Subscribe(domain.TopicProductPublished, func(p domain.Product) {
		a.AddAuditLog(fmt.Sprint(p.UserID), "", "product_publish", fmt.Sprintf("%d %s", p.ID, p.Name))
	}); err != nil {
		return err
	}
	return a.bus.Subscribe(domain.TopicNewsletterUnsubscribed, func(sub domain.NewsletterSubscription) {
		a.AddAuditLog(sub.Email, "", "newsletter_unsubscribe", sub.Source)
	})
}
