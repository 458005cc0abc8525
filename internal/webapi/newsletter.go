package webapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
	"github.com/artisanhub/artisanhub/pkg/common"
)

type subscribePayload struct {
	Email  string `json:"email" validate:"required,email,max=191"`
	Source string `json:"source" validate:"omitempty,max=50"`
}

type unsubscribePayload struct {
	Email string `json:"email" validate:"required,email"`
}

func registerNewsletterRoutes() {
	webserver.ApiPOST("/newsletter/subscribe", subscribeNewsletter)
	webserver.ApiPOST("/newsletter/unsubscribe", unsubscribeNewsletter)
	webserver.ApiGET("/newsletter/subscriptions", listSubscriptions, webserver.RequireRole(domain.RoleAdmin))
}

func subscribeNewsletter(c echo.Context) error {
	var payload subscribePayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	email := common.NormalizeEmail(payload.Email)
	source := strings.TrimSpace(payload.Source)
	if source == "" {
		source = "website"
	}

	db := GetDB(c)
	now := time.Now()
	var sub domain.NewsletterSubscription
	err := db.Where("email = ?", email).First(&sub).Error
	switch {
	case err == nil && sub.Active:
		return fail(c, http.StatusConflict, "ALREADY_SUBSCRIBED", "This email is already subscribed", nil)
	case err == nil:
		// inactive entry, subscribe it again
		if err := db.Model(&sub).Updates(map[string]interface{}{
			"active":          true,
			"source":          source,
			"subscribed_at":   now,
			"unsubscribed_at": nil,
			"updated_at":      now,
		}).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update subscription", err.Error())
		}
		sub.Active, sub.Source, sub.SubscribedAt, sub.UnsubscribedAt = true, source, now, nil
	case isNotFound(err):
		sub = domain.NewsletterSubscription{
			ID:           common.UUIDint64(),
			Email:        email,
			Active:       true,
			Source:       source,
			SubscribedAt: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := db.Create(&sub).Error; isDuplicate(err) {
			return fail(c, http.StatusConflict, "ALREADY_SUBSCRIBED", "This email is already subscribed", nil)
		} else if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create subscription", err.Error())
		}
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscription", err.Error())
	}

	GetAppContext(c).Publish(domain.TopicNewsletterSubscribed, sub)
	zap.L().Info("newsletter subscribed", zap.String("namespace", "newsletter"), zap.String("source", source))
	return created(c, "Subscribed to the newsletter", sub)
}

func unsubscribeNewsletter(c echo.Context) error {
	var payload unsubscribePayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	email := common.NormalizeEmail(payload.Email)

	db := GetDB(c)
	var sub domain.NewsletterSubscription
	if err := db.Where("email = ?", email).First(&sub).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND", "This email is not subscribed", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscription", err.Error())
	}
	if !sub.Active {
		return okMsg(c, "Already unsubscribed", sub)
	}

	now := time.Now()
	if err := db.Model(&sub).Updates(map[string]interface{}{
		"active":          false,
		"unsubscribed_at": now,
		"updated_at":      now,
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update subscription", err.Error())
	}
	sub.Active = false
	sub.UnsubscribedAt = &now
	GetAppContext(c).Publish(domain.TopicNewsletterUnsubscribed, sub)
	return okMsg(c, "Unsubscribed", sub)
}

func listSubscriptions(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.NewsletterSubscription{})

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		expr, pg := likeExpr(db, "email")
		db = db.Where(expr, likeArgs(q, pg, 1)...)
	}
	if active := strings.TrimSpace(c.QueryParam("active")); active != "" {
		db = db.Where("active = ?", active == "true" || active == "1")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscriptions", err.Error())
	}
	var subs []domain.NewsletterSubscription
	if err := db.Order("subscribed_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&subs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query subscriptions", err.Error())
	}
	return paged(c, subs, total, page, pageSize)
}
