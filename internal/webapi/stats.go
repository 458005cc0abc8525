package webapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"gorm.io/gorm"

	"github.com/artisanhub/artisanhub/internal/chat"
	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

// PriceSummary describes the price distribution of active listings
type PriceSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SellerStats is the artisan dashboard summary
type SellerStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	Views    int64            `json:"views"`
	Likes    int64            `json:"likes"`
	Saves    int64            `json:"saves"`
	Price    PriceSummary     `json:"price"`
}

func registerStatsRoutes() {
	webserver.ApiGET("/stats/seller", sellerStats, webserver.RequireRole(domain.RoleArtisan, domain.RoleAdmin))
	webserver.ApiGET("/stats/overview", overviewStats, webserver.RequireRole(domain.RoleAdmin))
}

type groupCount struct {
	Grp   string
	Total int64
}

func countBy(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []groupCount
	if err := db.Model(model).Select(column + " AS grp, COUNT(*) AS total").Group(column).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Grp] = r.Total
	}
	return result, nil
}

// SummarizePrices computes the price summary; an empty set yields zeros
func SummarizePrices(prices []float64) PriceSummary {
	data := stats.Float64Data(prices)
	if data.Len() == 0 {
		return PriceSummary{}
	}
	s := PriceSummary{Count: data.Len()}
	s.Mean, _ = data.Mean()
	s.Median, _ = data.Median()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	s.Mean, _ = stats.Round(s.Mean, 2)
	s.Median, _ = stats.Round(s.Median, 2)
	return s
}

func sellerStats(c echo.Context) error {
	claims := webserver.CurrentClaims(c)
	db := GetDB(c)
	byStatus, err := countBy(db.Where("user_id = ?", claims.UserID), &domain.Product{}, "status")
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query statistics", err.Error())
	}
	result := SellerStats{ByStatus: make(map[string]int64, len(domain.ProductStatuses))}
	for _, s := range domain.ProductStatuses {
		result.ByStatus[s] = byStatus[s]
		result.Total += byStatus[s]
	}

	var totals struct {
		Views int64
		Likes int64
		Saves int64
	}
	if err := db.Model(&domain.Product{}).Where("user_id = ?", claims.UserID).
		Select("COALESCE(SUM(views),0) AS views, COALESCE(SUM(likes),0) AS likes, COALESCE(SUM(saves),0) AS saves").
		Scan(&totals).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query statistics", err.Error())
	}
	result.Views, result.Likes, result.Saves = totals.Views, totals.Likes, totals.Saves

	var prices []float64
	if err := db.Model(&domain.Product{}).
		Where("user_id = ? AND status = ?", claims.UserID, domain.ProductStatusActive).
		Pluck("price", &prices).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query statistics", err.Error())
	}
	result.Price = SummarizePrices(prices)
	return ok(c, result)
}

// chatSources splits chat traffic by how each reply was produced
func chatSources(window time.Duration) map[string]float64 {
	out := make(map[string]float64, 3)
	for _, src := range []string{chat.SourceIntent, chat.SourceAI, chat.SourceDefault} {
		out[src] = metrics.SumLabel(metrics.ChatMessages, "source", src, window)
	}
	return out
}

func overviewStats(c echo.Context) error {
	db := GetDB(c)
	users, err := countBy(db, &domain.User{}, "role")
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query statistics", err.Error())
	}
	products, err := countBy(db, &domain.Product{}, "status")
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query statistics", err.Error())
	}
	var subscribers int64
	db.Model(&domain.NewsletterSubscription{}).Where("active = ?", true).Count(&subscribers)

	var prices []float64
	db.Model(&domain.Product{}).Where("status = ?", domain.ProductStatusActive).Pluck("price", &prices)

	appCtx := GetAppContext(c)
	return ok(c, map[string]interface{}{
		"users":              users,
		"products":           products,
		"active_subscribers": subscribers,
		"events":             appCtx.EventStore().Len(),
		"price":              SummarizePrices(prices),
		"last_hour": map[string]interface{}{
			"requests":         metrics.Sum(metrics.ApiRequests, time.Hour),
			"errors":           metrics.Sum(metrics.ApiErrors, time.Hour),
			"product_views":    metrics.Sum(metrics.ProductViews, time.Hour),
			"listings_ai":      metrics.Sum(metrics.ListingGenerated, time.Hour),
			"listings_default": metrics.Sum(metrics.ListingFallback, time.Hour),
			"chat_messages":    metrics.Sum(metrics.ChatMessages, time.Hour),
			"chat_by_source":   chatSources(time.Hour),
		},
		"system": map[string]interface{}{
			"cpu_use":         float64(metrics.GetGauge(metrics.SystemCpuUse)) / 100,
			"mem_use_mb":      metrics.GetGauge(metrics.SystemMemUse),
			"process_cpu_use": float64(metrics.GetGauge(metrics.ProcessCpuUse)) / 100,
			"process_mem_mb":  metrics.GetGauge(metrics.ProcessMemUse),
		},
	})
}
