package webapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/listing"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

type generatePayload struct {
	listing.Request
	ProductID string `json:"product_id" validate:"omitempty,numeric"`
}

// GenerateResponse is the generated copy plus where it was saved
type GenerateResponse struct {
	listing.Result
	ProductID string `json:"product_id,omitempty"`
	Saved     bool   `json:"saved"`
}

func registerGeneratorRoutes() {
	webserver.ApiPOST("/products/generate", generateListing,
		webserver.RequireRole(domain.RoleArtisan, domain.RoleAdmin))
}

func jsonValue(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// applyListing copies generated copy onto the product's ai columns
func applyListing(p *domain.Product, l listing.Listing) {
	p.AiTitle = jsonValue(l.Title)
	p.AiShortDescription = jsonValue(l.ShortDescription)
	p.AiFeatures = jsonValue(l.Features)
	p.AiSpecs = jsonValue(l.Specs)
	p.AiTags = jsonValue(l.Tags)
	p.AiStory = jsonValue(l.Story)
}

func generateListing(c echo.Context) error {
	var payload generatePayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}

	// resolve the target product before spending a model call on it
	var target *domain.Product
	if payload.ProductID != "" {
		id, _ := strconv.ParseInt(payload.ProductID, 10, 64)
		var p domain.Product
		if err := GetDB(c).Where("id = ?", id).First(&p).Error; isNotFound(err) {
			return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
		} else if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
		}
		if !canManage(c, &p) {
			return fail(c, http.StatusForbidden, "FORBIDDEN", "You can only enrich your own products", nil)
		}
		target = &p
	}

	result := GetAppContext(c).Generator().Generate(c.Request().Context(), payload.Request)
	resp := GenerateResponse{Result: result}

	if target != nil {
		applyListing(target, result.Listing)
		target.UpdatedAt = time.Now()
		err := GetDB(c).Model(target).Select("ai_title", "ai_short_description", "ai_features",
			"ai_specs", "ai_tags", "ai_story", "updated_at").Updates(target).Error
		if err != nil {
			zap.L().Error("failed to save generated listing", zap.String("namespace", "generator"),
				zap.Int64("product", target.ID), zap.Error(err))
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save generated listing", err.Error())
		}
		resp.ProductID = strconv.FormatInt(target.ID, 10)
		resp.Saved = true
	}

	msg := "Listing generated"
	if strings.EqualFold(result.Source, listing.SourceFallback) {
		msg = "Listing generated from templates"
	}
	return okMsg(c, msg, resp)
}
