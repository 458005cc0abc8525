package webapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
	"github.com/artisanhub/artisanhub/pkg/common"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type productPayload struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Category    string   `json:"category" validate:"required,max=50"`
	Description string   `json:"description" validate:"omitempty,max=10000"`
	Price       float64  `json:"price" validate:"min=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	Quantity    int      `json:"quantity" validate:"min=0"`
	Images      []string `json:"images" validate:"omitempty,max=10,dive,max=1024"`
	Status      string   `json:"status" validate:"omitempty,oneof=draft active sold"`
}

type productUpdatePayload struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string   `json:"category" validate:"omitempty,max=50"`
	Description *string   `json:"description" validate:"omitempty,max=10000"`
	Price       *float64  `json:"price" validate:"omitempty,min=0"`
	Currency    *string   `json:"currency" validate:"omitempty,len=3"`
	Quantity    *int      `json:"quantity" validate:"omitempty,min=0"`
	Images      *[]string `json:"images" validate:"omitempty,max=10"`
	Status      *string   `json:"status" validate:"omitempty,oneof=draft active sold"`
}

// registerProductRoutes registers listing endpoints
func registerProductRoutes() {
	seller := webserver.RequireRole(domain.RoleArtisan, domain.RoleAdmin)
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/mine", listMyProducts, webserver.RequireAuth)
	webserver.ApiGET("/products/export", exportProducts, seller)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct, seller)
	webserver.ApiPUT("/products/:id", updateProduct, webserver.RequireAuth)
	webserver.ApiDELETE("/products/:id", deleteProduct, webserver.RequireAuth)
	webserver.ApiPOST("/products/:id/like", likeProduct)
	webserver.ApiPOST("/products/:id/save", saveProduct)
}

// sortable product columns
var productSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
	"views":      "views",
	"likes":      "likes",
}

func productOrder(c echo.Context) string {
	sortCol, found := productSortColumns[strings.TrimSpace(c.QueryParam("sort"))]
	if !found {
		sortCol = "created_at"
	}
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return sortCol + " " + order + ", id " + order
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	claims := webserver.CurrentClaims(c)

	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		expr, pg := likeExpr(db, "name", "description")
		db = db.Where(expr, likeArgs(q, pg, 2)...)
	}
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("category = ?", strings.ToLower(category))
	}

	var ownerID int64
	if uid := strings.TrimSpace(c.QueryParam("user_id")); uid != "" {
		id, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user_id", nil)
		}
		ownerID = id
		db = db.Where("user_id = ?", id)
	}

	// only admins and owners browsing their own shop see unpublished listings
	status := strings.TrimSpace(c.QueryParam("status"))
	privileged := claims != nil && (claims.Role == domain.RoleAdmin || (ownerID != 0 && claims.UserID == ownerID))
	switch {
	case !privileged:
		if status != "" && status != domain.ProductStatusActive {
			return paged(c, []domain.Product{}, 0, page, pageSize)
		}
		db = db.Where("status = ?", domain.ProductStatusActive)
	case status != "":
		if !common.InSlice(status, domain.ProductStatuses) {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid status filter", nil)
		}
		db = db.Where("status = ?", status)
	}

	if v := strings.TrimSpace(c.QueryParam("min_price")); v != "" {
		minPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid min_price", nil)
		}
		db = db.Where("price >= ?", minPrice)
	}
	if v := strings.TrimSpace(c.QueryParam("max_price")); v != "" {
		maxPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid max_price", nil)
		}
		db = db.Where("price <= ?", maxPrice)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(productOrder(c)).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func listMyProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	claims := webserver.CurrentClaims(c)

	db := GetDB(c).Model(&domain.Product{}).Where("user_id = ?", claims.UserID)
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	var rows []domain.Product
	if err := db.Order(productOrder(c)).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

// canManage reports whether the caller owns p or is an admin
func canManage(c echo.Context, p *domain.Product) bool {
	claims := webserver.CurrentClaims(c)
	if claims == nil {
		return false
	}
	return claims.Role == domain.RoleAdmin || claims.UserID == p.UserID
}

func findProduct(c echo.Context) (*domain.Product, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; isNotFound(err) {
		return nil, fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return &p, nil
}

func getProduct(c echo.Context) error {
	p, err := findProduct(c)
	if p == nil {
		return err
	}
	if p.Status != domain.ProductStatusActive && !canManage(c, p) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}

	GetDB(c).Model(&domain.Product{}).Where("id = ?", p.ID).UpdateColumn("views", gorm.Expr("views + ?", 1))
	p.Views++
	metrics.Incr(metrics.ProductViews)
	return ok(c, p)
}

func checkCategory(c echo.Context, code string) bool {
	var n int64
	GetDB(c).Model(&domain.ProductCategory{}).Where("code = ?", code).Count(&n)
	return n > 0
}

func encodeImages(images []string) datatypes.JSON {
	cleaned := make([]string, 0, len(images))
	for _, img := range images {
		if img = strings.TrimSpace(img); img != "" {
			cleaned = append(cleaned, img)
		}
	}
	data, _ := json.Marshal(cleaned)
	return datatypes.JSON(data)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}
	payload.Category = strings.ToLower(strings.TrimSpace(payload.Category))
	if !checkCategory(c, payload.Category) {
		return fail(c, http.StatusBadRequest, "INVALID_CATEGORY", "Unknown category", payload.Category)
	}
	if payload.Status == "" {
		payload.Status = domain.ProductStatusDraft
	}
	if payload.Currency == "" {
		payload.Currency = "USD"
	}

	user, err := currentUser(c)
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	if !user.CanSell() {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Only artisans can list products", nil)
	}

	now := time.Now()
	p := domain.Product{
		ID:          common.UUIDint64(),
		UserID:      user.ID,
		Name:        payload.Name,
		Category:    payload.Category,
		Description: strings.TrimSpace(payload.Description),
		Price:       payload.Price,
		Currency:    strings.ToUpper(payload.Currency),
		Quantity:    payload.Quantity,
		Images:      encodeImages(payload.Images),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.ApplyStatus(payload.Status, now)

	if err := GetDB(c).Create(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	if p.Status == domain.ProductStatusActive {
		GetAppContext(c).Publish(domain.TopicProductPublished, p)
	}
	return created(c, "Product created", p)
}

func updateProduct(c echo.Context) error {
	p, err := findProduct(c)
	if p == nil {
		return err
	}
	if !canManage(c, p) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "You can only edit your own products", nil)
	}

	var payload productUpdatePayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
		}
		p.Name = name
	}
	if payload.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*payload.Category))
		if !checkCategory(c, category) {
			return fail(c, http.StatusBadRequest, "INVALID_CATEGORY", "Unknown category", category)
		}
		p.Category = category
	}
	if payload.Description != nil {
		p.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Price != nil {
		p.Price = *payload.Price
	}
	if payload.Currency != nil {
		p.Currency = strings.ToUpper(*payload.Currency)
	}
	if payload.Quantity != nil {
		p.Quantity = *payload.Quantity
	}
	if payload.Images != nil {
		p.Images = encodeImages(*payload.Images)
	}

	now := time.Now()
	wasActive := p.Status == domain.ProductStatusActive
	if payload.Status != nil {
		p.ApplyStatus(*payload.Status, now)
	}
	p.UpdatedAt = now

	if err := GetDB(c).Save(p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	if !wasActive && p.Status == domain.ProductStatusActive {
		GetAppContext(c).Publish(domain.TopicProductPublished, *p)
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	p, err := findProduct(c)
	if p == nil {
		return err
	}
	if !canManage(c, p) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "You can only delete your own products", nil)
	}
	if err := GetDB(c).Where("id = ?", p.ID).Delete(&domain.Product{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	zap.L().Info("product deleted", zap.String("namespace", "products"), zap.Int64("id", p.ID))
	return ok(c, map[string]interface{}{"id": strconv.FormatInt(p.ID, 10)})
}

func likeProduct(c echo.Context) error {
	return bumpCounter(c, "likes")
}

func saveProduct(c echo.Context) error {
	return bumpCounter(c, "saves")
}

// bumpCounter atomically increments column on an active product
func bumpCounter(c echo.Context, column string) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	db := GetDB(c)
	res := db.Model(&domain.Product{}).
		Where("id = ? AND status = ?", id, domain.ProductStatusActive).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}
	var p domain.Product
	db.Select("id", column).Where("id = ?", id).First(&p)
	count := p.Likes
	if column == "saves" {
		count = p.Saves
	}
	return ok(c, map[string]interface{}{"id": strconv.FormatInt(id, 10), column: count})
}
