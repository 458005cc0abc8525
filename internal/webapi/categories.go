package webapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
	"github.com/artisanhub/artisanhub/pkg/common"
)

type categoryPayload struct {
	Code   string `json:"code" validate:"required,min=1,max=50"`
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Remark string `json:"remark" validate:"omitempty,max=500"`
}

type categoryUpdatePayload struct {
	Code   *string `json:"code" validate:"omitempty,min=1,max=50"`
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Remark *string `json:"remark" validate:"omitempty,max=500"`
}

// registerCategoryRoutes registers category CRUD routes
func registerCategoryRoutes() {
	admin := webserver.RequireRole(domain.RoleAdmin)
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory, admin)
	webserver.ApiPUT("/categories/:id", updateCategory, admin)
	webserver.ApiDELETE("/categories/:id", deleteCategory, admin)
}

// CategoryView is a category with the number of listings filed under it
type CategoryView struct {
	domain.ProductCategory
	InUse int64 `json:"in_use"`
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.ProductCategory{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		expr, pg := likeExpr(db, "code", "name")
		db = db.Where(expr, likeArgs(q, pg, 2)...)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	var categories []domain.ProductCategory
	if err := db.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&categories).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	codes := make([]string, len(categories))
	for i, v := range categories {
		codes[i] = v.Code
	}
	usage := map[string]int64{}
	if len(codes) > 0 {
		var err error
		usage, err = countBy(GetDB(c).Where("category IN ?", codes), &domain.Product{}, "category")
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count category usage", err.Error())
		}
	}

	views := make([]CategoryView, len(categories))
	for i, v := range categories {
		views[i] = CategoryView{ProductCategory: v, InUse: usage[v.Code]}
	}
	return paged(c, views, total, page, pageSize)
}

// categoryCode normalizes a category code, reporting false when nothing is left
func categoryCode(raw string) (string, bool) {
	code := strings.ToLower(strings.TrimSpace(raw))
	return code, code != ""
}

func getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var v domain.ProductCategory
	if err := GetDB(c).Where("id = ?", id).First(&v).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	return ok(c, v)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	code, valid := categoryCode(payload.Code)
	payload.Name = strings.TrimSpace(payload.Name)
	if !valid || payload.Name == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category code and name must not be blank", nil)
	}
	payload.Code = code

	var exists int64
	GetDB(c).Model(&domain.ProductCategory{}).Where("code = ?", payload.Code).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category code already exists", nil)
	}

	category := domain.ProductCategory{
		ID:        common.UUIDint64(),
		Code:      payload.Code,
		Name:      payload.Name,
		Remark:    payload.Remark,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&category).Error; isDuplicate(err) {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category code already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}
	return created(c, "Category created", category)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var payload categoryUpdatePayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}

	db := GetDB(c)
	var category domain.ProductCategory
	if err := db.Where("id = ?", id).First(&category).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	oldCode := category.Code
	if payload.Code != nil {
		code, valid := categoryCode(*payload.Code)
		if !valid {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category code must not be blank", nil)
		}
		if code != category.Code {
			var exists int64
			db.Model(&domain.ProductCategory{}).Where("code = ? AND id <> ?", code, id).Count(&exists)
			if exists > 0 {
				return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category code already exists", nil)
			}
			category.Code = code
		}
	}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Category name must not be blank", nil)
		}
		category.Name = name
	}
	if payload.Remark != nil {
		category.Remark = *payload.Remark
	}
	category.UpdatedAt = time.Now()

	if err := db.Save(&category).Error; isDuplicate(err) {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category code already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}
	// keep listings pointing at the renamed code
	if oldCode != category.Code {
		db.Model(&domain.Product{}).Where("category = ?", oldCode).Update("category", category.Code)
	}
	return ok(c, category)
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	db := GetDB(c)
	var category domain.ProductCategory
	if err := db.Where("id = ?", id).First(&category).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	var inUse int64
	db.Model(&domain.Product{}).Where("category = ?", category.Code).Count(&inUse)
	if inUse > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_IN_USE", "Category is used by existing products", map[string]interface{}{"products": inUse})
	}

	if err := db.Delete(&category).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}
	return ok(c, map[string]interface{}{"id": id})
}
