package webapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/artisanhub/artisanhub/internal/app"
	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Response is the success envelope
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// ListResponse is the paged success envelope
type ListResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func okMsg(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: msg, Data: data})
}

func created(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Message: msg, Data: data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, ListResponse{
		Success:  true,
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func fail(c echo.Context, status int, code, msg string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Success: false, Code: code, Message: msg, Details: details})
}

// parsePagination reads page and pageSize (or perPage) query params
func parsePagination(c echo.Context) (int, int) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	sizeStr := c.QueryParam("pageSize")
	if sizeStr == "" {
		sizeStr = c.QueryParam("perPage")
	}
	pageSize, err := strconv.Atoi(sizeStr)
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// handleValidationError reports the first failing field of a validator error
func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		first := verrs[0]
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"Invalid value for "+first.Field()+" ("+first.Tag()+")", fields)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request parameters", err.Error())
}

// bindAndValidate binds the request body into payload and validates it,
// writing the 400 response itself. It returns false when the handler should stop.
func bindAndValidate(c echo.Context, payload interface{}) (bool, error) {
	if err := c.Bind(payload); err != nil {
		return false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request body", nil)
	}
	if err := c.Validate(payload); err != nil {
		return false, handleValidationError(c, err)
	}
	return true, nil
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

// currentUser loads the authenticated caller from the database
func currentUser(c echo.Context) (*domain.User, error) {
	claims := webserver.CurrentClaims(c)
	if claims == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var user domain.User
	if err := GetDB(c).Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// isDuplicate reports a unique index violation. It needs gorm's TranslateError.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// likeExpr builds a case-insensitive LIKE clause for the current dialect
func likeExpr(db *gorm.DB, columns ...string) (string, bool) {
	pg := strings.EqualFold(db.Name(), "postgres")
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if pg {
			parts = append(parts, col+" ILIKE ?")
		} else {
			parts = append(parts, "LOWER("+col+") LIKE ?")
		}
	}
	return strings.Join(parts, " OR "), pg
}

// likeArgs returns one pattern per column matching likeExpr
func likeArgs(q string, pg bool, n int) []interface{} {
	pattern := "%" + q + "%"
	if !pg {
		pattern = "%" + strings.ToLower(q) + "%"
	}
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pattern
	}
	return args
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Init registers every API route on the web server
func Init() {
	registerAuthRoutes()
	registerCategoryRoutes()
	registerProductRoutes()
	registerGeneratorRoutes()
	registerEventRoutes()
	registerNewsletterRoutes()
	registerChatRoutes()
	registerStatsRoutes()
	registerJobRoutes()
	registerSystemRoutes()
}
