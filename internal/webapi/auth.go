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

type registerPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=191"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,max=16"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profilePayload struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=1000"`
	Location *string `json:"location" validate:"omitempty,max=200"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=1024"`
}

type passwordPayload struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func registerAuthRoutes() {
	webserver.ApiPOST("/auth/register", Register)
	webserver.ApiPOST("/auth/login", Login)
	webserver.ApiGET("/auth/me", Me, webserver.RequireAuth)
	webserver.ApiPOST("/auth/logout", Logout, webserver.RequireAuth)
	webserver.ApiPUT("/auth/profile", UpdateProfile, webserver.RequireAuth)
	webserver.ApiPUT("/auth/password", ChangePassword, webserver.RequireAuth)
}

func issueToken(c echo.Context, user *domain.User) (*AuthResult, error) {
	token, expires, err := webserver.Tokens().Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: user}, nil
}

// Register creates a buyer or artisan account
func Register(c echo.Context) error {
	var payload registerPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	email := common.NormalizeEmail(payload.Email)
	role := payload.Role
	if role == "" {
		role = domain.RoleBuyer
	}
	if !common.InSlice(role, domain.PublicRoles) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be buyer or artisan", map[string]string{"role": role})
	}

	db := GetDB(c)
	var exists int64
	db.Model(&domain.User{}).Where("email = ?", email).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists", nil)
	}

	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_PASSWORD", err.Error(), nil)
	}
	now := time.Now()
	user := domain.User{
		ID:        common.UUIDint64(),
		Name:      strings.TrimSpace(payload.Name),
		Email:     email,
		Password:  hashed,
		Role:      role,
		LastLogin: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&user).Error; isDuplicate(err) {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create account", err.Error())
	}

	result, err := issueToken(c, &user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}

	appCtx := GetAppContext(c)
	appCtx.AddAuditLog(user.Email, c.RealIP(), "register", "role="+user.Role)
	appCtx.Publish(domain.TopicUserRegistered, user)
	zap.L().Info("user registered", zap.String("namespace", "auth"), zap.Int64("id", user.ID), zap.String("role", user.Role))
	return created(c, "Account created", result)
}

// Login exchanges credentials for a token
func Login(c echo.Context) error {
	var payload loginPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	email := common.NormalizeEmail(payload.Email)

	db := GetDB(c)
	var user domain.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil && !isNotFound(err) {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query account", err.Error())
	}
	if err != nil || !common.CheckPassword(user.Password, payload.Password) {
		GetAppContext(c).AddAuditLog(email, c.RealIP(), "login_failed", "")
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}

	user.LastLogin = time.Now()
	db.Model(&user).Update("last_login", user.LastLogin)

	result, err := issueToken(c, &user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}
	GetAppContext(c).AddAuditLog(user.Email, c.RealIP(), "login", "")
	return ok(c, result)
}

// Me returns the authenticated user
func Me(c echo.Context) error {
	user, err := currentUser(c)
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	return ok(c, user)
}

// Logout is stateless, the client drops its token
func Logout(c echo.Context) error {
	claims := webserver.CurrentClaims(c)
	GetAppContext(c).AddAuditLog(claims.Email, c.RealIP(), "logout", "")
	return okMsg(c, "Logged out", nil)
}

func UpdateProfile(c echo.Context) error {
	var payload profilePayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	user, err := currentUser(c)
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name cannot be empty", nil)
		}
		updates["name"] = name
	}
	if payload.Bio != nil {
		updates["bio"] = strings.TrimSpace(*payload.Bio)
	}
	if payload.Location != nil {
		updates["location"] = strings.TrimSpace(*payload.Location)
	}
	if payload.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*payload.Avatar)
	}

	db := GetDB(c)
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update profile", err.Error())
	}
	db.Where("id = ?", user.ID).First(user)
	return ok(c, user)
}

func ChangePassword(c echo.Context) error {
	var payload passwordPayload
	if okb, err := bindAndValidate(c, &payload); !okb {
		return err
	}
	user, err := currentUser(c)
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	if !common.CheckPassword(user.Password, payload.OldPassword) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect", nil)
	}
	hashed, err := common.HashPassword(payload.NewPassword)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_PASSWORD", err.Error(), nil)
	}
	if err := GetDB(c).Model(user).Updates(map[string]interface{}{
		"password":   hashed,
		"updated_at": time.Now(),
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update password", err.Error())
	}
	GetAppContext(c).AddAuditLog(user.Email, c.RealIP(), "password_change", "")
	return okMsg(c, "Password updated", nil)
}
