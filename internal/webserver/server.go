package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	"github.com/artisanhub/artisanhub/internal/app"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

const (
	AppContextKey = "appctx"
	ApiPrefix     = "/api"
)

var server *WebServer

// WebServer hosts the JSON API
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
	tokens *TokenManager
}

// Init builds the global web server for appCtx
func Init(appCtx app.AppContext) {
	server = NewWebServer(appCtx)
}

func NewWebServer(appCtx app.AppContext) *WebServer {
	cfg := appCtx.Config()
	s := &WebServer{
		root:   echo.New(),
		appCtx: appCtx,
		tokens: NewTokenManager(cfg.Web.Secret, time.Duration(cfg.Web.JwtTTLHours)*time.Hour),
	}
	s.root.HideBanner = true
	s.root.HidePort = true
	if cfg.System.Debug {
		s.root.Logger.SetLevel(log.DEBUG)
	} else {
		s.root.Logger.SetLevel(log.WARN)
	}
	s.root.Debug = cfg.System.Debug
	s.root.JSONSerializer = &JSONSerializer{}
	s.root.Validator = NewValidator()
	s.root.HTTPErrorHandler = s.httpErrorHandler

	s.root.Pre(middleware.RemoveTrailingSlash())
	s.root.Use(middleware.RequestID())
	// the logger wraps Recover so a panic is logged and counted as a 500
	s.root.Use(requestLogger())
	s.root.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			zap.L().Error("handler panic", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	s.root.Use(middleware.BodyLimit("10M"))
	s.root.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: false,
	}))
	s.root.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.Web.SessionSecret))))
	s.root.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	s.api = s.root.Group(ApiPrefix, s.tokens.Middleware())
	s.api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  "ok",
			"time":    time.Now(),
		})
	})
	return s
}

// requestLogger writes one zap line per request and counts requests
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			metrics.Incr(metrics.ApiRequests)
			if status >= http.StatusInternalServerError {
				metrics.Incr(metrics.ApiErrors)
			}
			fields := []zap.Field{
				zap.String("namespace", "web"),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			}
			if status >= http.StatusInternalServerError {
				zap.L().Error("request", fields...)
			} else {
				zap.L().Debug("request", fields...)
			}
			return nil
		}
	}
}

func (s *WebServer) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		zap.L().Error("unhandled error", zap.Error(err))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]interface{}{
		"success": false,
		"code":    strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_")),
		"message": msg,
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *WebServer) Start(ctx context.Context) error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("Prepare to start web server at %s", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.root.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.S().Info("web server shutting down")
		return s.root.Shutdown(shutdownCtx)
	}
}

func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

func (s *WebServer) Tokens() *TokenManager {
	return s.tokens
}

// Listen starts the global server
func Listen(ctx context.Context) error {
	return server.Start(ctx)
}

// Handler exposes the global server for tests
func Handler() http.Handler {
	return server.root
}

// Tokens returns the global token manager
func Tokens() *TokenManager {
	return server.tokens
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}
