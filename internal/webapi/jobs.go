package webapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/artisanhub/artisanhub/internal/app"
	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

// registerJobRoutes registers background job API routes
func registerJobRoutes() {
	admin := webserver.RequireRole(domain.RoleAdmin)
	webserver.ApiGET("/system/jobs", ListJobs, admin)
	webserver.ApiPOST("/system/jobs/:name/run", TriggerJob, admin)
}

// ListJobs returns the registered cron jobs with their schedule
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// TriggerJob runs a job immediately
func TriggerJob(c echo.Context) error {
	name := c.Param("name")
	appCtx := GetAppContext(c)
	if err := appCtx.RunJobNow(name); errors.Is(err, app.ErrJobNotFound) {
		return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", name)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	claims := webserver.CurrentClaims(c)
	appCtx.AddAuditLog(claims.Email, c.RealIP(), "job_run", name)
	return okMsg(c, "Job executed", map[string]interface{}{"name": name})
}
