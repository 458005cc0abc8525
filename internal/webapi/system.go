package webapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

// TableInfo is a table name with its row count
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// DatabaseInfo summarises the connected database
type DatabaseInfo struct {
	DatabaseType    string      `json:"database_type"`
	DatabaseVersion string      `json:"database_version"`
	DatabaseSize    string      `json:"database_size"`
	ServerTime      string      `json:"server_time"`
	Tables          []TableInfo `json:"tables"`
}

func registerSystemRoutes() {
	webserver.ApiGET("/system/database", databaseInfo, webserver.RequireRole(domain.RoleAdmin))
}

func formatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	case n < 1024*1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
	}
}

func tableName(db *gorm.DB, model interface{}) string {
	if t, isTabler := model.(schema.Tabler); isTabler {
		return t.TableName()
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

func databaseInfo(c echo.Context) error {
	db := GetDB(c)
	dbType := db.Dialector.Name()
	info := DatabaseInfo{
		DatabaseType: dbType,
		ServerTime:   time.Now().Format("2006-01-02 15:04:05"),
	}

	switch dbType {
	case "postgres":
		db.Raw("SELECT version()").Scan(&info.DatabaseVersion)
		db.Raw("SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&info.DatabaseSize)
	case "sqlite":
		var version string
		db.Raw("SELECT sqlite_version()").Scan(&version)
		info.DatabaseVersion = "SQLite " + version
		var pageCount, pageSize int64
		db.Raw("PRAGMA page_count").Scan(&pageCount)
		db.Raw("PRAGMA page_size").Scan(&pageSize)
		info.DatabaseSize = formatBytes(pageCount * pageSize)
	}

	for _, model := range domain.Tables {
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count rows", err.Error())
		}
		info.Tables = append(info.Tables, TableInfo{Name: tableName(db, model), RowCount: count})
	}
	return ok(c, info)
}
