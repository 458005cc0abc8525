package webapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"

	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/webserver"
)

// productExportRow is one line of a listing export
type productExportRow struct {
	ID          string  `csv:"id"`
	Name        string  `csv:"name"`
	Category    string  `csv:"category"`
	Status      string  `csv:"status"`
	Price       float64 `csv:"price"`
	Currency    string  `csv:"currency"`
	Quantity    int     `csv:"quantity"`
	Views       int64   `csv:"views"`
	Likes       int64   `csv:"likes"`
	Saves       int64   `csv:"saves"`
	PublishedAt string  `csv:"published_at"`
	CreatedAt   string  `csv:"created_at"`
}

var exportHeaders = []string{"id", "name", "category", "status", "price", "currency",
	"quantity", "views", "likes", "saves", "published_at", "created_at"}

func toExportRows(products []domain.Product) []*productExportRow {
	rows := make([]*productExportRow, 0, len(products))
	for _, p := range products {
		published := ""
		if p.PublishedAt != nil {
			published = p.PublishedAt.Format(time.RFC3339)
		}
		rows = append(rows, &productExportRow{
			ID:          strconv.FormatInt(p.ID, 10),
			Name:        p.Name,
			Category:    p.Category,
			Status:      p.Status,
			Price:       p.Price,
			Currency:    p.Currency,
			Quantity:    p.Quantity,
			Views:       p.Views,
			Likes:       p.Likes,
			Saves:       p.Saves,
			PublishedAt: published,
			CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

func (r *productExportRow) values() []interface{} {
	return []interface{}{r.ID, r.Name, r.Category, r.Status, r.Price, r.Currency,
		r.Quantity, r.Views, r.Likes, r.Saves, r.PublishedAt, r.CreatedAt}
}

// writeXlsx renders rows into a single sheet workbook
func writeXlsx(rows []*productExportRow) (*bytes.Buffer, error) {
	const sheet = "Sheet1"
	xlsx := excelize.NewFile()
	for i, h := range exportHeaders {
		xlsx.SetCellValue(sheet, fmt.Sprintf("%s1", excelize.ToAlphaString(i)), h)
	}
	for r, row := range rows {
		for i, v := range row.values() {
			xlsx.SetCellValue(sheet, fmt.Sprintf("%s%d", excelize.ToAlphaString(i), r+2), v)
		}
	}
	buf := new(bytes.Buffer)
	if err := xlsx.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// exportProducts downloads the caller's listings as csv or xlsx
func exportProducts(c echo.Context) error {
	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return fail(c, http.StatusBadRequest, "INVALID_FORMAT", "Format must be csv or xlsx", nil)
	}

	claims := webserver.CurrentClaims(c)
	var products []domain.Product
	if err := GetDB(c).Where("user_id = ?", claims.UserID).Order("created_at DESC").Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	rows := toExportRows(products)
	filename := fmt.Sprintf("products-%s.%s", time.Now().Format("20060102"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	if format == "xlsx" {
		buf, err := writeXlsx(rows)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to build workbook", err.Error())
		}
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to build csv", err.Error())
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
