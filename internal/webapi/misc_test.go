package webapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/artisanhub/artisanhub/internal/app"
	"github.com/artisanhub/artisanhub/internal/chat"
	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/listing"
	"github.com/artisanhub/artisanhub/internal/webserver"
	"github.com/artisanhub/artisanhub/pkg/common"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.request(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = s.request(http.MethodGet, "/api/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestHandlerPanicIsLogged(t *testing.T) {
	s := newTestServer(t)
	webserver.ApiGET("/explode", func(c echo.Context) error {
		panic("kiln overheated")
	})

	core, logs := observer.New(zap.DebugLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	rec := s.request(http.MethodGet, "/api/explode", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])

	assert.Equal(t, 1, logs.FilterMessage("handler panic").Len())
	requests := logs.FilterMessage("request").FilterField(zap.Int("status", http.StatusInternalServerError))
	assert.Equal(t, 1, requests.Len())
}

func TestGenerateListing(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	rival, _ := s.signup("Rival", "rival@example.com", domain.RoleArtisan)
	buyer, _ := s.signup("Buyer", "buyer@example.com", domain.RoleBuyer)
	p := s.createProduct(owner, map[string]interface{}{"name": "Mug", "category": "pottery", "price": 20})

	payload := map[string]interface{}{
		"name": "Speckled Mug", "category": "pottery", "materials": "stoneware, glaze", "tone": "rustic",
	}

	t.Run("falls back without a model", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/products/generate", payload, owner)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := dataOf(t, rec)
		assert.Equal(t, listing.SourceFallback, data["source"])
		assert.Contains(t, data["title"], "Speckled Mug")
		assert.NotEmpty(t, data["features"])
		assert.Equal(t, false, data["saved"])
	})

	t.Run("saves onto an owned product", func(t *testing.T) {
		withID := map[string]interface{}{"product_id": p["id"]}
		for k, v := range payload {
			withID[k] = v
		}
		rec := s.request(http.MethodPost, "/api/products/generate", withID, owner)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, dataOf(t, rec)["saved"])

		var stored domain.Product
		require.NoError(t, s.app.DB().Where("id = ?", p["id"]).First(&stored).Error)
		assert.Contains(t, string(stored.AiTitle), "Speckled Mug")
		assert.NotEmpty(t, stored.AiTags)

		rec = s.request(http.MethodPost, "/api/products/generate", withID, rival)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation and roles", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, s.request(http.MethodPost, "/api/products/generate", payload, buyer).Code)
		rec := s.request(http.MethodPost, "/api/products/generate", map[string]interface{}{"name": "X"}, owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = s.request(http.MethodPost, "/api/products/generate", map[string]interface{}{"name": "Mug", "tone": "angry"}, owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestChat(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(http.MethodPost, "/api/chat", map[string]string{"message": "How long does shipping take?"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.Equal(t, "shipping", data["intent"])
	assert.Equal(t, chat.SourceIntent, data["source"])
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = s.request(http.MethodPost, "/api/chat", map[string]string{"message": "zzz qqq"}, "", cookies...)
	require.Equal(t, http.StatusOK, rec.Code)
	data = dataOf(t, rec)
	assert.Equal(t, chat.SourceDefault, data["source"])
	assert.Equal(t, chat.DefaultReply, data["message"])

	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodPost, "/api/chat", map[string]string{"message": ""}, "").Code)
	assert.Equal(t, http.StatusOK, s.request(http.MethodDelete, "/api/chat", nil, "", cookies...).Code)
}

func TestLoadHistory(t *testing.T) {
	assert.Nil(t, loadHistory(nil))
	assert.Nil(t, loadHistory("not json"))
	turns := loadHistory(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`)
	require.Len(t, turns, 2)
	assert.Equal(t, listing.RoleAssistant, turns[1].Role)
}

func TestCategories(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()
	artisan, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)

	rec := s.request(http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 8)
	assert.EqualValues(t, 8, decodeBody(t, rec)["total"])

	rec = s.request(http.MethodGet, "/api/categories?page=2&pageSize=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["data"], 3)

	for _, code := range []string{"   ", ""} {
		rec = s.request(http.MethodPost, "/api/categories", map[string]string{"code": code, "name": "Blank"}, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q", code)
	}

	rec = s.request(http.MethodPost, "/api/categories", map[string]string{"code": "Baskets", "name": "Baskets"}, artisan)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, "/api/categories", map[string]string{"code": "Baskets", "name": "Baskets"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := dataOf(t, rec)["id"].(string)
	assert.Equal(t, "baskets", dataOf(t, rec)["code"])

	rec = s.request(http.MethodPost, "/api/categories", map[string]string{"code": "baskets", "name": "Again"}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s.createProduct(artisan, map[string]interface{}{"name": "Willow Basket", "category": "baskets", "price": 30})
	rec = s.request(http.MethodGet, "/api/categories?q=basket", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody(t, rec)["data"].([]interface{})
	require.Len(t, listed, 1)
	assert.EqualValues(t, 1, listed[0].(map[string]interface{})["in_use"])

	rec = s.request(http.MethodPut, "/api/categories/"+id, map[string]string{"code": "  "}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPut, "/api/categories/"+id, map[string]string{"code": "wicker"}, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved int64
	s.app.DB().Model(&domain.Product{}).Where("category = ?", "wicker").Count(&moved)
	assert.EqualValues(t, 1, moved)

	rec = s.request(http.MethodDelete, "/api/categories/"+id, nil, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CATEGORY_IN_USE", decodeBody(t, rec)["code"])
}

func TestCreateCategoryConcurrentDuplicate(t *testing.T) {
	s := newTestServer(t)
	fired := insertTwinBeforeCreate(t, s.app.DB(), func(v *domain.ProductCategory) *domain.ProductCategory {
		twin := *v
		twin.ID = common.UUIDint64()
		return &twin
	})

	rec := s.request(http.MethodPost, "/api/categories", map[string]string{"code": "baskets", "name": "Baskets"}, s.adminToken())
	require.True(t, *fired)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "CATEGORY_EXISTS", decodeBody(t, rec)["code"])
}

func TestStats(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	for _, price := range []float64{10, 20, 60} {
		s.createProduct(owner, map[string]interface{}{"name": "Piece", "category": "art", "price": price, "status": "active"})
	}
	s.createProduct(owner, map[string]interface{}{"name": "Draft", "category": "art", "price": 999})

	rec := s.request(http.MethodGet, "/api/stats/seller", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.EqualValues(t, 4, data["total"])
	byStatus := data["by_status"].(map[string]interface{})
	assert.EqualValues(t, 3, byStatus["active"])
	assert.EqualValues(t, 1, byStatus["draft"])
	assert.EqualValues(t, 0, byStatus["sold"])
	price := data["price"].(map[string]interface{})
	assert.EqualValues(t, 30, price["mean"])
	assert.EqualValues(t, 20, price["median"])
	assert.EqualValues(t, 60, price["max"])

	assert.Equal(t, http.StatusForbidden, s.request(http.MethodGet, "/api/stats/overview", nil, owner).Code)
	rec = s.request(http.MethodGet, "/api/stats/overview", nil, s.adminToken())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	overview := dataOf(t, rec)
	users := overview["users"].(map[string]interface{})
	assert.EqualValues(t, 1, users["admin"])
	assert.EqualValues(t, 1, users["artisan"])
	sources := overview["last_hour"].(map[string]interface{})["chat_by_source"].(map[string]interface{})
	assert.Contains(t, sources, chat.SourceIntent)
	assert.Contains(t, sources, chat.SourceAI)
	assert.Contains(t, sources, chat.SourceDefault)
}

func TestSummarizePrices(t *testing.T) {
	assert.Equal(t, PriceSummary{}, SummarizePrices(nil))
	s := SummarizePrices([]float64{5, 1, 3, 7})
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 4.0, s.Mean)
	assert.Equal(t, 4.0, s.Median)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 7.0, s.Max)
}

func TestJobs(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken()

	rec := s.request(http.MethodGet, "/api/system/jobs", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decodeBody(t, rec)["data"].([]interface{})
	assert.NotEmpty(t, jobs)

	rec = s.request(http.MethodPost, "/api/system/jobs/"+app.JobEventCleanup+"/run", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(http.MethodPost, "/api/system/jobs/nope/run", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDatabaseInfo(t *testing.T) {
	s := newTestServer(t)
	rec := s.request(http.MethodGet, "/api/system/database", nil, s.adminToken())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.Equal(t, "sqlite", data["database_type"])
	assert.Contains(t, data["database_version"], "SQLite")

	counts := map[string]float64{}
	for _, tbl := range data["tables"].([]interface{}) {
		m := tbl.(map[string]interface{})
		counts[m["name"].(string)] = m["row_count"].(float64)
	}
	assert.EqualValues(t, 1, counts["users"])
	assert.EqualValues(t, 8, counts["product_category"])
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "2.00 KB", formatBytes(2048))
	assert.Equal(t, "1.50 MB", formatBytes(1536*1024))
}
