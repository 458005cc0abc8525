package webapi

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanhub/artisanhub/internal/domain"
)

func TestCreateProduct(t *testing.T) {
	s := newTestServer(t)
	artisan, artisanID := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	buyer, _ := s.signup("Buyer", "buyer@example.com", domain.RoleBuyer)

	t.Run("draft by default without publish time", func(t *testing.T) {
		p := s.createProduct(artisan, map[string]interface{}{
			"name": "Blue Mug", "category": "pottery", "price": 24.5, "quantity": 3,
			"images": []string{" https://img.example/mug.jpg ", ""},
		})
		assert.Equal(t, domain.ProductStatusDraft, p["status"])
		assert.Nil(t, p["published_at"])
		assert.Equal(t, artisanID, p["user_id"])
		assert.Equal(t, "USD", p["currency"])
		assert.Equal(t, []interface{}{"https://img.example/mug.jpg"}, p["images"])
	})

	t.Run("active listing is stamped", func(t *testing.T) {
		p := s.createProduct(artisan, map[string]interface{}{
			"name": "Oak Bowl", "category": "woodwork", "price": 60, "status": "active",
		})
		assert.Equal(t, domain.ProductStatusActive, p["status"])
		assert.NotNil(t, p["published_at"])
	})

	t.Run("buyers cannot sell", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/products", map[string]interface{}{
			"name": "Nope", "category": "pottery", "price": 1,
		}, buyer)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anonymous cannot sell", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/products", map[string]interface{}{
			"name": "Nope", "category": "pottery", "price": 1,
		}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown category and negative price", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/products", map[string]interface{}{
			"name": "Thing", "category": "spaceships", "price": 1,
		}, artisan)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_CATEGORY", decodeBody(t, rec)["code"])

		rec = s.request(http.MethodPost, "/api/products", map[string]interface{}{
			"name": "Thing", "category": "pottery", "price": -5,
		}, artisan)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListProducts_Visibility(t *testing.T) {
	s := newTestServer(t)
	artisan, artisanID := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	s.createProduct(artisan, map[string]interface{}{"name": "Draft Vase", "category": "pottery", "price": 40})
	s.createProduct(artisan, map[string]interface{}{"name": "Glazed Vase", "category": "pottery", "price": 80, "status": "active"})
	s.createProduct(artisan, map[string]interface{}{"name": "Silver Ring", "category": "jewelry", "price": 120, "status": "active"})

	t.Run("anonymous sees active only", func(t *testing.T) {
		rec := s.request(http.MethodGet, "/api/products?user_id="+artisanID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 2, body["total"])
		for _, item := range body["data"].([]interface{}) {
			assert.Equal(t, domain.ProductStatusActive, item.(map[string]interface{})["status"])
		}

		rec = s.request(http.MethodGet, "/api/products?status=draft", nil, "")
		assert.EqualValues(t, 0, decodeBody(t, rec)["total"])
	})

	t.Run("owner sees own drafts", func(t *testing.T) {
		rec := s.request(http.MethodGet, "/api/products?status=draft&user_id="+artisanID, nil, artisan)
		body := decodeBody(t, rec)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("search price filter and sort", func(t *testing.T) {
		rec := s.request(http.MethodGet, "/api/products?q=VASE", nil, "")
		assert.EqualValues(t, 1, decodeBody(t, rec)["total"])

		rec = s.request(http.MethodGet, "/api/products?user_id="+artisanID+"&min_price=100", nil, "")
		body := decodeBody(t, rec)
		require.EqualValues(t, 1, body["total"])
		assert.Equal(t, "Silver Ring", body["data"].([]interface{})[0].(map[string]interface{})["name"])

		rec = s.request(http.MethodGet, "/api/products?user_id="+artisanID+"&sort=price&order=asc", nil, "")
		items := decodeBody(t, rec)["data"].([]interface{})
		require.Len(t, items, 2)
		assert.Equal(t, "Glazed Vase", items[0].(map[string]interface{})["name"])

		rec = s.request(http.MethodGet, "/api/products?min_price=abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mine returns every status", func(t *testing.T) {
		rec := s.request(http.MethodGet, "/api/products/mine", nil, artisan)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decodeBody(t, rec)["total"])
		assert.Equal(t, 20, int(decodeBody(t, rec)["pageSize"].(float64)))
	})
}

func TestProductLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	other, _ := s.signup("Rival", "rival@example.com", domain.RoleArtisan)
	p := s.createProduct(owner, map[string]interface{}{"name": "Scarf", "category": "textiles", "price": 35})
	id := p["id"].(string)

	t.Run("drafts are hidden from others", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/products/"+id, nil, "").Code)
		assert.Equal(t, http.StatusOK, s.request(http.MethodGet, "/api/products/"+id, nil, owner).Code)
	})

	t.Run("only the owner edits", func(t *testing.T) {
		rec := s.request(http.MethodPut, "/api/products/"+id, map[string]interface{}{"price": 1}, other)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("publish then sell", func(t *testing.T) {
		rec := s.request(http.MethodPut, "/api/products/"+id, map[string]interface{}{"status": "active", "price": 30}, owner)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := dataOf(t, rec)
		assert.EqualValues(t, 30, data["price"])
		published := data["published_at"]
		assert.NotNil(t, published)

		rec = s.request(http.MethodPut, "/api/products/"+id, map[string]interface{}{"status": "sold"}, owner)
		data = dataOf(t, rec)
		assert.True(t, parseTime(t, published).Equal(parseTime(t, data["published_at"])))
		assert.NotNil(t, data["sold_at"])

		rec = s.request(http.MethodPut, "/api/products/"+id, map[string]interface{}{"status": "draft"}, owner)
		data = dataOf(t, rec)
		assert.Nil(t, data["published_at"])
		assert.Nil(t, data["sold_at"])
	})

	t.Run("admin may delete", func(t *testing.T) {
		admin := s.adminToken()
		assert.Equal(t, http.StatusForbidden, s.request(http.MethodDelete, "/api/products/"+id, nil, other).Code)
		assert.Equal(t, http.StatusOK, s.request(http.MethodDelete, "/api/products/"+id, nil, admin).Code)
		assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/products/"+id, nil, admin).Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.request(http.MethodGet, "/api/products/abc", nil, "").Code)
	})
}

func parseTime(t *testing.T, v interface{}) time.Time {
	t.Helper()
	s, isStr := v.(string)
	require.True(t, isStr, "%v is not a timestamp", v)
	ts, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return ts
}

func TestProductCounters(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	active := s.createProduct(owner, map[string]interface{}{"name": "Cup", "category": "pottery", "price": 10, "status": "active"})
	draft := s.createProduct(owner, map[string]interface{}{"name": "Plate", "category": "pottery", "price": 10})
	id := active["id"].(string)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, s.request(http.MethodPost, "/api/products/"+id+"/like", nil, "").Code)
	}
	rec := s.request(http.MethodPost, "/api/products/"+id+"/save", nil, "")
	assert.EqualValues(t, 1, dataOf(t, rec)["saves"])

	rec = s.request(http.MethodGet, "/api/products/"+id, nil, "")
	data := dataOf(t, rec)
	assert.EqualValues(t, 3, data["likes"])
	assert.EqualValues(t, 1, data["views"])

	rec = s.request(http.MethodPost, "/api/products/"+draft["id"].(string)+"/like", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportProducts(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup("Maker", "maker@example.com", domain.RoleArtisan)
	s.createProduct(owner, map[string]interface{}{"name": "Cup, large", "category": "pottery", "price": 10, "status": "active"})
	s.createProduct(owner, map[string]interface{}{"name": "Plate", "category": "pottery", "price": 12})

	rec := s.request(http.MethodGet, "/api/products/export?format=csv", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])

	rec = s.request(http.MethodGet, "/api/products/export?format=xlsx", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	rec = s.request(http.MethodGet, "/api/products/export?format=pdf", nil, owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductChecksStoredAccount(t *testing.T) {
	s := newTestServer(t)

	var fk int
	require.NoError(t, s.app.DB().Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)

	payload := map[string]interface{}{"name": "Ghost Mug", "category": "pottery", "price": 20}

	demoted, demotedID := s.signup("Former Maker", "former@example.com", domain.RoleArtisan)
	require.NoError(t, s.app.DB().Model(&domain.User{}).Where("id = ?", demotedID).Update("role", domain.RoleBuyer).Error)
	rec := s.request(http.MethodPost, "/api/products", payload, demoted)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	gone, goneID := s.signup("Gone", "gone@example.com", domain.RoleArtisan)
	require.NoError(t, s.app.DB().Where("id = ?", goneID).Delete(&domain.User{}).Error)
	rec = s.request(http.MethodPost, "/api/products", payload, gone)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, "USER_NOT_FOUND", decodeBody(t, rec)["code"])
}
