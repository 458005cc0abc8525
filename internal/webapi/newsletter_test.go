package webapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanhub/artisanhub/internal/domain"
)

func TestNewsletter(t *testing.T) {
	s := newTestServer(t)

	rec := s.request(http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "Reader@Example.com"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	assert.Equal(t, "reader@example.com", data["email"])
	assert.Equal(t, "website", data["source"])

	t.Run("active address conflicts", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "reader@example.com"}, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid address", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "reader"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/newsletter/unsubscribe", map[string]string{"email": "reader@example.com"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, dataOf(t, rec)["active"])

		rec = s.request(http.MethodPost, "/api/newsletter/unsubscribe", map[string]string{"email": "reader@example.com"}, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = s.request(http.MethodPost, "/api/newsletter/unsubscribe", map[string]string{"email": "stranger@example.com"}, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("resubscribe reactivates", func(t *testing.T) {
		rec := s.request(http.MethodPost, "/api/newsletter/subscribe", map[string]string{"email": "reader@example.com", "source": "footer"}, "")
		require.Equal(t, http.StatusCreated, rec.Code)
		data := dataOf(t, rec)
		assert.Equal(t, true, data["active"])
		assert.Nil(t, data["unsubscribed_at"])

		var count int64
		s.app.DB().Model(&domain.NewsletterSubscription{}).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("admin listing", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.request(http.MethodGet, "/api/newsletter/subscriptions", nil, "").Code)
		rec := s.request(http.MethodGet, "/api/newsletter/subscriptions?active=true", nil, s.adminToken())
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decodeBody(t, rec)["total"])
	})
}
