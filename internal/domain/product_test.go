package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProductApplyStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p := &Product{}
	p.ApplyStatus(ProductStatusDraft, now)
	assert.Equal(t, ProductStatusDraft, p.Status)
	assert.Nil(t, p.PublishedAt)

	p.ApplyStatus(ProductStatusActive, now)
	if assert.NotNil(t, p.PublishedAt) {
		assert.Equal(t, now, *p.PublishedAt)
	}

	// publish time is kept across later transitions
	later := now.Add(time.Hour)
	p.ApplyStatus(ProductStatusSold, later)
	assert.Equal(t, now, *p.PublishedAt)
	if assert.NotNil(t, p.SoldAt) {
		assert.Equal(t, later, *p.SoldAt)
	}

	p.ApplyStatus(ProductStatusDraft, later)
	assert.Nil(t, p.PublishedAt)
	assert.Nil(t, p.SoldAt)
}

func TestEventCapacity(t *testing.T) {
	now := time.Now()
	e := &Event{Capacity: 2, Registered: 3, StartAt: now.Add(-2 * time.Hour)}
	assert.Equal(t, 0, e.SpotsLeft())
	assert.True(t, e.Ended(now))

	e.EndAt = now.Add(time.Hour)
	assert.False(t, e.Ended(now))

	open := &Event{Capacity: 0, Registered: 40}
	assert.True(t, open.Unlimited())
	assert.Equal(t, -1, open.SpotsLeft())
}

func TestUserRoles(t *testing.T) {
	assert.True(t, (&User{Role: RoleArtisan}).CanSell())
	assert.True(t, (&User{Role: RoleAdmin}).CanSell())
	assert.False(t, (&User{Role: RoleBuyer}).CanSell())
	assert.NotContains(t, PublicRoles, RoleAdmin)
}
