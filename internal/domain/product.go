package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProductStatusDraft  = "draft"
	ProductStatusActive = "active"
	ProductStatusSold   = "sold"
)

var ProductStatuses = []string{ProductStatusDraft, ProductStatusActive, ProductStatusSold}

// Product is an artisan's listing. The ai_* columns hold the generated listing
// copy as opaque JSON documents.
type Product struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID             int64          `gorm:"index;not null" json:"user_id,string"`
	Name               string         `gorm:"size:200;index" json:"name"`
	Category           string         `gorm:"size:50;index" json:"category"`
	Description        string         `gorm:"type:text" json:"description"`
	Price              float64        `json:"price"`
	Currency           string         `gorm:"size:8;default:USD" json:"currency"`
	Quantity           int            `json:"quantity"`
	Images             datatypes.JSON `json:"images"`
	Status             string         `gorm:"size:16;index;default:draft" json:"status"`
	PublishedAt        *time.Time     `json:"published_at"`
	SoldAt             *time.Time     `json:"sold_at"`
	AiTitle            datatypes.JSON `json:"ai_title"`
	AiShortDescription datatypes.JSON `json:"ai_short_description"`
	AiFeatures         datatypes.JSON `json:"ai_features"`
	AiSpecs            datatypes.JSON `json:"ai_specs"`
	AiTags             datatypes.JSON `json:"ai_tags"`
	AiStory            datatypes.JSON `json:"ai_story"`
	Views              int64          `gorm:"default:0" json:"views"`
	Likes              int64          `gorm:"default:0" json:"likes"`
	Saves              int64          `gorm:"default:0" json:"saves"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "products"
}

// ApplyStatus moves the product into status, stamping publish and sale times.
// A draft never carries a publish time.
func (p *Product) ApplyStatus(status string, now time.Time) {
	switch status {
	case ProductStatusDraft:
		p.PublishedAt = nil
		p.SoldAt = nil
	case ProductStatusActive:
		if p.PublishedAt == nil {
			p.PublishedAt = &now
		}
		p.SoldAt = nil
	case ProductStatusSold:
		if p.PublishedAt == nil {
			p.PublishedAt = &now
		}
		if p.SoldAt == nil {
			p.SoldAt = &now
		}
	}
	p.Status = status
}

// ProductCategory is a selectable listing category
type ProductCategory struct {
	ID        int64     `json:"id,string" form:"id"`
	Code      string    `gorm:"size:50;uniqueIndex" json:"code" form:"code"`
	Name      string    `gorm:"size:100" json:"name" form:"name"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (ProductCategory) TableName() string {
	return "product_category"
}
