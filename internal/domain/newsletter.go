package domain

import "time"

// NewsletterSubscription is a mailing list entry keyed by email
type NewsletterSubscription struct {
	ID             int64      `json:"id,string"`
	Email          string     `gorm:"size:191;uniqueIndex" json:"email"`
	Active         bool       `gorm:"index" json:"active"`
	Source         string     `gorm:"size:50" json:"source"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (NewsletterSubscription) TableName() string {
	return "newsletter_subscriptions"
}
