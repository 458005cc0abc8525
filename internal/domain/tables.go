package domain

var Tables = []interface{}{
	// System
	&SysAuditLog{},
	// Marketplace
	&User{},
	&ProductCategory{},
	&Product{},
	&NewsletterSubscription{},
}
