package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/artisanhub/artisanhub/config"
	"github.com/artisanhub/artisanhub/internal/chat"
	"github.com/artisanhub/artisanhub/internal/events"
	"github.com/artisanhub/artisanhub/internal/listing"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// BusProvider provides the in-process event bus
type BusProvider interface {
	Bus() EventBus.Bus
	Publish(topic string, args ...interface{})
}

// EventStoreProvider provides the in-memory event catalogue
type EventStoreProvider interface {
	EventStore() *events.Store
}

// GeneratorProvider provides the AI listing generator
type GeneratorProvider interface {
	Generator() *listing.Generator
}

// AssistantProvider provides the chat widget assistant
type AssistantProvider interface {
	Assistant() *chat.Assistant
}

// AppContext combines all provider interfaces for full application context
// Handlers should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	BusProvider
	EventStoreProvider
	GeneratorProvider
	AssistantProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// Jobs lists the registered background jobs
	Jobs() []JobInfo
	// RunJobNow triggers a registered background job immediately by name
	RunJobNow(name string) error
	// AddAuditLog records a security relevant action
	AddAuditLog(actor, ip, action, detail string)
}
