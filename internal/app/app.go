package app

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/artisanhub/artisanhub/config"
	"github.com/artisanhub/artisanhub/internal/chat"
	"github.com/artisanhub/artisanhub/internal/domain"
	"github.com/artisanhub/artisanhub/internal/events"
	"github.com/artisanhub/artisanhub/internal/listing"
	"github.com/artisanhub/artisanhub/internal/mailer"
	"github.com/artisanhub/artisanhub/pkg/metrics"
)

type Application struct {
	appConfig  *config.AppConfig
	gormDB     *gorm.DB
	sched      *cron.Cron
	bus        EventBus.Bus
	eventStore *events.Store
	generator  *listing.Generator
	assistant  *chat.Assistant
	mailer     *mailer.Mailer
	jobsMu     sync.RWMutex
	jobs       map[string]*jobEntry
}

// Ensure Application implements all interfaces
var (
	_ DBProvider         = (*Application)(nil)
	_ ConfigProvider     = (*Application)(nil)
	_ SchedulerProvider  = (*Application)(nil)
	_ BusProvider        = (*Application)(nil)
	_ EventStoreProvider = (*Application)(nil)
	_ GeneratorProvider  = (*Application)(nil)
	_ AssistantProvider  = (*Application)(nil)
	_ AppContext         = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{
		appConfig: appConfig,
		bus:       EventBus.New(),
		jobs:      make(map[string]*jobEntry),
	}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

func (a *Application) EventStore() *events.Store {
	return a.eventStore
}

func (a *Application) Generator() *listing.Generator {
	return a.generator
}

func (a *Application) Assistant() *chat.Assistant {
	return a.assistant
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	var err error
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// Init sets up logging, storage and services, then starts the cron jobs
func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	db, err := getDatabase(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.Setup(db); err != nil {
		return err
	}
	a.initJob()
	return nil
}

// Setup migrates the schema, builds the services and seeds defaults on db.
// It does not start background jobs.
func (a *Application) Setup(db *gorm.DB) error {
	a.gormDB = db

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
		return err
	}

	llm, err := listing.NewCompleter(context.Background(), a.appConfig.LLM)
	if err != nil {
		zap.L().Warn("language model disabled", zap.Error(err))
		llm = nil
	}
	timeout := time.Duration(a.appConfig.LLM.TimeoutSec) * time.Second
	if llm != nil {
		a.generator = listing.NewGenerator(llm, timeout)
		a.assistant = chat.NewAssistant(llm, timeout)
		zap.L().Info("language model enabled", zap.String("model", llm.Name()))
	} else {
		a.generator = listing.NewGenerator(nil, timeout)
		a.assistant = chat.NewAssistant(nil, timeout)
	}

	a.mailer, err = mailer.New(a.appConfig.Mail, a.appURL())
	if err != nil {
		return err
	}
	if err := a.mailer.Subscribe(a.bus); err != nil {
		return err
	}
	if err := a.subscribeAudit(); err != nil {
		return err
	}

	a.eventStore = events.NewStore()

	a.registerJobs()

	a.checkSuper()
	a.checkCategories()
	a.checkEvents()
	if a.appConfig.System.Debug {
		a.checkDemoProducts()
	}
	return nil
}

func (a *Application) appURL() string {
	host := a.appConfig.Web.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, a.appConfig.Web.Port)
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	if err := db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
		return err
	}
	return nil
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	err := a.gormDB.Migrator().AutoMigrate(domain.Tables...)
	if err != nil {
		zap.S().Error(err)
	}
}

// Publish sends a message on the application bus
func (a *Application) Publish(topic string, args ...interface{}) {
	a.bus.Publish(topic, args...)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.mailer != nil {
		a.mailer.Close()
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
