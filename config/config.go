package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web server config
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Secret        string `yaml:"secret"`
	SessionSecret string `yaml:"session_secret"`
	JwtTTLHours   int    `yaml:"jwt_ttl_hours"`
}

// LogConfig Logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// LLMConfig language model endpoint used by the listing generator and chat
type LLMConfig struct {
	Provider   string `yaml:"provider"` // openai (any compatible endpoint) or gemini
	ApiKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// MailConfig SMTP config, mail is disabled when Host is empty
type MailConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Passwd  string `yaml:"passwd"`
	From    string `yaml:"from"`
	Workers int    `yaml:"workers"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system" json:"system"`
	Web      WebConfig  `yaml:"web" json:"web"`
	Database DBConfig   `yaml:"database" json:"database"`
	Logger   LogConfig  `yaml:"logger" json:"logger"`
	LLM      LLMConfig  `yaml:"llm" json:"llm"`
	Mail     MailConfig `yaml:"mail" json:"mail"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o700)
	_ = os.MkdirAll(c.GetDataDir(), 0o700)
}

func (c *AppConfig) applyDefaults() {
	if c.System.Workdir == "" {
		c.System.Workdir = DefaultAppConfig().System.Workdir
	}
	if c.System.Location == "" {
		c.System.Location = "UTC"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 3000
	}
	if c.Web.JwtTTLHours <= 0 {
		c.Web.JwtTTLHours = 24 * 7
	}
	if c.Web.SessionSecret == "" {
		c.Web.SessionSecret = c.Web.Secret
	}
	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 30
	}
	if c.Mail.Workers <= 0 {
		c.Mail.Workers = 4
	}
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "ArtisanHub",
			Location: "UTC",
			Workdir:  "/var/artisanhub",
			Debug:    true,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          3000,
			Secret:        "9b6de5cc-0731-4b2c-8f4c-6d8e4a3f1e2a",
			SessionSecret: "f2a1c3d4-5e6f-4a7b-8c9d-0e1f2a3b4c5d",
			JwtTTLHours:   24 * 7,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "artisanhub",
			User:     "postgres",
			Passwd:   "myroot",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/artisanhub/logs/artisanhub.log",
		},
		LLM: LLMConfig{
			Provider:   "openai",
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			TimeoutSec: 30,
		},
		Mail: MailConfig{
			Port:    587,
			From:    "ArtisanHub <no-reply@artisanhub.local>",
			Workers: 4,
		},
	}
}

// LoadConfig reads the yaml config file, falling back to /etc/artisanhub.yml
// and then to the built-in defaults. Environment variables win over the file.
func LoadConfig(cfile string) (*AppConfig, error) {
	if cfile == "" {
		cfile = "artisanhub.yml"
	}
	if !fileExists(cfile) {
		cfile = "/etc/artisanhub.yml"
	}
	cfg := DefaultAppConfig()
	if fileExists(cfile) {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, err
		}
		cfg = new(AppConfig)
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// MustLoadConfig is LoadConfig for command entry points
func MustLoadConfig(cfile string) *AppConfig {
	cfg, err := LoadConfig(cfile)
	if err != nil {
		panic(err)
	}
	cfg.initDirs()
	return cfg
}

func (c *AppConfig) applyEnvOverrides() {
	setEnvValue("ARTISANHUB_SYSTEM_WORKER_DIR", &c.System.Workdir)
	setEnvValue("ARTISANHUB_SYSTEM_LOCATION", &c.System.Location)
	setEnvBoolValue("ARTISANHUB_SYSTEM_DEBUG", &c.System.Debug)

	setEnvValue("ARTISANHUB_WEB_HOST", &c.Web.Host)
	setEnvIntValue("ARTISANHUB_WEB_PORT", &c.Web.Port)
	setEnvValue("ARTISANHUB_WEB_SECRET", &c.Web.Secret)
	setEnvValue("ARTISANHUB_WEB_SESSION_SECRET", &c.Web.SessionSecret)
	setEnvIntValue("ARTISANHUB_WEB_JWT_TTL_HOURS", &c.Web.JwtTTLHours)

	setEnvValue("ARTISANHUB_DB_TYPE", &c.Database.Type)
	setEnvValue("ARTISANHUB_DB_HOST", &c.Database.Host)
	setEnvValue("ARTISANHUB_DB_NAME", &c.Database.Name)
	setEnvValue("ARTISANHUB_DB_USER", &c.Database.User)
	setEnvValue("ARTISANHUB_DB_PWD", &c.Database.Passwd)
	setEnvIntValue("ARTISANHUB_DB_PORT", &c.Database.Port)
	setEnvBoolValue("ARTISANHUB_DB_DEBUG", &c.Database.Debug)

	setEnvValue("ARTISANHUB_LOGGER_MODE", &c.Logger.Mode)
	setEnvBoolValue("ARTISANHUB_LOGGER_FILE_ENABLE", &c.Logger.FileEnable)

	setEnvValue("ARTISANHUB_LLM_PROVIDER", &c.LLM.Provider)
	setEnvValue("ARTISANHUB_LLM_API_KEY", &c.LLM.ApiKey)
	setEnvValue("ARTISANHUB_LLM_BASE_URL", &c.LLM.BaseURL)
	setEnvValue("ARTISANHUB_LLM_MODEL", &c.LLM.Model)
	setEnvIntValue("ARTISANHUB_LLM_TIMEOUT_SEC", &c.LLM.TimeoutSec)

	setEnvValue("ARTISANHUB_MAIL_HOST", &c.Mail.Host)
	setEnvIntValue("ARTISANHUB_MAIL_PORT", &c.Mail.Port)
	setEnvValue("ARTISANHUB_MAIL_USER", &c.Mail.User)
	setEnvValue("ARTISANHUB_MAIL_PWD", &c.Mail.Passwd)
	setEnvValue("ARTISANHUB_MAIL_FROM", &c.Mail.From)
}

func setEnvValue(name string, val *string) {
	if evalue := os.Getenv(name); evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	evalue := strings.TrimSpace(os.Getenv(name))
	if evalue == "" {
		return
	}
	if b, err := cast.ToBoolE(evalue); err == nil {
		*val = b
	}
}

func setEnvIntValue(name string, val *int) {
	evalue := strings.TrimSpace(os.Getenv(name))
	if evalue == "" {
		return
	}
	if i, err := cast.ToIntE(evalue); err == nil {
		*val = i
	}
}

func fileExists(file string) bool {
	info, err := os.Stat(file)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
