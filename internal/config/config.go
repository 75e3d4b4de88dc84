// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек всех бинарников.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	Telegram                `yaml:"telegram"`
	Panel                   `yaml:"panel"`
	Provision               `yaml:"provision"`
	Schedule                `yaml:"schedule"`
	Brand                   `yaml:"brand"`
	Plans                   []PlanConfig `yaml:"plans"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeout" env-default:"3s"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Telegram структура с реквизитами Bot API и списками администраторов.
type Telegram struct {
	BotToken      string  `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	WebhookSecret string  `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET"`
	AdminIDs      []int64 `yaml:"admin_ids"`
	AdminNotify   []int64 `yaml:"admin_notify_ids"`
}

// Panel структура с адресами и ключом внешней панели подписок.
type Panel struct {
	BaseURL        string        `yaml:"base_url"`
	AdminProxyPath string        `yaml:"admin_proxy_path"`
	UserProxyPath  string        `yaml:"user_proxy_path"`
	APIKey         string        `yaml:"api_key" env:"PANEL_API_KEY"`
	ForceLongSub   bool          `yaml:"force_long_sub" env-default:"true"`
	Timeout        time.Duration `yaml:"timeout" env-default:"20s"`
}

// Provision структура с настройками стратегий выдачи подписки.
type Provision struct {
	BridgeURL      string        `yaml:"bridge_url"`
	BridgeToken    string        `yaml:"bridge_token"`
	CommandTmpl    string        `yaml:"command"`
	CommandTimeout time.Duration `yaml:"command_timeout" env-default:"60s"`
	SubLinkDomain  string        `yaml:"sub_link_domain"`
}

// Schedule структура с cron-выражениями фоновых задач. Все расписания в UTC.
type Schedule struct {
	ReminderCron string `yaml:"reminder_cron" env-default:"0 10 * * *"`
	SuspendCron  string `yaml:"suspend_cron" env-default:"0 * * * *"`
	ReminderDays []int  `yaml:"reminder_days"`
}

// Brand структура с текстовыми реквизитами сервиса.
type Brand struct {
	BusinessName   string `yaml:"business_name" env-default:"VPN Bot"`
	ServerLocation string `yaml:"server_location" env-default:"Netherlands"`
	SupportTG      string `yaml:"support_tg"`
	SupportEmail   string `yaml:"support_email"`
	DisplayPrefix  string `yaml:"display_prefix" env-default:"tg-"`
}

// PlanConfig описывает один тариф из каталога. Поля валидируются при загрузке.
type PlanConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Days      int    `yaml:"days" validate:"required,gt=0"`
	TrafficGB int    `yaml:"traffic_gb" validate:"required,gt=0"`
	Devices   int    `yaml:"devices" validate:"required,gt=0"`
	Price     int    `yaml:"price" validate:"required,gt=0"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной окружения CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if cfg.BotToken == "" {
		log.Fatal("telegram bot token is not set")
	}
	if cfg.WebhookSecret == "" {
		log.Fatal("telegram webhook secret is not set")
	}
	validate := validator.New()
	for _, p := range cfg.Plans {
		if err := validate.Struct(p); err != nil {
			log.Fatalf("invalid plan %q in config: %s", p.Name, err)
		}
	}
	if len(cfg.ReminderDays) == 0 {
		cfg.ReminderDays = []int{3, 0}
	}
	return &cfg
}

// PanelConfigured сообщает, достаточно ли настроек для обращения к панели.
func (c *Config) PanelConfigured() bool {
	return c.Panel.BaseURL != "" && c.Panel.AdminProxyPath != "" &&
		c.Panel.UserProxyPath != "" && c.Panel.APIKey != ""
}

// AdminBase возвращает базовый адрес админского API панели.
func (c *Config) AdminBase() string {
	return strings.TrimRight(c.Panel.BaseURL, "/") + "/" + strings.Trim(c.Panel.AdminProxyPath, "/")
}

// UserBase возвращает базовый адрес пользовательских ссылок панели.
func (c *Config) UserBase() string {
	return strings.TrimRight(c.Panel.BaseURL, "/") + "/" + strings.Trim(c.Panel.UserProxyPath, "/")
}
