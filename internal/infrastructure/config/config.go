package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"oee-monitor/internal/domain/oee"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 HTTP API、OEE 計算與外部相依的執行設定。
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	DB          DBConfig          `yaml:"db"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	OEE         OEEConfig         `yaml:"oee"`
	Realtime    RealtimeConfig    `yaml:"realtime"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Notifier    NotifierConfig    `yaml:"notifier"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
	// ConnectTimeout 為啟動時重試連線的總時間上限。
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	// Disabled 為 true 時略過 API 權限檢查，僅供本機開發。
	Disabled bool `yaml:"disabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// OEEConfig 為班別與計畫運轉時間政策。
type OEEConfig struct {
	DayStartHour *int    `yaml:"day_start_hour"`
	ShiftHours   float64 `yaml:"shift_hours"`
	BreakMinutes float64 `yaml:"break_minutes"`
	RunningState string  `yaml:"running_state"`
	Timezone     string  `yaml:"timezone"`
}

type RealtimeConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	Bucket        time.Duration `yaml:"bucket"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig 設定共享快取；Addr 為空時使用本機快取。
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type AggregationConfig struct {
	// AutoInterval 為 0 時不啟動背景彙總，改由外部排程呼叫。
	AutoInterval    time.Duration `yaml:"auto_interval"`
	MaxBackfillDays int           `yaml:"max_backfill_days"`
}

type NotifierConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.DB.ConnectTimeout == 0 {
		cfg.DB.ConnectTimeout = 30 * time.Second
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "dev-secret-change-me"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "oee-monitor"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.OEE.DayStartHour == nil {
		h := oee.DefaultDayStartHour
		cfg.OEE.DayStartHour = &h
	}
	if cfg.OEE.ShiftHours == 0 {
		cfg.OEE.ShiftHours = oee.DefaultShiftHours
	}
	if cfg.OEE.BreakMinutes == 0 {
		cfg.OEE.BreakMinutes = oee.DefaultBreakMinutes
	}
	if cfg.OEE.RunningState == "" {
		cfg.OEE.RunningState = string(oee.StateRunning)
	}
	if cfg.OEE.Timezone == "" {
		cfg.OEE.Timezone = "Asia/Taipei"
	}
	if cfg.Realtime.TTL == 0 {
		cfg.Realtime.TTL = 10 * time.Second
	}
	if cfg.Realtime.Bucket == 0 {
		cfg.Realtime.Bucket = 10 * time.Second
	}
	if cfg.Realtime.SweepInterval == 0 {
		cfg.Realtime.SweepInterval = time.Minute
	}
	if cfg.Realtime.Redis.KeyPrefix == "" {
		cfg.Realtime.Redis.KeyPrefix = "oee:realtime"
	}
	if cfg.Aggregation.MaxBackfillDays == 0 {
		cfg.Aggregation.MaxBackfillDays = 31
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("AUTH_DISABLED"); val != "" {
		cfg.Auth.Disabled = (val == "true")
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("OEE_TIMEZONE"); val != "" {
		cfg.OEE.Timezone = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Realtime.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Realtime.Redis.Password = val
	}
	if val := os.Getenv("AGGREGATION_AUTO_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Aggregation.AutoInterval = d
		}
	}
	if val := os.Getenv("TELEGRAM_TOKEN"); val != "" {
		cfg.Notifier.Telegram.Token = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		if id, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Notifier.Telegram.ChatID = id
		}
	}
	if val := os.Getenv("TELEGRAM_ENABLED"); val != "" {
		cfg.Notifier.Telegram.Enabled = (val == "true")
	}
	return cfg
}

// Resolver 依時區與日班起始時刻建立班別解析器。
func (c OEEConfig) Resolver() (*oee.ShiftResolver, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	hour := oee.DefaultDayStartHour
	if c.DayStartHour != nil {
		hour = *c.DayStartHour
	}
	return oee.NewShiftResolver(loc, hour)
}

// Policy 回傳計畫運轉時間政策。
func (c OEEConfig) Policy() oee.Policy {
	p := oee.DefaultPolicy()
	if c.ShiftHours > 0 {
		p.ShiftHours = c.ShiftHours
	}
	if c.BreakMinutes > 0 {
		p.BreakMinutes = c.BreakMinutes
	}
	if c.RunningState != "" {
		p.RunningState = oee.MachineState(c.RunningState)
	}
	return p
}
