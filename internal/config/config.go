package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	WSPort         int      `mapstructure:"ws_port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Store drivers
const (
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	MachineId uint16 `mapstructure:"machine_id"`
}

// MySQLConfig holds MySQL configuration
type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// DSN returns the MySQL data source name
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds the secret shared with the host application that issues tokens
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	MaxConnNum       int64         `mapstructure:"max_conn_num"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	PongWait         time.Duration `mapstructure:"pong_wait"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	PushChannelSize  int           `mapstructure:"push_channel_size"`
	PushShardNum     int           `mapstructure:"push_shard_num"`
	WriteChannelSize int           `mapstructure:"write_channel_size"`
	IntentRPS        float64       `mapstructure:"intent_rps"`
	IntentBurst      int           `mapstructure:"intent_burst"`
}

// ChatConfig holds chat core tunables
type ChatConfig struct {
	TypingTTL           time.Duration `mapstructure:"typing_ttl"`
	TypingSweepInterval time.Duration `mapstructure:"typing_sweep_interval"`
	HistoryPageSize     int           `mapstructure:"history_page_size"`
	MaxHistoryPageSize  int           `mapstructure:"max_history_page_size"`
	MaxContentLength    int           `mapstructure:"max_content_length"`
	MaxEmojiLength      int           `mapstructure:"max_emoji_length"`
	LockWait            time.Duration `mapstructure:"lock_wait"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
}

// Notify drivers
const (
	NotifyDriverRedis = "redis"
	NotifyDriverLog   = "log"
	NotifyDriverNone  = "none"
)

// NotifyConfig holds offline notification trigger configuration
type NotifyConfig struct {
	Driver    string `mapstructure:"driver"`
	Channel   string `mapstructure:"channel"`
	QueueSize int    `mapstructure:"queue_size"`
}

// Global config instance
var GlobalConfig *Config

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BUILDINGCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

// Default returns a config with every default applied, used by tests and the memory store
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values
func (cfg *Config) SetDefaults() {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.WSPort == 0 {
		cfg.Server.WSPort = cfg.Server.HTTPPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreDriverMySQL
	}
	if cfg.Store.MachineId == 0 {
		cfg.Store.MachineId = 1
	}
	if cfg.MySQL.Charset == "" {
		cfg.MySQL.Charset = "utf8mb4"
	}
	if cfg.MySQL.MaxOpenConns == 0 {
		cfg.MySQL.MaxOpenConns = 100
	}
	if cfg.MySQL.MaxIdleConns == 0 {
		cfg.MySQL.MaxIdleConns = 10
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "buildingchat:"
	}
	if cfg.WebSocket.MaxConnNum == 0 {
		cfg.WebSocket.MaxConnNum = 10000
	}
	if cfg.WebSocket.MaxMessageSize == 0 {
		cfg.WebSocket.MaxMessageSize = 51200
	}
	if cfg.WebSocket.WriteWait == 0 {
		cfg.WebSocket.WriteWait = 10 * time.Second
	}
	if cfg.WebSocket.PongWait == 0 {
		cfg.WebSocket.PongWait = 30 * time.Second
	}
	if cfg.WebSocket.PingPeriod == 0 {
		cfg.WebSocket.PingPeriod = (cfg.WebSocket.PongWait * 9) / 10
	}
	if cfg.WebSocket.PushChannelSize == 0 {
		cfg.WebSocket.PushChannelSize = 1024
	}
	if cfg.WebSocket.PushShardNum == 0 {
		cfg.WebSocket.PushShardNum = 16
	}
	if cfg.WebSocket.WriteChannelSize == 0 {
		cfg.WebSocket.WriteChannelSize = 256
	}
	if cfg.WebSocket.IntentRPS == 0 {
		cfg.WebSocket.IntentRPS = 20
	}
	if cfg.WebSocket.IntentBurst == 0 {
		cfg.WebSocket.IntentBurst = 40
	}
	if cfg.Chat.TypingTTL == 0 {
		cfg.Chat.TypingTTL = 5 * time.Second
	}
	if cfg.Chat.TypingSweepInterval == 0 {
		cfg.Chat.TypingSweepInterval = time.Second
	}
	if cfg.Chat.HistoryPageSize == 0 {
		cfg.Chat.HistoryPageSize = 50
	}
	if cfg.Chat.MaxHistoryPageSize == 0 {
		cfg.Chat.MaxHistoryPageSize = 100
	}
	if cfg.Chat.MaxContentLength == 0 {
		cfg.Chat.MaxContentLength = 5000
	}
	if cfg.Chat.MaxEmojiLength == 0 {
		cfg.Chat.MaxEmojiLength = 32
	}
	if cfg.Chat.LockWait == 0 {
		cfg.Chat.LockWait = 250 * time.Millisecond
	}
	if cfg.Chat.RetryAttempts == 0 {
		cfg.Chat.RetryAttempts = 3
	}
	if cfg.Chat.RetryBackoff == 0 {
		cfg.Chat.RetryBackoff = 20 * time.Millisecond
	}
	if cfg.Notify.Driver == "" {
		cfg.Notify.Driver = NotifyDriverLog
	}
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = "notify"
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 1024
	}
}
