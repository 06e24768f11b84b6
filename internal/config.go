package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// 儲存驅動
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config 整個應用的配置
type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Game struct {
		Rooms         int           `yaml:"rooms"`
		ChatMaxLength int           `yaml:"chat_max_length"`
		OpTimeout     time.Duration `yaml:"op_timeout"`
	} `yaml:"game"`

	WebSocket struct {
		PingInterval   time.Duration `yaml:"ping_interval"`
		PongWait       time.Duration `yaml:"pong_wait"`
		WriteWait      time.Duration `yaml:"write_wait"`
		MaxMessageSize int64         `yaml:"max_message_size"`
		SendBuffer     int           `yaml:"send_buffer"`
	} `yaml:"websocket"`

	Store struct {
		Driver string `yaml:"driver"` // "memory" 或 "redis"
	} `yaml:"store"`

	Redis struct {
		URL          string        `yaml:"url"` // 設定後覆蓋 addr/password/db
		Addr         string        `yaml:"addr"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		MaxRetries   int           `yaml:"max_retries"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		KeyPrefix    string        `yaml:"key_prefix"`
		TTL          time.Duration `yaml:"ttl"`
		TxRetries    int           `yaml:"tx_retries"`
	} `yaml:"redis"`

	NATS struct {
		URL     string `yaml:"url"` // 空字串表示單機模式
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig 預設配置
func DefaultConfig() *Config {
	c := &Config{}

	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 30 * time.Second

	game := DefaultManagerConfig()
	c.Game.Rooms = game.Rooms
	c.Game.ChatMaxLength = game.ChatMaxLength
	c.Game.OpTimeout = game.OpTimeout

	ws := DefaultHubConfig()
	c.WebSocket.PingInterval = ws.PingInterval
	c.WebSocket.PongWait = ws.PongWait
	c.WebSocket.WriteWait = ws.WriteWait
	c.WebSocket.MaxMessageSize = ws.MaxMessageSize
	c.WebSocket.SendBuffer = ws.SendBuffer

	c.Store.Driver = StoreMemory

	c.Redis.Addr = "localhost:6379"
	c.Redis.PoolSize = 20
	c.Redis.MinIdleConns = 2
	c.Redis.MaxRetries = 3
	c.Redis.ReadTimeout = 3 * time.Second
	c.Redis.WriteTimeout = 3 * time.Second
	c.Redis.KeyPrefix = "battleship:"
	c.Redis.TTL = 6 * time.Hour
	c.Redis.TxRetries = 10

	c.NATS.Subject = "battleship.deliveries"

	c.Log.Level = "info"
	c.Log.Format = "text"
	return c
}

// LoadConfig 讀取 YAML 並覆蓋預設值；path 為空時只用預設值
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	// #nosec G304 - path 來自啟動參數
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

// ApplyEnv 環境變數覆蓋（容器部署常用）
//
//	PORT       監聽埠
//	REDIS_URL  設定後切換為 Redis 儲存
//	NATS_URL   設定後啟用跨行程廣播
//	LOG_LEVEL  日誌級別
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
		c.Store.Driver = StoreRedis
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate 檢查配置
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Game.Rooms <= 0 {
		errs = append(errs, fmt.Errorf("game.rooms must be positive: %d", c.Game.Rooms))
	}
	if c.Game.ChatMaxLength <= 0 {
		errs = append(errs, fmt.Errorf("game.chat_max_length must be positive: %d", c.Game.ChatMaxLength))
	}
	if c.WebSocket.PongWait <= c.WebSocket.PingInterval {
		errs = append(errs, errors.New("websocket.pong_wait must exceed websocket.ping_interval"))
	}

	switch c.Store.Driver {
	case StoreMemory:
		if c.NATS.URL != "" {
			errs = append(errs, errors.New("nats requires the redis store: memory rooms are not shared between instances"))
		}
	case StoreRedis:
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis store requires redis.url or redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	return errors.Join(errs...)
}

// RedisOptions 組出 go-redis 連線設定
func (c *Config) RedisOptions() (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
	if c.Redis.URL != "" {
		parsed, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	opts.PoolSize = c.Redis.PoolSize
	opts.MinIdleConns = c.Redis.MinIdleConns
	opts.MaxRetries = c.Redis.MaxRetries
	opts.ReadTimeout = c.Redis.ReadTimeout
	opts.WriteTimeout = c.Redis.WriteTimeout
	return opts, nil
}

// ManagerConfig 遊戲設定
func (c *Config) ManagerConfig() ManagerConfig {
	return ManagerConfig{
		Rooms:         c.Game.Rooms,
		ChatMaxLength: c.Game.ChatMaxLength,
		OpTimeout:     c.Game.OpTimeout,
	}
}

// HubConfig WebSocket 設定
func (c *Config) HubConfig() HubConfig {
	return HubConfig{
		PingInterval:   c.WebSocket.PingInterval,
		PongWait:       c.WebSocket.PongWait,
		WriteWait:      c.WebSocket.WriteWait,
		MaxMessageSize: c.WebSocket.MaxMessageSize,
		SendBuffer:     c.WebSocket.SendBuffer,
	}
}

// RedisStoreConfig Redis 儲存設定
func (c *Config) RedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Rooms:      c.Game.Rooms,
		KeyPrefix:  c.Redis.KeyPrefix,
		TTL:        c.Redis.TTL,
		MaxRetries: c.Redis.TxRetries,
	}
}

// NATSBusConfig NATS 設定
func (c *Config) NATSBusConfig() NATSBusConfig {
	return NATSBusConfig{
		URL:     c.NATS.URL,
		Subject: c.NATS.Subject,
	}
}
