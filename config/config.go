package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"DeckCast/core/mix"
	"DeckCast/logger"
	"DeckCast/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 DECKCAST_HTTP_PORT
const EnvPrefix = "DECKCAST"

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("invalid config")

// Config 应用配置
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Mixing  MixingConfig  `mapstructure:"mixing"`
	Hub     HubConfig     `mapstructure:"hub"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// HTTPConfig 两个监听端口：HTTP 接入和 WebSocket 推送
type HTTPConfig struct {
	Bind    string `mapstructure:"bind"`
	Port    int    `mapstructure:"port"`
	WSPort  int    `mapstructure:"ws_port"`
	WebRoot string `mapstructure:"webroot"`
}

// MixingConfig 混音台相关配置
type MixingConfig struct {
	// DeckList 决定 songsOnAir 的顺序
	DeckList []string `mapstructure:"deck_list"`
	// Routes deck 到 channel 的映射，格式 "A:1,B:2"
	Routes            string `mapstructure:"routes"`
	VerboseEvents     bool   `mapstructure:"verbose_events"`
	SeedChannelsOnAir bool   `mapstructure:"seed_channels_on_air"`
	DefaultCover      string `mapstructure:"default_cover"`
}

// HubConfig 订阅者推送配置
type HubConfig struct {
	QueueSize    int           `mapstructure:"queue_size"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// RedisConfig 快照镜像，默认关闭
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// MetricsConfig Prometheus 配置
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.bind", "127.0.0.1")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.ws_port", 9090)
	v.SetDefault("http.webroot", "web")

	v.SetDefault("mixing.deck_list", []string{"A", "B", "C", "D"})
	v.SetDefault("mixing.routes", "A:1,B:2,C:3,D:4")
	v.SetDefault("mixing.verbose_events", false)
	v.SetDefault("mixing.seed_channels_on_air", true)
	v.SetDefault("mixing.default_cover", "")

	v.SetDefault("hub.queue_size", 64)
	v.SetDefault("hub.ping_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "deckcast")
	v.SetDefault("redis.snapshot_ttl", 10*time.Minute)

	v.SetDefault("metrics.enabled", true)
}

// Load 读取配置：.env -> 默认值 -> 配置文件 -> DECKCAST_ 环境变量
// path 为空时在当前目录查找 config.{toml,yaml,json}，找不到则只用默认值和环境变量
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验端口、deck 列表、路由表
func (c *Config) Validate() error {
	if err := validPort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if err := validPort("http.ws_port", c.HTTP.WSPort); err != nil {
		return err
	}
	if c.HTTP.Port == c.HTTP.WSPort {
		return fmt.Errorf("%w: http.port and http.ws_port must differ", ErrInvalid)
	}
	if c.Hub.QueueSize <= 0 {
		return fmt.Errorf("%w: hub.queue_size must be positive", ErrInvalid)
	}
	if c.Hub.PingInterval < 0 {
		return fmt.Errorf("%w: hub.ping_interval must not be negative", ErrInvalid)
	}
	if c.Redis.Enabled {
		if err := validPort("redis.port", c.Redis.Port); err != nil {
			return err
		}
	}

	if len(c.Mixing.DeckList) == 0 {
		return fmt.Errorf("%w: mixing.deck_list is empty", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(c.Mixing.DeckList))
	for _, d := range c.Mixing.DeckList {
		if d == "" {
			return fmt.Errorf("%w: empty deck label in mixing.deck_list", ErrInvalid)
		}
		if _, dup := seen[d]; dup {
			return fmt.Errorf("%w: duplicate deck %q in mixing.deck_list", ErrInvalid, d)
		}
		seen[d] = struct{}{}
	}

	if _, err := ParseRoutes(c.Mixing.Routes); err != nil {
		return err
	}
	return nil
}

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %s %d out of range", ErrInvalid, name, port)
	}
	return nil
}

// ParseRoutes 解析 "A:1,B:2" 形式的 deck -> channel 映射
func ParseRoutes(s string) (map[string]int, error) {
	routes := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		deck, ch, ok := strings.Cut(part, ":")
		deck = strings.TrimSpace(deck)
		if !ok || deck == "" {
			return nil, fmt.Errorf("%w: route %q, want DECK:CHANNEL", ErrInvalid, part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(ch))
		if err != nil {
			return nil, fmt.Errorf("%w: route %q: %v", ErrInvalid, part, err)
		}
		if n < model.MinChannel || n > model.MaxChannel {
			return nil, fmt.Errorf("%w: route %q: channel out of range %d..%d", ErrInvalid, part, model.MinChannel, model.MaxChannel)
		}
		if _, dup := routes[deck]; dup {
			return nil, fmt.Errorf("%w: deck %q routed twice", ErrInvalid, deck)
		}
		routes[deck] = n
	}
	return routes, nil
}

// RoutingTable 根据配置构造只读路由表
func (c *Config) RoutingTable() (mix.RoutingTable, error) {
	routes, err := ParseRoutes(c.Mixing.Routes)
	if err != nil {
		return mix.RoutingTable{}, err
	}
	return mix.NewRoutingTable(c.Mixing.DeckList, routes), nil
}

// LoggerConfig 转换为 logger 包的配置
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      logger.LogLevel(c.Log.Level),
		OutputPath: c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// RedisAddr host:port
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// HTTPAddr 接入监听地址
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Bind, c.HTTP.Port)
}

// WSAddr 推送监听地址
func (c *Config) WSAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Bind, c.HTTP.WSPort)
}
