package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string       `mapstructure:"mode"`
	Port       int          `mapstructure:"port"`
	StaticPath string       `mapstructure:"static_path"`
	Secret     string       `mapstructure:"secret"`
	WS         WSConfig     `mapstructure:"ws"`
	Signal     SignalConfig `mapstructure:"signal"`
	Bot        BotConfig    `mapstructure:"bot"`
	LLM        LLMConfig    `mapstructure:"llm"`
	Redis      RedisConfig  `mapstructure:"redis"`
	ICE        ICEConfig    `mapstructure:"ice"`
	Log        LogConfig    `mapstructure:"log"`
}

type WSConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	SendBuffer int           `mapstructure:"send_buffer"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
}

type SignalConfig struct {
	StrictRooms  bool   `mapstructure:"strict_rooms"`
	Backpressure string `mapstructure:"backpressure"`
}

type BotConfig struct {
	Persona      string        `mapstructure:"persona"`
	Fallback     string        `mapstructure:"fallback"`
	HistoryCap   int           `mapstructure:"history_cap"`
	MaxPending   int           `mapstructure:"max_pending"`
	Timeout      time.Duration `mapstructure:"timeout"`
	IdleTTL      time.Duration `mapstructure:"idle_ttl"`
	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
	Store        string        `mapstructure:"store"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type ICEConfig struct {
	Servers []ICEServer `mapstructure:"servers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const DefaultPersona = "You are Mia, a friendly sales assistant in a 3D virtual mall. " +
	"Help visitors find shops and products, keep answers short and conversational, " +
	"and never invent prices or stock you were not told about."

const DefaultFallback = "Sorry, I'm having trouble answering right now. Please try again in a moment."

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an
// error; environment variables override both.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")

	v.SetDefault("ws.read_limit", 65536)
	v.SetDefault("ws.send_buffer", 32)
	v.SetDefault("ws.ping_period", "30s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "10s")

	v.SetDefault("signal.strict_rooms", true)
	v.SetDefault("signal.backpressure", "kick")

	v.SetDefault("bot.persona", DefaultPersona)
	v.SetDefault("bot.fallback", DefaultFallback)
	v.SetDefault("bot.history_cap", 20)
	v.SetDefault("bot.max_pending", 8)
	v.SetDefault("bot.timeout", "30s")
	v.SetDefault("bot.idle_ttl", "1h")
	v.SetDefault("bot.rate_limit", 10)
	v.SetDefault("bot.rate_interval", "1m")
	v.SetDefault("bot.store", StoreMemory)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 300)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mall:conversation")

	v.SetDefault("ice.servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
