package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	PublicDir       string        `mapstructure:"public_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", s.Port)
}

type StreamConfig struct {
	KeepAlive time.Duration `mapstructure:"keep_alive"`
}

type RegistryConfig struct {
	// events buffered per subscriber before the oldest is dropped
	Capacity      int           `mapstructure:"capacity"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type PipelineConfig struct {
	MaxAudioBytes int64  `mapstructure:"max_audio_bytes"`
	SystemPrompt  string `mapstructure:"system_prompt"`
	// "memory" or "redis"
	Guard    string        `mapstructure:"guard"`
	GuardTTL time.Duration `mapstructure:"guard_ttl"`
}

type AssistantConfig struct {
	OpenAiApiKey   string        `mapstructure:"open_ai_api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	ChatProvider   string        `mapstructure:"chat_provider"` // openai | ollama | gemini
	ChatModel      string        `mapstructure:"chat_model"`
	Transcriber    string        `mapstructure:"transcriber"` // openai | whisper
	Synthesizer    string        `mapstructure:"synthesizer"` // openai | piper
	SpeechModel    string        `mapstructure:"speech_model"`
	Voice          string        `mapstructure:"voice"`
	ImageModel     string        `mapstructure:"image_model"`
	ImageSize      string        `mapstructure:"image_size"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type OllamaConfig struct {
	Url   string   `mapstructure:"url"`
	Model string   `mapstructure:"model"`
	// extra servers; when set, requests go to the first one online
	Urls  []string `mapstructure:"urls"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type WhisperConfig struct {
	Url      string `mapstructure:"url"`
	Language string `mapstructure:"language"`
}

type PiperConfig struct {
	Url   string `mapstructure:"url"`
	Voice string `mapstructure:"voice"`
}

type ArtifactsConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
	Extension string `mapstructure:"extension"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Pass    string `mapstructure:"pass"`
	DB      int    `mapstructure:"db"`
}

type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TraceStdout bool   `mapstructure:"trace_stdout"`
}

type Settings struct {
	Server    ServerConfig    `mapstructure:"server"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Whisper   WhisperConfig   `mapstructure:"whisper"`
	Piper     PiperConfig     `mapstructure:"piper"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Redis     RedisConfig     `mapstructure:"redis"`
	DB        DBConfig        `mapstructure:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Env       string          `mapstructure:"env"`
	Debug     bool            `mapstructure:"debug"`
}

const DefaultSystemPrompt = "I can choose the right function for you."

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_dir", "public")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("stream.keep_alive", time.Second)

	v.SetDefault("registry.capacity", 128)
	v.SetDefault("registry.idle_ttl", 5*time.Minute)
	v.SetDefault("registry.sweep_interval", time.Minute)

	v.SetDefault("pipeline.max_audio_bytes", 25<<20)
	v.SetDefault("pipeline.system_prompt", DefaultSystemPrompt)
	v.SetDefault("pipeline.guard", "memory")
	v.SetDefault("pipeline.guard_ttl", 2*time.Minute)

	v.SetDefault("assistant.base_url", "https://api.openai.com/v1")
	v.SetDefault("assistant.chat_provider", "openai")
	v.SetDefault("assistant.chat_model", "gpt-4o-mini")
	v.SetDefault("assistant.transcriber", "openai")
	v.SetDefault("assistant.synthesizer", "openai")
	v.SetDefault("assistant.speech_model", "tts-1")
	v.SetDefault("assistant.voice", "alloy")
	v.SetDefault("assistant.image_model", "dall-e-3")
	v.SetDefault("assistant.image_size", "1024x1024")
	v.SetDefault("assistant.request_timeout", 60*time.Second)

	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.1:8b")
	v.SetDefault("gemini.model", "gemini-2.5-flash-lite")
	v.SetDefault("whisper.url", "http://localhost:9000")
	v.SetDefault("whisper.language", "en")
	v.SetDefault("piper.url", "http://localhost:5000")

	v.SetDefault("artifacts.dir", "public/audio")
	v.SetDefault("artifacts.url_prefix", "/audio")
	v.SetDefault("artifacts.extension", "mp3")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("telemetry.service_name", "ava")
}

func Load() (*Settings, error) {
	return LoadFrom(".")
}

// LoadFrom reads config_<ENV>.yaml from dir. A missing file is not an error:
// defaults and AVA_* environment variables still apply.
func LoadFrom(dir string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ava")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the original deployment only ever exported this one
	_ = v.BindEnv("assistant.open_ai_api_key", "AVA_ASSISTANT_OPEN_AI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini.api_key", "AVA_GEMINI_API_KEY", "GEMINI_API_KEY")

	v.SetConfigName("config_" + genEnv(v))
	v.AddConfigPath(dir)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) Validate() error {
	if s.Registry.Capacity <= 0 {
		return fmt.Errorf("registry.capacity must be positive, got %d", s.Registry.Capacity)
	}
	if s.Stream.KeepAlive <= 0 {
		return fmt.Errorf("stream.keep_alive must be positive")
	}
	switch s.Pipeline.Guard {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown pipeline.guard %q", s.Pipeline.Guard)
	}
	if s.Pipeline.Guard == "redis" && !s.Redis.Enabled {
		return errors.New("pipeline.guard=redis requires redis.enabled")
	}
	return nil
}

func genEnv(v *viper.Viper) string {
	env := v.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
