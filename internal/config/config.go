package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Audio    AudioConfig
	Renderer RendererConfig
	Image    ImageConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JobsConfig struct {
	// MaxConcurrent bounds how many render/generate operations run at once.
	MaxConcurrent int
	// RenderBackend and ImageBackend select "local" or "asynq" scheduling.
	RenderBackend string
	ImageBackend  string
}

type AudioConfig struct {
	// Dir is the directory audio paths in requests are resolved against.
	Dir string
	FPS int
}

type RendererConfig struct {
	// Command is the compositor binary, invoked with an explicit argument
	// list. "render" is inserted as its first argument.
	Command  string
	WorkDir  string
	DataDir  string
	AudioDir string
	OutDir   string
	Timeout  int // seconds
}

type ImageConfig struct {
	Provider string
	Timeout  int // seconds
	OpenAI   OpenAIImageConfig
	Google   GoogleImageConfig
}

type OpenAIImageConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GoogleImageConfig struct {
	APIKey string
	Model  string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_IMAGE_API_KEY")
	readSecret("GOOGLE_IMAGE_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jobs.max_concurrent", "JOBS_MAX_CONCURRENT")
	_ = viper.BindEnv("jobs.render_backend", "JOBS_RENDER_BACKEND")
	_ = viper.BindEnv("jobs.image_backend", "JOBS_IMAGE_BACKEND")
	_ = viper.BindEnv("audio.dir", "AUDIO_DIR")
	_ = viper.BindEnv("audio.fps", "AUDIO_FPS")
	_ = viper.BindEnv("renderer.command", "RENDERER_COMMAND")
	_ = viper.BindEnv("renderer.work_dir", "RENDERER_WORK_DIR")
	_ = viper.BindEnv("renderer.data_dir", "RENDERER_DATA_DIR")
	_ = viper.BindEnv("renderer.audio_dir", "RENDERER_AUDIO_DIR")
	_ = viper.BindEnv("renderer.out_dir", "RENDERER_OUT_DIR")
	_ = viper.BindEnv("renderer.timeout", "RENDERER_TIMEOUT")
	_ = viper.BindEnv("image.provider", "IMAGE_API_PROVIDER")
	_ = viper.BindEnv("image.timeout", "IMAGE_TIMEOUT")
	_ = viper.BindEnv("image.openai.api_key", "OPENAI_IMAGE_API_KEY")
	_ = viper.BindEnv("image.openai.base_url", "OPENAI_IMAGE_API_URL")
	_ = viper.BindEnv("image.openai.model", "OPENAI_IMAGE_MODEL")
	_ = viper.BindEnv("image.google.api_key", "GOOGLE_IMAGE_API_KEY")
	_ = viper.BindEnv("image.google.model", "GOOGLE_IMAGE_MODEL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jobs.max_concurrent", 2)
	viper.SetDefault("jobs.render_backend", "local")
	viper.SetDefault("jobs.image_backend", "asynq")
	viper.SetDefault("audio.dir", "./data/audio")
	viper.SetDefault("audio.fps", 30)
	viper.SetDefault("renderer.command", "remotion")
	viper.SetDefault("renderer.work_dir", "./remotion")
	viper.SetDefault("renderer.data_dir", "./remotion/public/data")
	viper.SetDefault("renderer.audio_dir", "./remotion/public/audio")
	viper.SetDefault("renderer.out_dir", "./data/videos")
	viper.SetDefault("renderer.timeout", 600)
	viper.SetDefault("image.provider", "openai")
	viper.SetDefault("image.timeout", 120)
	viper.SetDefault("image.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("image.openai.model", "dall-e-3")
	viper.SetDefault("image.google.model", "imagen-3.0-generate-002")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Jobs: JobsConfig{
			MaxConcurrent: viper.GetInt("jobs.max_concurrent"),
			RenderBackend: viper.GetString("jobs.render_backend"),
			ImageBackend:  viper.GetString("jobs.image_backend"),
		},
		Audio: AudioConfig{
			Dir: viper.GetString("audio.dir"),
			FPS: viper.GetInt("audio.fps"),
		},
		Renderer: RendererConfig{
			Command:  viper.GetString("renderer.command"),
			WorkDir:  viper.GetString("renderer.work_dir"),
			DataDir:  viper.GetString("renderer.data_dir"),
			AudioDir: viper.GetString("renderer.audio_dir"),
			OutDir:   viper.GetString("renderer.out_dir"),
			Timeout:  viper.GetInt("renderer.timeout"),
		},
		Image: ImageConfig{
			Provider: viper.GetString("image.provider"),
			Timeout:  viper.GetInt("image.timeout"),
			OpenAI: OpenAIImageConfig{
				APIKey:  viper.GetString("image.openai.api_key"),
				BaseURL: viper.GetString("image.openai.base_url"),
				Model:   viper.GetString("image.openai.model"),
			},
			Google: GoogleImageConfig{
				APIKey: viper.GetString("image.google.api_key"),
				Model:  viper.GetString("image.google.model"),
			},
		},
	}

	return cfg, nil
}
