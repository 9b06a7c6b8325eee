package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Corpus      CorpusConfig      `mapstructure:"corpus"`
	Model       ModelConfig       `mapstructure:"model"`
	Training    TrainingConfig    `mapstructure:"training"`
	Translation TranslationConfig `mapstructure:"translation"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type CorpusConfig struct {
	Path string `mapstructure:"path"`
}

// ModelConfig selects the backbone. The pretrained backbone is fetched from the
// HuggingFace hub; the scratch fields only apply to backbone "scratch".
type ModelConfig struct {
	CheckpointDir string  `mapstructure:"checkpoint_dir"`
	Backbone      string  `mapstructure:"backbone"`
	Repo          string  `mapstructure:"repo"`
	ONNXFile      string  `mapstructure:"onnx_file"`
	HFToken       string  `mapstructure:"hf_token"`
	MaxLen        int     `mapstructure:"max_len"`
	Dropout       float64 `mapstructure:"dropout"`
	Encoding      string  `mapstructure:"encoding"`
	HiddenSize    int     `mapstructure:"hidden_size"`
	NumLayers     int     `mapstructure:"num_layers"`
	NumHeads      int     `mapstructure:"num_heads"`
}

type TrainingConfig struct {
	Epochs       int     `mapstructure:"epochs"`
	BatchSize    int     `mapstructure:"batch_size"`
	LearningRate float64 `mapstructure:"learning_rate"`
	WeightDecay  float64 `mapstructure:"weight_decay"`
	TrainSplit   float64 `mapstructure:"train_split"`
	Seed         uint64  `mapstructure:"seed"`
}

type TranslationConfig struct {
	Engine     string        `mapstructure:"engine"`
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Hostname() == "" {
		return DatabaseConfig{}, fmt.Errorf("missing host in %q", u.Redacted())
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("corpus.path", "intents.json")

	v.SetDefault("model.checkpoint_dir", "trained_model")
	v.SetDefault("model.backbone", "pretrained")
	v.SetDefault("model.repo", "Xenova/distilbert-base-uncased")
	v.SetDefault("model.onnx_file", "onnx/model.onnx")
	v.SetDefault("model.max_len", 128)
	v.SetDefault("model.dropout", 0.1)
	v.SetDefault("model.encoding", "cl100k_base")
	v.SetDefault("model.hidden_size", 64)
	v.SetDefault("model.num_layers", 2)
	v.SetDefault("model.num_heads", 4)

	v.SetDefault("training.epochs", 10)
	v.SetDefault("training.batch_size", 16)
	v.SetDefault("training.learning_rate", 2e-5)
	v.SetDefault("training.weight_decay", 0.01)
	v.SetDefault("training.train_split", 0.9)
	v.SetDefault("training.seed", 42)

	v.SetDefault("translation.engine", "libretranslate")
	v.SetDefault("translation.url", "http://localhost:5000")
	v.SetDefault("translation.timeout", 30*time.Second)
	v.SetDefault("translation.max_retries", 0)

	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 256)
	v.SetDefault("openai.temperature", 0.0)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "mindbot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)
}

// LoadConfig reads defaults, then the YAML file at path when it exists, then the
// environment. Nested keys map to env vars with dots replaced by underscores,
// e.g. TRANSLATION_ENGINE.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if port := v.GetInt("PORT"); port != 0 {
		config.Server.Port = port
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if hfToken := v.GetString("HF_TOKEN"); hfToken != "" {
		config.Model.HFToken = hfToken
	}

	if translationURL := v.GetString("TRANSLATION_URL"); translationURL != "" {
		config.Translation.URL = translationURL
	}

	return &config, nil
}
