package config

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env      string
	LogLevel string
	Timezone string

	Classifier ClassifierConfig
	Valkey     ValkeyConfig
	AWS        AWSConfig
	Kafka      KafkaConfig
	Capture    CaptureConfig
}

type ClassifierConfig struct {
	// Backend is one of vader, hugot, remote or openai.
	Backend      string
	Concurrency  int
	AbortOnError bool

	HugotModel     string
	HugotModelDir  string
	HugotModelPath string

	RemoteEndpoint       string
	RemoteHealthEndpoint string
	RemoteTimeout        time.Duration

	OpenAIAPIKey string
	OpenAIModel  string

	CacheEnabled bool
	CacheTTL     time.Duration
}

type ValkeyConfig struct {
	Address    string
	Password   string
	TLS        bool
	DatasetTTL time.Duration
}

type AWSConfig struct {
	Region      string
	Endpoint    string
	RecordTable string
}

type KafkaConfig struct {
	Broker        string
	GroupID       string
	RequestTopic  string
	ReportTopic   string
	TransactionID string
}

type CaptureConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// NewViper returns a viper instance with every default registered and
// environment lookup enabled. Keys map to upper-case environment variables,
// e.g. classifier_backend reads CLASSIFIER_BACKEND.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("report_timezone", "UTC")

	v.SetDefault("classifier_backend", "vader")
	v.SetDefault("classifier_concurrency", 4)
	v.SetDefault("classifier_abort_on_error", false)
	v.SetDefault("hugot_model", "KnightsAnalytics/distilbert-base-uncased-finetuned-sst-2-english")
	v.SetDefault("hugot_model_dir", "./models")
	v.SetDefault("hugot_model_path", "")
	v.SetDefault("remote_classifier_endpoint", "https://spacesedan-sentiment-analyzer.hf.space/analyze_batch")
	v.SetDefault("remote_classifier_health_endpoint", "https://spacesedan-sentiment-analyzer.hf.space/health")
	v.SetDefault("remote_classifier_timeout", 60*time.Second)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("classification_cache_enabled", false)
	v.SetDefault("classification_cache_ttl", 24*time.Hour)

	v.SetDefault("valkey_init_address", "localhost:6379")
	v.SetDefault("valkey_password", "")
	v.SetDefault("valkey_tls", false)
	v.SetDefault("valkey_dataset_ttl", 6*time.Hour)

	v.SetDefault("aws_region", "us-west-2")
	v.SetDefault("aws_endpoint", "http://localhost:8000")
	v.SetDefault("dynamodb_record_table", "EngagementRecords")

	v.SetDefault("kafka_broker", "localhost:29092")
	v.SetDefault("kafka_consumer_group_id", "instalens-report-group")
	v.SetDefault("kafka_request_topic", "report-requests")
	v.SetDefault("kafka_report_topic", "engagement-reports")
	v.SetDefault("kafka_transactional_id", "instalens-producer-1")

	v.SetDefault("capture_base_url", "http://localhost:8090")
	v.SetDefault("capture_token_url", "")
	v.SetDefault("capture_client_id", "")
	v.SetDefault("capture_client_secret", "")

	return v
}

func FromViper(v *viper.Viper) AppConfig {
	return AppConfig{
		Env:      v.GetString("app_env"),
		LogLevel: v.GetString("log_level"),
		Timezone: v.GetString("report_timezone"),
		Classifier: ClassifierConfig{
			Backend:              v.GetString("classifier_backend"),
			Concurrency:          v.GetInt("classifier_concurrency"),
			AbortOnError:         v.GetBool("classifier_abort_on_error"),
			HugotModel:           v.GetString("hugot_model"),
			HugotModelDir:        v.GetString("hugot_model_dir"),
			HugotModelPath:       v.GetString("hugot_model_path"),
			RemoteEndpoint:       v.GetString("remote_classifier_endpoint"),
			RemoteHealthEndpoint: v.GetString("remote_classifier_health_endpoint"),
			RemoteTimeout:        v.GetDuration("remote_classifier_timeout"),
			OpenAIAPIKey:         v.GetString("openai_api_key"),
			OpenAIModel:          v.GetString("openai_model"),
			CacheEnabled:         v.GetBool("classification_cache_enabled"),
			CacheTTL:             v.GetDuration("classification_cache_ttl"),
		},
		Valkey: ValkeyConfig{
			Address:    v.GetString("valkey_init_address"),
			Password:   v.GetString("valkey_password"),
			TLS:        v.GetBool("valkey_tls"),
			DatasetTTL: v.GetDuration("valkey_dataset_ttl"),
		},
		AWS: AWSConfig{
			Region:      v.GetString("aws_region"),
			Endpoint:    v.GetString("aws_endpoint"),
			RecordTable: v.GetString("dynamodb_record_table"),
		},
		Kafka: KafkaConfig{
			Broker:        v.GetString("kafka_broker"),
			GroupID:       v.GetString("kafka_consumer_group_id"),
			RequestTopic:  v.GetString("kafka_request_topic"),
			ReportTopic:   v.GetString("kafka_report_topic"),
			TransactionID: v.GetString("kafka_transactional_id"),
		},
		Capture: CaptureConfig{
			BaseURL:      v.GetString("capture_base_url"),
			TokenURL:     v.GetString("capture_token_url"),
			ClientID:     v.GetString("capture_client_id"),
			ClientSecret: v.GetString("capture_client_secret"),
		},
	}
}

func Load() AppConfig {
	return FromViper(NewViper())
}

// AppEnv returns APP_ENV, falling back to "dev".
func AppEnv() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	return env
}

// Location resolves the configured report timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
