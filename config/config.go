package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Zoom        Zoom          `yaml:"zoom"`
	Gong        Gong          `yaml:"gong"`
	OpenAI      OpenAI        `yaml:"openai"`
	Sync        Sync          `yaml:"sync"`
	Preview     Preview       `yaml:"preview"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type Zoom struct {
	AccountID    string `yaml:"account_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type Gong struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url"`
}

type OpenAI struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Sync holds the knobs of the provider sync pipeline. Concurrency bounds the
// per-recording workers, Freshness is the window inside which a recording is
// skipped without network calls.
type Sync struct {
	Concurrency      int           `yaml:"concurrency"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
	Freshness        time.Duration `yaml:"freshness"`
	ZoomYears        int           `yaml:"zoom_years"`
	GongMonths       int           `yaml:"gong_months"`
}

type Preview struct {
	Concurrency        int           `yaml:"concurrency"`
	ClipConcurrency    int           `yaml:"clip_concurrency"`
	CandidateCount     int           `yaml:"candidate_count"`
	ClipSeconds        int           `yaml:"clip_seconds"`
	Width              int           `yaml:"width"`
	FPS                int           `yaml:"fps"`
	Timeout            time.Duration `yaml:"timeout"`
	MinDurationSeconds float64       `yaml:"min_duration_seconds"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	setDefaults()

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Zoom: Zoom{
			AccountID:    viper.GetString("zoom.account_id"),
			ClientID:     viper.GetString("zoom.client_id"),
			ClientSecret: viper.GetString("zoom.client_secret"),
		},
		Gong: Gong{
			AccessKey: viper.GetString("gong.access_key"),
			SecretKey: viper.GetString("gong.secret_key"),
			BaseURL:   viper.GetString("gong.base_url"),
		},
		OpenAI: OpenAI{
			APIKey: viper.GetString("openai.api_key"),
			Model:  viper.GetString("openai.model"),
		},
		Sync: Sync{
			Concurrency:      viper.GetInt("sync.concurrency"),
			BatchConcurrency: viper.GetInt("sync.batch_concurrency"),
			Freshness:        viper.GetDuration("sync.freshness"),
			ZoomYears:        viper.GetInt("sync.zoom_years"),
			GongMonths:       viper.GetInt("sync.gong_months"),
		},
		Preview: Preview{
			Concurrency:        viper.GetInt("preview.concurrency"),
			ClipConcurrency:    viper.GetInt("preview.clip_concurrency"),
			CandidateCount:     viper.GetInt("preview.candidate_count"),
			ClipSeconds:        viper.GetInt("preview.clip_seconds"),
			Width:              viper.GetInt("preview.width"),
			FPS:                viper.GetInt("preview.fps"),
			Timeout:            viper.GetDuration("preview.timeout"),
			MinDurationSeconds: viper.GetFloat64("preview.min_duration_seconds"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}

func setDefaults() {
	viper.SetDefault("gong.base_url", "https://api.gong.io")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("sync.concurrency", 5)
	viper.SetDefault("sync.batch_concurrency", 2)
	viper.SetDefault("sync.freshness", time.Hour)
	viper.SetDefault("sync.zoom_years", 2)
	viper.SetDefault("sync.gong_months", 6)
	viper.SetDefault("preview.concurrency", 3)
	viper.SetDefault("preview.clip_concurrency", 3)
	viper.SetDefault("preview.candidate_count", 5)
	viper.SetDefault("preview.clip_seconds", 4)
	viper.SetDefault("preview.width", 480)
	viper.SetDefault("preview.fps", 12)
	viper.SetDefault("preview.timeout", 90*time.Second)
	viper.SetDefault("preview.min_duration_seconds", 60)
}
