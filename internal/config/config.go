package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port            int           `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
		CORSOrigins     []string      `mapstructure:"corsOrigins"`
	} `mapstructure:"server"`
	NATS     NATSConfig `mapstructure:"nats"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
		MaxOpenConns        int    `mapstructure:"maxOpenConns"`
		MaxIdleConns        int    `mapstructure:"maxIdleConns"`
	} `mapstructure:"database"`
	Redis struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`
	BusinessHours BusinessHoursConfig `mapstructure:"businessHours"`
	AutoReply     struct {
		// Window is the per-thread auto-reply throttle. Zero replies to every out-of-hours message.
		Window time.Duration `mapstructure:"window"`
	} `mapstructure:"autoReply"`
	Welcome struct {
		Enabled bool   `mapstructure:"enabled"`
		Message string `mapstructure:"message"`
	} `mapstructure:"welcome"`
	Auth struct {
		APIKeys []string `mapstructure:"apiKeys"`
	} `mapstructure:"auth"`
	FileStorage struct {
		BaseDir       string `mapstructure:"baseDir"`
		PublicBaseURL string `mapstructure:"publicBaseURL"`
		MaxUploadSize int64  `mapstructure:"maxUploadSize"`
	} `mapstructure:"fileStorage"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Inbound WorkerPoolConfig `mapstructure:"inbound"`
	} `mapstructure:"workerPools"`
	Stream struct {
		// SubscriberBuffer is the per-SSE-subscriber queue; events are dropped when it is full.
		SubscriberBuffer int           `mapstructure:"subscriberBuffer"`
		Heartbeat        time.Duration `mapstructure:"heartbeat"`
	} `mapstructure:"stream"`
}

// NATSConfig covers the inbound frame stream and the outbound broadcast subjects.
type NATSConfig struct {
	URL             string             `mapstructure:"url"`
	Inbound         ConsumerNatsConfig `mapstructure:"inbound"`
	BroadcastPrefix string             `mapstructure:"broadcastPrefix"`
	PublishEnabled  bool               `mapstructure:"publishEnabled"`
}

// ConsumerNatsConfig holds configuration specific to a NATS consumer
type ConsumerNatsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxAge       int64         `mapstructure:"maxAge"` // days
	Stream       string        `mapstructure:"stream"`
	Consumer     string        `mapstructure:"consumer"` // durable name
	QueueGroup   string        `mapstructure:"group"`
	SubjectList  []string      `mapstructure:"subjectList"`
	MaxDeliver   int           `mapstructure:"maxDeliver"`
	NakBaseDelay time.Duration `mapstructure:"nakBaseDelay"`
	NakMaxDelay  time.Duration `mapstructure:"nakMaxDelay"`
}

// WorkerPoolConfig sizes an ants pool.
type WorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`
	MaxBlock   int           `mapstructure:"maxBlock"` // max blocking submitters, 0 = unlimited
	ExpiryTime time.Duration `mapstructure:"expiryTime"`
}

// BusinessHoursConfig describes when the support desk answers.
type BusinessHoursConfig struct {
	TimeZone        string   `mapstructure:"timeZone"`
	Open            string   `mapstructure:"open"`  // HH:MM, inclusive
	Close           string   `mapstructure:"close"` // HH:MM, exclusive
	Workdays        []string `mapstructure:"workdays"`
	HolidaysEnabled bool     `mapstructure:"holidaysEnabled"`
	OpenMessage     string   `mapstructure:"openMessage"`
	ClosedMessage   string   `mapstructure:"closedMessage"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdownTimeout", 30*time.Second)
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)
	v.SetDefault("database.postgresAutoMigrate", true)
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 5)

	v.SetDefault("nats.broadcastPrefix", "chat")
	v.SetDefault("nats.publishEnabled", true)
	v.SetDefault("nats.inbound.enabled", true)
	v.SetDefault("nats.inbound.stream", "CHAT_INBOUND")
	v.SetDefault("nats.inbound.consumer", "chat-delivery-inbound")
	v.SetDefault("nats.inbound.group", "chat-delivery")
	v.SetDefault("nats.inbound.subjectList", []string{"chat.inbound.>"})
	v.SetDefault("nats.inbound.maxAge", 7)
	v.SetDefault("nats.inbound.maxDeliver", 5)
	v.SetDefault("nats.inbound.nakBaseDelay", time.Second)
	v.SetDefault("nats.inbound.nakMaxDelay", 30*time.Second)

	v.SetDefault("businessHours.timeZone", "Asia/Seoul")
	v.SetDefault("businessHours.open", "09:00")
	v.SetDefault("businessHours.close", "18:00")
	v.SetDefault("businessHours.workdays", []string{"MON", "TUE", "WED", "THU", "FRI"})
	v.SetDefault("businessHours.openMessage", "영업시간입니다.")
	v.SetDefault("businessHours.closedMessage", "현재 운영시간(평일 09:00~18:00)이 아닙니다. 접수되었으며 운영시간에 답변드리겠습니다.")

	v.SetDefault("welcome.enabled", true)
	v.SetDefault("welcome.message", "안녕하세요! 무엇을 도와드릴까요?")

	v.SetDefault("fileStorage.baseDir", "./data/files")
	v.SetDefault("fileStorage.publicBaseURL", "/files")
	v.SetDefault("fileStorage.maxUploadSize", 20<<20)

	v.SetDefault("workerPools.inbound.poolSize", 32)
	v.SetDefault("workerPools.inbound.maxBlock", 1000)
	v.SetDefault("workerPools.inbound.expiryTime", time.Minute)

	v.SetDefault("stream.subscriberBuffer", 64)
	v.SetDefault("stream.heartbeat", 25*time.Second)

	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.daisi-chat-delivery")
	v.AddConfigPath("/etc/daisi-chat-delivery")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, Config{})

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		v.Set("redis.url", url)
	}
	if keys := os.Getenv("API_KEYS"); keys != "" {
		v.Set("auth.apiKeys", strings.Split(keys, ","))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(append([]string{}, parts...), tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
