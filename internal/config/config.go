package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Citizen  string
	Password string
	// NearExpiryThreshold is in seconds, matching the historical
	// NEAR_EXPIRY_THRESHOLD environment variable.
	NearExpiryThreshold int
	StateFile           string
	PollInterval        time.Duration

	Client    ClientConfig
	Endpoints EndpointsConfig
	Storage   StorageConfig
	Notify    NotifyConfig
	Database  DatabaseConfig
	HTTP      HTTPConfig
	Log       LogConfig
}

// ClientConfig holds the fixed client credentials sent as basic auth
// on the authenticate endpoint.
type ClientConfig struct {
	ID     string
	Secret string
}

type EndpointsConfig struct {
	Auth          string
	Refresh       string
	AllTickets    string
	TicketDetail  string
	ImageEvidence string
}

type StorageConfig struct {
	Backend string // "file" or "s3"
	Path    string
	S3      S3Config
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type NotifyConfig struct {
	URL string
}

type DatabaseConfig struct {
	DSN string
}

type HTTPConfig struct {
	ListenAddr string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from an optional YAML file and the
// environment. Environment variables keep the names the deployment
// has always used (CITIZEN_ID, USER_PASSWORD, S3_BUCKET_NAME, ...).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("near_expiry_threshold", 60)
	v.SetDefault("state_file", "state.json")
	v.SetDefault("poll_interval", 15*time.Minute)
	v.SetDefault("client.id", "fooClientIdPassword")
	v.SetDefault("client.secret", "secret")
	v.SetDefault("endpoints.auth", "https://ptmapi.police.go.th/ETKServiceLogin/api/v1/user/authenticate")
	v.SetDefault("endpoints.refresh", "https://ptmapi.police.go.th/ETKServiceTicket/api/v1/user/refreshaccesstoken")
	v.SetDefault("endpoints.all_tickets", "https://ptmapi.police.go.th/ETKServiceTicket/api/v1/user/allTickets")
	v.SetDefault("endpoints.ticket_detail", "https://ptmapi.police.go.th/ETKServiceTicket/api/v1/user/ticketDetail")
	v.SetDefault("endpoints.image_evidence", "https://ptmapi.police.go.th/ETKServiceTicket/api/v1/user/imageevidence")
	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.path", "./images")
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	bindEnvs(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Citizen:             v.GetString("citizen"),
		Password:            v.GetString("password"),
		NearExpiryThreshold: v.GetInt("near_expiry_threshold"),
		StateFile:           v.GetString("state_file"),
		PollInterval:        v.GetDuration("poll_interval"),
		Client: ClientConfig{
			ID:     v.GetString("client.id"),
			Secret: v.GetString("client.secret"),
		},
		Endpoints: EndpointsConfig{
			Auth:          v.GetString("endpoints.auth"),
			Refresh:       v.GetString("endpoints.refresh"),
			AllTickets:    v.GetString("endpoints.all_tickets"),
			TicketDetail:  v.GetString("endpoints.ticket_detail"),
			ImageEvidence: v.GetString("endpoints.image_evidence"),
		},
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			Path:    v.GetString("storage.path"),
			S3: S3Config{
				Endpoint:  v.GetString("storage.s3.endpoint"),
				AccessKey: v.GetString("storage.s3.access_key"),
				SecretKey: v.GetString("storage.s3.secret_key"),
				Bucket:    v.GetString("storage.s3.bucket"),
			},
		},
		Notify: NotifyConfig{
			URL: v.GetString("notify.url"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		HTTP: HTTPConfig{
			ListenAddr: v.GetString("http.listen_addr"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	if cfg.Storage.Backend != "file" && cfg.Storage.Backend != "s3" {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

func bindEnvs(v *viper.Viper) {
	envs := map[string]string{
		"citizen":               "CITIZEN_ID",
		"password":              "USER_PASSWORD",
		"near_expiry_threshold": "NEAR_EXPIRY_THRESHOLD",
		"state_file":            "STATE_FILE",
		"poll_interval":         "POLL_INTERVAL",
		"client.id":             "CLIENT_ID",
		"client.secret":         "CLIENT_SECRET",
		"storage.backend":       "STORAGE_BACKEND",
		"storage.path":          "FILE_STORAGE_PATH",
		"storage.s3.endpoint":   "S3_ENDPOINT",
		"storage.s3.access_key": "S3_ACCESS_KEY",
		"storage.s3.secret_key": "S3_SECRET_KEY",
		"storage.s3.bucket":     "S3_BUCKET_NAME",
		"notify.url":            "SHOUTRRR_URL",
		"database.dsn":          "DATABASE_DSN",
		"http.listen_addr":      "LISTEN_ADDR",
		"log.level":             "LOG_LEVEL",
		"log.pretty":            "LOG_PRETTY",
	}
	for key, env := range envs {
		v.BindEnv(key, env)
	}
}
