package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/frontdesk.db"

	// Secrets. AdminPassword may be a bcrypt hash.
	AdminPassword   string
	HistoryPassword string

	// HTTP surface
	PublicBaseURL string
	CORSOrigins   []string
	MaxUploadMB   int

	// Photos
	PhotoBackend string // "local" | "s3"
	UploadDir    string
	S3           S3Config

	// Data retention
	RetentionYears         int // 0 disables the purge
	RetentionIntervalHours int

	LogLevel  string
	LogFormat string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Load reads a .env file when one exists and then returns FromEnv. Values
// already in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	addr := getenvDefault("FRONTDESK_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("FRONTDESK_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	backend := strings.ToLower(getenvDefault("FRONTDESK_PHOTO_BACKEND", "local"))
	if backend != "local" && backend != "s3" {
		backend = "local"
	}

	origins := splitCSV(os.Getenv("FRONTDESK_CORS_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   getenvDefault("FRONTDESK_DB_PATH", "./data/frontdesk.db"),

		AdminPassword:   os.Getenv("FRONTDESK_ADMIN_PASSWORD"),
		HistoryPassword: os.Getenv("FRONTDESK_HISTORY_PASSWORD"),

		PublicBaseURL: strings.TrimRight(getenvDefault("FRONTDESK_PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:   origins,
		MaxUploadMB:   getenvInt("FRONTDESK_MAX_UPLOAD_MB", 5),

		PhotoBackend: backend,
		UploadDir:    getenvDefault("FRONTDESK_UPLOAD_DIR", "./uploads"),
		S3: S3Config{
			Bucket:    os.Getenv("FRONTDESK_S3_BUCKET"),
			Region:    getenvDefault("FRONTDESK_S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("FRONTDESK_S3_ENDPOINT"),
			AccessKey: os.Getenv("FRONTDESK_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("FRONTDESK_S3_SECRET_KEY"),
			PublicURL: os.Getenv("FRONTDESK_S3_PUBLIC_URL"),
		},

		RetentionYears:         getenvInt("FRONTDESK_RETENTION_YEARS", 2),
		RetentionIntervalHours: getenvInt("FRONTDESK_RETENTION_INTERVAL_HOURS", 24),

		LogLevel:  getenvDefault("FRONTDESK_LOG_LEVEL", "info"),
		LogFormat: getenvDefault("FRONTDESK_LOG_FORMAT", "json"),
	}
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
