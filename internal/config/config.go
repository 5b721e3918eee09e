package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	CatalogPath string
	AuditPath   string
	AuditDSN    string
	UsersPath   string
	ReportPath  string
	// SessionCacheSize bounds the number of live chat sessions.
	SessionCacheSize int
	LLM              LLMConfig
	Archive          ArchiveConfig
}

type LLMConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	RPS        float64
	Burst      int
}

// ArchiveConfig points at the S3-compatible bucket that receives report copies.
// An empty endpoint disables archiving.
type ArchiveConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	LinkTTL   time.Duration
}

func (a ArchiveConfig) Enabled() bool { return a.Endpoint != "" }

// Load reads .env (if any), the process environment and args. Flags win over
// the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("stockbot", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	catalogPath := fs.String("catalog", "", "catalog JSON file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" && !flagSet(fs, "port") {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := firstNonEmpty(os.Getenv("APP_ENV"), "local")
	return &Config{
		Port:             *port,
		Env:              env,
		CatalogPath:      firstNonEmpty(*catalogPath, os.Getenv("CATALOG_PATH"), "productos.json"),
		AuditPath:        firstNonEmpty(os.Getenv("AUDIT_PATH"), "historial.json"),
		AuditDSN:         strings.TrimSpace(os.Getenv("AUDIT_PG_DSN")),
		UsersPath:        firstNonEmpty(os.Getenv("USERS_PATH"), "usuarios.json"),
		ReportPath:       firstNonEmpty(os.Getenv("REPORT_PATH"), "reporte_inventario.pdf"),
		SessionCacheSize: envInt("SESSION_CACHE_SIZE", 256),
		LLM:              loadLLMConfig(),
		Archive:          loadArchiveConfig(),
	}, nil
}

func loadLLMConfig() LLMConfig {
	provider := strings.ToLower(firstNonEmpty(os.Getenv("LLM_PROVIDER"), "openai"))
	key := firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("GITHUB_TOKEN"))
	if provider == "gemini" {
		key = firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("GEMINI_API_KEY"))
	}
	return LLMConfig{
		Provider:   provider,
		Model:      strings.TrimSpace(os.Getenv("LLM_MODEL")),
		APIKey:     key,
		BaseURL:    strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
		APIVersion: strings.TrimSpace(os.Getenv("LLM_API_VERSION")),
		Timeout:    envDuration("LLM_TIMEOUT", 60*time.Second),
		RPS:        envFloat("LLM_RPS", 0),
		Burst:      envInt("LLM_BURST", 1),
	}
}

func loadArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("REPORT_S3_ENDPOINT")),
		Region:    firstNonEmpty(os.Getenv("REPORT_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(os.Getenv("REPORT_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(os.Getenv("REPORT_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(os.Getenv("REPORT_S3_BUCKET"), "stockbot-reports"),
		UseSSL:    envBool("REPORT_S3_USE_SSL", true),
		LinkTTL:   envDuration("REPORT_LINK_TTL", 24*time.Hour),
	}
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
