package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Panel    PanelConfig
	Upload   UploadConfig
	Admin    AdminSeedConfig
	Bot      BotConfig
	Notify   NotifyConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Name           string
	Port           int
	Env            string // "development", "production"
	Debug          bool
	CORSOrigins    []string
	IdempotencyTTL time.Duration
}

type DatabaseConfig struct {
	Driver  string // mysql, postgres, sqlite
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	SSLMode string
	Path    string // sqlite file
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type JWTConfig struct {
	Secret       string
	Expiry       time.Duration
	CookieSecure bool
}

// PanelConfig describes the provisioning gateway.
type PanelConfig struct {
	Type       string
	URL        string
	Username   string
	Password   string
	HTTPProxy  string
	HTTPSProxy string
	Insecure   bool
	Proxies    []string // protocols enabled on new accounts
}

type UploadConfig struct {
	Dir       string
	MaxSize   int64
	Retention time.Duration
}

type AdminSeedConfig struct {
	Username string
	Password string
}

type BotConfig struct {
	Token      string
	AdminIDs   []int64
	UpdateMode string // polling, webhook or auto
	WebhookURL string
}

type NotifyConfig struct {
	BotToken string
	ChatID   string
	LogFile  string
}

type JobsConfig struct {
	ExpireSpec            string
	SyncSpec              string
	CleanupSpec           string
	NegativeCreditSpec    string
	NegativeCreditEnabled bool
	NegativeCreditGrace   time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Name:           viper.GetString("APP_NAME"),
			Port:           viper.GetInt("APP_PORT"),
			Env:            viper.GetString("APP_ENV"),
			Debug:          viper.GetBool("APP_DEBUG"),
			CORSOrigins:    splitList(viper.GetString("CORS_ORIGINS")),
			IdempotencyTTL: duration("IDEMPOTENCY_TTL", 10*time.Minute),
		},
		Database: databaseFromEnv(),
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			Expiry:       duration("JWT_EXPIRY", 7*24*time.Hour),
			CookieSecure: viper.GetBool("COOKIE_SECURE"),
		},
		Panel: PanelConfig{
			Type:       viper.GetString("PANEL_TYPE"),
			URL:        strings.TrimRight(viper.GetString("MARZBAN_URL"), "/"),
			Username:   viper.GetString("MARZBAN_USERNAME"),
			Password:   viper.GetString("MARZBAN_PASSWORD"),
			HTTPProxy:  viper.GetString("HTTP_PROXY"),
			HTTPSProxy: viper.GetString("HTTPS_PROXY"),
			Insecure:   viper.GetBool("MARZBAN_INSECURE"),
			Proxies:    splitList(viper.GetString("MARZBAN_PROXIES")),
		},
		Upload: UploadConfig{
			Dir:       viper.GetString("UPLOAD_DIR"),
			MaxSize:   viper.GetInt64("MAX_UPLOAD_SIZE"),
			Retention: duration("UPLOAD_RETENTION", 30*24*time.Hour),
		},
		Admin: AdminSeedConfig{
			Username: viper.GetString("ADMIN_USERNAME"),
			Password: viper.GetString("ADMIN_PASSWORD"),
		},
		Bot: BotConfig{
			Token:      viper.GetString("BOT_TOKEN"),
			AdminIDs:   parseIDs(viper.GetString("BOT_ADMIN_IDS")),
			UpdateMode: viper.GetString("BOT_UPDATE_MODE"),
			WebhookURL: viper.GetString("BOT_WEBHOOK_URL"),
		},
		Notify: NotifyConfig{
			BotToken: viper.GetString("NOTIFY_BOT_TOKEN"),
			ChatID:   viper.GetString("NOTIFY_CHAT_ID"),
			LogFile:  viper.GetString("NOTIFY_LOG_FILE"),
		},
		Jobs: JobsConfig{
			ExpireSpec:            viper.GetString("JOB_EXPIRE_SPEC"),
			SyncSpec:              viper.GetString("JOB_SYNC_SPEC"),
			CleanupSpec:           viper.GetString("JOB_CLEANUP_SPEC"),
			NegativeCreditSpec:    viper.GetString("JOB_NEGATIVE_CREDIT_SPEC"),
			NegativeCreditEnabled: viper.GetBool("JOB_NEGATIVE_CREDIT_ENABLED"),
			NegativeCreditGrace:   duration("JOB_NEGATIVE_CREDIT_GRACE", 24*time.Hour),
		},
	}

	if cfg.JWT.Secret == "" {
		log.Println("WARNING: JWT_SECRET is not set, sessions will not survive a restart")
	}
	if cfg.Panel.URL == "" {
		log.Println("WARNING: MARZBAN_URL is not set")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just enough configuration to open the database.
func LoadDatabaseOnly() (*DatabaseConfig, *AdminSeedConfig, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	db := databaseFromEnv()
	admin := &AdminSeedConfig{
		Username: viper.GetString("ADMIN_USERNAME"),
		Password: viper.GetString("ADMIN_PASSWORD"),
	}
	return &db, admin, nil
}

func setDefaults() {
	viper.SetDefault("APP_NAME", "RAD Panel")
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("APP_DEBUG", false)
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "radpanel.db")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_EXPIRY", "168h")
	viper.SetDefault("PANEL_TYPE", "marzban")
	viper.SetDefault("MARZBAN_PROXIES", "vless")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("MAX_UPLOAD_SIZE", 5*1024*1024)
	viper.SetDefault("UPLOAD_RETENTION", "720h")
	viper.SetDefault("BOT_UPDATE_MODE", "auto")
	viper.SetDefault("NOTIFY_LOG_FILE", "logs/notifications.log")
	viper.SetDefault("JOB_EXPIRE_SPEC", "0 */5 * * * *")
	viper.SetDefault("JOB_SYNC_SPEC", "0 0 */2 * * *")
	viper.SetDefault("JOB_CLEANUP_SPEC", "0 30 3 * * *")
	viper.SetDefault("JOB_NEGATIVE_CREDIT_SPEC", "0 0 * * * *")
	viper.SetDefault("JOB_NEGATIVE_CREDIT_ENABLED", false)
	viper.SetDefault("JOB_NEGATIVE_CREDIT_GRACE", "24h")
	viper.SetDefault("IDEMPOTENCY_TTL", "10m")
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Driver:  strings.ToLower(viper.GetString("DB_DRIVER")),
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
		SSLMode: viper.GetString("DB_SSLMODE"),
		Path:    viper.GetString("DB_PATH"),
	}
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range splitList(raw) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// DSN returns the driver specific connection string for GORM.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return "host=" + d.Host + " port=" + d.Port + " user=" + d.User + " password=" + d.Pass +
			" dbname=" + d.Name + " sslmode=" + d.SSLMode + " TimeZone=UTC"
	case "sqlite":
		return d.Path
	default:
		return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
	}
}
