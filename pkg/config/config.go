package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBName     string `mapstructure:"DB_NAME"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBPassword string `mapstructure:"DB_PASSWORD"`

	GoogleClientId   string        `mapstructure:"YOUR_CLIENT_ID"`
	GoogleSecretId   string        `mapstructure:"YOUR_CLIENT_SECRET"`
	RedirectURL      string        `mapstructure:"REDIRECT_URL"`
	TokenInfoURL     string        `mapstructure:"TOKEN_INFO_URL"`
	CalendarEndpoint string        `mapstructure:"CALENDAR_ENDPOINT"`
	AuthTimeout      time.Duration `mapstructure:"AUTH_TIMEOUT"`

	LocalStorePath string `mapstructure:"LOCAL_STORE_PATH"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	PublicOrigin   string `mapstructure:"PUBLIC_ORIGIN"`

	AdminEmail        string `mapstructure:"ADMIN_EMAIL"`
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`

	TimeZone string `mapstructure:"TIME_ZONE"`
	Language string `mapstructure:"UI_LANG"`
}

var envs = []string{
	"DB_HOST", "DB_NAME", "DB_USER", "DB_PORT", "DB_PASSWORD",
	"YOUR_CLIENT_ID", "YOUR_CLIENT_SECRET", "REDIRECT_URL",
	"TOKEN_INFO_URL", "CALENDAR_ENDPOINT", "AUTH_TIMEOUT",
	"LOCAL_STORE_PATH", "HTTP_ADDR", "PUBLIC_ORIGIN",
	"ADMIN_EMAIL", "ADMIN_PASSWORD_HASH", "JWT_SECRET",
	"TIME_ZONE", "UI_LANG",
}

var defaults = map[string]any{
	"DB_HOST":          "localhost",
	"DB_PORT":          "5432",
	"DB_NAME":          "shifts",
	"DB_USER":          "postgres",
	"REDIRECT_URL":     "http://localhost:8000/google/redirect",
	"TOKEN_INFO_URL":   "https://www.googleapis.com/oauth2/v3/tokeninfo",
	"AUTH_TIMEOUT":     "5m",
	"LOCAL_STORE_PATH": "local.db",
	"HTTP_ADDR":        ":8000",
	"PUBLIC_ORIGIN":    "http://localhost:8000",
	"UI_LANG":          "en",
}

// LoadConfig reads .env from the working directory (when present) and
// overlays the process environment.
func LoadConfig() (Config, error) {
	return load(viper.New(), "./", ".env")
}

func load(v *viper.Viper, dir, file string) (Config, error) {
	var config Config
	v.AddConfigPath(dir)
	v.SetConfigFile(dir + file)
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, env := range envs {
		if err := v.BindEnv(env); err != nil {
			return config, err
		}
	}
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, nil
}

// DSN builds the Postgres connection string for the remote store.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s dbname=%s port=%s password=%s",
		c.DBHost, c.DBUser, c.DBName, c.DBPort, c.DBPassword)
}

// Location resolves TIME_ZONE. An empty value means the system zone,
// loaded by its IANA name so calendar events carry it; time.Local is the
// last resort when the name cannot be found.
func (c Config) Location() (*time.Location, error) {
	name := c.TimeZone
	if name == "" {
		name = systemZone(os.Getenv("TZ"), os.Readlink)
		if name == "" {
			return time.Local, nil
		}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", name, err)
	}
	return loc, nil
}

// systemZone returns the IANA name from TZ or the /etc/localtime link.
func systemZone(tz string, readlink func(string) (string, error)) string {
	if tz = strings.TrimPrefix(tz, ":"); tz != "" && !strings.HasPrefix(tz, "/") {
		return tz
	}
	target, err := readlink("/etc/localtime")
	if err != nil {
		return ""
	}
	if _, name, ok := strings.Cut(target, "zoneinfo/"); ok {
		return name
	}
	return ""
}
