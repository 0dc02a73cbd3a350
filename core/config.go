package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr    string
		Channel string
	}

	TrustConfig struct {
		HardFloor         float64
		SoftFlagThreshold float64
		FingerprintKey    string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		DefaultFromEmail mail.Address
		ModeratorEmails  []mail.Address
		RollbarToken     string
		SendgridAPIKey   string
		Server           ServerConfig
		Database         DatabaseConfig
		Redis            RedisConfig
		Trust            TrustConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig reads the configuration of the current environment.
// ENV selects the environment: DEV (local; default), TEST, QA or PROD.
// Every key can be overridden with an env var prefixed with the environment name, eg. DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("testMode", env == "TEST")

	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "PAES")
	v.SetDefault("secretKey", "b1u#3v7m-q!k9z@r2x6c0%w8n4e5t=y)jh(d&sa^gfpl")
	v.SetDefault("defaultFromEmail", "PAES <noreply@localhost>")
	v.SetDefault("moderatorEmails", "moderators@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "paes")
	v.SetDefault("database.user", "paes")
	v.SetDefault("database.password", "paes")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "trust-events")

	v.SetDefault("trust.hardFloor", 0.3)
	v.SetDefault("trust.softFlagThreshold", 0.5)
	v.SetDefault("trust.fingerprintKey", "")

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		WorkDir:        wd,
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			Channel: v.GetString("redis.channel"),
		},
		Trust: TrustConfig{
			HardFloor:         v.GetFloat64("trust.hardFloor"),
			SoftFlagThreshold: v.GetFloat64("trust.softFlagThreshold"),
			FingerprintKey:    v.GetString("trust.fingerprintKey"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	conf.DefaultFromEmail = *from

	if conf.ModeratorEmails, err = parseAddressList(v.GetString("moderatorEmails")); err != nil {
		log.Fatalf("config.moderatorEmails: %v", err)
	}
	if conf.Trust.FingerprintKey == "" {
		conf.Trust.FingerprintKey = conf.SecretKey
	}
	return conf
}

func parseAddressList(s string) ([]mail.Address, error) {
	s = CleanString(s)
	if s == "" {
		return nil, nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", s)
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs, nil
}
