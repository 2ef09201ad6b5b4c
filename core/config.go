package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		Addr               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite | firestore | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file
		GCPProject    string // firestore
		Collection    string // firestore
	}

	RedisConfig struct {
		URL          string
		ExportLimit  int
		ExportWindow time.Duration
	}

	StorageConfig struct {
		Bucket string
	}

	NotificationConfig struct {
		Channel           string // email | cloudevents | none
		CloudEventsTarget string
		CloudEventsSource string
	}

	ReviewConfig struct {
		RequireDecisionComment bool
		StrictCompleteness     bool
	}

	// DocumentTypeConfig describes one document expected from applicants of a program type.
	DocumentTypeConfig struct {
		ID       string `mapstructure:"id"`
		Label    string `mapstructure:"label"`
		Optional bool   `mapstructure:"optional"`
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		defaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server        ServerConfig
		Database      DatabaseConfig
		Redis         RedisConfig
		Storage       StorageConfig
		Notifications NotificationConfig
		Review        ReviewConfig

		// Documents maps a program type to its expected documents.
		Documents map[string][]DocumentTypeConfig
	}
)

// NewConfig loads the configuration from the environment (and `config/.env.<env>` when present).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Back Office")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Back Office <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("disableReqLogs", false)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "backoffice")
	v.SetDefault("dbUser", "backoffice")
	v.SetDefault("dbPassword", "backoffice")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "backoffice.db")
	v.SetDefault("gcpProject", "")
	v.SetDefault("firestoreCollection", "applications")

	v.SetDefault("redisURL", "")
	v.SetDefault("exportRateLimit", 10)
	v.SetDefault("exportRateWindow", time.Minute)

	v.SetDefault("storageBucket", "")

	v.SetDefault("notificationChannel", "email")
	v.SetDefault("cloudEventsTarget", "")
	v.SetDefault("cloudEventsSource", "/backoffice/admissions")

	v.SetDefault("requireDecisionComment", false)
	v.SetDefault("strictCompleteness", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	// the document catalogue lives in a YAML file
	confFile := os.Getenv("CONFIG_FILE")
	if confFile == "" {
		confFile = filepath.Join(workDir, "config", "backoffice.yaml")
	}
	if _, err := os.Stat(confFile); err == nil {
		v.SetConfigFile(confFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("config.ReadInConfig(%s): %v", confFile, err)
		}
	}

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          workDir,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			Addr:               v.GetString("serverAddr"),
			DebugHost:          v.GetString("serverDebugHost"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
			GCPProject:    v.GetString("gcpProject"),
			Collection:    v.GetString("firestoreCollection"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redisURL"),
			ExportLimit:  v.GetInt("exportRateLimit"),
			ExportWindow: v.GetDuration("exportRateWindow"),
		},
		Storage: StorageConfig{
			Bucket: v.GetString("storageBucket"),
		},
		Notifications: NotificationConfig{
			Channel:           v.GetString("notificationChannel"),
			CloudEventsTarget: v.GetString("cloudEventsTarget"),
			CloudEventsSource: v.GetString("cloudEventsSource"),
		},
		Review: ReviewConfig{
			RequireDecisionComment: v.GetBool("requireDecisionComment"),
			StrictCompleteness:     v.GetBool("strictCompleteness"),
		},
	}
	if err := v.UnmarshalKey("documents", &conf.Documents); err != nil {
		log.Fatalf("config.UnmarshalKey(documents): %v", err)
	}
	return conf
}

// DefaultFromEmail parses the configured sender address; falls back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

// SetDefaultFromEmail is used by tests.
func (c *Config) SetDefaultFromEmail(addr string) {
	c.defaultFromEmail = addr
}

func (db DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", db.Host, db.Port)
}
