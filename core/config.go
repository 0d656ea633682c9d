package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
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

	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		JWTIssuer       string
		JWTAudience     string
		JWTExpiration   time.Duration
	}

	// ExamConfig tunes the attempt lifecycle.
	// When EnforceDuration is set, writes on an attempt older than the test duration (plus DurationGrace) are rejected.
	ExamConfig struct {
		EnforceDuration bool
		DurationGrace   time.Duration
	}

	Config struct {
		AppName          string
		Build            string
		Env              string
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		FrontendBaseURL  string
		defaultFromEmail string

		Database DatabaseConfig
		Server   ServerConfig
		Exam     ExamConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (conf Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

// NewConfig loads the app configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the env name, ie: DEV_DATABASE_HOST, PROD_SECRETKEY.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Lingo")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "lingo")
	v.SetDefault("database.user", "lingo")
	v.SetDefault("database.password", "lingo")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtIssuer", "")
	v.SetDefault("server.jwtAudience", "")
	v.SetDefault("server.jwtExpiration", 24*time.Hour)

	v.SetDefault("exam.enforceDuration", false)
	v.SetDefault("exam.durationGrace", time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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

	return &Config{
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          workDir,
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
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
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			JWTIssuer:       v.GetString("server.jwtIssuer"),
			JWTAudience:     v.GetString("server.jwtAudience"),
			JWTExpiration:   v.GetDuration("server.jwtExpiration"),
		},
		Exam: ExamConfig{
			EnforceDuration: v.GetBool("exam.enforceDuration"),
			DurationGrace:   v.GetDuration("exam.durationGrace"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests, it never touches the environment.
func NewTestConfig() *Config {
	return &Config{
		AppName:          "Lingo",
		Build:            "test",
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		defaultFromEmail: "noreply@localhost",
		Server: ServerConfig{
			Host:            "localhost:0",
			ShutdownTimeout: time.Second,
			JWTExpiration:   time.Hour,
		},
		Exam: ExamConfig{DurationGrace: time.Minute},
	}
}

func (conf Config) String() string {
	return fmt.Sprintf("%s[%s@%s]", conf.AppName, conf.Env, conf.Build)
}
