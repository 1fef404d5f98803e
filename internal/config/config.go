package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port          int
	DataPath      string
	DBPath        string
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	SourceLang    string
	TargetLang    string
	CORSOrigins   []string
}

// fileConfig mirrors the optional TOML overlay at CONFIG_PATH. Only the
// fields set in the file override the environment-derived values.
type fileConfig struct {
	Port          int      `toml:"port"`
	DataPath      string   `toml:"data_path"`
	DBPath        string   `toml:"db_path"`
	JWTSecret     string   `toml:"jwt_secret"`
	AdminUsername string   `toml:"admin_username"`
	AdminPassword string   `toml:"admin_password"`
	SourceLang    string   `toml:"source_lang"`
	TargetLang    string   `toml:"target_lang"`
	CORSOrigins   []string `toml:"cors_origins"`
}

func Load() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	dataPath := getEnv("DATA_PATH", "/data")

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	cfg := &Config{
		Port:          port,
		DataPath:      dataPath,
		DBPath:        getEnv("DB_PATH", dataPath+"/captionstream.db"),
		JWTSecret:     jwtSecret,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		SourceLang:    getEnv("SOURCE_LANG", "auto"),
		TargetLang:    getEnv("TARGET_LANG", "fi"),
		CORSOrigins:   corsOrigins,
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Fatalf("Failed to load config file %s: %v", path, err)
		}
	}

	return cfg
}

// applyFile overlays values from a TOML file onto the config.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Port != 0 {
		c.Port = fc.Port
	}
	if fc.DataPath != "" {
		c.DataPath = fc.DataPath
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.JWTSecret != "" {
		c.JWTSecret = fc.JWTSecret
	}
	if fc.AdminUsername != "" {
		c.AdminUsername = fc.AdminUsername
	}
	if fc.AdminPassword != "" {
		c.AdminPassword = fc.AdminPassword
	}
	if fc.SourceLang != "" {
		c.SourceLang = fc.SourceLang
	}
	if fc.TargetLang != "" {
		c.TargetLang = fc.TargetLang
	}
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
