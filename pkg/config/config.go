// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/go-core-stack/perfrec-auth/pkg/auth"
)

const (
	envDotEnvFile         = "PERFREC_ENV_FILE"
	envAppEnv             = "APP_ENV"
	envListenAddr         = "PERFREC_LISTEN_ADDR"
	envKeysFile           = "PERFREC_KEYS_FILE"
	envKeysRedisAddr      = "PERFREC_KEYS_REDIS_ADDR"
	envKeysRedisPassword  = "PERFREC_KEYS_REDIS_PASSWORD"
	envKeysRedisDB        = "PERFREC_KEYS_REDIS_DB"
	envKeysRedisKey       = "PERFREC_KEYS_REDIS_KEY"
	envSkewWindow         = "PERFREC_SKEW_WINDOW"
	envMaxBody            = "PERFREC_MAX_BODY"
	envLogLevel           = "PERFREC_LOG_LEVEL"
	envErrorLog           = "PERFREC_ERROR_LOG"
	envServerReadTimeout  = "PERFREC_SERVER_READ_TIMEOUT"
	envServerWriteTimeout = "PERFREC_SERVER_WRITE_TIMEOUT"
	envServerIdleTimeout  = "PERFREC_SERVER_IDLE_TIMEOUT"
	envGracefulShutdown   = "PERFREC_GRACEFUL_SHUTDOWN"

	envProxyListenAddr    = "PERFREC_PROXY_LISTEN_ADDR"
	envUpstreamURL        = "PERFREC_UPSTREAM_URL"
	envAppID              = "PERFREC_APP_ID"
	envAppKey             = "PERFREC_APP_KEY"
	envRequestTimeout     = "PERFREC_REQUEST_TIMEOUT"
	envInsecureSkipVerify = "PERFREC_UPSTREAM_INSECURE"

	defaultDotEnvFile         = ".env"
	defaultListenAddr         = "127.0.0.1:8080"
	defaultProxyListenAddr    = "127.0.0.1:8081"
	defaultKeysFile           = "./data/keys.json"
	defaultKeysRedisKey       = "perfrec:appkeys"
	defaultErrorLog           = "error.log"
	defaultRequestTimeout     = 15 * time.Second
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second

	// ModeProduction is the APP_ENV value that switches logging to
	// warn-level JSON. It does not change signing or verification.
	ModeProduction = "production"
)

// Common holds the settings shared by the API service and the proxy.
type Common struct {
	Production              bool
	LogLevel                string
	ErrorLogPath            string
	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// Config captures runtime settings for the verifying API service.
type Config struct {
	Common
	ListenAddr        string
	KeysFile          string
	KeysRedisAddr     string
	KeysRedisPassword string
	KeysRedisDB       int
	KeysRedisKey      string
	SkewWindow        int
	MaxBodyBytes      int64
}

// ProxyConfig captures runtime settings for the signing proxy.
type ProxyConfig struct {
	Common
	ListenAddr         string
	Upstream           *url.URL
	AppID              string
	AppKey             string
	RequestTimeout     time.Duration
	InsecureSkipVerify bool
}

// Load reads the service configuration from the environment (after an
// optional .env file) and validates it.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	window := getInt(envSkewWindow, auth.DefaultWindow)
	if window < 0 || window > 59 {
		return Config{}, fmt.Errorf("%s must be between 0 and 59 minutes, got %d", envSkewWindow, window)
	}

	cfg := Config{
		Common:            loadCommon(),
		ListenAddr:        getString(envListenAddr, defaultListenAddr),
		KeysFile:          getString(envKeysFile, defaultKeysFile),
		KeysRedisAddr:     strings.TrimSpace(os.Getenv(envKeysRedisAddr)),
		KeysRedisPassword: os.Getenv(envKeysRedisPassword),
		KeysRedisDB:       getInt(envKeysRedisDB, 0),
		KeysRedisKey:      getString(envKeysRedisKey, defaultKeysRedisKey),
		SkewWindow:        window,
		MaxBodyBytes:      int64(getInt(envMaxBody, int(auth.DefaultMaxBody))),
	}

	return cfg, nil
}

// LoadProxy reads the proxy configuration from the environment and validates
// required values.
func LoadProxy() (ProxyConfig, error) {
	if err := loadDotEnv(); err != nil {
		return ProxyConfig{}, err
	}

	upstreamRaw := strings.TrimSpace(os.Getenv(envUpstreamURL))
	if upstreamRaw == "" {
		return ProxyConfig{}, errors.New("PERFREC_UPSTREAM_URL is required")
	}

	upstream, err := url.Parse(upstreamRaw)
	if err != nil {
		return ProxyConfig{}, fmt.Errorf("invalid PERFREC_UPSTREAM_URL: %w", err)
	}
	if !upstream.IsAbs() {
		return ProxyConfig{}, errors.New("PERFREC_UPSTREAM_URL must be absolute (scheme://host)")
	}

	appID := strings.TrimSpace(os.Getenv(envAppID))
	if appID == "" {
		return ProxyConfig{}, errors.New("PERFREC_APP_ID is required")
	}

	appKey := strings.TrimSpace(os.Getenv(envAppKey))
	if appKey == "" {
		return ProxyConfig{}, errors.New("PERFREC_APP_KEY is required")
	}

	cfg := ProxyConfig{
		Common:             loadCommon(),
		ListenAddr:         getString(envProxyListenAddr, defaultProxyListenAddr),
		Upstream:           upstream,
		AppID:              appID,
		AppKey:             appKey,
		RequestTimeout:     getDuration(envRequestTimeout, defaultRequestTimeout),
		InsecureSkipVerify: getBool(envInsecureSkipVerify, false),
	}

	return cfg, nil
}

func loadCommon() Common {
	production := strings.EqualFold(strings.TrimSpace(os.Getenv(envAppEnv)), ModeProduction)

	defaultLevel := "debug"
	if production {
		defaultLevel = "warn"
	}

	return Common{
		Production:              production,
		LogLevel:                strings.ToLower(getString(envLogLevel, defaultLevel)),
		ErrorLogPath:            getString(envErrorLog, defaultErrorLog),
		ServerReadTimeout:       getDuration(envServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(envServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(envServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(envGracefulShutdown, defaultGracefulShutdown),
	}
}

// loadDotEnv populates unset variables from the .env file, if there is one.
// Variables already present in the environment win.
func loadDotEnv() error {
	path := getString(envDotEnvFile, defaultDotEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
