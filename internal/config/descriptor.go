package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Document store drivers.
const (
	DocStoreRedis    = "redis"
	DocStoreSQLite   = "sqlite"
	DocStorePostgres = "postgres"
)

// ConfigError lists missing or invalid service settings. It never stops the
// process: the descriptor is simply not ready and every remote operation
// reports the reason.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration incomplete: " + strings.Join(parts, "; ")
}

type IdentityService struct {
	File     string        `json:"file"`
	Secret   string        `json:"-"`
	TokenTTL time.Duration `json:"tokenTtl"`
}

type ObjectService struct {
	RedisAddr          string        `json:"redisAddr"`
	PublicURL          string        `json:"publicUrl"`
	PublicRead         bool          `json:"publicRead"`
	Prefix             string        `json:"prefix"`
	DownloadURLTimeout time.Duration `json:"downloadUrlTimeout"`
}

type DocumentService struct {
	Driver     string `json:"driver"`
	DSN        string `json:"-"`
	RedisAddr  string `json:"redisAddr,omitempty"`
	Collection string `json:"collection"`
}

// Descriptor describes how to reach the three external services.
type Descriptor struct {
	Ready     bool            `json:"ready"`
	Reason    string          `json:"reason,omitempty"`
	Identity  IdentityService `json:"identity"`
	Objects   ObjectService   `json:"objects"`
	Documents DocumentService `json:"documents"`

	err *ConfigError
}

// Err returns the ConfigError behind a not-ready descriptor, or nil.
func (d Descriptor) Err() error {
	if d.err == nil {
		return nil
	}
	return d.err
}

// JSON renders the descriptor. Secrets are never included.
func (d Descriptor) JSON() string {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"ready":false,"reason":%q}`, err.Error())
	}
	return string(b)
}

// Resolve builds the service descriptor from cfg. Missing required values
// produce a not-ready descriptor with a human-readable reason.
func Resolve(cfg *Config) Descriptor {
	d := Descriptor{
		Identity: IdentityService{
			File:     cfg.IdentityFile,
			Secret:   cfg.TokenSecret,
			TokenTTL: cfg.TokenTTL,
		},
		Objects: ObjectService{
			RedisAddr:          cfg.RedisAddr,
			PublicURL:          cfg.ObjectPublicURL,
			PublicRead:         cfg.ObjectPublicRead,
			Prefix:             cfg.ObjectPrefix,
			DownloadURLTimeout: cfg.DownloadURLTimeout,
		},
		Documents: DocumentService{
			Driver:     cfg.DocStore,
			DSN:        cfg.DocStoreDSN,
			Collection: cfg.Collection,
		},
	}

	ce := &ConfigError{}
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			ce.Missing = append(ce.Missing, key)
		}
	}

	require("BANNERS_IDENTITY_FILE", cfg.IdentityFile)
	require("BANNERS_TOKEN_SECRET", cfg.TokenSecret)
	require("BANNERS_REDIS_ADDR", cfg.RedisAddr)
	require("BANNERS_OBJECT_PUBLIC_URL", cfg.ObjectPublicURL)
	require("BANNERS_COLLECTION", cfg.Collection)

	if cfg.ObjectPublicURL != "" {
		if u, err := url.Parse(cfg.ObjectPublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			ce.Invalid = append(ce.Invalid, "BANNERS_OBJECT_PUBLIC_URL")
		}
	}

	switch cfg.DocStore {
	case DocStoreRedis:
		d.Documents.RedisAddr = cfg.RedisAddr
	case DocStoreSQLite, DocStorePostgres:
		require("BANNERS_DOCSTORE_DSN", cfg.DocStoreDSN)
	default:
		ce.Invalid = append(ce.Invalid, "BANNERS_DOCSTORE")
	}

	if len(ce.Missing) == 0 && len(ce.Invalid) == 0 {
		d.Ready = true
		return d
	}
	d.err = ce
	d.Reason = ce.Error()
	return d
}
