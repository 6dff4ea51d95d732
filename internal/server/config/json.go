package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fedinode/internal/flagx"
	"github.com/dmitrijs2005/fedinode/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its non-zero fields are copied into the runtime
// Config struct.
type JsonConfig struct {
	EndpointAddrHTTP           string         `json:"endpoint_addr_http"`
	DatabaseDSN                string         `json:"database_dsn"`
	BaseURL                    string         `json:"base_url"`
	Domain                     string         `json:"domain"`
	SecretKey                  string         `json:"secret_key"`
	AdminTokenValidityDuration timex.Duration `json:"admin_token_validity_duration"`
	KeyBits                    int            `json:"key_bits"`
	RemoteFetchTimeout         timex.Duration `json:"remote_fetch_timeout"`
	RemoteMaxBodyBytes         int64          `json:"remote_max_body_bytes"`
	ActorCacheTTL              timex.Duration `json:"actor_cache_ttl"`
	ActorCacheSize             int            `json:"actor_cache_size"`
	LogLevel                   string         `json:"log_level"`
	S3RootUser                 string         `json:"s3_root_user"`
	S3RootPassword             string         `json:"s3_root_password"`
	S3Bucket                   string         `json:"s3_bucket"`
	S3Region                   string         `json:"s3_region"`
	S3BaseEndpoint             string         `json:"s3_base_endpoint"`
	MediaPublicURL             string         `json:"media_public_url"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c/-config flags or the FEDINODE_CONFIG
// environment variable (see flagx.ConfigFilePath). If neither is set, no JSON
// file is loaded. If the file cannot be read or contains invalid JSON, the
// function panics.
//
// Only fields present (non-zero) in the file override the current values.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.Domain, c.Domain)
	setString(&config.SecretKey, c.SecretKey)
	if c.AdminTokenValidityDuration.Duration != 0 {
		config.AdminTokenValidityDuration = c.AdminTokenValidityDuration.Duration
	}
	if c.KeyBits != 0 {
		config.KeyBits = c.KeyBits
	}
	if c.RemoteFetchTimeout.Duration != 0 {
		config.RemoteFetchTimeout = c.RemoteFetchTimeout.Duration
	}
	if c.RemoteMaxBodyBytes != 0 {
		config.RemoteMaxBodyBytes = c.RemoteMaxBodyBytes
	}
	if c.ActorCacheTTL.Duration != 0 {
		config.ActorCacheTTL = c.ActorCacheTTL.Duration
	}
	if c.ActorCacheSize != 0 {
		config.ActorCacheSize = c.ActorCacheSize
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.MediaPublicURL, c.MediaPublicURL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
