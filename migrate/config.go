/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
	"golang.org/x/text/encoding/htmlindex"
)

const cfgDefaultKeyPrefix = "migration"

const (
	cfgKeyRoot          = "root"
	cfgKeyDirectoryMode = "directoryMode"
	cfgKeyChecksum      = "checksum"
	cfgKeyPattern       = "pattern"
	cfgKeyEncoding      = "encoding"
	cfgKeySchema        = "schema"
	cfgKeyTable         = "table"
	cfgKeyRetryCount    = "retry.count"
	cfgKeyRetryDelay    = "retry.delay"
	cfgKeyLockKey       = "lockKey"
	cfgKeyTimeout       = "timeout"
)

// Config represents a set of configuration parameters for migrations.
type Config struct {
	Root          string              `mapstructure:"root" yaml:"root" json:"root"`
	DirectoryMode bool                `mapstructure:"directoryMode" yaml:"directoryMode" json:"directoryMode"`
	Checksum      bool                `mapstructure:"checksum" yaml:"checksum" json:"checksum"`
	Pattern       string              `mapstructure:"pattern" yaml:"pattern" json:"pattern"`
	Encoding      string              `mapstructure:"encoding" yaml:"encoding" json:"encoding"`
	Schema        string              `mapstructure:"schema" yaml:"schema" json:"schema"`
	Table         string              `mapstructure:"table" yaml:"table" json:"table"`
	Retry         RetryConfig         `mapstructure:"retry" yaml:"retry" json:"retry"`
	LockKey       string              `mapstructure:"lockKey" yaml:"lockKey" json:"lockKey"`
	Timeout       config.TimeDuration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	keyPrefix string
}

// RetryConfig represents retry parameters of migration operations.
type RetryConfig struct {
	Count int                 `mapstructure:"count" yaml:"count" json:"count"`
	Delay config.TimeDuration `mapstructure:"delay" yaml:"delay" json:"delay"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Checksum = true
	cfg.Encoding = DefaultEncoding
	cfg.Schema = DefaultSchema
	cfg.Table = DefaultTable
	cfg.Retry = RetryConfig{Count: DefaultRetryCount, Delay: config.TimeDuration(DefaultRetryDelay)}
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDirectoryMode, false)
	dp.SetDefault(cfgKeyChecksum, true)
	dp.SetDefault(cfgKeyPattern, "")
	dp.SetDefault(cfgKeyEncoding, DefaultEncoding)
	dp.SetDefault(cfgKeySchema, DefaultSchema)
	dp.SetDefault(cfgKeyTable, DefaultTable)
	dp.SetDefault(cfgKeyRetryCount, DefaultRetryCount)
	dp.SetDefault(cfgKeyRetryDelay, DefaultRetryDelay)
	dp.SetDefault(cfgKeyLockKey, "")
	dp.SetDefault(cfgKeyTimeout, time.Duration(0))
}

// Set sets configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Root, err = dp.GetString(cfgKeyRoot); err != nil {
		return err
	}
	if c.Root == "" {
		return dp.WrapKeyErr(cfgKeyRoot, fmt.Errorf("must not be empty"))
	}
	if c.DirectoryMode, err = dp.GetBool(cfgKeyDirectoryMode); err != nil {
		return err
	}
	if c.Checksum, err = dp.GetBool(cfgKeyChecksum); err != nil {
		return err
	}

	if c.Pattern, err = dp.GetString(cfgKeyPattern); err != nil {
		return err
	}
	if _, err = compilePattern(c.Pattern, c.DirectoryMode); err != nil {
		return dp.WrapKeyErr(cfgKeyPattern, err)
	}

	if c.Encoding, err = dp.GetString(cfgKeyEncoding); err != nil {
		return err
	}
	if _, err = htmlindex.Get(c.Encoding); err != nil {
		return dp.WrapKeyErr(cfgKeyEncoding, fmt.Errorf("%w %q", ErrInvalidEncoding, c.Encoding))
	}

	if c.Schema, err = dp.GetString(cfgKeySchema); err != nil {
		return err
	}
	if c.Table, err = dp.GetString(cfgKeyTable); err != nil {
		return err
	}
	if c.Table == "" {
		return dp.WrapKeyErr(cfgKeyTable, fmt.Errorf("must not be empty"))
	}

	if c.Retry.Count, err = dp.GetInt(cfgKeyRetryCount); err != nil {
		return err
	}
	if c.Retry.Count < 0 {
		return dp.WrapKeyErr(cfgKeyRetryCount, fmt.Errorf("must be positive"))
	}
	var retryDelay time.Duration
	if retryDelay, err = dp.GetDuration(cfgKeyRetryDelay); err != nil {
		return err
	}
	c.Retry.Delay = config.TimeDuration(retryDelay)

	if c.LockKey, err = dp.GetString(cfgKeyLockKey); err != nil {
		return err
	}
	var timeout time.Duration
	if timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	c.Timeout = config.TimeDuration(timeout)

	return nil
}

// Options creates migration Options from the configuration.
// Additional options (e.g., WithFs) are applied after the configured ones.
func (c *Config) Options(opts ...Option) (Options, error) {
	cfgOpts := []Option{
		WithDirectoryMode(c.DirectoryMode),
		WithChecksum(c.Checksum),
		WithPattern(c.Pattern),
		WithEncoding(c.Encoding),
		WithSchema(c.Schema),
		WithTable(c.Table),
		WithRetry(c.Retry.Count, time.Duration(c.Retry.Delay)),
		WithLockKey(c.LockKey),
		WithTimeout(time.Duration(c.Timeout)),
	}
	return NewOptions(c.Root, append(cfgOpts, opts...)...)
}
