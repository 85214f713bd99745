/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Migration *Config `mapstructure:"migration" json:"migration" yaml:"migration"`
}

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name: "all parameters",
			cfgData: `
migration:
  root: /opt/app/migrations
  directoryMode: true
  checksum: false
  pattern: '\.sql$'
  encoding: windows-1251
  schema: app
  table: app_version
  retry:
    count: 5
    delay: 500ms
  lockKey: app-migration
  timeout: 2m
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Root = "/opt/app/migrations"
				cfg.DirectoryMode = true
				cfg.Checksum = false
				cfg.Pattern = `\.sql$`
				cfg.Encoding = "windows-1251"
				cfg.Schema = "app"
				cfg.Table = "app_version"
				cfg.Retry = RetryConfig{Count: 5, Delay: config.TimeDuration(500 * time.Millisecond)}
				cfg.LockKey = "app-migration"
				cfg.Timeout = config.TimeDuration(2 * time.Minute)
				return cfg
			},
		},
		{
			name: "defaults",
			cfgData: `
migration:
  root: ./migrations
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Root = "./migrations"
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dataType := range []config.DataType{config.DataTypeYAML, config.DataTypeJSON} {
				cfgData := tt.cfgData
				if dataType == config.DataTypeJSON {
					cfgData = string(mustYAMLToJSON([]byte(cfgData)))
				}

				// Load config using config.Loader.
				appCfg := AppConfig{Migration: NewDefaultConfig()}
				expectedAppCfg := AppConfig{Migration: tt.expectedCfg()}
				cfgLoader := config.NewLoader(config.NewViperAdapter())
				err := cfgLoader.LoadFromReader(bytes.NewBuffer([]byte(cfgData)), dataType, appCfg.Migration)
				require.NoError(t, err)
				require.Equal(t, expectedAppCfg, appCfg)

				// Load config using viper unmarshal.
				appCfg = AppConfig{Migration: NewDefaultConfig()}
				expectedAppCfg = AppConfig{Migration: tt.expectedCfg()}
				vpr := viper.New()
				vpr.SetConfigType(string(dataType))
				require.NoError(t, vpr.ReadConfig(bytes.NewBuffer([]byte(cfgData))))
				require.NoError(t, vpr.Unmarshal(&appCfg, func(c *mapstructure.DecoderConfig) {
					c.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
				}))
				require.Equal(t, expectedAppCfg, appCfg)

				// Load config using yaml/json unmarshal.
				appCfg = AppConfig{Migration: NewDefaultConfig()}
				expectedAppCfg = AppConfig{Migration: tt.expectedCfg()}
				switch dataType {
				case config.DataTypeYAML:
					require.NoError(t, yaml.Unmarshal([]byte(cfgData), &appCfg))
					require.Equal(t, expectedAppCfg, appCfg)
				case config.DataTypeJSON:
					require.NoError(t, json.Unmarshal([]byte(cfgData), &appCfg))
					require.Equal(t, expectedAppCfg, appCfg)
				}
			}
		})
	}
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfgData := `
db:
  migrations:
    root: ./db/migrations
    table: versions
`
	cfg := NewConfig(WithKeyPrefix("db.migrations"))
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, "./db/migrations", cfg.Root)
	require.Equal(t, "versions", cfg.Table)
	require.Equal(t, DefaultSchema, cfg.Schema)
	require.True(t, cfg.Checksum)

	emptyCfg := &Config{}
	require.Equal(t, "migration", emptyCfg.KeyPrefix())
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{
			name: "missing root",
			yamlData: `
migration:
  table: versions
`,
			expectedErrMsg: `migration.root: must not be empty`,
		},
		{
			name: "negative retry count",
			yamlData: `
migration:
  root: ./migrations
  retry:
    count: -1
`,
			expectedErrMsg: `migration.retry.count: must be positive`,
		},
		{
			name: "invalid retry delay",
			yamlData: `
migration:
  root: ./migrations
  retry:
    delay: invalid-duration
`,
			expectedErrMsg: `migration.retry.delay: time: invalid duration "invalid-duration"`,
		},
		{
			name: "pattern without version group",
			yamlData: `
migration:
  root: ./migrations
  pattern: '^\d+\.sql$'
`,
			expectedErrMsg: `migration.pattern: invalid migration file pattern "^\\d+\\.sql$": named group "version" is required in file mode`,
		},
		{
			name: "unknown encoding",
			yamlData: `
migration:
  root: ./migrations
  encoding: klingon
`,
			expectedErrMsg: `migration.encoding: invalid migration file encoding "klingon"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(tt.yamlData)), config.DataTypeYAML, cfg)
			require.EqualError(t, err, tt.expectedErrMsg)
		})
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Root = "/migrations"
	cfg.DirectoryMode = true
	cfg.Schema = "app"
	cfg.Retry = RetryConfig{Count: 1, Delay: config.TimeDuration(time.Millisecond)}
	cfg.Timeout = config.TimeDuration(time.Second)

	fs := afero.NewMemMapFs()
	opts, err := cfg.Options(WithFs(fs))
	require.NoError(t, err)
	require.Equal(t, "/migrations", opts.Root())
	require.True(t, opts.DirectoryMode())
	require.Equal(t, DefaultDirectoryPattern, opts.Pattern().String())
	require.Equal(t, "migration:app.schema_version", opts.LockKey())
	require.Equal(t, 1, opts.RetryCount())
	require.Equal(t, time.Millisecond, opts.RetryDelay())
	require.Equal(t, time.Second, opts.Timeout())
	require.Same(t, fs, opts.Fs())
}

func mustYAMLToJSON(yamlData []byte) []byte {
	var yamlMap map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &yamlMap); err != nil {
		panic(err)
	}
	jsonData, err := json.MarshalIndent(yamlMap, "", "  ")
	if err != nil {
		panic(err)
	}
	return jsonData
}
