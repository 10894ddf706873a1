package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "NOVAHEAP"

type NovaHeapConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Backend       string `mapstructure:"backend"` // file | leveldb
		Dir           string `mapstructure:"dir"`
		BlockSize     int    `mapstructure:"block_size"`
		SegmentBlocks int    `mapstructure:"segment_blocks"`
	} `mapstructure:"storage"`

	Catalog struct {
		CacheSize int64 `mapstructure:"cache_size"`
	} `mapstructure:"catalog"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // text | json
	} `mapstructure:"log"`
}

// SetDefaults registers every config key with its default value, so
// environment overrides work even when the key is absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novaheap")
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.block_size", 4096)
	v.SetDefault("storage.segment_blocks", 262144)
	v.SetDefault("catalog.cache_size", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// NewViper returns a viper instance with defaults and NOVAHEAP_* env overrides.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func LoadConfig(path string) (*NovaHeapConfig, error) {
	v := NewViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Decode(v)
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() *NovaHeapConfig {
	cfg, err := Decode(NewViper())
	if err != nil {
		// defaults are static and always decode
		panic(err)
	}
	return cfg
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*NovaHeapConfig, error) {
	var cfg NovaHeapConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *NovaHeapConfig) Validate() error {
	switch c.Storage.Backend {
	case "file", "leveldb":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	// slot offsets are u16, so the last byte of a block must be addressable
	if c.Storage.BlockSize < 64 || c.Storage.BlockSize > 1<<16 {
		return fmt.Errorf("config: block_size %d out of range [64, 65536]", c.Storage.BlockSize)
	}
	if c.Storage.SegmentBlocks <= 0 {
		return fmt.Errorf("config: segment_blocks must be positive")
	}
	if c.Catalog.CacheSize <= 0 {
		return fmt.Errorf("config: catalog.cache_size must be positive")
	}
	return nil
}
