package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "GIBBS"

var (
	// ErrConfigFileNotFound is returned when an explicit config path does not exist.
	ErrConfigFileNotFound = errors.New("config: file not found")

	// ErrConfigParseError is returned when the config file is not valid YAML.
	ErrConfigParseError = errors.New("config: parse error")
)

// newViper builds a Viper instance with YAML file type, the GIBBS_ env
// prefix, automatic env binding, and a "." → "_" key replacer so that
// "database.postgres.host" resolves to GIBBS_DATABASE_POSTGRES_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k, val := range defaultValues {
		v.SetDefault(k, val)
	}
	return v
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithConfigPath reads the YAML file at path before applying env overrides.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// Load reads the optional YAML file, merges GIBBS_* environment overrides,
// applies defaults for unset fields and validates the result.
func Load(opts ...LoadOption) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	v := newViper()
	if o.path != "" {
		if err := readFile(v, o.path); err != nil {
			return nil, err
		}
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from GIBBS_* environment variables and defaults only.
//
//	GIBBS_<SECTION>_<FIELD>   e.g.  GIBBS_THERMO_PH, GIBBS_DATABASE_DRIVER
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %q", ErrConfigFileNotFound, path)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrConfigParseError, path, err)
	}
	return nil
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch monitors path and invokes onChange with the newly parsed Config
// whenever the file changes. A change that fails to parse or validate is
// reported through onError, if given, and onChange is not called.
//
// Only settings that are safe to swap at runtime (log level, default
// condition) should be applied by the callback.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	if err := readFile(v, path); err != nil {
		return err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load that panics on error. For use in main only.
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
