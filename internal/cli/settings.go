package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/0xknstntn/news-checker/internal/model"
)

const envPrefix = "NEWSCHECK"

// loadDotEnv reads .env from the working directory when present.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// bindEnv registers NEWSCHECK_<SECTION>_<KEY> for every config key so
// environment-only settings reach Unmarshal.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys(reflect.TypeOf(model.Config{}), "") {
		_ = v.BindEnv(key)
	}
}

// configKeys lists dotted mapstructure keys of t's leaf fields
func configKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, configKeys(f.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// loadConfig resolves flags, environment, config file and defaults into a
// validated Config. Provider secrets fill still-empty credential fields.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var secrets model.Secrets
	if err := env.Parse(&secrets); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	cfg.ApplySecrets(secrets)

	// The LLM strategy is the default once a provider is configured.
	if cfg.LLM.Provider != "" && !v.IsSet("verify.strategy") {
		cfg.Verify.Strategy = "llm"
	}
	return cfg, nil
}

// resolveConfig loads the process configuration, lets the command adjust
// it, then validates the result
func resolveConfig(adjust func(*model.Config)) (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return home + "/.newscheck", nil
}
