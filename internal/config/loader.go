// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package config

import (
	"net/mail"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every configuration environment variable. A double
// underscore separates sections: HARBORLIGHT_AUTH__JWT_SECRET sets
// auth.jwt_secret.
const EnvPrefix = "HARBORLIGHT_"

// FlagConfig names the flag holding the YAML file path.
const FlagConfig = "config"

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"environment":  "server.environment",
	"metrics-addr": "metrics.addr",
	"database-url": "database.url",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// BindFlags registers the configuration flags on fs. Defaults shown in
// help come from Default.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagConfig, "", "path to a YAML configuration file")
	fs.String("addr", d.Server.Addr, "API listen address")
	fs.String("environment", d.Server.Environment, "deployment environment (development or production)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics and health listen address (empty disables)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
}

// Load builds a Config from defaults, the file named by the config flag,
// the environment and fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path := configPath(fs); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "decode").Wrap(err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return ""
	}
	return path
}

// envKey maps HARBORLIGHT_SECTION__FIELD_NAME to section.field_name.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", "."), value
}

// flagKey maps a flag to its configuration key. Unmapped flags, including
// the config path itself, are skipped.
func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok {
		return "", nil
	}
	return key, f.Value.String()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the rules that span sections.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return oops.Code("CONFIG_INVALID").Wrapf(err, "configuration validation failed")
	}
	if _, err := mail.ParseAddress(cfg.Mail.From); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "mail.from").Wrapf(err, "invalid sender address")
	}
	if cfg.Mail.Transport == MailTransportHTTP && (cfg.Mail.Endpoint == "" || cfg.Mail.APIKey == "") {
		return oops.Code("CONFIG_INVALID").
			With("field", "mail").
			Errorf("mail.endpoint and mail.api_key are required for the http transport")
	}
	if cfg.Auth.CodeStore == CodeStoreRedis && cfg.Redis.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "redis.addr").
			Errorf("redis.addr is required when auth.code_store is redis")
	}
	if cfg.Server.Production() && strings.HasPrefix(cfg.Site.BaseURL, "http://") {
		return oops.Code("CONFIG_INVALID").
			With("field", "site.base_url").
			Errorf("site.base_url must use https in production")
	}
	return nil
}
