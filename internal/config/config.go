// Package config loads the jobform settings from a config file, JOBFORM_*
// environment variables and command-line flags, and the Databricks
// credentials from the plain DATABRICKS_* environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/goliatone/go-jobform/pkg/jobs"
)

const (
	EnvPrefix  = "JOBFORM"
	ConfigName = "jobform"

	BackendDatabricks = "databricks"
	BackendMemory     = "memory"

	SchemasDirKey        = "schemas_dir"
	DeploymentTargetKey  = "deployment_target"
	QualifierTemplateKey = "qualifier_template"
	BackendKey           = "backend"
	CallTimeoutKey       = "call_timeout"
	CacheTTLKey          = "cache_ttl"
	ListenKey            = "listen"
	LogLevelKey          = "log_level"
	LogFormatKey         = "log_format"
	RendererKey          = "renderer"
	TemplatesDirKey      = "templates_dir"
	ThemeNameKey         = "theme.name"
	ThemeVariantKey      = "theme.variant"
)

// Config holds the settings shared by every jobform command.
type Config struct {
	SchemasDir        string        `mapstructure:"schemas_dir" validate:"required"`
	DeploymentTarget  string        `mapstructure:"deployment_target"`
	QualifierTemplate string        `mapstructure:"qualifier_template" validate:"required,contains={job}"`
	Backend           string        `mapstructure:"backend" validate:"oneof=databricks memory"`
	CallTimeout       time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	Listen            string        `mapstructure:"listen" validate:"required"`
	LogLevel          string        `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error"`
	LogFormat         string        `mapstructure:"log_format" validate:"oneof=text json"`
	Renderer          string        `mapstructure:"renderer" validate:"required"`
	TemplatesDir      string        `mapstructure:"templates_dir" validate:"omitempty,dir"`
	Theme             Theme         `mapstructure:"theme"`

	// Databricks is read from the environment, never from the config file.
	Databricks Databricks `mapstructure:"-"`

	v               *viper.Viper
	skipCredentials bool
}

// Theme names a theme declared inline in the config file. An empty Name
// keeps the built-in look.
type Theme struct {
	Name    string            `mapstructure:"name"`
	Variant string            `mapstructure:"variant"`
	Tokens  map[string]string `mapstructure:"tokens"`
}

// Databricks carries the workspace host and either an OAuth machine-to-machine
// client pair or a personal access token.
type Databricks struct {
	Host         string `envconfig:"DATABRICKS_HOST" validate:"omitempty,url"`
	ClientID     string `envconfig:"DATABRICKS_CLIENT_ID" validate:"required_with=ClientSecret"`
	ClientSecret string `envconfig:"DATABRICKS_CLIENT_SECRET" validate:"required_with=ClientID"`
	Token        string `envconfig:"DATABRICKS_TOKEN"`
}

// UsesOAuth reports whether the client credential pair is set. It takes
// precedence over a token.
func (d Databricks) UsesOAuth() bool {
	return d.ClientID != "" && d.ClientSecret != ""
}

// Option adjusts how Load reads its sources.
type Option func(*loadOptions)

type loadOptions struct {
	file            string
	dotenv          []string
	flags           *pflag.FlagSet
	lookups         []string
	skipCredentials bool
}

// WithFile reads settings from path instead of searching the working
// directory for jobform.yaml.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		o.file = strings.TrimSpace(path)
	}
}

// WithDotenv replaces the default ".env" with the given files; no paths
// disables dotenv loading. Missing files are skipped and variables already
// set are never overridden.
func WithDotenv(paths ...string) Option {
	return func(o *loadOptions) {
		o.dotenv = paths
	}
}

// WithFlags binds every flag whose name matches a setting ("schemas-dir"
// binds "schemas_dir"). A flag only wins when it was set explicitly.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *loadOptions) {
		o.flags = fs
	}
}

// SkipCredentials accepts a databricks backend without host or credentials,
// for commands that never reach the backend.
func SkipCredentials() Option {
	return func(o *loadOptions) {
		o.skipCredentials = true
	}
}

// Load creates a Config with its own viper instance. Precedence, highest
// first: explicit flags, JOBFORM_* variables, the config file, defaults.
func Load(opts ...Option) (*Config, error) {
	options := loadOptions{
		dotenv:  []string{".env"},
		lookups: []string{ConfigName + ".yaml", ConfigName + ".yml", "." + ConfigName + ".yaml"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	if err := loadDotenv(options.dotenv); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if options.file != "" {
		v.SetConfigFile(options.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", options.file, err)
		}
	} else {
		for _, name := range options.lookups {
			if _, err := os.Stat(name); err != nil {
				continue
			}
			v.SetConfigFile(name)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: reading %s: %w", name, err)
			}
			break
		}
	}

	if options.flags != nil {
		if err := bindFlags(v, options.flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding settings: %w", err)
	}
	cfg.DeploymentTarget = strings.TrimSpace(cfg.DeploymentTarget)

	if err := envconfig.Process("", &cfg.Databricks); err != nil {
		return nil, fmt.Errorf("config: reading databricks environment: %w", err)
	}
	cfg.Databricks.Host = strings.TrimRight(strings.TrimSpace(cfg.Databricks.Host), "/")

	cfg.v = v
	cfg.skipCredentials = options.skipCredentials
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(SchemasDirKey, "job_configs")
	v.SetDefault(DeploymentTargetKey, "dev")
	v.SetDefault(QualifierTemplateKey, jobs.DefaultQualifierTemplate)
	v.SetDefault(BackendKey, BackendDatabricks)
	v.SetDefault(CallTimeoutKey, 30*time.Second)
	v.SetDefault(CacheTTLKey, 30*time.Minute)
	v.SetDefault(ListenKey, ":8080")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogFormatKey, "text")
	v.SetDefault(RendererKey, "vanilla")
	v.SetDefault(TemplatesDirKey, "")
	v.SetDefault(ThemeNameKey, "")
	v.SetDefault(ThemeVariantKey, "")
}

func loadDotenv(paths []string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: loading %s: %w", path, err)
		}
	}
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	known := make(map[string]struct{})
	for _, key := range v.AllKeys() {
		known[key] = struct{}{}
	}

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if _, ok := known[key]; !ok || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("config: binding flag --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

// Validate checks the loaded settings. The Databricks host and credentials
// are only required when the databricks backend is selected.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("config: invalid settings: %s: %w", strings.Join(problems, "; "), err)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterStructValidation(validateBackend, Config{})
	return v
}

func validateBackend(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok || cfg.Backend != BackendDatabricks || cfg.skipCredentials {
		return
	}
	db := cfg.Databricks
	if db.Host == "" {
		sl.ReportError(db.Host, "DATABRICKS_HOST", "Host", "required", "")
	}
	if db.Token == "" && !db.UsesOAuth() {
		sl.ReportError(db.Token, "DATABRICKS_TOKEN", "Token", "credentials", "")
	}
}

func describe(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "required_with":
		return fmt.Sprintf("%s is required together with %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return name + " must be a URL"
	case "dir":
		return fmt.Sprintf("%s %q is not a directory", name, fmt.Sprint(fe.Value()))
	case "gt":
		return name + " must be positive"
	case "contains":
		return fmt.Sprintf("%s must contain %s", name, fe.Param())
	case "credentials":
		return "DATABRICKS_TOKEN or DATABRICKS_CLIENT_ID and DATABRICKS_CLIENT_SECRET must be set"
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

// Viper returns the instance the config was loaded from.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// ConfigFileUsed returns the config file that was read, if any.
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// MaskSecret hides all but the edges of a secret for display.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Print writes a human-readable summary with secrets masked.
func (c *Config) Print(printf func(string, ...any)) {
	printf("Configuration:\n")
	if file := c.ConfigFileUsed(); file != "" {
		printf("  File: %s\n", file)
	}
	printf("  Schemas: %s\n", c.SchemasDir)
	printf("  Backend: %s\n", c.Backend)
	printf("  Target: %s\n", c.DeploymentTarget)
	printf("  Qualifier: %s\n", c.QualifierTemplate)
	printf("  Timeouts: call=%s cache=%s\n", c.CallTimeout, c.CacheTTL)
	if c.Backend == BackendDatabricks {
		printf("  Databricks host: %s\n", c.Databricks.Host)
		if c.Databricks.UsesOAuth() {
			printf("  Databricks auth: OAuth client %s\n", MaskSecret(c.Databricks.ClientID))
		} else {
			printf("  Databricks auth: token %s\n", MaskSecret(c.Databricks.Token))
		}
	}
}
