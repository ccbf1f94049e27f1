package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FEEDBACK_SERVER_PORT.
const EnvPrefix = "FEEDBACK_"

var configLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Logging     LoggingConfig     `yaml:"logging" toml:"logging" envPrefix:"LOGGING_"`
	Site        SiteConfig        `yaml:"site" toml:"site" envPrefix:"SITE_"`
	Server      ServerConfig      `yaml:"server" toml:"server" envPrefix:"SERVER_"`
	Database    DatabaseConfig    `yaml:"database" toml:"database" envPrefix:"DATABASE_"`
	Drafts      DraftsConfig      `yaml:"drafts" toml:"drafts" envPrefix:"DRAFTS_"`
	Posts       PostsConfig       `yaml:"posts" toml:"posts" envPrefix:"POSTS_"`
	Attachments AttachmentsConfig `yaml:"attachments" toml:"attachments" envPrefix:"ATTACHMENTS_"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth" envPrefix:"AUTH_"`
	Theme       ThemeConfig       `yaml:"theme" toml:"theme" envPrefix:"THEME_"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"LEVEL" default:"info"`
	Format string `yaml:"format" toml:"format" env:"FORMAT" default:"console"`
}

type SiteConfig struct {
	Name        string `yaml:"name" toml:"name" env:"NAME" default:"Feedback Board"`
	Description string `yaml:"description" toml:"description" env:"DESCRIPTION" default:"Suggest and vote on product improvements"`
	BaseURL     string `yaml:"base_url" toml:"base_url" env:"BASE_URL" default:"http://localhost:12600"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host" env:"HOST" default:"0.0.0.0"`
	Port string `yaml:"port" toml:"port" env:"PORT" default:"12600"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"PATH" default:"./database.db"`
}

type DraftsConfig struct {
	// Store is either "sqlite" or "memory".
	Store         string        `yaml:"store" toml:"store" env:"STORE" default:"sqlite"`
	MaxAge        time.Duration `yaml:"max_age" toml:"max_age" env:"MAX_AGE" default:"72h"`
	PruneInterval time.Duration `yaml:"prune_interval" toml:"prune_interval" env:"PRUNE_INTERVAL" default:"1h"`
}

type PostsConfig struct {
	TitleMinLength int `yaml:"title_min_length" toml:"title_min_length" env:"TITLE_MIN_LENGTH" default:"10"`
	TitleMaxLength int `yaml:"title_max_length" toml:"title_max_length" env:"TITLE_MAX_LENGTH" default:"100"`
	PerPage        int `yaml:"per_page" toml:"per_page" env:"PER_PAGE" default:"50"`
}

type AttachmentsConfig struct {
	// Backend is either "fs" or "s3".
	Backend    string   `yaml:"backend" toml:"backend" env:"BACKEND" default:"fs"`
	Dir        string   `yaml:"dir" toml:"dir" env:"DIR" default:"./attachments"`
	MaxUploads int      `yaml:"max_uploads" toml:"max_uploads" env:"MAX_UPLOADS" default:"3"`
	Types      []string `yaml:"types" toml:"types" env:"TYPES" default:"image/png,image/jpeg,image/gif,image/webp"`
	S3         S3Config `yaml:"s3" toml:"s3" envPrefix:"S3_"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket" toml:"bucket" env:"BUCKET" default:""`
	Endpoint  string `yaml:"endpoint" toml:"endpoint" env:"ENDPOINT" default:""`
	Region    string `yaml:"region" toml:"region" env:"REGION" default:"auto"`
	PublicURL string `yaml:"public_url" toml:"public_url" env:"PUBLIC_URL" default:""`

	AccessKeyID     string `yaml:"-" toml:"-" env:"ACCESS_KEY_ID"`
	AccessKeySecret string `yaml:"-" toml:"-" env:"ACCESS_KEY_SECRET"`
}

type AuthConfig struct {
	// Type is either "ed25519" or "clerk".
	Type        string `yaml:"type" toml:"type" env:"TYPE" default:"ed25519"`
	HeaderName  string `yaml:"header_name" toml:"header_name" env:"HEADER_NAME" default:"Authorization"`
	AdminUserID string `yaml:"admin_user_id" toml:"admin_user_id" env:"ADMIN_USER_ID" default:"admin"`

	Ed25519PublicKey string `yaml:"-" toml:"-" env:"ED25519_PUBKEY"`
	ClerkKey         string `yaml:"-" toml:"-" env:"CLERK_KEY"`
}

type ThemeConfig struct {
	SyntaxTheme string `yaml:"syntax_theme" toml:"syntax_theme" env:"SYNTAX_THEME" default:"gruvbox"`
}

var AppConfig *Config

// LoadConfig loads path into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load applies defaults, then the file at path (YAML, or TOML for a .toml
// extension), then FEEDBACK_* environment overrides. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	config := &Config{}

	applyDefaults(config)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), config)
		return err
	}
	return yaml.Unmarshal(data, config)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Drafts.Store {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid drafts.store %q: want sqlite or memory", c.Drafts.Store)
	}

	switch c.Attachments.Backend {
	case "fs":
	case "s3":
		if c.Attachments.S3.Bucket == "" {
			return fmt.Errorf("attachments.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("invalid attachments.backend %q: want fs or s3", c.Attachments.Backend)
	}

	switch c.Auth.Type {
	case "ed25519", "clerk":
	default:
		return fmt.Errorf("invalid auth.type %q: want ed25519 or clerk", c.Auth.Type)
	}

	if c.Drafts.MaxAge <= 0 {
		return fmt.Errorf("drafts.max_age must be positive")
	}
	if c.Posts.TitleMinLength > c.Posts.TitleMaxLength {
		return fmt.Errorf("posts.title_min_length exceeds posts.title_max_length")
	}

	return nil
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		if field.Type() == durationType {
			if val, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(val))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
