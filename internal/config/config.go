package config

import (
	"errors"
	"fmt"
	"go/token"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/timmy/eulergen/internal/domain"
)

type Config struct {
	Generator GeneratorConfig `mapstructure:"generator"`
	Source    SourceConfig    `mapstructure:"source"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type GeneratorConfig struct {
	Destination              string `mapstructure:"destination"`
	ClassPrefix              string `mapstructure:"class_prefix"`
	Package                  string `mapstructure:"package"`
	SubpackagePrefix         string `mapstructure:"subpackage_prefix"`
	GeneratePackageStructure bool   `mapstructure:"generate_package_structure"`
	Overwrite                bool   `mapstructure:"overwrite"`
	BatchSize                int    `mapstructure:"batch_size"`
	Workers                  int    `mapstructure:"workers"`
	BucketWidth              int    `mapstructure:"bucket_width"`
	Extension                string `mapstructure:"extension"`
}

type SourceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	// SnapshotDir reads saved pages instead of the live site, or records into it with Record.
	SnapshotDir string `mapstructure:"snapshot_dir"`
	Record      bool   `mapstructure:"record"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type MirrorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type MetricsConfig struct {
	// Addr enables a /metrics listener during generation when non-empty.
	Addr string `mapstructure:"addr"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("EULERGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials keep their conventional names
	_ = v.BindEnv("mirror.access_key", "EULERGEN_MIRROR_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("mirror.secret_key", "EULERGEN_MIRROR_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("database.dsn", "EULERGEN_DATABASE_DSN", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("generator.destination", "./generated")
	v.SetDefault("generator.class_prefix", "Euler")
	v.SetDefault("generator.package", "example.com/eulersolutions")
	v.SetDefault("generator.subpackage_prefix", "x")
	v.SetDefault("generator.generate_package_structure", true)
	v.SetDefault("generator.overwrite", false)
	v.SetDefault("generator.batch_size", 50)
	v.SetDefault("generator.workers", 4)
	v.SetDefault("generator.bucket_width", 50)
	v.SetDefault("generator.extension", "go")
	v.SetDefault("source.base_url", "https://projecteuler.net")
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.user_agent", "eulergen/1.0")
	v.SetDefault("source.snapshot_dir", "")
	v.SetDefault("source.record", false)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/eulergen.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.endpoint", "localhost:9000")
	v.SetDefault("mirror.use_ssl", false)
	v.SetDefault("mirror.bucket", "euler-stubs")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("metrics.addr", "")
}

// Validate rejects configurations no generation run could succeed with.
func (c *Config) Validate() error {
	g := c.Generator
	var errs []error
	if g.Destination == "" {
		errs = append(errs, errors.New("generator.destination must be set"))
	}
	if g.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("generator.batch_size must be positive, got %d", g.BatchSize))
	}
	if g.Workers < 1 {
		errs = append(errs, fmt.Errorf("generator.workers must be positive, got %d", g.Workers))
	}
	if g.BucketWidth < 1 {
		errs = append(errs, fmt.Errorf("generator.bucket_width must be positive, got %d", g.BucketWidth))
	}
	if !token.IsIdentifier(g.ClassPrefix) {
		errs = append(errs, fmt.Errorf("generator.class_prefix %q is not an identifier", g.ClassPrefix))
	}
	if !token.IsIdentifier(g.SubpackagePrefix) {
		errs = append(errs, fmt.Errorf("generator.subpackage_prefix %q is not an identifier", g.SubpackagePrefix))
	}
	if g.Package == "" || !token.IsIdentifier(path.Base(g.Package)) {
		errs = append(errs, fmt.Errorf("generator.package %q must end in an identifier", g.Package))
	}
	if g.Extension == "" || strings.Contains(g.Extension, ".") {
		errs = append(errs, fmt.Errorf("generator.extension %q must be a bare extension", g.Extension))
	}
	if c.Database.Enabled && c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.Source.Record && c.Source.SnapshotDir == "" {
		errs = append(errs, errors.New("source.record requires source.snapshot_dir"))
	}
	if c.Mirror.Enabled && c.Mirror.Bucket == "" {
		errs = append(errs, errors.New("mirror.bucket must be set when the mirror is enabled"))
	}
	return errors.Join(errs...)
}

// DestinationRoot returns the directory receiving generated files. With package
// structure enabled the import path is appended, one directory per element.
func (g GeneratorConfig) DestinationRoot() string {
	if !g.GeneratePackageStructure {
		return filepath.Clean(g.Destination)
	}
	return filepath.Join(g.Destination, filepath.FromSlash(g.Package))
}

// Settings returns the immutable snapshot handed to every generation job.
func (g GeneratorConfig) Settings() domain.Settings {
	return domain.Settings{
		DestinationRoot:  g.DestinationRoot(),
		ClassPrefix:      g.ClassPrefix,
		Package:          g.Package,
		SubpackagePrefix: g.SubpackagePrefix,
		Extension:        g.Extension,
		BatchSize:        g.BatchSize,
		Workers:          g.Workers,
		BucketWidth:      g.BucketWidth,
		Overwrite:        g.Overwrite,
	}
}
