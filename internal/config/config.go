// Package config loads application settings and the cycle environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application settings for marineprep. Cycle-specific values
// come from the process environment instead, see Cycle.
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	CyclePaths CyclePathsConfig `mapstructure:"cycle_paths"`
	Repair     RepairConfig     `mapstructure:"repair"`
	Manifest   ManifestConfig   `mapstructure:"manifest"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Server     ServerConfig     `mapstructure:"server"`
}

type PathsConfig struct {
	LogDir   string   `mapstructure:"log_dir"`
	EnvFiles []string `mapstructure:"env_files"`
}

// TemplatesConfig lists template locations. Relative paths are resolved
// against the GDAS home directory of the cycle.
type TemplatesConfig struct {
	Stage            string `mapstructure:"stage"`
	Gridgen          string `mapstructure:"gridgen"`
	ParametricStddev string `mapstructure:"parametric_stddev"`
	Corscales        string `mapstructure:"corscales"`
	BumpC            string `mapstructure:"bump_c"`
	SaberBlocks      string `mapstructure:"saber_blocks"`
	Variational      string `mapstructure:"variational"`
	InputNML         string `mapstructure:"input_nml"`
}

// CyclePathsConfig holds $(KEY) templates for the cycle directories, used
// when a run targets a cycle other than the environment's CDATE. Keys are
// environment variables plus CDATE, PDY, cyc and the previous cycle as
// GDATE, gPDY and gcyc.
type CyclePathsConfig struct {
	ComOut   string `mapstructure:"comout"`
	ComInGes string `mapstructure:"comin_ges"`
	ComInObs string `mapstructure:"comin_obs"`
}

type RepairConfig struct {
	Backend     string   `mapstructure:"backend"`
	NcattedPath string   `mapstructure:"ncatted_path"`
	Variables   []string `mapstructure:"variables"`
	Attributes  []string `mapstructure:"attributes"`
	Sentinel    float64  `mapstructure:"sentinel"`
	Strict      bool     `mapstructure:"strict"`
}

type ManifestConfig struct {
	Pattern       string `mapstructure:"pattern"`
	FileName      string `mapstructure:"file_name"`
	ValidateTimes bool   `mapstructure:"validate_times"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
	Color    bool   `mapstructure:"color"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type NotifyConfig struct {
	SMSTo []string `mapstructure:"sms_to"`
}

type ServerConfig struct {
	Bind              string  `mapstructure:"bind"`
	RateLimit         float64 `mapstructure:"rate_limit"`
	RunTimeoutMinutes int     `mapstructure:"run_timeout_minutes"`
}

// Repair backends.
const (
	BackendNative  = "native"
	BackendNcatted = "ncatted"
)

// Load reads the application config. An empty configPath searches the usual
// locations and falls back to defaults when no file exists; an explicit path
// must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("marineprep")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/marineprep")
		v.AddConfigPath("/etc/marineprep")
	}

	setDefaults(v)

	v.SetEnvPrefix("MARINEPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("error resolving relative paths: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.log_dir", "logs")
	v.SetDefault("paths.env_files", []string{".env", ".env.local"})

	v.SetDefault("templates.stage", "parm/templates/stage.yaml")
	v.SetDefault("templates.gridgen", "parm/soca/gridgen/gridgen.yaml")
	v.SetDefault("templates.parametric_stddev", "parm/soca/berror/parametric_stddev_b.yaml")
	v.SetDefault("templates.corscales", "parm/soca/berror/soca_setcorscales.yaml")
	v.SetDefault("templates.bump_c", "parm/soca/berror/soca_bump_C_split.yaml")
	v.SetDefault("templates.saber_blocks", "parm/soca/berror/saber_blocks.yaml")
	v.SetDefault("templates.variational", "parm/soca/variational/3dvarfgat.yaml")
	v.SetDefault("templates.input_nml", "parm/soca/fms/input.nml")

	v.SetDefault("cycle_paths.comout", "")
	v.SetDefault("cycle_paths.comin_ges", "")
	v.SetDefault("cycle_paths.comin_obs", "")

	v.SetDefault("repair.backend", BackendNative)
	v.SetDefault("repair.ncatted_path", "ncatted")
	v.SetDefault("repair.variables", []string{"Temp", "Salt", "ave_ssh", "h", "MLD"})
	v.SetDefault("repair.attributes", []string{"_FillValue", "missing_value"})
	v.SetDefault("repair.sentinel", 9999.0)
	v.SetDefault("repair.strict", false)

	v.SetDefault("manifest.pattern", "gdas.t*.ocnf00[4-9]")
	v.SetDefault("manifest.file_name", "bkg_list.yaml")
	v.SetDefault("manifest.validate_times", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("server.bind", ":8088")
	v.SetDefault("server.rate_limit", 5)
	v.SetDefault("server.run_timeout_minutes", 60)
}

func (c *Config) resolvePaths() error {
	var err error
	if c.Paths.LogDir != "" {
		if c.Paths.LogDir, err = filepath.Abs(c.Paths.LogDir); err != nil {
			return fmt.Errorf("failed to resolve LogDir: %w", err)
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Repair.Backend {
	case BackendNative, BackendNcatted:
	default:
		return fmt.Errorf("repair.backend must be %q or %q, got %q", BackendNative, BackendNcatted, c.Repair.Backend)
	}
	if c.Manifest.FileName == "" {
		return errors.New("manifest.file_name must be set")
	}
	if c.Database.Enabled && c.Database.Name == "" {
		return errors.New("database.name must be set when database.enabled is true")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}
