// Package config loads the settings of a contract test run.
//
// Settings come from an optional JSON or YAML file, then from FELINA_TEST_* environment
// variables, then from command-line flags, each overriding the one before. The defaults
// describe a checkout of the Felina server run from its own root directory, so a run with
// no settings at all behaves the way the server's own test script did.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/felina/server-contract-tests/servicedef"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "FELINA_TEST"

// DefaultScenarioFile is the file the server's test directory keeps the scenario inputs in.
const DefaultScenarioFile = "test/testConfig.json"

type Config struct {
	RegisterDetails servicedef.RegisterDetails `mapstructure:"register_details"`
	ProjectDetails  servicedef.ProjectDetails  `mapstructure:"project_details"`
	Images          Images                     `mapstructure:"images"`
	Metadata        Metadata                   `mapstructure:"metadata"`
	Server          Server                     `mapstructure:"server"`
	Store           Store                      `mapstructure:"store"`
	Swap            Swap                       `mapstructure:"swap"`
	Debug           bool                       `mapstructure:"debug"`
	DebugAll        bool                       `mapstructure:"debug_all"`
}

// Images are the two image files uploaded by the scenario. The first one is also used for
// the duplicate-upload and metadata tests.
type Images struct {
	TestImage1 string `mapstructure:"test_image1"`
	TestImage2 string `mapstructure:"test_image2"`
}

type Metadata struct {
	Datetime string `mapstructure:"datetime"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Command is a shell command line. If Args is set it is used instead, each element
	// quoted for the shell.
	Command        string        `mapstructure:"command"`
	Args           []string      `mapstructure:"args"`
	Dir            string        `mapstructure:"dir"`
	ReadyMarker    string        `mapstructure:"ready_marker"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SessionCookie  string        `mapstructure:"session_cookie"`
	APIVersion     string        `mapstructure:"api_version"`
	ProfileImage   string        `mapstructure:"default_profile_image"`
	// Output is a file to append the server's output to once it is ready.
	Output string `mapstructure:"output"`
}

// BaseURL is the address of the server under test.
func (s Server) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

type Store struct {
	Driver          string   `mapstructure:"driver"`
	Script          string   `mapstructure:"script"`
	CanonicalSchema string   `mapstructure:"canonical_schema"`
	TestSchema      string   `mapstructure:"test_schema"`
	VerifyTables    []string `mapstructure:"verify_tables"`
}

type Swap struct {
	Active string `mapstructure:"active"`
	Test   string `mapstructure:"test"`
	Backup string `mapstructure:"backup"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.command", "node src/index.js")
	v.SetDefault("server.startup_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.session_cookie", servicedef.DefaultSessionCookie)
	v.SetDefault("server.api_version", "0.1.0")
	v.SetDefault("server.default_profile_image",
		"http://citizen.science.image.storage.public.s3-website-eu-west-1.amazonaws.com/user.png")

	v.SetDefault("store.script", "tools/createDB.sql")
	v.SetDefault("store.canonical_schema", "felina")
	v.SetDefault("store.test_schema", "felinaTest")

	v.SetDefault("swap.active", "config/db_settings.json")
	v.SetDefault("swap.test", "test/db_settingsTest.json")
	v.SetDefault("swap.backup", "test/db_settings.json")

	v.SetDefault("metadata.datetime", "2014-02-14T03:39:13.000Z")
}

// Load reads the settings. If path is empty, the default scenario file is used if it
// exists. Flags that were set on the command line override everything else; flags may be
// nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	explicit := path != ""
	if !explicit {
		path = DefaultScenarioFile
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read configuration from %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if cfg.Server.ReadyMarker == "" {
		cfg.Server.ReadyMarker = fmt.Sprintf("Listening on %d", cfg.Server.Port)
	}
	return cfg, nil
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// unsetKeys are the settings with no default. AutomaticEnv only reaches keys viper already
// knows about, so these are bound to their environment variables explicitly.
var unsetKeys = []string{
	"register_details.email",
	"register_details.name",
	"register_details.pass",
	"register_details.gravatar",
	"project_details.name",
	"project_details.desc",
	"images.test_image1",
	"images.test_image2",
	"server.args",
	"server.dir",
	"server.ready_marker",
	"server.output",
	"store.driver",
	"store.verify_tables",
	"debug",
	"debug_all",
}

// EnvVar returns the environment variable that overrides a setting key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

func bindEnv(v *viper.Viper) error {
	for _, key := range unsetKeys {
		if err := v.BindEnv(key, EnvVar(key)); err != nil {
			return fmt.Errorf("failed to bind %s to the environment: %w", key, err)
		}
	}
	return nil
}

// flagKeys maps command-line flag names to setting keys.
var flagKeys = map[string]string{
	"port":            "server.port",
	"command":         "server.command",
	"dir":             "server.dir",
	"startup-timeout": "server.startup_timeout",
	"server-output":   "server.output",
	"driver":          "store.driver",
	"schema-script":   "store.script",
	"debug":           "debug",
	"debug-all":       "debug_all",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}
	return nil
}

// Validate checks that everything a run needs has been set.
func (c *Config) Validate() error {
	var problems []string
	need := func(value, name string) {
		if value == "" {
			problems = append(problems, name+" is required")
		}
	}
	need(c.RegisterDetails.Email, "register_details.email")
	need(c.RegisterDetails.Name, "register_details.name")
	need(c.RegisterDetails.Pass, "register_details.pass")
	need(c.ProjectDetails.Name, "project_details.name")
	need(c.Images.TestImage1, "images.test_image1")
	need(c.Images.TestImage2, "images.test_image2")
	need(c.Store.Script, "store.script")
	need(c.Store.TestSchema, "store.test_schema")
	need(c.Swap.Active, "swap.active")
	need(c.Swap.Test, "swap.test")
	need(c.Swap.Backup, "swap.backup")
	need(c.Server.Host, "server.host")
	if c.Server.Command == "" && len(c.Server.Args) == 0 {
		problems = append(problems, "server.command or server.args is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.StartupTimeout <= 0 {
		problems = append(problems, "server.startup_timeout must be positive")
	}
	if c.Images.TestImage1 != "" && c.Images.TestImage1 == c.Images.TestImage2 {
		problems = append(problems, "images.test_image1 and images.test_image2 must be different files")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
