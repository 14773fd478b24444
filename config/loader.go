package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// LoaderConfig holds the filesystem and optional file overrides.
type LoaderConfig struct {
	Fs         afero.Fs
	ConfigFile string // explicit config file path (optional)
	EnvFile    string // explicit .env file path (optional)
	EnvPrefix  string // defaults to the upper-cased service name
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFs sets the filesystem config and env files are read from.
func WithFs(fs afero.Fs) LoaderOption {
	return func(lc *LoaderConfig) { lc.Fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// LoadConfig loads configuration for a service into cfg. It resolves
// config.yml and .env files, applies prefixed environment variables and
// unmarshals the result. When cfg implements Provider, defaults are applied
// and the result is validated.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Fs == nil {
		lc.Fs = afero.NewOsFs()
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = envPrefix(serviceName)
	}

	files := ResolveFiles(lc.Fs, serviceName, lc)

	v := viper.New()
	v.SetFs(lc.Fs)
	if files.ConfigFile != "" {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}

	if files.EnvFile != "" {
		if err := loadEnvFile(lc.Fs, files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	bindPrefixedEnv(v, lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}

	if p, ok := cfg.(Provider); ok {
		p.ApplyDefaults()
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when they exist, otherwise the first
// match from the standard search locations. Missing files resolve to "".
func ResolveFiles(fs afero.Fs, serviceName string, lc LoaderConfig) ResolvedFiles {
	var files ResolvedFiles

	configPaths := []string{
		fmt.Sprintf("cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		"config/config.yml",
		"config.yml",
	}
	if lc.ConfigFile != "" {
		configPaths = []string{lc.ConfigFile}
	}
	files.ConfigFile = firstExisting(fs, configPaths)

	envPaths := []string{
		fmt.Sprintf("cmd/%s/.env", serviceName),
		fmt.Sprintf(".env.%s", serviceName),
		".env",
	}
	if lc.EnvFile != "" {
		envPaths = []string{lc.EnvFile}
	}
	files.EnvFile = firstExisting(fs, envPaths)

	return files
}

func firstExisting(fs afero.Fs, paths []string) string {
	for _, p := range paths {
		if ok, _ := afero.Exists(fs, p); ok {
			return p
		}
	}
	return ""
}

// loadEnvFile sets variables from a .env file without overriding ones
// already present in the process environment.
func loadEnvFile(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return err
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// bindPrefixedEnv maps PREFIX_A_B=value onto every nesting variant of a_b
// (a.b, a_b) so both nested and snake_case keys resolve.
func bindPrefixedEnv(v *viper.Viper, prefix string) {
	p := prefix + "_"
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, p) {
			continue
		}
		for _, variant := range envKeyVariants(strings.TrimPrefix(key, p)) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants returns the candidate viper keys for an env key:
//
//	SERVER_READ_TIMEOUT -> [server_read_timeout, server.read.timeout, server.read_timeout]
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	variants := []string{lower}
	seen := map[string]bool{lower: true}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			variants = append(variants, s)
		}
	}
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
	}
	return variants
}

func envPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
}
