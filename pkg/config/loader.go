package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnv loads variables from the given .env files into the process
// environment. Variables that are already set are never overridden, so the
// real environment always wins over files.
//
// Without arguments the default ".env" in the working directory is loaded;
// a missing default file is not an error. Explicitly named files must exist.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Join(ErrLoadingEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv works like LoadEnv but panics on failure.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("Failed to load env files: %v", err))
	}
}

// Load parses environment variables into a new value of T based on its
// `env` and `envDefault` field tags.
//
// Example:
//
//	type DatabaseConfig struct {
//		Host string `env:"DB_HOST" envDefault:"localhost"`
//		Port int    `env:"DB_PORT" envDefault:"5432"`
//	}
//
//	cfg, err := config.Load[DatabaseConfig]()
func Load[T any]() (T, error) {
	var v T
	if err := checkStruct[T](); err != nil {
		return v, err
	}
	if err := env.Parse(&v); err != nil {
		return v, errors.Join(ErrParsingConfig, err)
	}
	return v, nil
}

// MustLoad works like Load but panics if configuration loading fails.
// This is useful for configurations that are required for the application to start.
func MustLoad[T any]() T {
	v, err := Load[T]()
	if err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
	return v
}

// LoadFile resolves T from the environment like Load and then overlays the
// keys present in the YAML file at path.
func LoadFile[T any](path string) (T, error) {
	v, err := Load[T]()
	if err != nil {
		return v, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return v, errors.Join(ErrReadingConfigFile, err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrReadingConfigFile, fmt.Errorf("%s: %w", path, err))
	}
	return v, nil
}

func checkStruct[T any]() error {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s is not a struct", ErrInvalidConfigType, t)
	}
	return nil
}
