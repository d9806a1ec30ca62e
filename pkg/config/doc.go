// Package config loads typed configuration values from the process
// environment, optional .env files and optional YAML files.
//
// It wraps `github.com/joho/godotenv`, `github.com/caarlos0/env/v11` and
// `gopkg.in/yaml.v3` behind a small generic API:
//
//   - LoadEnv populates the process environment from one or more .env files.
//   - Load parses the environment into any struct annotated with `env` tags.
//   - LoadFile does the same and then overlays values from a YAML file.
//
// Values are returned to the caller rather than stored in a package level
// cache: build the configuration once at the top of the host program and pass
// it explicitly to the components that need it.
//
// # Usage
//
//	type QueueConfig struct {
//	    Root        string        `env:"DISKQUEUE_ROOT" yaml:"root"`
//	    LockTimeout time.Duration `env:"DISKQUEUE_LOCK_TIMEOUT" envDefault:"5s" yaml:"lock_timeout"`
//	}
//
//	if err := config.LoadEnv(); err != nil {
//	    log.Fatalf("loading env: %v", err)
//	}
//	cfg, err := config.Load[QueueConfig]()
//	if err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
// # Precedence
//
// For LoadFile the order is: `envDefault` tags, then environment variables,
// then keys present in the YAML file. Keys absent from the file keep the value
// resolved from the environment.
//
// # Error Handling
//
// The package defines sentinel errors that can be compared with `errors.Is`:
//
//   - `ErrParsingConfig`     – failed to parse env vars into struct.
//   - `ErrInvalidConfigType` – the type parameter is not a struct.
//   - `ErrLoadingEnvFile`    – a .env file could not be read.
//   - `ErrReadingConfigFile` – a YAML file could not be read or decoded.
package config
