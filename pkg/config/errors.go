package config

import "errors"

// Package-specific errors
var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfigType is returned when the config type is not a struct
	ErrInvalidConfigType = errors.New("invalid config type")

	// ErrLoadingEnvFile is returned when a .env file cannot be loaded
	ErrLoadingEnvFile = errors.New("failed to load env file")

	// ErrReadingConfigFile is returned when a YAML config file cannot be read or decoded
	ErrReadingConfigFile = errors.New("failed to read config file")
)
