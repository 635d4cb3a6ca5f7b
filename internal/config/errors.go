package config

import "errors"

// Sentinel errors. Validate wraps ErrInvalidConfig; Load wraps ErrLoadConfig
// around file, env and unmarshal failures.
var (
	ErrInvalidConfig = errors.New("invalid forecast config")
	ErrLoadConfig    = errors.New("load forecast config")
)
