// Package config reads the driver's settings from the environment.
package config

import (
	"fmt"
	"time"

	envlib "github.com/caarlos0/env/v11"
)

// EnvironmentVariables struct with the mapping of desired environment variables.
type EnvironmentVariables struct {
	LogLevel     string        `env:"QTEST_LOG_LEVEL" envDefault:"info"`
	LogFile      string        `env:"QTEST_LOG_FILE"`
	FailPercent  int           `env:"QTEST_FAIL_PROBABILITY" envDefault:"0"`
	StringLength int           `env:"QTEST_STRING_LENGTH" envDefault:"1024"`
	TimeLimit    time.Duration `env:"QTEST_TIME_LIMIT" envDefault:"1s"`
	Seed         uint64        `env:"QTEST_SEED" envDefault:"0"`
	ErrorLimit   int           `env:"QTEST_ERROR_LIMIT" envDefault:"5"`
	EchoCommands bool          `env:"QTEST_ECHO" envDefault:"false"`
}

func GetEnvVariables() (EnvironmentVariables, error) {
	env, err := envlib.ParseAs[EnvironmentVariables]()
	if err != nil {
		return env, err
	}

	if err := env.Validate(); err != nil {
		return env, err
	}
	return env, nil
}

// Validate checks that the settings are in range. It is also used
// after command-line flags have overridden the environment.
func (e EnvironmentVariables) Validate() error {
	if e.FailPercent < 0 || e.FailPercent > 100 {
		return fmt.Errorf("fail probability must be between 0 and 100, got %v", e.FailPercent)
	}
	if e.StringLength < 1 {
		return fmt.Errorf("string length must be at least 1, got %v", e.StringLength)
	}
	if e.TimeLimit < 0 {
		return fmt.Errorf("time limit must not be negative, got %v", e.TimeLimit)
	}
	if e.ErrorLimit < 0 {
		return fmt.Errorf("error limit must not be negative, got %v", e.ErrorLimit)
	}
	return nil
}
