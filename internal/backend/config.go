package backend

import (
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/core"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (must be one of %v)", appConfig.DataBackend, GetBackendTypeStrings())
	}

	return Config{
		Type:           backendType,
		DatabaseURL:    appConfig.DatabaseURL,
		ConnectTimeout: appConfig.ConnectTimeout,
		DataDirectory:  appConfig.DataDirectory,
		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPQueue:      appConfig.AMQPQueue,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s (must be one of %v)", c.Type, GetBackendTypeStrings())
	}

	switch c.Type {
	case SQLiteBackend, PostgresBackend:
		if c.DatabaseURL == "" {
			return &core.ConfigurationError{
				Problems: []string{fmt.Sprintf("DATABASE_URL is required for the %s backend", c.Type)},
				Err:      core.ErrMissingConnection,
			}
		}
	case MemoryBackend:
		// DataDirectory defaults to "data".
	}
	return nil
}

// GetBackendTypes returns all valid backend types.
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
