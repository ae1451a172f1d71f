// Package di builds the dependency container the HTTP routes resolve their
// collaborators from
package di

import (
	"context"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectoinject/loglevel"
	"github.com/Gobusters/ectologger"
)

// NewContainer creates and registers a container whose diagnostics are
// written through the application logger
func NewContainer(id string, logger ectologger.Logger) (ectocontainer.DIContainer, error) {
	logConfig := &ectocontainer.DIContainerLoggerConfig{
		Prefix:   "di",
		LogLevel: loglevel.WARN,
	}
	if logger != nil {
		logConfig.Enabled = true
		logConfig.LogFunc = func(ctx context.Context, level, msg string) {
			if level == loglevel.WARN {
				logger.WarnContext(ctx, msg)
				return
			}
			logger.DebugContext(ctx, msg)
		}
	}

	return ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowCaptiveDependencies: true,
		ConstructorFuncName:      "Constructor",
		InjectTagName:            "inject",
		LoggerConfig:             logConfig,
	})
}

// Instance registers a ready built value under the type T
func Instance[T any](container ectocontainer.DIContainer, value T) error {
	return ectoinject.RegisterInstance[T](container, value)
}
