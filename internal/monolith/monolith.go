// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/fd1az/autopilot/internal/asset"
	"github.com/fd1az/autopilot/internal/config"
	"github.com/fd1az/autopilot/internal/di"
	"github.com/fd1az/autopilot/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	TokenRegistry() *asset.Registry
	Services() di.ServiceRegistry
	// AddCloser registers a shutdown hook. Hooks run in reverse order.
	AddCloser(fn func() error)
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App implements the Monolith interface.
type App struct {
	config        *config.Config
	logger        logger.LoggerInterface
	tokenRegistry *asset.Registry
	container     di.Container

	closersMu sync.Mutex
	closers   []func() error
}

// New creates a new application container with the global services
// registered under "config", "logger" and "tokenRegistry".
func New(cfg *config.Config, log logger.LoggerInterface) *App {
	registry := asset.DefaultRegistry

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("tokenRegistry", registry)

	return &App{
		config:        cfg,
		logger:        log,
		tokenRegistry: registry,
		container:     container,
	}
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) TokenRegistry() *asset.Registry {
	return a.tokenRegistry
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

func (a *App) AddCloser(fn func() error) {
	a.closersMu.Lock()
	a.closers = append(a.closers, fn)
	a.closersMu.Unlock()
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close runs the registered shutdown hooks, last registered first.
func (a *App) Close() error {
	a.closersMu.Lock()
	closers := slices.Clone(a.closers)
	a.closers = nil
	a.closersMu.Unlock()

	var errs []error
	for _, fn := range slices.Backward(closers) {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
