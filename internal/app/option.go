package app

import (
	"github.com/example/wordace/internal/config"
	"github.com/example/wordace/internal/logger"
)

// Option configures the application
type Option func(*application)

type application struct {
	config *config.Config
	log    *logger.Logger
}

// WithConfig sets the application configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configured log mode
func WithLogger(log *logger.Logger) Option {
	return func(a *application) {
		a.log = log
	}
}

func newApplication(opts []Option) (*application, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, errConfigRequired
	}
	if a.log == nil {
		log, err := logger.New(a.config.App.LogMode)
		if err != nil {
			return nil, err
		}
		a.log = log
	}
	return a, nil
}
