//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/txq/internal/adapters"
	"github.com/trebuchet-org/txq/internal/config"
	"github.com/trebuchet-org/txq/internal/logging"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewTransactionExecutor,
		wire.Bind(new(usecase.Executor), new(*usecase.TransactionExecutor)),
		usecase.NewQueueController,
		usecase.NewPruneQueue,

		// App
		NewApp,
	)
	return nil, nil, nil
}
