package app

import (
	"log/slog"

	"github.com/trebuchet-org/txq/internal/adapters/signer"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Selector usecase.InteractiveSelector
	Signers  *signer.Registry

	// Use cases
	Executor   *usecase.TransactionExecutor
	Queue      *usecase.QueueController
	PruneQueue *usecase.PruneQueue
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	selector usecase.InteractiveSelector,
	signers *signer.Registry,
	executor *usecase.TransactionExecutor,
	queue *usecase.QueueController,
	pruneQueue *usecase.PruneQueue,
) *App {
	return &App{
		Config:     cfg,
		Log:        log,
		Selector:   selector,
		Signers:    signers,
		Executor:   executor,
		Queue:      queue,
		PruneQueue: pruneQueue,
	}
}

// SignerAddress returns the account transactions are sent from
func (a *App) SignerAddress() (string, error) {
	s, err := a.Signers.Default()
	if err != nil {
		return "", err
	}
	return s.Address().Hex(), nil
}
