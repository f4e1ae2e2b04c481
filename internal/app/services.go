package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/foxzi/fundchain/internal/action"
	"github.com/foxzi/fundchain/internal/config"
	"github.com/foxzi/fundchain/internal/journal"
	"github.com/foxzi/fundchain/internal/ledger/eth"
	"github.com/foxzi/fundchain/internal/session"
)

// ServicesOptions tunes NewServices
type ServicesOptions struct {
	// Publisher receives settled-action events; nil disables them
	Publisher action.Publisher

	// JournalOptional lets the services start without the journal, e.g.
	// when a running server holds the database lock
	JournalOptional bool
}

// Services are the components shared by the server and the CLI
type Services struct {
	Client       *ethclient.Client
	Gateway      *eth.Gateway
	ChainID      *big.Int
	Sessions     *session.Manager
	Journal      *journal.BoltStorage
	Orchestrator *action.Orchestrator

	logger *slog.Logger
}

// NewServices dials the ledger node and builds the orchestrator
func NewServices(ctx context.Context, cfg *config.Config, opts ServicesOptions, logger *slog.Logger) (*Services, error) {
	gw, client, err := eth.Dial(ctx, cfg.Ledger.RPCURL, cfg.ContractAddress(), eth.Options{
		ReadTimeout: cfg.Ledger.ReadTimeout,
		GasLimit:    cfg.Ledger.GasLimit,
	}, logger.With("component", "ledger"))
	if err != nil {
		return nil, err
	}

	s := &Services{
		Client:  client,
		Gateway: gw,
		logger:  logger,
	}

	s.ChainID, err = resolveChainID(ctx, cfg, client)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Sessions, err = OpenKeystore(cfg, s.ChainID, logger)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Journal, err = journal.NewBoltStorage(cfg.Storage.Path)
	if err != nil {
		if !opts.JournalOptional {
			s.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		logger.Warn("journal unavailable, writes will not be recorded",
			"path", cfg.Storage.Path,
			"error", err,
		)
		s.Journal = nil
	}

	orchOpts := action.Options{
		Publisher: opts.Publisher,
		Logger:    logger,
	}
	if s.Journal != nil {
		orchOpts.Journal = s.Journal
	}
	s.Orchestrator = action.New(gw, orchOpts)

	return s, nil
}

// OpenKeystore opens the session manager over the configured keystore
func OpenKeystore(cfg *config.Config, chainID *big.Int, logger *slog.Logger) (*session.Manager, error) {
	m, err := session.NewManager(session.Options{
		KeystoreDir: cfg.Keystore.Dir,
		LightScrypt: cfg.Keystore.LightScrypt,
		ChainID:     chainID,
	}, logger.With("component", "sessions"))
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	return m, nil
}

// Close releases the node connection, keys and journal
func (s *Services) Close() error {
	var errs []error

	if s.Sessions != nil {
		s.Sessions.Close()
	}
	if s.Journal != nil {
		if err := s.Journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if s.Client != nil {
		s.Client.Close()
	}

	return errors.Join(errs...)
}

func resolveChainID(ctx context.Context, cfg *config.Config, client *ethclient.Client) (*big.Int, error) {
	if cfg.Ledger.ChainID > 0 {
		return big.NewInt(cfg.Ledger.ChainID), nil
	}

	readCtx, cancel := context.WithTimeout(ctx, cfg.Ledger.ReadTimeout)
	defer cancel()

	id, err := client.ChainID(readCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id from node: %w", err)
	}
	return id, nil
}
