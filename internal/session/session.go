package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/foxzi/fundchain/internal/ledger"
	"github.com/foxzi/fundchain/internal/metrics"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session not found")

	// ErrUnknownAccount is returned when the keystore has no such account
	ErrUnknownAccount = errors.New("account not in keystore")

	// ErrBadPassphrase is returned when the account cannot be unlocked
	ErrBadPassphrase = errors.New("could not unlock account")
)

// Session is a connected account able to sign writes
type Session struct {
	ID          string         `json:"id"`
	Account     common.Address `json:"account"`
	ConnectedAt time.Time      `json:"connected_at"`

	opts *bind.TransactOpts
}

var _ ledger.Signer = (*Session)(nil)

// Address returns the session account
func (s *Session) Address() common.Address {
	return s.Account
}

// TransactOpts returns a fresh copy of the signing options bound to ctx
func (s *Session) TransactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if s.opts == nil {
		return nil, fmt.Errorf("session %s has no signer", s.ID)
	}

	opts := *s.opts
	opts.Context = ctx
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	} else {
		opts.Value = nil
	}
	return &opts, nil
}

// Options configures the keystore behind the manager
type Options struct {
	KeystoreDir string
	LightScrypt bool
	ChainID     *big.Int
}

// Manager owns the keystore and the connected sessions
type Manager struct {
	ks       *keystore.KeyStore
	chainID  *big.Int
	logger   *slog.Logger
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager opens the keystore directory
func NewManager(opts Options, logger *slog.Logger) (*Manager, error) {
	if opts.KeystoreDir == "" {
		return nil, fmt.Errorf("keystore directory is required")
	}
	if opts.ChainID == nil || opts.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id is required")
	}

	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if opts.LightScrypt {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}

	return &Manager{
		ks:       keystore.NewKeyStore(opts.KeystoreDir, scryptN, scryptP),
		chainID:  new(big.Int).Set(opts.ChainID),
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Accounts lists the keystore addresses
func (m *Manager) Accounts() []common.Address {
	accs := m.ks.Accounts()
	out := make([]common.Address, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.Address)
	}
	return out
}

// NewAccount creates a key encrypted with passphrase
func (m *Manager) NewAccount(passphrase string) (common.Address, error) {
	if passphrase == "" {
		return common.Address{}, fmt.Errorf("passphrase is required")
	}

	acc, err := m.ks.NewAccount(passphrase)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to create account: %w", err)
	}

	m.logger.Info("account created", "account", acc.Address.Hex())
	return acc.Address, nil
}

// Connect unlocks address and opens a new session for it
func (m *Manager) Connect(address common.Address, passphrase string) (*Session, error) {
	acc, err := m.ks.Find(accounts.Account{Address: address})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, address.Hex())
	}

	if err := m.ks.Unlock(acc, passphrase); err != nil {
		m.logger.Warn("unlock failed", "account", address.Hex())
		return nil, fmt.Errorf("%w: %v", ErrBadPassphrase, err)
	}

	opts, err := bind.NewKeyStoreTransactorWithChainID(m.ks, acc, m.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	s := &Session{
		ID:          uuid.New().String(),
		Account:     acc.Address,
		ConnectedAt: time.Now().UTC(),
		opts:        opts,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetSessionsActive(n)
	m.logger.Info("session connected", "session_id", s.ID, "account", s.Account.Hex())

	return s, nil
}

// Disconnect closes a session. The key is locked again once no other
// session uses the account
func (m *Manager) Disconnect(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.sessions, id)

	inUse := false
	for _, other := range m.sessions {
		if other.Account == s.Account {
			inUse = true
			break
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !inUse {
		if err := m.ks.Lock(s.Account); err != nil {
			m.logger.Warn("failed to lock account", "account", s.Account.Hex(), "error", err)
		}
	}

	metrics.SetSessionsActive(n)
	m.logger.Info("session disconnected", "session_id", id, "account", s.Account.Hex())
	return nil
}

// Get returns the session with id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns connected sessions, oldest first
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// Close disconnects every session
func (m *Manager) Close() {
	for _, s := range m.List() {
		m.Disconnect(s.ID)
	}
}
