package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		KeystoreDir: t.TempDir(),
		LightScrypt: true,
		ChainID:     big.NewInt(1337),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewManager(Options{ChainID: big.NewInt(1)}, logger); err == nil {
		t.Error("expected error without keystore dir")
	}
	if _, err := NewManager(Options{KeystoreDir: t.TempDir()}, logger); err == nil {
		t.Error("expected error without chain id")
	}
}

func TestConnectLifecycle(t *testing.T) {
	m := newTestManager(t)

	addr, err := m.NewAccount("secret")
	if err != nil {
		t.Fatalf("NewAccount() error = %v", err)
	}

	accs := m.Accounts()
	if len(accs) != 1 || accs[0] != addr {
		t.Fatalf("Accounts() = %v, want [%s]", accs, addr.Hex())
	}

	if _, err := m.Connect(addr, "wrong"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("Connect() with bad passphrase error = %v", err)
	}

	s, err := m.Connect(addr, "secret")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if s.ID == "" || s.Address() != addr {
		t.Errorf("session = %+v", s)
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Errorf("Get() = %v, %v", got, err)
	}
	if len(m.List()) != 1 {
		t.Errorf("List() = %d sessions, want 1", len(m.List()))
	}

	if err := m.Disconnect(s.ID); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after disconnect error = %v", err)
	}
	if err := m.Disconnect(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Disconnect() error = %v", err)
	}
}

func TestConnectUnknownAccount(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Connect(common.HexToAddress("0x9999999999999999999999999999999999999999"), "x")
	if !errors.Is(err, ErrUnknownAccount) {
		t.Errorf("Connect() error = %v, want ErrUnknownAccount", err)
	}
}

func TestTransactOptsSignsForChain(t *testing.T) {
	m := newTestManager(t)
	addr, _ := m.NewAccount("secret")
	s, err := m.Connect(addr, "secret")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx := context.Background()
	value := big.NewInt(5)

	opts, err := s.TransactOpts(ctx, value)
	if err != nil {
		t.Fatalf("TransactOpts() error = %v", err)
	}
	if opts.From != addr {
		t.Errorf("From = %s, want %s", opts.From.Hex(), addr.Hex())
	}
	if opts.Context != ctx {
		t.Error("Context not bound")
	}
	if opts.Value.Cmp(value) != 0 {
		t.Errorf("Value = %s, want 5", opts.Value)
	}

	value.SetInt64(99)
	if opts.Value.Int64() != 5 {
		t.Error("Value aliases the caller's big.Int")
	}

	again, _ := s.TransactOpts(ctx, nil)
	if again.Value != nil {
		t.Error("Value leaked between calls")
	}

	tx := types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000, To: &addr, Value: big.NewInt(1)})
	signed, err := opts.Signer(addr, tx)
	if err != nil {
		t.Fatalf("Signer() error = %v", err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1337)), signed)
	if err != nil {
		t.Fatalf("Sender() error = %v", err)
	}
	if sender != addr {
		t.Errorf("recovered sender = %s, want %s", sender.Hex(), addr.Hex())
	}
}

func TestNewAccountRequiresPassphrase(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.NewAccount(""); err == nil {
		t.Error("NewAccount(\"\") expected error")
	}
}
