package config

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	ftypes "github.com/mantlenetworkio/claim-faucet/faucet/backend/types"
	"github.com/mantlenetworkio/claim-faucet/faucet/ledger"
	"github.com/mantlenetworkio/claim-faucet/faucet/store"
	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StorePebble StoreKind = "pebble"
)

type LedgerKind string

const (
	LedgerMemory LedgerKind = "memory"
	LedgerERC20  LedgerKind = "erc20"
)

type StoreConfig struct {
	// Kind defaults to memory
	Kind StoreKind `yaml:"kind,omitempty"`
	// Path is the pebble database directory
	Path string `yaml:"path,omitempty"`
}

func (s *StoreConfig) Check() error {
	switch s.Kind {
	case "", StoreMemory:
		return nil
	case StorePebble:
		if s.Path == "" {
			return errors.New("pebble store requires a path")
		}
		return nil
	default:
		return fmt.Errorf("unknown store kind %q", s.Kind)
	}
}

func (s *StoreConfig) Open(logger log.Logger) (store.ClaimStore, error) {
	switch s.Kind {
	case "", StoreMemory:
		return store.NewMemory(), nil
	case StorePebble:
		return store.OpenPebble(logger, s.Path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", s.Kind)
	}
}

type LedgerConfig struct {
	// Kind defaults to memory
	Kind LedgerKind `yaml:"kind,omitempty"`

	// Account is the faucet account of a memory ledger.
	// If unspecified, an account is derived from the faucet ID.
	Account *common.Address `yaml:"account,omitempty"`
	// InitialBalance funds the faucet account of a memory ledger.
	InitialBalance tokens.Amount `yaml:"initial_balance,omitempty"`

	// ELRPC is the execution-layer endpoint of an erc20 ledger.
	ELRPC string `yaml:"el_rpc,omitempty"`
	// ChainID is used to sanity-check we are connected to the right chain,
	// and never accidentally try to use a different chain for faucet work.
	ChainID uint64 `yaml:"chain_id,omitempty"`
	// Token is the ERC-20 contract address.
	Token common.Address `yaml:"token,omitempty"`
	// PrivateKey of the faucet account. hex encoded, 0x prefixed.
	PrivateKey string `yaml:"private_key,omitempty"`
}

func (l *LedgerConfig) Check() error {
	switch l.Kind {
	case "", LedgerMemory:
		return nil
	case LedgerERC20:
		var result error
		if l.ELRPC == "" {
			result = errors.Join(result, errors.New("erc20 ledger requires el_rpc"))
		}
		if l.ChainID == 0 {
			result = errors.Join(result, errors.New("erc20 ledger requires chain_id"))
		}
		if l.Token == (common.Address{}) {
			result = errors.Join(result, errors.New("erc20 ledger requires token"))
		}
		if _, err := l.privateKey(); err != nil {
			result = errors.Join(result, err)
		}
		return result
	default:
		return fmt.Errorf("unknown ledger kind %q", l.Kind)
	}
}

func (l *LedgerConfig) privateKey() (*ecdsa.PrivateKey, error) {
	if l.PrivateKey == "" {
		return nil, errors.New("missing private key")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(l.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// DefaultAccount is the memory-ledger account of a faucet without a configured account.
func DefaultAccount(id ftypes.FaucetID) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("faucet:" + id.String())))
}

func (l *LedgerConfig) Open(ctx context.Context, logger log.Logger, id ftypes.FaucetID) (ledger.Ledger, error) {
	switch l.Kind {
	case "", LedgerMemory:
		account := DefaultAccount(id)
		if l.Account != nil {
			account = *l.Account
		}
		return ledger.NewMemory(account, l.InitialBalance), nil
	case LedgerERC20:
		key, err := l.privateKey()
		if err != nil {
			return nil, err
		}
		return ledger.DialERC20(ctx, logger, l.ELRPC, ledger.ERC20Config{
			Token:      l.Token,
			ChainID:    new(big.Int).SetUint64(l.ChainID),
			PrivateKey: key,
		})
	default:
		return nil, fmt.Errorf("unknown ledger kind %q", l.Kind)
	}
}

type RateLimitConfig struct {
	// PerSecond is the sustained number of claims a single RPC peer may make per second.
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type FaucetEntry struct {
	ClaimAmount   tokens.Amount  `yaml:"claim_amount"`
	ClaimInterval time.Duration  `yaml:"claim_interval"`
	Owner         common.Address `yaml:"owner"`

	// RateLimit is optional. Claims are not rate-limited if omitted.
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`

	Store  StoreConfig  `yaml:"store,omitempty"`
	Ledger LedgerConfig `yaml:"ledger,omitempty"`
}

func (f *FaucetEntry) Check() error {
	var result error
	if f.ClaimAmount.IsZero() {
		result = errors.Join(result, errors.New("claim_amount must be positive"))
	}
	if f.ClaimInterval < time.Second {
		result = errors.Join(result, errors.New("claim_interval must be at least 1s"))
	} else if f.ClaimInterval%time.Second != 0 {
		result = errors.Join(result, fmt.Errorf("claim_interval must be a whole number of seconds, got %s", f.ClaimInterval))
	}
	if f.Owner == (common.Address{}) {
		result = errors.Join(result, errors.New("missing owner"))
	}
	if f.RateLimit != nil && (f.RateLimit.PerSecond <= 0 || f.RateLimit.Burst <= 0) {
		result = errors.Join(result, errors.New("rate_limit needs a positive per_second and burst"))
	}
	if err := f.Store.Check(); err != nil {
		result = errors.Join(result, fmt.Errorf("invalid store: %w", err))
	}
	if err := f.Ledger.Check(); err != nil {
		result = errors.Join(result, fmt.Errorf("invalid ledger: %w", err))
	}
	return result
}

// Config configures the available set of faucets and faucet usage.
type Config struct {
	// Default identifies the faucet to serve on the root route.
	// If unspecified, the faucet with the lowest faucet-ID is used.
	Default ftypes.FaucetID `yaml:"default,omitempty"`

	// Faucets lists all faucets by ID
	Faucets map[ftypes.FaucetID]*FaucetEntry `yaml:"faucets,omitempty"`
}

var _ Loader = (*Config)(nil)

// Load is implemented on the Config itself,
// so that a static already-instantiated config can be used for in-process service setup,
// to bypass the YAML loading.
func (c *Config) Load(ctx context.Context) (*Config, error) {
	return c, nil
}

func (c *Config) Check() error {
	if len(c.Faucets) == 0 {
		return errors.New("no faucets configured")
	}
	var result error
	for id, entry := range c.Faucets {
		if _, err := id.MarshalText(); err != nil {
			result = errors.Join(result, fmt.Errorf("faucet %q: %w", id, err))
			continue
		}
		if entry == nil {
			result = errors.Join(result, fmt.Errorf("faucet %q: empty config", id))
			continue
		}
		if err := entry.Check(); err != nil {
			result = errors.Join(result, fmt.Errorf("faucet %q: %w", id, err))
		}
	}
	if c.Default != "" {
		if _, ok := c.Faucets[c.Default]; !ok {
			result = errors.Join(result, fmt.Errorf("unknown default faucet %q", c.Default))
		}
	}
	return result
}
