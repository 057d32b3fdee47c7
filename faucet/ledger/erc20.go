package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lmittmann/w3"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mantlenetworkio/claim-faucet/service/tokens"
)

var (
	funcBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")
	funcTransfer  = w3.MustNewFunc("transfer(address,uint256)", "bool")
)

var (
	ErrChainIDMismatch = errors.New("chain ID mismatch")
	ErrTransferFailed  = errors.New("token transfer failed")
)

// Backend is the subset of the execution-layer client used by the ERC20 ledger.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

var _ Backend = (*ethclient.Client)(nil)

type ERC20Config struct {
	Token      common.Address
	ChainID    *big.Int
	PrivateKey *ecdsa.PrivateKey
	// ReceiptPollInterval is how often the receipt of a sent transfer is polled for.
	ReceiptPollInterval time.Duration
	// ReceiptTimeout bounds sending a transfer and waiting for its receipt.
	ReceiptTimeout time.Duration
}

// ERC20 is a ledger backed by an ERC-20 token contract.
// The faucet account is the address of the configured private key.
type ERC20 struct {
	log     log.Logger
	cfg     ERC20Config
	backend Backend
	signer  types.Signer
	account common.Address

	// sendLock serializes transfers, the account has a single nonce stream.
	sendLock sync.Mutex
}

var _ Ledger = (*ERC20)(nil)

// DialERC20 connects to the execution-layer RPC and checks the chain ID.
func DialERC20(ctx context.Context, logger log.Logger, rpcURL string, cfg ERC20Config) (*ERC20, error) {
	cl, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EL RPC %q: %w", rpcURL, err)
	}
	l, err := NewERC20(ctx, logger, cl, cfg)
	if err != nil {
		cl.Close()
		return nil, err
	}
	return l, nil
}

func NewERC20(ctx context.Context, logger log.Logger, backend Backend, cfg ERC20Config) (*ERC20, error) {
	if cfg.PrivateKey == nil {
		return nil, errors.New("missing private key")
	}
	if cfg.ChainID == nil {
		return nil, errors.New("missing chain ID")
	}
	if cfg.ReceiptPollInterval == 0 {
		cfg.ReceiptPollInterval = time.Second
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = 2 * time.Minute
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain ID: %w", err)
	}
	if chainID.Cmp(cfg.ChainID) != 0 {
		return nil, fmt.Errorf("%w: endpoint serves %s, expected %s", ErrChainIDMismatch, chainID, cfg.ChainID)
	}
	account := crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey)
	return &ERC20{
		log:     logger.New("token", cfg.Token, "account", account),
		cfg:     cfg,
		backend: backend,
		signer:  types.LatestSignerForChainID(cfg.ChainID),
		account: account,
	}, nil
}

func (l *ERC20) Account() common.Address {
	return l.account
}

func (l *ERC20) BalanceOf(ctx context.Context, account common.Address) (tokens.Amount, error) {
	input, err := funcBalanceOf.EncodeArgs(account)
	if err != nil {
		return tokens.Amount{}, fmt.Errorf("failed to encode balanceOf call: %w", err)
	}
	out, err := l.backend.CallContract(ctx, ethereum.CallMsg{To: &l.cfg.Token, Data: input}, nil)
	if err != nil {
		return tokens.Amount{}, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	var balance *big.Int
	if err := funcBalanceOf.DecodeReturns(out, &balance); err != nil {
		return tokens.Amount{}, fmt.Errorf("failed to decode balanceOf result: %w", err)
	}
	return tokens.FromBig(balance), nil
}

func (l *ERC20) Transfer(ctx context.Context, to common.Address, amount tokens.Amount) error {
	l.sendLock.Lock()
	defer l.sendLock.Unlock()

	available, err := l.BalanceOf(ctx, l.account)
	if err != nil {
		return err
	}
	if available.Lt(amount) {
		return &InsufficientBalanceError{Available: available, Requested: amount}
	}
	input, err := funcTransfer.EncodeArgs(to, amount.ToBig())
	if err != nil {
		return fmt.Errorf("failed to encode transfer call: %w", err)
	}
	tx, err := l.signTx(ctx, input)
	if err != nil {
		return err
	}
	logger := l.log.New("tx", tx.Hash(), "to", to, "amount", amount)

	// The send is not cancelled with ctx: an interrupted send leaves the transfer outcome unknown.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.ReceiptTimeout)
	defer cancel()
	if err := l.backend.SendTransaction(sendCtx, tx); err != nil {
		return fmt.Errorf("failed to send transfer tx: %w", err)
	}
	logger.Debug("Sent token transfer")

	// From here on the tx may be included, so errors report the transfer as pending.
	waitCtx, cancelWait := context.WithTimeout(ctx, l.cfg.ReceiptTimeout)
	defer cancelWait()
	receipt, err := l.waitReceipt(waitCtx, tx.Hash())
	if err != nil {
		logger.Warn("Token transfer outcome unknown", "err", err)
		return &PendingTransferError{Ref: tx.Hash().Hex(), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		logger.Warn("Token transfer reverted", "block", receipt.BlockNumber)
		return fmt.Errorf("%w: tx %s reverted", ErrTransferFailed, tx.Hash())
	}
	logger.Info("Token transfer included", "block", receipt.BlockNumber)
	return nil
}

func (l *ERC20) signTx(ctx context.Context, input []byte) (*types.Transaction, error) {
	nonce, err := l.backend.PendingNonceAt(ctx, l.account)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	tipCap, err := l.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas tip cap: %w", err)
	}
	head, err := l.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch head header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, errors.New("chain does not support EIP-1559 transactions")
	}
	// leave room for two full blocks of base fee growth
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	gas, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      l.account,
		To:        &l.cfg.Token,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
		Data:      input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	tx, err := types.SignNewTx(l.cfg.PrivateKey, l.signer, &types.DynamicFeeTx{
		ChainID:   l.cfg.ChainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &l.cfg.Token,
		Data:      input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transfer tx: %w", err)
	}
	return tx, nil
}

func (l *ERC20) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(l.cfg.ReceiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := l.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt of %s: %w", hash, err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("stopped waiting for receipt of %s: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *ERC20) Close() {
	l.backend.Close()
}
