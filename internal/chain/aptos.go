package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/api"
	"github.com/aptos-labs/aptos-go-sdk/crypto"
	"go.uber.org/zap"

	"newschain/internal/config"
	"newschain/internal/logging"
)

const (
	// gas headroom over the simulated usage, in percent
	gasHeadroomPercent = 120
	minMaxGasAmount    = 2000
)

var ErrMissingCredentials = errors.New("aptos module address and private key are required")

// node is the subset of the Aptos REST client used here.
type node interface {
	BuildTransaction(sender aptos.AccountAddress, payload aptos.TransactionPayload, options ...any) (*aptos.RawTransaction, error)
	SimulateTransaction(rawTxn *aptos.RawTransaction, sender aptos.TransactionSigner, options ...any) ([]*api.UserTransaction, error)
	SubmitTransaction(signed *aptos.SignedTransaction) (*api.SubmitTransactionResponse, error)
	WaitForTransaction(txnHash string, options ...any) (*api.UserTransaction, error)
	AccountResource(address aptos.AccountAddress, resourceType string, ledgerVersion ...uint64) (map[string]any, error)
}

type AptosClient struct {
	node       node
	account    *aptos.Account
	module     aptos.AccountAddress
	txnTimeout time.Duration
	logger     *zap.Logger
}

// NewAptosClient connects to the configured network and loads the signing
// account from cfg.AptosPrivateKey.
func NewAptosClient(cfg config.Config, logger *zap.Logger) (*AptosClient, error) {
	if cfg.ModuleAddress == "" || cfg.AptosPrivateKey == "" {
		return nil, ErrMissingCredentials
	}

	network, err := networkConfig(cfg.AptosNetwork, cfg.AptosNodeURL)
	if err != nil {
		return nil, err
	}
	client, err := aptos.NewClient(network)
	if err != nil {
		return nil, fmt.Errorf("create aptos client: %w", err)
	}

	key := &crypto.Ed25519PrivateKey{}
	if err := key.FromHex(cfg.AptosPrivateKey); err != nil {
		return nil, fmt.Errorf("parse aptos private key: %w", err)
	}
	account, err := aptos.NewAccountFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("load aptos account: %w", err)
	}

	return newAptosClient(client, account, cfg.ModuleAddress, cfg.AptosTxnTimeout, logger)
}

func newAptosClient(n node, account *aptos.Account, moduleAddress string, timeout time.Duration, logger *zap.Logger) (*AptosClient, error) {
	var module aptos.AccountAddress
	if err := module.ParseStringRelaxed(moduleAddress); err != nil {
		return nil, fmt.Errorf("parse module address %q: %w", moduleAddress, err)
	}
	return &AptosClient{
		node:       n,
		account:    account,
		module:     module,
		txnTimeout: timeout,
		logger:     logging.OrNop(logger),
	}, nil
}

func networkConfig(name, nodeURL string) (aptos.NetworkConfig, error) {
	var network aptos.NetworkConfig
	switch strings.ToLower(name) {
	case "", "devnet":
		network = aptos.DevnetConfig
	case "testnet":
		network = aptos.TestnetConfig
	case "mainnet":
		network = aptos.MainnetConfig
	case "localnet", "local":
		network = aptos.LocalnetConfig
	default:
		if nodeURL == "" {
			return network, fmt.Errorf("unknown aptos network %q", name)
		}
		network = aptos.NetworkConfig{Name: name}
	}
	if nodeURL != "" {
		network.NodeUrl = nodeURL
	}
	return network, nil
}

// CreateNews submits news::create_news and blocks until the transaction is
// committed. It returns the transaction hash.
func (c *AptosClient) CreateNews(ctx context.Context, p NewsPayload) (string, error) {
	args, err := p.Args()
	if err != nil {
		return "", fmt.Errorf("encode create_news args: %w", err)
	}
	payload := aptos.TransactionPayload{Payload: &aptos.EntryFunction{
		Module:   aptos.ModuleId{Address: c.module, Name: ModuleName},
		Function: CreateNewsFunction,
		ArgTypes: []aptos.TypeTag{},
		Args:     args,
	}}
	sender := c.account.AccountAddress()

	draft, err := c.node.BuildTransaction(sender, payload)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sims, err := c.node.SimulateTransaction(draft, c.account, aptos.EstimateGasUnitPrice(true), aptos.EstimateMaxGasAmount(true))
	if err != nil {
		return "", fmt.Errorf("simulate transaction: %w", err)
	}
	if len(sims) == 0 {
		return "", errors.New("simulate transaction: empty result")
	}
	sim := sims[0]
	if !sim.Success {
		return "", fmt.Errorf("simulate transaction: %s", sim.VmStatus)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	maxGas := max(sim.GasUsed*gasHeadroomPercent/100, minMaxGasAmount)
	opts := []any{aptos.MaxGasAmount(maxGas)}
	if sim.GasUnitPrice > 0 {
		opts = append(opts, aptos.GasUnitPrice(sim.GasUnitPrice))
	}
	rawTxn, err := c.node.BuildTransaction(sender, payload, opts...)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	signed, err := rawTxn.SignedTransaction(c.account)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	submitted, err := c.node.SubmitTransaction(signed)
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}
	c.logger.Info("transaction submitted",
		zap.String("hash", submitted.Hash),
		zap.Uint64("max_gas", maxGas),
	)

	var waitOpts []any
	if c.txnTimeout > 0 {
		waitOpts = append(waitOpts, aptos.PollTimeout(c.txnTimeout))
	}
	txn, err := c.node.WaitForTransaction(submitted.Hash, waitOpts...)
	if err != nil {
		return "", fmt.Errorf("wait for transaction %s: %w", submitted.Hash, err)
	}
	if !txn.Success {
		return "", fmt.Errorf("transaction %s failed: %s", submitted.Hash, txn.VmStatus)
	}

	c.logger.Info("transaction committed",
		zap.String("hash", txn.Hash),
		zap.Uint64("version", txn.Version),
		zap.Uint64("gas_used", txn.GasUsed),
	)
	return txn.Hash, nil
}

// ListNews returns the news entries stored under the module account, as the
// node renders them.
func (c *AptosClient) ListNews(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resourceType := fmt.Sprintf("%s::%s::%s", c.module.String(), ModuleName, CollectionResource)
	resource, err := c.node.AccountResource(c.module, resourceType)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resourceType, err)
	}

	data, ok := resource["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("read %s: missing data", resourceType)
	}
	items, ok := data["news"].([]any)
	if !ok {
		if data["news"] == nil {
			return []any{}, nil
		}
		return nil, fmt.Errorf("read %s: unexpected news field %T", resourceType, data["news"])
	}
	return items, nil
}
