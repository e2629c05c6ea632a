package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ambns/ansbot/core/logger"
	"log/slog"
)

// ClientConfig carries the settings needed to talk to the network and to
// operate the custodial wallet. PrivateKeyHex is an injected credential and
// must never appear in configuration files or logs.
type ClientConfig struct {
	RPCURL           string
	CustodialAddress string
	PrivateKeyHex    string
	GasLimit         uint64
	GasPriceWei      *big.Int
}

// Client implements Gateway on top of an Ethereum-compatible JSON-RPC node.
type Client struct {
	eth       *ethclient.Client
	chainID   *big.Int
	signer    types.Signer
	key       *ecdsa.PrivateKey
	custodial common.Address
	gasLimit  uint64
	gasPrice  *big.Int
}

var _ Gateway = (*Client)(nil)

// Dial connects to the RPC endpoint, verifies connectivity, and checks that
// the injected signing key matches the configured custodial address.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if !common.IsHexAddress(cfg.CustodialAddress) {
		return nil, fmt.Errorf("chain: invalid custodial address %q", cfg.CustodialAddress)
	}

	start := time.Now()
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: not connected: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: parse signing key: %w", err)
	}
	custodial := common.HexToAddress(cfg.CustodialAddress)
	if derived := crypto.PubkeyToAddress(key.PublicKey); derived != custodial {
		eth.Close()
		return nil, fmt.Errorf("chain: signing key does not match custodial address")
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 21000
	}
	gasPrice := cfg.GasPriceWei
	if gasPrice == nil || gasPrice.Sign() <= 0 {
		gasPrice = big.NewInt(1_000_000_000) // 1 gwei
	}

	logger.Chain.Info("chain connected",
		slog.String("event", "chain.connect"),
		slog.String("chain_id", chainID.String()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	return &Client{
		eth:       eth,
		chainID:   chainID,
		signer:    types.LatestSignerForChainID(chainID),
		key:       key,
		custodial: custodial,
		gasLimit:  gasLimit,
		gasPrice:  gasPrice,
	}, nil
}

// Ping verifies the RPC endpoint still answers.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.eth.BlockNumber(ctx); err != nil {
		return fmt.Errorf("chain: ping: %w", err)
	}
	return nil
}

// LatestBlockTransactions returns the value transfers of the newest block.
// Contract creations (nil To) are skipped; transactions whose sender cannot
// be recovered are skipped as well.
func (c *Client) LatestBlockTransactions(ctx context.Context) ([]Tx, error) {
	block, err := c.eth.BlockByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: latest block: %w", err)
	}
	txs := block.Transactions()
	out := make([]Tx, 0, len(txs))
	for _, tx := range txs {
		to := tx.To()
		if to == nil {
			continue
		}
		from, err := types.Sender(c.signer, tx)
		if err != nil {
			continue
		}
		out = append(out, Tx{
			From:  from.Hex(),
			To:    to.Hex(),
			Value: tx.Value(),
		})
	}
	return out, nil
}

// Balance returns the current balance of address in wei.
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balance of %s: %w", address, err)
	}
	return bal, nil
}

// TransactionCount returns the confirmed nonce of address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	n, err := c.eth.NonceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return 0, fmt.Errorf("chain: nonce of %s: %w", address, err)
	}
	return n, nil
}

// SubmitTransfer signs and broadcasts a plain value transfer from the
// custodial wallet. Nonce is taken from the custodial account's current
// transaction count; gas limit and price are fixed per configuration.
func (c *Client) SubmitTransfer(ctx context.Context, to string, valueWei *big.Int) (string, error) {
	nonce, err := c.eth.NonceAt(ctx, c.custodial, nil)
	if err != nil {
		return "", fmt.Errorf("chain: fetch nonce: %w", err)
	}
	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    valueWei,
		Gas:      c.gasLimit,
		GasPrice: c.gasPrice,
	})
	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		return "", fmt.Errorf("chain: sign transfer: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: submit transfer: %w", err)
	}
	hash := signed.Hash().Hex()
	logger.Chain.Info("transfer submitted",
		slog.String("event", "chain.submit"),
		slog.String("tx_hash", hash),
		slog.String("amount_wei", valueWei.String()),
	)
	return hash, nil
}

// ValidAddress reports whether s parses as a hex address.
func (c *Client) ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// CustodialAddress returns the checksummed custodial wallet address.
func (c *Client) CustodialAddress() string {
	return c.custodial.Hex()
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
