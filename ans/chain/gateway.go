package chain

import (
	"context"
	"math/big"
)

// Tx is a value transfer observed in a block, reduced to the fields
// payment detection needs.
type Tx struct {
	From  string
	To    string
	Value *big.Int
}

// Gateway is the narrow ledger surface consumed by the workflow engine.
// Addresses travel as hex strings and amounts as wei so callers stay
// decoupled from the underlying client library.
type Gateway interface {
	// Ping verifies connectivity to the RPC endpoint.
	Ping(ctx context.Context) error
	// LatestBlockTransactions returns the transactions of the most recently
	// produced block.
	LatestBlockTransactions(ctx context.Context) ([]Tx, error)
	// Balance returns the current balance of an address in wei.
	Balance(ctx context.Context, address string) (*big.Int, error)
	// TransactionCount returns the number of transactions sent from an address.
	TransactionCount(ctx context.Context, address string) (uint64, error)
	// SubmitTransfer signs and submits a plain value transfer from the
	// custodial wallet and returns the transaction hash.
	SubmitTransfer(ctx context.Context, to string, valueWei *big.Int) (string, error)
	// ValidAddress reports whether s is a syntactically valid address.
	ValidAddress(s string) bool
	// CustodialAddress returns the service-operated wallet address that
	// receives fees and transfer funds.
	CustodialAddress() string
}
