package schema

import (
	"github.com/ethereum/go-ethereum/common"
)

// EscrowHolder is the marketplace's own ledger identity. Tokens held in escrow
// between list and buy/delist are booked under this address like any other
// owner, so per-property conservation can be checked over plain balances.
var EscrowHolder = common.HexToAddress("0x00000000000000000000000000000000deed05e0")

// PropertyMeta is the per-property ledger record, stored in boltdb.
// TotalSupply only grows; there is no burn path.
type PropertyMeta struct {
	ID          uint64 `json:"id"`
	TotalSupply uint64 `json:"totalSupply"`
	URI         string `json:"uri"`
	OffsetLock  bool   `json:"offsetLock"`
}
