package schema

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/datatypes"
)

const (
	// wdb listing mirror status
	ListingActive   = "active"
	ListingFilled   = "filled"
	ListingDelisted = "delisted"

	// TradeReceipt publish status
	UnPublished = "unpublished"
	Published   = "published"
	PublishErr  = "publishErr"
)

// Listing is the authoritative sale record, stored in boltdb. Available only
// decreases after creation; Completed flips false->true exactly once.
type Listing struct {
	ID           uint64         `json:"id"`
	PropertyID   uint64         `json:"propertyId"`
	Seller       common.Address `json:"seller"`
	FundReceiver common.Address `json:"fundReceiver"`
	UnitPrice    string         `json:"unitPrice"` // smallest payment unit per token unit
	Quantity     uint64         `json:"quantity"`  // originally offered
	Available    uint64         `json:"available"`
	Completed    bool           `json:"completed"`
	CreatedAt    int64          `json:"createdAt"` // unix
}

// ListingRecord mirrors bolt listings into the wdb for seller/property queries.
// Bolt stays authoritative; rows here are rewritten after every commit.
type ListingRecord struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ListingID    uint64 `gorm:"index:idx_listing01,unique" json:"listingId"`
	PropertyID   uint64 `gorm:"index:idx_listing02" json:"propertyId"`
	Seller       string `gorm:"index:idx_listing03" json:"seller"`
	FundReceiver string `json:"fundReceiver"`
	UnitPrice    string `json:"unitPrice"`
	Quantity     uint64 `json:"quantity"`
	Available    uint64 `json:"available"`
	Status       string `json:"status"` // "active","filled","delisted"
}

// TradeReceipt is written once per successful buy; the publish columns drive
// the kafka sink job.
type TradeReceipt struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"createdAt"`

	ReceiptID    string `gorm:"index:idx_trade01,unique" json:"receiptId"`
	ListingID    uint64 `gorm:"index:idx_trade02" json:"listingId"`
	PropertyID   uint64 `json:"propertyId"`
	Buyer        string `gorm:"index:idx_trade03" json:"buyer"`
	Quantity     uint64 `json:"quantity"`
	Payment      string `json:"payment"` // full attached payment, smallest unit
	FundReceiver string `json:"fundReceiver"`

	PublishStatus string `json:"-"` // "unpublished","published","publishErr"
	ErrMsg        string `json:"-"`
}

// RootRecord keeps the allow-root replacement history for audit.
type RootRecord struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	Root      string    `json:"root"`
}

type DailyStatistic struct {
	ID     uint      `gorm:"primarykey" json:"-"`
	Date   time.Time `gorm:"index:idx_stat01,unique" json:"date"`
	Trades int64     `json:"trades"`
	Volume string    `json:"volume"` // summed payments, smallest unit

	Properties datatypes.JSONMap `json:"properties"` // propertyId -> traded quantity
}
