package schema

type KafkaTradeInfo struct {
	ReceiptID    string `json:"receiptId"`
	ListingID    uint64 `json:"listingId"`
	PropertyID   uint64 `json:"propertyId"`
	Buyer        string `json:"buyer"`
	Seller       string `json:"seller"`
	Quantity     uint64 `json:"quantity"`
	Payment      string `json:"payment"`
	FundReceiver string `json:"fundReceiver"`
	Timestamp    int64  `json:"timestamp"`
}
