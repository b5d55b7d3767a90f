package schema

type MintReq struct {
	Owner    string `json:"owner"`
	Quantity uint64 `json:"quantity"`
	URI      string `json:"uri"`
}

type MintBatchReq struct {
	Owners     []string `json:"owners"`
	Quantities []uint64 `json:"quantities"`
	URI        string   `json:"uri"`
}

type TransferReq struct {
	Caller     string   `json:"caller"`
	Proof      []string `json:"proof"` // allow-list membership proof, hex nodes
	To         string   `json:"to"`
	PropertyID uint64   `json:"propertyId"`
	Quantity   uint64   `json:"quantity"`
}

type LockReq struct {
	Locked bool `json:"locked"`
}

type URIReq struct {
	URI string `json:"uri"`
}

type PauseReq struct {
	Paused bool `json:"paused"`
}

type RootReq struct {
	Root string `json:"root"`
}

type ListReq struct {
	Caller       string   `json:"caller"`
	Proof        []string `json:"proof"`
	PropertyID   uint64   `json:"propertyId"`
	Quantity     uint64   `json:"quantity"`
	UnitPrice    string   `json:"unitPrice"`
	FundReceiver string   `json:"fundReceiver"`
}

type BuyReq struct {
	Caller    string   `json:"caller"`
	Proof     []string `json:"proof"`
	ListingID uint64   `json:"listingId"`
	Quantity  uint64   `json:"quantity"`
	Payment   string   `json:"payment"` // attached payment, smallest unit
}

type DelistReq struct {
	Caller    string   `json:"caller"`
	Proof     []string `json:"proof"`
	ListingID uint64   `json:"listingId"`
}

type RespPropertyID struct {
	PropertyID uint64 `json:"propertyId"`
}

type RespListingID struct {
	ListingID uint64 `json:"listingId"`
}

type RespBalance struct {
	PropertyID uint64 `json:"propertyId"`
	Owner      string `json:"owner"`
	Balance    uint64 `json:"balance"`
}

type RespSupply struct {
	PropertyID  uint64 `json:"propertyId"`
	TotalSupply uint64 `json:"totalSupply"`
	Exists      bool   `json:"exists"`
}

type RespTotals struct {
	Totals uint64 `json:"totals"`
}

type RespRoot struct {
	Root string `json:"root"`
}

type RespInfo struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Admin        string `json:"admin"`
	EscrowHolder string `json:"escrowHolder"`
	Paused       bool   `json:"paused"`
}

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}
