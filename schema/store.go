package schema

var (
	// bucket
	PropertyMetaBucket = "property-meta-bucket" // key: propertyId, val: json(PropertyMeta)
	BalanceBucket      = "balance-bucket"       // key: propertyId:ownerAddr, val: uint64 big-endian
	ListingBucket      = "listing-bucket"       // key: listingId, val: json(Listing)
	FundInflowBucket   = "fund-inflow-bucket"   // key: receiverAddr, val: cumulative inflow, decimal string
	ConstantsBucket    = "constants-bucket"
)

// constants-bucket keys
var (
	PropertySeqKey = "property-seq"
	ListingSeqKey  = "listing-seq"
	PausedKey      = "paused"
	AllowRootKey   = "allow-root"
)
