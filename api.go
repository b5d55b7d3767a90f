package deedmarket

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/deedlabs/deedmarket/common"
	"github.com/deedlabs/deedmarket/schema"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const AdminAddrHeader = "X-Admin-Address"

func (s *Deedmarket) runAPI(port string) {
	r := s.engine
	r.Use(common.CORSMiddleware())
	r.Use(common.LimiterMiddleware(600, "M", s.config.GetIPWhitelist()))
	v1 := r.Group("/")
	{
		// administrative surface
		admin := v1.Group("/admin")
		admin.Use(s.adminAuth)
		{
			admin.POST("/ledger/mint", s.mintProperty)
			admin.POST("/ledger/mint_batch", s.mintPropertyBatch)
			admin.POST("/ledger/lock/:id", s.setOffsetLock)
			admin.POST("/ledger/uri/:id", s.setPropertyURI)
			admin.POST("/ledger/pause", s.setPaused)
			admin.POST("/allowlist/root", s.setAllowRoot)
		}

		// public mutating surface, allow-list gated per request
		v1.POST("/ledger/transfer", s.transfer)
		v1.POST("/market/list", s.listProperty)
		v1.POST("/market/buy", s.buyListing)
		v1.POST("/market/delist", s.delistListing)

		// reads
		v1.GET("/ledger/property/:id", s.getProperty)
		v1.GET("/ledger/supply/:id", s.getSupply)
		v1.GET("/ledger/balance/:id/:addr", s.getBalance)
		v1.GET("/market/listing/:id", s.getListing)
		v1.GET("/market/listings/:seller", s.getListingsBySeller)
		v1.GET("/market/receipts/:buyer", s.getReceiptsByBuyer)
		v1.GET("/market/totals", s.getTotals)
		v1.GET("/market/inflow/:addr", s.getFundInflow)
		v1.GET("/market/statistics", s.getStatistics)
		v1.GET("/allowlist/root", s.getAllowRoot)
		v1.GET("/info", s.getInfo)
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

func (s *Deedmarket) adminAuth(c *gin.Context) {
	addr := c.GetHeader(AdminAddrHeader)
	if !ethcommon.IsHexAddress(addr) || ethcommon.HexToAddress(addr) != s.config.GetAdmin() {
		c.JSON(http.StatusUnauthorized, schema.RespErr{Err: schema.ErrNotAdmin.Error()})
		c.Abort()
		return
	}
	c.Next()
}

func (s *Deedmarket) mintProperty(c *gin.Context) {
	req := schema.MintReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	owner, ok := parseAddr(req.Owner)
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	propertyId, err := s.Mint(owner, req.Quantity, req.URI)
	if err != nil {
		coreErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespPropertyID{PropertyID: propertyId})
}

func (s *Deedmarket) mintPropertyBatch(c *gin.Context) {
	req := schema.MintBatchReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	owners := make([]ethcommon.Address, 0, len(req.Owners))
	for _, o := range req.Owners {
		owner, ok := parseAddr(o)
		if !ok {
			errorResponse(c, "invalid_address")
			return
		}
		owners = append(owners, owner)
	}
	propertyId, err := s.MintBatch(owners, req.Quantities, req.URI)
	if err != nil {
		coreErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespPropertyID{PropertyID: propertyId})
}

func (s *Deedmarket) setOffsetLock(c *gin.Context) {
	propertyId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	req := schema.LockReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.SetOffsetLock(propertyId, req.Locked); err != nil {
		coreErrorResponse(c, err)
		return
	}
}

func (s *Deedmarket) setPropertyURI(c *gin.Context) {
	propertyId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	req := schema.URIReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.SetURI(propertyId, req.URI); err != nil {
		coreErrorResponse(c, err)
		return
	}
}

func (s *Deedmarket) setPaused(c *gin.Context) {
	req := schema.PauseReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if err := s.SetPaused(req.Paused); err != nil {
		coreErrorResponse(c, err)
		return
	}
}

func (s *Deedmarket) setAllowRoot(c *gin.Context) {
	req := schema.RootReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if len(req.Root) == 0 {
		errorResponse(c, "null_root")
		return
	}
	if err := s.SetAllowRoot(ethcommon.HexToHash(req.Root)); err != nil {
		coreErrorResponse(c, err)
		return
	}
}

func (s *Deedmarket) transfer(c *gin.Context) {
	req := schema.TransferReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	caller, ok := parseAddr(req.Caller)
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	to, ok := parseAddr(req.To)
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	if !s.IsAllowed(parseProof(req.Proof), caller) {
		coreErrorResponse(c, schema.ErrNotAllowlisted)
		return
	}
	if err := s.Transfer(caller, to, req.PropertyID, req.Quantity); err != nil {
		coreErrorResponse(c, err)
		return
	}
}

func (s *Deedmarket) listProperty(c *gin.Context) {
	req := schema.ListReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	seller, ok := parseAddr(req.Caller)
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	fundReceiver, ok := parseAddr(req.FundReceiver)
	if !ok {
		coreErrorResponse(c, schema.ErrInvalidReceiver)
		return
	}
	unitPrice, ok := new(big.Int).SetString(req.UnitPrice, 10)
	if !ok {
		coreErrorResponse(c, schema.ErrInvalidUnitPrice)
		return
	}
	listingId, err := s.List(seller, parseProof(req.Proof), req.PropertyID, req.Quantity, unitPrice, fundReceiver)
	if err != nil {
		coreErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespListingID{ListingID: listingId})
}

func (s *Deedmarket) buyListing(c *gin.Context) {
	req := schema.BuyReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	buyer, ok := parseAddr(req.Caller)
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	payment, ok := new(big.Int).SetString(req.Payment, 10)
	if !ok {
		coreErrorResponse(c, schema.ErrInvalidPayment)
		return
	}
	receipt, err := s.Buy(buyer, parseProof(req.Proof), req.ListingID, req.Quantity, payment)
	if err != nil {
		coreErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Deedmarket) delistListing(c *gin.Context) {
	req := schema.DelistReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	seller, ok := parseAddr(req.Caller)
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	if err := s.Delist(seller, parseProof(req.Proof), req.ListingID); err != nil {
		coreErrorResponse(c, err)
		return
	}
}

func (s *Deedmarket) getProperty(c *gin.Context) {
	propertyId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	cacheKey := "property-" + c.Param("id")
	if data, ok := s.localCache.Get(cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
		return
	}

	meta, err := s.store.LoadPropertyMeta(propertyId)
	if err != nil {
		notFoundResponse(c)
		return
	}
	data, err := json.Marshal(&meta)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	if err := s.localCache.Set(cacheKey, data); err != nil {
		log.Warn("s.localCache.Set(property)", "err", err, "propertyId", propertyId)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Deedmarket) getSupply(c *gin.Context) {
	propertyId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	meta, err := s.store.LoadPropertyMeta(propertyId)
	if err != nil {
		c.JSON(http.StatusOK, schema.RespSupply{PropertyID: propertyId})
		return
	}
	c.JSON(http.StatusOK, schema.RespSupply{
		PropertyID:  propertyId,
		TotalSupply: meta.TotalSupply,
		Exists:      true,
	})
}

func (s *Deedmarket) getBalance(c *gin.Context) {
	propertyId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	owner, ok := parseAddr(c.Param("addr"))
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	c.JSON(http.StatusOK, schema.RespBalance{
		PropertyID: propertyId,
		Owner:      owner.Hex(),
		Balance:    s.BalanceOf(owner, propertyId),
	})
}

func (s *Deedmarket) getListing(c *gin.Context) {
	listingId, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	cacheKey := "listing-" + c.Param("id")
	if data, ok := s.localCache.Get(cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
		return
	}

	lst, err := s.store.LoadListing(listingId)
	if err != nil {
		notFoundResponse(c)
		return
	}
	data, err := json.Marshal(&lst)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	// only terminal listings are immutable enough to cache
	if lst.Completed {
		if err := s.localCache.Set(cacheKey, data); err != nil {
			log.Warn("s.localCache.Set(listing)", "err", err, "listingId", listingId)
		}
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Deedmarket) getListingsBySeller(c *gin.Context) {
	seller, ok := parseAddr(c.Param("seller"))
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	cursorId, err := strconv.ParseInt(c.DefaultQuery("cursorId", "0"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	num := 200
	records, err := s.wdb.GetListingsBySeller(seller.Hex(), cursorId, num)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Deedmarket) getReceiptsByBuyer(c *gin.Context) {
	buyer, ok := parseAddr(c.Param("buyer"))
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	cursorId, err := strconv.ParseInt(c.DefaultQuery("cursorId", "0"), 10, 64)
	if err != nil {
		errorResponse(c, err.Error())
		return
	}
	num := 200
	receipts, err := s.wdb.GetReceiptsByBuyer(buyer.Hex(), cursorId, num)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, receipts)
}

func (s *Deedmarket) getTotals(c *gin.Context) {
	c.JSON(http.StatusOK, schema.RespTotals{Totals: s.TotalListings()})
}

func (s *Deedmarket) getFundInflow(c *gin.Context) {
	receiver, ok := parseAddr(c.Param("addr"))
	if !ok {
		errorResponse(c, "invalid_address")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"receiver": receiver.Hex(),
		"inflow":   s.FundInflow(receiver).String(),
	})
}

func (s *Deedmarket) getStatistics(c *gin.Context) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.Add(-30 * 24 * time.Hour)
	var err error
	if val := c.Query("start"); len(val) > 0 {
		start, err = time.Parse("2006-01-02", val)
		if err != nil {
			errorResponse(c, err.Error())
			return
		}
	}
	if val := c.Query("end"); len(val) > 0 {
		end, err = time.Parse("2006-01-02", val)
		if err != nil {
			errorResponse(c, err.Error())
			return
		}
	}
	stats, err := s.wdb.GetDailyStatistics(start, end)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Deedmarket) getAllowRoot(c *gin.Context) {
	c.JSON(http.StatusOK, schema.RespRoot{Root: s.AllowRoot().Hex()})
}

func (s *Deedmarket) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, schema.RespInfo{
		Name:         "deedmarket",
		Version:      "v1.0.0",
		Admin:        s.config.GetAdmin().Hex(),
		EscrowHolder: schema.EscrowHolder.Hex(),
		Paused:       s.Paused(),
	})
}

func parseAddr(val string) (ethcommon.Address, bool) {
	if !ethcommon.IsHexAddress(val) {
		return ethcommon.Address{}, false
	}
	return ethcommon.HexToAddress(val), true
}

func parseProof(nodes []string) []ethcommon.Hash {
	proof := make([]ethcommon.Hash, 0, len(nodes))
	for _, node := range nodes {
		proof = append(proof, ethcommon.HexToHash(node))
	}
	return proof
}

func coreErrorResponse(c *gin.Context, err error) {
	switch err {
	case schema.ErrNotExist, schema.ErrNotFound, schema.ErrUnknownProperty:
		c.JSON(http.StatusNotFound, schema.RespErr{Err: err.Error()})
	case schema.ErrNotAllowlisted:
		c.JSON(http.StatusForbidden, schema.RespErr{Err: err.Error()})
	case schema.ErrNotAdmin:
		c.JSON(http.StatusUnauthorized, schema.RespErr{Err: err.Error()})
	case schema.ErrZeroAmount, schema.ErrLengthMismatch, schema.ErrInvalidRecipient,
		schema.ErrInvalidReceiver, schema.ErrInvalidURI, schema.ErrInvalidPayment,
		schema.ErrInvalidUnitPrice, schema.ErrLockedForOffset, schema.ErrTransfersPaused,
		schema.ErrInsufficientBalance, schema.ErrCannotBuyOwnListing,
		schema.ErrInsufficientListedTokens, schema.ErrInsufficientPayment,
		schema.ErrListingUnavailable, schema.ErrNotListingOwner:
		errorResponse(c, err.Error())
	default:
		internalErrorResponse(c, err.Error())
	}
}

func errorResponse(c *gin.Context, err string) {
	// client error
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}

func notFoundResponse(c *gin.Context) {
	c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte("Not Found"))
}
