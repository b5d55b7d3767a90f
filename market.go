package deedmarket

import (
	"math/big"
	"time"

	"github.com/deedlabs/deedmarket/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// List creates a sale listing and moves the offered quantity from the seller
// into the escrow balance in the same commit, so a listing can never be
// observed created but unfunded.
func (s *Deedmarket) List(seller common.Address, proof []common.Hash, propertyId, quantity uint64, unitPrice *big.Int, fundReceiver common.Address) (listingId uint64, err error) {
	// 1. gate the caller against the current allow-root
	if !s.IsAllowed(proof, seller) {
		return 0, schema.ErrNotAllowlisted
	}

	// 2. validate
	if quantity == 0 {
		return 0, schema.ErrZeroAmount
	}
	if fundReceiver == (common.Address{}) {
		return 0, schema.ErrInvalidReceiver
	}
	if unitPrice == nil || unitPrice.Sign() < 0 {
		return 0, schema.ErrInvalidUnitPrice
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	// 3. create the listing record, then fund escrow; both roll back together
	var lst schema.Listing
	err = s.store.Update(func(tx *bolt.Tx) error {
		listingId, err = s.store.nextSeq(tx, schema.ListingSeqKey)
		if err != nil {
			return err
		}
		lst = schema.Listing{
			ID:           listingId,
			PropertyID:   propertyId,
			Seller:       seller,
			FundReceiver: fundReceiver,
			UnitPrice:    unitPrice.String(),
			Quantity:     quantity,
			Available:    quantity,
			CreatedAt:    time.Now().Unix(),
		}
		if err := s.store.putListing(tx, lst); err != nil {
			return err
		}
		return s.transferTx(tx, seller, schema.EscrowHolder, propertyId, quantity)
	})
	if err != nil {
		return 0, err
	}

	s.mirrorListing(lst)
	metricListingCreated()
	return listingId, nil
}

// Buy fills quantity units of a listing against the attached payment. The
// listing mutation, the custody move to the buyer and the payment credit to
// the fund receiver commit atomically; any failure reverts all three.
// Overpayment is accepted and the entire attached amount is routed to the
// fund receiver, matching the venue's settlement rules.
func (s *Deedmarket) Buy(buyer common.Address, proof []common.Hash, listingId, quantity uint64, payment *big.Int) (*schema.TradeReceipt, error) {
	if !s.IsAllowed(proof, buyer) {
		return nil, schema.ErrNotAllowlisted
	}
	if payment == nil || payment.Sign() < 0 {
		return nil, schema.ErrInvalidPayment
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	var lst schema.Listing
	err := s.store.Update(func(tx *bolt.Tx) error {
		var err error
		lst, err = s.store.listing(tx, listingId)
		if err != nil {
			return err
		}
		if lst.Completed {
			return schema.ErrListingUnavailable
		}
		if buyer == lst.Seller {
			return schema.ErrCannotBuyOwnListing
		}
		if lst.Available < quantity {
			return schema.ErrInsufficientListedTokens
		}
		unitPrice, ok := new(big.Int).SetString(lst.UnitPrice, 10)
		if !ok {
			return schema.ErrInvalidUnitPrice
		}
		price := new(big.Int).Mul(unitPrice, new(big.Int).SetUint64(quantity))
		if payment.Cmp(price) < 0 {
			return schema.ErrInsufficientPayment
		}

		// listing state first, transfers after; one commit either way
		lst.Available -= quantity
		if lst.Available == 0 {
			lst.Completed = true
		}
		if err := s.store.putListing(tx, lst); err != nil {
			return err
		}
		if err := s.transferTx(tx, schema.EscrowHolder, buyer, lst.PropertyID, quantity); err != nil {
			return err
		}
		return s.store.addFundInflow(tx, lst.FundReceiver, payment)
	})
	if err != nil {
		return nil, err
	}

	receipt := schema.TradeReceipt{
		ReceiptID:     uuid.NewString(),
		ListingID:     listingId,
		PropertyID:    lst.PropertyID,
		Buyer:         buyer.Hex(),
		Quantity:      quantity,
		Payment:       payment.String(),
		FundReceiver:  lst.FundReceiver.Hex(),
		PublishStatus: schema.UnPublished,
	}
	// audit plane; bolt has already committed, so log and move on
	if err := s.wdb.InsertReceipt(receipt); err != nil {
		log.Error("s.wdb.InsertReceipt(receipt)", "err", err, "receiptId", receipt.ReceiptID)
	}
	s.mirrorListing(lst)
	metricTrade(quantity, payment)
	if lst.Completed {
		metricListingClosed()
	}
	return &receipt, nil
}

// Delist terminates a listing and returns the remaining escrowed quantity to
// the seller. Completed is permanent; a delisted listing cannot reopen.
func (s *Deedmarket) Delist(seller common.Address, proof []common.Hash, listingId uint64) error {
	if !s.IsAllowed(proof, seller) {
		return schema.ErrNotAllowlisted
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	var lst schema.Listing
	err := s.store.Update(func(tx *bolt.Tx) error {
		var err error
		lst, err = s.store.listing(tx, listingId)
		if err != nil {
			return err
		}
		if seller != lst.Seller {
			return schema.ErrNotListingOwner
		}
		if lst.Completed {
			return schema.ErrListingUnavailable
		}

		// Available keeps its last value; only Completed flips
		lst.Completed = true
		if err := s.store.putListing(tx, lst); err != nil {
			return err
		}
		return s.transferTx(tx, schema.EscrowHolder, seller, lst.PropertyID, lst.Available)
	})
	if err != nil {
		return err
	}

	s.mirrorListing(lst)
	metricListingClosed()
	return nil
}

func (s *Deedmarket) GetListing(listingId uint64) (schema.Listing, error) {
	return s.store.LoadListing(listingId)
}

// TotalListings is the count of listings ever created.
func (s *Deedmarket) TotalListings() uint64 {
	return s.store.LoadListingSeq()
}

// FundInflow is the cumulative payment volume routed to receiver.
func (s *Deedmarket) FundInflow(receiver common.Address) *big.Int {
	return s.store.LoadFundInflow(receiver)
}

// mirrorListing rewrites the wdb query row for a listing. Bolt is
// authoritative; a mirror failure is logged and picked up by reconciliation.
func (s *Deedmarket) mirrorListing(lst schema.Listing) {
	status := schema.ListingActive
	if lst.Completed {
		status = schema.ListingDelisted
		if lst.Available == 0 {
			status = schema.ListingFilled
		}
	}
	rec := schema.ListingRecord{
		ListingID:    lst.ID,
		PropertyID:   lst.PropertyID,
		Seller:       lst.Seller.Hex(),
		FundReceiver: lst.FundReceiver.Hex(),
		UnitPrice:    lst.UnitPrice,
		Quantity:     lst.Quantity,
		Available:    lst.Available,
		Status:       status,
	}
	if err := s.wdb.UpsertListing(rec); err != nil {
		log.Error("s.wdb.UpsertListing(rec)", "err", err, "listingId", lst.ID)
	}
}
