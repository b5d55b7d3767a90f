package deedmarket

import (
	"math/big"
	"testing"

	"github.com/deedlabs/deedmarket/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

// marketFixture publishes an allow-root over alice, bob and carol and mints
// property 1 with 1000 units to alice.
func marketFixture(t *testing.T) (s *Deedmarket, proofs map[common.Address][]common.Hash, propertyId uint64) {
	s = newTestDeed(t)

	tree := NewAllowTree([]common.Address{tAlice, tBob, tCarol})
	assert.NoError(t, s.SetAllowRoot(tree.Root()))

	proofs = make(map[common.Address][]common.Hash)
	for _, m := range []common.Address{tAlice, tBob, tCarol} {
		proof, ok := tree.Proof(m)
		assert.True(t, ok)
		proofs[m] = proof
	}

	propertyId, err := s.Mint(tAlice, 1000, "ipfs://prop-1")
	assert.NoError(t, err)
	return s, proofs, propertyId
}

func TestListEscrow(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), listingId)

	// the offered quantity moved into escrow in the same commit
	assert.Equal(t, uint64(600), s.BalanceOf(tAlice, propertyId))
	assert.Equal(t, uint64(400), s.BalanceOf(schema.EscrowHolder, propertyId))

	lst, err := s.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, tAlice, lst.Seller)
	assert.Equal(t, tCarol, lst.FundReceiver)
	assert.Equal(t, "5", lst.UnitPrice)
	assert.Equal(t, uint64(400), lst.Quantity)
	assert.Equal(t, uint64(400), lst.Available)
	assert.False(t, lst.Completed)

	assert.Equal(t, uint64(1), s.TotalListings())

	// mirror row for seller queries
	rec, err := s.wdb.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, schema.ListingActive, rec.Status)
}

func TestListValidation(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	outsider := common.HexToAddress("0x9999999999999999999999999999999999999999")
	_, err := s.List(outsider, nil, propertyId, 100, big.NewInt(5), tCarol)
	assert.ErrorIs(t, err, schema.ErrNotAllowlisted)

	_, err = s.List(tAlice, proofs[tAlice], propertyId, 0, big.NewInt(5), tCarol)
	assert.ErrorIs(t, err, schema.ErrZeroAmount)

	_, err = s.List(tAlice, proofs[tAlice], propertyId, 100, big.NewInt(5), common.Address{})
	assert.ErrorIs(t, err, schema.ErrInvalidReceiver)

	_, err = s.List(tAlice, proofs[tAlice], propertyId, 100, nil, tCarol)
	assert.ErrorIs(t, err, schema.ErrInvalidUnitPrice)

	// more than the seller holds
	_, err = s.List(tAlice, proofs[tAlice], propertyId, 1001, big.NewInt(5), tCarol)
	assert.ErrorIs(t, err, schema.ErrInsufficientBalance)

	// nothing above consumed a listing id
	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 100, big.NewInt(5), tCarol)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), listingId)
}

func TestBuyFlow(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)

	receipt, err := s.Buy(tBob, proofs[tBob], listingId, 150, big.NewInt(750))
	assert.NoError(t, err)
	assert.Equal(t, uint64(150), receipt.Quantity)
	assert.Equal(t, "750", receipt.Payment)

	assert.Equal(t, uint64(150), s.BalanceOf(tBob, propertyId))
	assert.Equal(t, uint64(250), s.BalanceOf(schema.EscrowHolder, propertyId))
	assert.Equal(t, big.NewInt(750), s.FundInflow(tCarol))

	lst, err := s.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, uint64(250), lst.Available)
	assert.False(t, lst.Completed)

	// overpayment is routed to the fund receiver in full
	_, err = s.Buy(tBob, proofs[tBob], listingId, 250, big.NewInt(2000))
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(2750), s.FundInflow(tCarol))

	lst, err = s.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), lst.Available)
	assert.True(t, lst.Completed)
	assert.Equal(t, uint64(0), s.BalanceOf(schema.EscrowHolder, propertyId))

	rec, err := s.wdb.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, schema.ListingFilled, rec.Status)

	// filled means gone for good
	_, err = s.Buy(tBob, proofs[tBob], listingId, 1, big.NewInt(5))
	assert.ErrorIs(t, err, schema.ErrListingUnavailable)
}

func TestBuyValidation(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)

	outsider := common.HexToAddress("0x9999999999999999999999999999999999999999")
	_, err = s.Buy(outsider, nil, listingId, 10, big.NewInt(50))
	assert.ErrorIs(t, err, schema.ErrNotAllowlisted)

	_, err = s.Buy(tBob, proofs[tBob], listingId, 10, nil)
	assert.ErrorIs(t, err, schema.ErrInvalidPayment)

	_, err = s.Buy(tBob, proofs[tBob], 99, 10, big.NewInt(50))
	assert.ErrorIs(t, err, schema.ErrNotExist)

	_, err = s.Buy(tAlice, proofs[tAlice], listingId, 10, big.NewInt(50))
	assert.ErrorIs(t, err, schema.ErrCannotBuyOwnListing)

	_, err = s.Buy(tBob, proofs[tBob], listingId, 401, big.NewInt(5000))
	assert.ErrorIs(t, err, schema.ErrInsufficientListedTokens)

	// strictly less than unitPrice * quantity fails
	_, err = s.Buy(tBob, proofs[tBob], listingId, 10, big.NewInt(49))
	assert.ErrorIs(t, err, schema.ErrInsufficientPayment)

	// exact payment succeeds
	_, err = s.Buy(tBob, proofs[tBob], listingId, 10, big.NewInt(50))
	assert.NoError(t, err)
}

func TestBuyAtomicity(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)

	// pause fails the escrow move after the listing was mutated in-tx; the
	// whole commit rolls back
	assert.NoError(t, s.SetPaused(true))
	_, err = s.Buy(tBob, proofs[tBob], listingId, 100, big.NewInt(500))
	assert.ErrorIs(t, err, schema.ErrTransfersPaused)

	lst, err := s.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, uint64(400), lst.Available)
	assert.Equal(t, uint64(0), s.BalanceOf(tBob, propertyId))
	assert.Equal(t, uint64(400), s.BalanceOf(schema.EscrowHolder, propertyId))
	assert.Equal(t, 0, s.FundInflow(tCarol).Sign())

	assert.NoError(t, s.SetPaused(false))
	_, err = s.Buy(tBob, proofs[tBob], listingId, 100, big.NewInt(500))
	assert.NoError(t, err)
}

func TestDelist(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)
	_, err = s.Buy(tBob, proofs[tBob], listingId, 150, big.NewInt(750))
	assert.NoError(t, err)

	err = s.Delist(tBob, proofs[tBob], listingId)
	assert.ErrorIs(t, err, schema.ErrNotListingOwner)

	assert.NoError(t, s.Delist(tAlice, proofs[tAlice], listingId))

	// remaining escrow returned, Available frozen at its last value
	assert.Equal(t, uint64(850), s.BalanceOf(tAlice, propertyId))
	assert.Equal(t, uint64(0), s.BalanceOf(schema.EscrowHolder, propertyId))
	lst, err := s.GetListing(listingId)
	assert.NoError(t, err)
	assert.True(t, lst.Completed)
	assert.Equal(t, uint64(250), lst.Available)

	rec, err := s.wdb.GetListing(listingId)
	assert.NoError(t, err)
	assert.Equal(t, schema.ListingDelisted, rec.Status)

	// terminal both ways
	assert.ErrorIs(t, s.Delist(tAlice, proofs[tAlice], listingId), schema.ErrListingUnavailable)
	_, err = s.Buy(tBob, proofs[tBob], listingId, 1, big.NewInt(5))
	assert.ErrorIs(t, err, schema.ErrListingUnavailable)
}

func TestDelistUnderPause(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)

	// pause blocks the escrow return, so the listing stays open
	assert.NoError(t, s.SetPaused(true))
	err = s.Delist(tAlice, proofs[tAlice], listingId)
	assert.ErrorIs(t, err, schema.ErrTransfersPaused)

	lst, err := s.GetListing(listingId)
	assert.NoError(t, err)
	assert.False(t, lst.Completed)

	assert.NoError(t, s.SetPaused(false))
	assert.NoError(t, s.Delist(tAlice, proofs[tAlice], listingId))
}

func TestTradeReceiptWritten(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	listingId, err := s.List(tAlice, proofs[tAlice], propertyId, 400, big.NewInt(5), tCarol)
	assert.NoError(t, err)
	receipt, err := s.Buy(tBob, proofs[tBob], listingId, 150, big.NewInt(750))
	assert.NoError(t, err)

	receipts, err := s.wdb.GetReceiptsByBuyer(tBob.Hex(), 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(receipts))
	assert.Equal(t, receipt.ReceiptID, receipts[0].ReceiptID)
	assert.Equal(t, listingId, receipts[0].ListingID)
	assert.Equal(t, "750", receipts[0].Payment)
	assert.Equal(t, schema.UnPublished, receipts[0].PublishStatus)
}

func TestFundInflowAccumulates(t *testing.T) {
	s, proofs, propertyId := marketFixture(t)
	defer s.testClose()

	lid1, err := s.List(tAlice, proofs[tAlice], propertyId, 100, big.NewInt(3), tCarol)
	assert.NoError(t, err)
	lid2, err := s.List(tAlice, proofs[tAlice], propertyId, 100, big.NewInt(7), tCarol)
	assert.NoError(t, err)

	_, err = s.Buy(tBob, proofs[tBob], lid1, 10, big.NewInt(30))
	assert.NoError(t, err)
	_, err = s.Buy(tBob, proofs[tBob], lid2, 10, big.NewInt(70))
	assert.NoError(t, err)

	// one cumulative counter per receiver across listings
	assert.Equal(t, big.NewInt(100), s.FundInflow(tCarol))
	assert.Equal(t, 0, s.FundInflow(tBob).Sign())
}
