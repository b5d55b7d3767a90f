package deedmarket

import (
	"github.com/deedlabs/deedmarket/schema"
	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

// Mint registers a new property and credits its whole initial supply to owner.
// Property ids are assigned sequentially starting at 1.
func (s *Deedmarket) Mint(owner common.Address, quantity uint64, uri string) (propertyId uint64, err error) {
	// 1. validate
	if owner == (common.Address{}) {
		return 0, schema.ErrInvalidRecipient
	}
	if quantity == 0 {
		return 0, schema.ErrZeroAmount
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	// 2. assign id, set supply and balance in one commit
	err = s.store.Update(func(tx *bolt.Tx) error {
		propertyId, err = s.store.nextSeq(tx, schema.PropertySeqKey)
		if err != nil {
			return err
		}
		meta := schema.PropertyMeta{
			ID:          propertyId,
			TotalSupply: quantity,
			URI:         uri,
		}
		if err := s.store.putPropertyMeta(tx, meta); err != nil {
			return err
		}
		return s.store.putBalance(tx, propertyId, owner, quantity)
	})
	if err != nil {
		log.Error("mint property failed", "err", err, "owner", owner.Hex())
		return 0, err
	}
	metricPropertyMinted()
	return propertyId, nil
}

// MintBatch registers one new property whose initial supply is split across
// several holders. A single bad entry fails the whole batch; nothing commits.
func (s *Deedmarket) MintBatch(owners []common.Address, quantities []uint64, uri string) (propertyId uint64, err error) {
	// 1. validate every entry up front
	if len(owners) != len(quantities) {
		return 0, schema.ErrLengthMismatch
	}
	for i, owner := range owners {
		if owner == (common.Address{}) {
			return 0, schema.ErrInvalidRecipient
		}
		if quantities[i] == 0 {
			return 0, schema.ErrZeroAmount
		}
	}
	if len(owners) == 0 {
		return 0, schema.ErrZeroAmount
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	// 2. one property id shared by all recipients
	err = s.store.Update(func(tx *bolt.Tx) error {
		propertyId, err = s.store.nextSeq(tx, schema.PropertySeqKey)
		if err != nil {
			return err
		}
		supply := uint64(0)
		for i, owner := range owners {
			// same owner may appear twice; accumulate
			bal := s.store.balance(tx, propertyId, owner)
			if err := s.store.putBalance(tx, propertyId, owner, bal+quantities[i]); err != nil {
				return err
			}
			supply += quantities[i]
		}
		meta := schema.PropertyMeta{
			ID:          propertyId,
			TotalSupply: supply,
			URI:         uri,
		}
		return s.store.putPropertyMeta(tx, meta)
	})
	if err != nil {
		log.Error("mint batch failed", "err", err, "holders", len(owners))
		return 0, err
	}
	metricPropertyMinted()
	return propertyId, nil
}

// Transfer moves quantity units of propertyId between owners. Supply is
// untouched; any failure leaves both balances unchanged.
func (s *Deedmarket) Transfer(from, to common.Address, propertyId, quantity uint64) error {
	if to == (common.Address{}) {
		return schema.ErrInvalidRecipient
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	return s.store.Update(func(tx *bolt.Tx) error {
		return s.transferTx(tx, from, to, propertyId, quantity)
	})
}

// transferTx is the balance move shared by Transfer and the market escrow
// operations; it composes into the caller's open transaction so listing
// mutation and custody moves commit together. The offset lock and the global
// pause flag are enforced here on every path.
func (s *Deedmarket) transferTx(tx *bolt.Tx, from, to common.Address, propertyId, quantity uint64) error {
	meta, err := s.store.propertyMeta(tx, propertyId)
	if err != nil {
		return schema.ErrUnknownProperty
	}
	if meta.OffsetLock {
		return schema.ErrLockedForOffset
	}
	if s.store.paused(tx) {
		return schema.ErrTransfersPaused
	}

	fromBal := s.store.balance(tx, propertyId, from)
	if fromBal < quantity {
		return schema.ErrInsufficientBalance
	}
	if err := s.store.putBalance(tx, propertyId, from, fromBal-quantity); err != nil {
		return err
	}
	// read after the decrement so from == to nets out
	toBal := s.store.balance(tx, propertyId, to)
	return s.store.putBalance(tx, propertyId, to, toBal+quantity)
}

// SetOffsetLock toggles the per-property transfer freeze. Idempotent: setting
// the current value again is a no-op success.
func (s *Deedmarket) SetOffsetLock(propertyId uint64, locked bool) error {
	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	return s.store.Update(func(tx *bolt.Tx) error {
		meta, err := s.store.propertyMeta(tx, propertyId)
		if err != nil {
			return schema.ErrUnknownProperty
		}
		if meta.OffsetLock == locked {
			return nil
		}
		meta.OffsetLock = locked
		return s.store.putPropertyMeta(tx, meta)
	})
}

func (s *Deedmarket) SetURI(propertyId uint64, uri string) error {
	if len(uri) == 0 {
		return schema.ErrInvalidURI
	}

	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	return s.store.Update(func(tx *bolt.Tx) error {
		meta, err := s.store.propertyMeta(tx, propertyId)
		if err != nil {
			return schema.ErrUnknownProperty
		}
		meta.URI = uri
		return s.store.putPropertyMeta(tx, meta)
	})
}

// SetPaused blocks every balance transfer while set, including the escrow
// moves behind list/buy/delist. Mint, lock, uri and root operations stay
// available under pause.
func (s *Deedmarket) SetPaused(paused bool) error {
	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()
	return s.store.SavePaused(paused)
}

func (s *Deedmarket) Paused() bool {
	return s.store.LoadPaused()
}

func (s *Deedmarket) BalanceOf(owner common.Address, propertyId uint64) uint64 {
	return s.store.LoadBalance(propertyId, owner)
}

func (s *Deedmarket) TotalSupply(propertyId uint64) uint64 {
	meta, err := s.store.LoadPropertyMeta(propertyId)
	if err != nil {
		return 0
	}
	return meta.TotalSupply
}

func (s *Deedmarket) PropertyExists(propertyId uint64) bool {
	return s.store.IsExistProperty(propertyId)
}

func (s *Deedmarket) PropertyMeta(propertyId uint64) (schema.PropertyMeta, error) {
	return s.store.LoadPropertyMeta(propertyId)
}
