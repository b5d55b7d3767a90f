package deedmarket

import (
	"math/big"
	"testing"

	"github.com/deedlabs/deedmarket/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	bolt "go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	store, err := NewBoltStore(t.TempDir())
	assert.NoError(t, err)
	return store
}

func TestStoreSeq(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	assert.Equal(t, uint64(0), store.LoadPropertySeq())

	err := store.Update(func(tx *bolt.Tx) error {
		id, err := store.nextSeq(tx, schema.PropertySeqKey)
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), id)
		id, err = store.nextSeq(tx, schema.PropertySeqKey)
		assert.NoError(t, err)
		assert.Equal(t, uint64(2), id)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), store.LoadPropertySeq())

	// sequences are independent
	assert.Equal(t, uint64(0), store.LoadListingSeq())
}

func TestStoreSeqRollback(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.Update(func(tx *bolt.Tx) error {
		_, err := store.nextSeq(tx, schema.ListingSeqKey)
		assert.NoError(t, err)
		return schema.ErrZeroAmount
	})
	assert.ErrorIs(t, err, schema.ErrZeroAmount)

	// a failed commit does not consume the id
	assert.Equal(t, uint64(0), store.LoadListingSeq())
}

func TestStorePropertyAndBalance(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.LoadPropertyMeta(1)
	assert.ErrorIs(t, err, schema.ErrNotExist)
	assert.False(t, store.IsExistProperty(1))

	meta := schema.PropertyMeta{ID: 1, TotalSupply: 500, URI: "ipfs://x", OffsetLock: true}
	err = store.Update(func(tx *bolt.Tx) error {
		if err := store.putPropertyMeta(tx, meta); err != nil {
			return err
		}
		return store.putBalance(tx, 1, tAlice, 500)
	})
	assert.NoError(t, err)

	got, err := store.LoadPropertyMeta(1)
	assert.NoError(t, err)
	assert.Equal(t, meta, got)
	assert.Equal(t, uint64(500), store.LoadBalance(1, tAlice))

	// balances are keyed per property
	assert.Equal(t, uint64(0), store.LoadBalance(2, tAlice))
}

func TestStorePaused(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	assert.False(t, store.LoadPaused())
	assert.NoError(t, store.SavePaused(true))
	assert.True(t, store.LoadPaused())
	assert.NoError(t, store.SavePaused(false))
	assert.False(t, store.LoadPaused())
}

func TestStoreFundInflow(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	assert.Equal(t, 0, store.LoadFundInflow(tCarol).Sign())

	// amounts above uint64 range survive the decimal string encoding
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	err := store.Update(func(tx *bolt.Tx) error {
		if err := store.addFundInflow(tx, tCarol, huge); err != nil {
			return err
		}
		return store.addFundInflow(tx, tCarol, big.NewInt(10))
	})
	assert.NoError(t, err)

	want := new(big.Int).Add(huge, big.NewInt(10))
	assert.Equal(t, want.String(), store.LoadFundInflow(tCarol).String())
}

func TestStoreAllowRoot(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	assert.Equal(t, common.Hash{}, store.LoadAllowRoot())

	tree := NewAllowTree([]common.Address{tAlice, tBob})
	assert.NoError(t, store.SaveAllowRoot(tree.Root()))
	assert.Equal(t, tree.Root(), store.LoadAllowRoot())
}
