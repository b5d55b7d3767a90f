package deedmarket

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/deedlabs/deedmarket/schema"
	"github.com/ethereum/go-ethereum/common"
	bolt "go.etcd.io/bbolt"
)

const (
	boltAllocSize = 8 * 1024 * 1024
	boltName      = "deed.db"
)

// Store holds the authoritative ledger and marketplace state. Every mutating
// operation commits through a single bolt read-write transaction, so a failure
// anywhere rolls back all of its effects.
type Store struct {
	BoltDb *bolt.DB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	if len(boltDirPath) == 0 {
		return nil, errors.New("boltDb dir path can not null")
	}
	if err := os.MkdirAll(boltDirPath, os.ModePerm); err != nil {
		return nil, err
	}

	boltDB, err := bolt.Open(path.Join(boltDirPath, boltName), 0660, &bolt.Options{Timeout: 2 * time.Second, InitialMmapSize: 10e6})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	boltDB.AllocSize = boltAllocSize

	kv := &Store{BoltDb: boltDB}

	if err := kv.BoltDb.Update(func(tx *bolt.Tx) error {
		bucketNames := []string{
			schema.PropertyMetaBucket,
			schema.BalanceBucket,
			schema.ListingBucket,
			schema.FundInflowBucket,
			schema.ConstantsBucket,
		}
		return createBuckets(tx, bucketNames)
	}); err != nil {
		return nil, err
	}
	return kv, nil
}

func createBuckets(tx *bolt.Tx, buckets []string) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.BoltDb.Close()
}

// Update exposes the underlying read-write transaction so ledger and market
// effects can compose into one atomic commit.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.BoltDb.Update(fn)
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func propertyKey(propertyId uint64) []byte {
	return []byte(strconv.FormatUint(propertyId, 10))
}

func balanceKey(propertyId uint64, owner common.Address) []byte {
	return []byte(strconv.FormatUint(propertyId, 10) + ":" + owner.Hex())
}

func listingKey(listingId uint64) []byte {
	return []byte(strconv.FormatUint(listingId, 10))
}

// nextSeq increments and returns the named sequence; ids start at 1.
func (s *Store) nextSeq(tx *bolt.Tx, key string) (uint64, error) {
	bkt := tx.Bucket([]byte(schema.ConstantsBucket))
	cur := btoi(bkt.Get([]byte(key)))
	next := cur + 1
	if err := bkt.Put([]byte(key), itob(next)); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) seq(tx *bolt.Tx, key string) uint64 {
	return btoi(tx.Bucket([]byte(schema.ConstantsBucket)).Get([]byte(key)))
}

func (s *Store) propertyMeta(tx *bolt.Tx, propertyId uint64) (meta schema.PropertyMeta, err error) {
	data := tx.Bucket([]byte(schema.PropertyMetaBucket)).Get(propertyKey(propertyId))
	if data == nil {
		return meta, schema.ErrNotExist
	}
	err = json.Unmarshal(data, &meta)
	return
}

func (s *Store) putPropertyMeta(tx *bolt.Tx, meta schema.PropertyMeta) error {
	data, err := json.Marshal(&meta)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(schema.PropertyMetaBucket)).Put(propertyKey(meta.ID), data)
}

func (s *Store) balance(tx *bolt.Tx, propertyId uint64, owner common.Address) uint64 {
	return btoi(tx.Bucket([]byte(schema.BalanceBucket)).Get(balanceKey(propertyId, owner)))
}

func (s *Store) putBalance(tx *bolt.Tx, propertyId uint64, owner common.Address, amount uint64) error {
	return tx.Bucket([]byte(schema.BalanceBucket)).Put(balanceKey(propertyId, owner), itob(amount))
}

func (s *Store) listing(tx *bolt.Tx, listingId uint64) (lst schema.Listing, err error) {
	data := tx.Bucket([]byte(schema.ListingBucket)).Get(listingKey(listingId))
	if data == nil {
		return lst, schema.ErrNotExist
	}
	err = json.Unmarshal(data, &lst)
	return
}

func (s *Store) putListing(tx *bolt.Tx, lst schema.Listing) error {
	data, err := json.Marshal(&lst)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(schema.ListingBucket)).Put(listingKey(lst.ID), data)
}

func (s *Store) paused(tx *bolt.Tx) bool {
	val := tx.Bucket([]byte(schema.ConstantsBucket)).Get([]byte(schema.PausedKey))
	return len(val) == 1 && val[0] == 0x01
}

func (s *Store) putPaused(tx *bolt.Tx, paused bool) error {
	val := []byte{0x00}
	if paused {
		val = []byte{0x01}
	}
	return tx.Bucket([]byte(schema.ConstantsBucket)).Put([]byte(schema.PausedKey), val)
}

func (s *Store) allowRoot(tx *bolt.Tx) common.Hash {
	return common.BytesToHash(tx.Bucket([]byte(schema.ConstantsBucket)).Get([]byte(schema.AllowRootKey)))
}

func (s *Store) putAllowRoot(tx *bolt.Tx, root common.Hash) error {
	return tx.Bucket([]byte(schema.ConstantsBucket)).Put([]byte(schema.AllowRootKey), root.Bytes())
}

func (s *Store) fundInflow(tx *bolt.Tx, receiver common.Address) *big.Int {
	data := tx.Bucket([]byte(schema.FundInflowBucket)).Get([]byte(receiver.Hex()))
	if data == nil {
		return new(big.Int)
	}
	amt, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return new(big.Int)
	}
	return amt
}

func (s *Store) addFundInflow(tx *bolt.Tx, receiver common.Address, amount *big.Int) error {
	total := new(big.Int).Add(s.fundInflow(tx, receiver), amount)
	return tx.Bucket([]byte(schema.FundInflowBucket)).Put([]byte(receiver.Hex()), []byte(total.String()))
}

// --- read-only loads ---

func (s *Store) LoadPropertyMeta(propertyId uint64) (meta schema.PropertyMeta, err error) {
	err = s.BoltDb.View(func(tx *bolt.Tx) error {
		meta, err = s.propertyMeta(tx, propertyId)
		return err
	})
	return
}

func (s *Store) IsExistProperty(propertyId uint64) bool {
	_, err := s.LoadPropertyMeta(propertyId)
	return err == nil
}

func (s *Store) LoadBalance(propertyId uint64, owner common.Address) (bal uint64) {
	_ = s.BoltDb.View(func(tx *bolt.Tx) error {
		bal = s.balance(tx, propertyId, owner)
		return nil
	})
	return
}

func (s *Store) LoadListing(listingId uint64) (lst schema.Listing, err error) {
	err = s.BoltDb.View(func(tx *bolt.Tx) error {
		lst, err = s.listing(tx, listingId)
		return err
	})
	return
}

func (s *Store) LoadPropertySeq() (seq uint64) {
	_ = s.BoltDb.View(func(tx *bolt.Tx) error {
		seq = s.seq(tx, schema.PropertySeqKey)
		return nil
	})
	return
}

func (s *Store) LoadListingSeq() (seq uint64) {
	_ = s.BoltDb.View(func(tx *bolt.Tx) error {
		seq = s.seq(tx, schema.ListingSeqKey)
		return nil
	})
	return
}

func (s *Store) LoadPaused() (paused bool) {
	_ = s.BoltDb.View(func(tx *bolt.Tx) error {
		paused = s.paused(tx)
		return nil
	})
	return
}

func (s *Store) LoadAllowRoot() (root common.Hash) {
	_ = s.BoltDb.View(func(tx *bolt.Tx) error {
		root = s.allowRoot(tx)
		return nil
	})
	return
}

func (s *Store) LoadFundInflow(receiver common.Address) (amt *big.Int) {
	_ = s.BoltDb.View(func(tx *bolt.Tx) error {
		amt = s.fundInflow(tx, receiver)
		return nil
	})
	return
}

func (s *Store) SavePaused(paused bool) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		return s.putPaused(tx, paused)
	})
}

func (s *Store) SaveAllowRoot(root common.Hash) error {
	return s.BoltDb.Update(func(tx *bolt.Tx) error {
		return s.putAllowRoot(tx, root)
	})
}
