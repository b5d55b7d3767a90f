package deedmarket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestDeed wires a market over a throwaway bolt store and sqlite wdb,
// skipping the http engine, scheduler and kafka.
func newTestDeed(t *testing.T) *Deedmarket {
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	assert.NoError(t, err)

	wdb := NewSqliteDb(dir)
	assert.NoError(t, wdb.Migrate())

	return &Deedmarket{
		store:    store,
		wdb:      wdb,
		verifier: MerkleVerifier{},
	}
}

func (s *Deedmarket) testClose() {
	s.wdb.Close()
	_ = s.store.Close()
}
