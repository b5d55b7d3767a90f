package deedmarket

import (
	"testing"
	"time"

	"github.com/deedlabs/deedmarket/schema"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func newTestWdb(t *testing.T) *Wdb {
	wdb := NewSqliteDb(t.TempDir())
	assert.NoError(t, wdb.Migrate())
	return wdb
}

func TestWdbUpsertListing(t *testing.T) {
	wdb := newTestWdb(t)
	defer wdb.Close()

	rec := schema.ListingRecord{
		ListingID: 1, PropertyID: 7, Seller: tAlice.Hex(), FundReceiver: tCarol.Hex(),
		UnitPrice: "5", Quantity: 400, Available: 400, Status: schema.ListingActive,
	}
	assert.NoError(t, wdb.UpsertListing(rec))

	// second write on the same listing id updates in place
	rec.Available = 250
	rec.Status = schema.ListingActive
	assert.NoError(t, wdb.UpsertListing(rec))

	got, err := wdb.GetListing(1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(250), got.Available)

	sellers, err := wdb.GetListingsBySeller(tAlice.Hex(), 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(sellers))

	byProp, err := wdb.GetListingsByProperty(7, 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(byProp))

	count, err := wdb.CountListingsByStatus(schema.ListingActive)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWdbReceiptPublishFlow(t *testing.T) {
	wdb := newTestWdb(t)
	defer wdb.Close()

	receipt := schema.TradeReceipt{
		ReceiptID: "r-1", ListingID: 1, PropertyID: 7, Buyer: tBob.Hex(),
		Quantity: 150, Payment: "750", FundReceiver: tCarol.Hex(),
		PublishStatus: schema.UnPublished,
	}
	assert.NoError(t, wdb.InsertReceipt(receipt))

	pending, err := wdb.GetUnpublishedReceipts(10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(pending))

	assert.NoError(t, wdb.UpdateReceiptPublish("r-1", schema.Published, ""))
	pending, err = wdb.GetUnpublishedReceipts(10)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(pending))

	byBuyer, err := wdb.GetReceiptsByBuyer(tBob.Hex(), 0, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(byBuyer))
	assert.Equal(t, schema.Published, byBuyer[0].PublishStatus)

	// receipt id is unique; a replayed insert must fail
	assert.Error(t, wdb.InsertReceipt(receipt))
}

func TestWdbRootRecords(t *testing.T) {
	wdb := newTestWdb(t)
	defer wdb.Close()

	assert.NoError(t, wdb.InsertRootRecord("0xaaaa"))
	assert.NoError(t, wdb.InsertRootRecord("0xbbbb"))

	rec, err := wdb.GetLatestRootRecord()
	assert.NoError(t, err)
	assert.Equal(t, "0xbbbb", rec.Root)
}

func TestWdbDailyStatistics(t *testing.T) {
	wdb := newTestWdb(t)
	defer wdb.Close()

	last, err := wdb.GetLastStatisticDate()
	assert.NoError(t, err)
	assert.True(t, last.IsZero())

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	stat := schema.DailyStatistic{
		Date: day, Trades: 2, Volume: "800",
		Properties: datatypes.JSONMap{"7": 160},
	}
	assert.NoError(t, wdb.InsertDailyStatistic(stat))

	// re-aggregating the same day overwrites, never duplicates
	stat.Trades = 3
	stat.Volume = "1300"
	assert.NoError(t, wdb.InsertDailyStatistic(stat))

	stats, err := wdb.GetDailyStatistics(day, day.AddDate(0, 0, 1))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(stats))
	assert.Equal(t, int64(3), stats[0].Trades)
	assert.Equal(t, "1300", stats[0].Volume)

	last, err = wdb.GetLastStatisticDate()
	assert.NoError(t, err)
	assert.True(t, day.Equal(last))
}
