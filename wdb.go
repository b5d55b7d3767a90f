package deedmarket

import (
	"os"
	"path"
	"time"

	"github.com/deedlabs/deedmarket/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "deed.sqlite"

// Wdb is the relational reporting and audit plane: listing mirrors, trade
// receipts, allow-root history and daily statistics. Core state lives in the
// bolt Store, never here.
type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.ListingRecord{}, &schema.TradeReceipt{}, &schema.RootRecord{}, &schema.DailyStatistic{})
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}

func (w *Wdb) UpsertListing(rec schema.ListingRecord) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (w *Wdb) GetListing(listingId uint64) (rec schema.ListingRecord, err error) {
	err = w.Db.Where("listing_id = ?", listingId).First(&rec).Error
	return
}

func (w *Wdb) GetListingsBySeller(seller string, cursorId int64, num int) ([]schema.ListingRecord, error) {
	records := make([]schema.ListingRecord, 0, num)
	err := w.Db.Model(&schema.ListingRecord{}).
		Where("seller = ? and id > ?", seller, cursorId).
		Order("id asc").Limit(num).Find(&records).Error
	return records, err
}

func (w *Wdb) GetListingsByProperty(propertyId uint64, cursorId int64, num int) ([]schema.ListingRecord, error) {
	records := make([]schema.ListingRecord, 0, num)
	err := w.Db.Model(&schema.ListingRecord{}).
		Where("property_id = ? and id > ?", propertyId, cursorId).
		Order("id asc").Limit(num).Find(&records).Error
	return records, err
}

func (w *Wdb) CountListingsByStatus(status string) (int64, error) {
	var count int64
	err := w.Db.Model(&schema.ListingRecord{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (w *Wdb) InsertReceipt(receipt schema.TradeReceipt) error {
	return w.Db.Create(&receipt).Error
}

func (w *Wdb) GetReceiptsByBuyer(buyer string, cursorId int64, num int) ([]schema.TradeReceipt, error) {
	receipts := make([]schema.TradeReceipt, 0, num)
	err := w.Db.Model(&schema.TradeReceipt{}).
		Where("buyer = ? and id > ?", buyer, cursorId).
		Order("id asc").Limit(num).Find(&receipts).Error
	return receipts, err
}

func (w *Wdb) GetUnpublishedReceipts(num int) ([]schema.TradeReceipt, error) {
	receipts := make([]schema.TradeReceipt, 0, num)
	err := w.Db.Model(&schema.TradeReceipt{}).
		Where("publish_status = ?", schema.UnPublished).
		Order("id asc").Limit(num).Find(&receipts).Error
	return receipts, err
}

func (w *Wdb) UpdateReceiptPublish(receiptId string, status string, errMsg string) error {
	return w.Db.Model(&schema.TradeReceipt{}).
		Where("receipt_id = ?", receiptId).
		Updates(map[string]interface{}{"publish_status": status, "err_msg": errMsg}).Error
}

func (w *Wdb) GetReceiptsByTimeRange(start, end time.Time) ([]schema.TradeReceipt, error) {
	receipts := make([]schema.TradeReceipt, 0)
	err := w.Db.Model(&schema.TradeReceipt{}).
		Where("created_at >= ? and created_at < ?", start, end).Find(&receipts).Error
	return receipts, err
}

func (w *Wdb) InsertRootRecord(root string) error {
	return w.Db.Create(&schema.RootRecord{Root: root}).Error
}

func (w *Wdb) GetLatestRootRecord() (rec schema.RootRecord, err error) {
	err = w.Db.Model(&schema.RootRecord{}).Order("id desc").First(&rec).Error
	return
}

func (w *Wdb) InsertDailyStatistic(stat schema.DailyStatistic) error {
	return w.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(&stat).Error
}

func (w *Wdb) GetDailyStatistics(start, end time.Time) ([]schema.DailyStatistic, error) {
	stats := make([]schema.DailyStatistic, 0)
	err := w.Db.Model(&schema.DailyStatistic{}).
		Where("date >= ? and date < ?", start, end).Order("date asc").Find(&stats).Error
	return stats, err
}

// GetLastStatisticDate returns the newest aggregated day, or zero time when
// statistics have never run.
func (w *Wdb) GetLastStatisticDate() (time.Time, error) {
	stat := schema.DailyStatistic{}
	err := w.Db.Model(&schema.DailyStatistic{}).Order("date desc").Limit(1).Scan(&stat).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, nil
	}
	return stat.Date, err
}
