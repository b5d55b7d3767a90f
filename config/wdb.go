package config

import (
	"os"
	"path"

	"github.com/deedlabs/deedmarket/config/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteName = "config.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(dsn string) *Wdb {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 10,
	})
	if err != nil {
		panic(err)
	}
	return &Wdb{Db: db}
}

func NewSqliteWdb(dbDir string) *Wdb {
	if err := os.MkdirAll(dbDir, os.ModePerm); err != nil {
		panic(err)
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.GateConfig{}, &schema.IpRateWhitelist{})
}

func (w *Wdb) GetGateConfig() (cfg schema.GateConfig, err error) {
	err = w.Db.First(&cfg).Error
	return
}

func (w *Wdb) InsertGateConfig(cfg schema.GateConfig) error {
	return w.Db.Create(&cfg).Error
}

func (w *Wdb) GetAllAvailableIPs() (map[string]struct{}, error) {
	rows := make([]schema.IpRateWhitelist, 0)
	err := w.Db.Model(&schema.IpRateWhitelist{}).Where("available = ?", true).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		res[row.OriginOrIP] = struct{}{}
	}
	return res, nil
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}
