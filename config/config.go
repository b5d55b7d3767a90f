package config

import (
	"sync"
	"time"

	"github.com/deedlabs/deedmarket/config/schema"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// Config holds the global administrative identity and the rate-limit
// whitelist. Initialized once at construction; the whitelist is refreshed
// periodically from the db.
type Config struct {
	wdb       *Wdb
	admin     common.Address
	scheduler *gocron.Scheduler

	lock            sync.RWMutex
	ipRateWhitelist map[string]struct{}
}

func New(mySqlDsn string, sqliteDir string, useSqlite bool, defaultAdmin string) *Config {
	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteWdb(sqliteDir)
	} else {
		wdb = NewWdb(mySqlDsn)
	}
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}

	cfg, err := wdb.GetGateConfig()
	if err == gorm.ErrRecordNotFound {
		// first boot: seed the administrator from the flag
		if !common.IsHexAddress(defaultAdmin) {
			panic("admin address invalid: " + defaultAdmin)
		}
		cfg = schema.GateConfig{AdminAddress: defaultAdmin}
		if err := wdb.InsertGateConfig(cfg); err != nil {
			panic(err)
		}
	} else if err != nil {
		panic(err)
	}

	ips, err := wdb.GetAllAvailableIPs()
	if err != nil {
		panic(err)
	}

	return &Config{
		wdb:             wdb,
		admin:           common.HexToAddress(cfg.AdminAddress),
		scheduler:       gocron.NewScheduler(time.UTC),
		ipRateWhitelist: ips,
	}
}

func (c *Config) GetAdmin() common.Address {
	return c.admin
}

func (c *Config) GetIPWhitelist() *map[string]struct{} {
	c.lock.RLock()
	defer c.lock.RUnlock()
	ips := c.ipRateWhitelist
	return &ips
}

func (c *Config) Run() {
	go c.runJobs()
}

func (c *Config) runJobs() {
	c.scheduler.Every(5).Minute().SingletonMode().Do(c.updateIPWhitelist)
	c.scheduler.StartAsync()
}

func (c *Config) updateIPWhitelist() {
	ips, err := c.wdb.GetAllAvailableIPs()
	if err != nil {
		return
	}
	c.lock.Lock()
	c.ipRateWhitelist = ips
	c.lock.Unlock()
}

func (c *Config) Close() {
	c.scheduler.Stop()
	c.wdb.Close()
}
