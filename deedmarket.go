package deedmarket

import (
	"sync"
	"time"

	"github.com/deedlabs/deedmarket/config"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
)

type Deedmarket struct {
	store       *Store
	wdb         *Wdb
	engine      *gin.Engine
	stateLocker sync.Mutex

	scheduler  *gocron.Scheduler
	config     *config.Config
	verifier   MembershipVerifier
	localCache *readCache

	KafkaOn     bool
	tradeWriter *KWriter
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	adminAddr string,
	useKafka bool, kafkaUri string,
) *Deedmarket {
	store, err := NewBoltStore(boltDirPath)
	if err != nil {
		panic(err)
	}

	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewMysqlDb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	localCache, err := newReadCache(1 * time.Minute)
	if err != nil {
		panic(err)
	}

	s := &Deedmarket{
		store:      store,
		wdb:        wdb,
		engine:     gin.Default(),
		scheduler:  gocron.NewScheduler(time.UTC),
		config:     config.New(mySqlDsn, sqliteDir, useSqlite, adminAddr),
		verifier:   MerkleVerifier{},
		localCache: localCache,
	}

	if useKafka {
		tradeWriter, err := NewKWriter(TradeTopic, kafkaUri)
		if err != nil {
			panic(err)
		}
		s.tradeWriter = tradeWriter
		s.KafkaOn = true
	}
	return s
}

func (s *Deedmarket) Run(port string) {
	s.config.Run()
	go s.runAPI(port)
	s.runJobs()
}

func (s *Deedmarket) Close() {
	s.scheduler.Stop()
	s.config.Close()
	if s.tradeWriter != nil {
		s.tradeWriter.Close()
	}
	s.wdb.Close()
	if err := s.store.Close(); err != nil {
		log.Error("s.store.Close()", "err", err)
	}
}
