package payrail

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/payrail-labs/payrail/cache"
	"github.com/payrail-labs/payrail/config"
	"github.com/payrail-labs/payrail/rawdb"
	"github.com/payrail-labs/payrail/schema"
)

// Payrail is the provider-side payment authorization service: it issues
// 402 requirements, verifies signed authorizations and keeps the replay
// window closed. All shared state hangs off this struct; there are no
// package-level caches or counters.
type Payrail struct {
	engine    *gin.Engine
	scheduler *gocron.Scheduler

	store rawdb.KeyValueDB
	wdb   *Wdb
	cfg   *config.Config

	reqCache *cache.RequirementCache
	replay   *ReplayStore
	issuer   *Issuer
	verifier *Verifier
	events   *Dispatcher

	recipient string
	chainId   int64
	tokens    map[string]schema.TokenMeta // key: symbol

	statMark uint // payer-stat rollup watermark
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	useS3 bool, s3AccKey, s3SecretKey, s3BucketPrefix, s3Region, s3Endpoint string,
	recipient string, chainId int64, tokens []schema.TokenMeta,
	kafkaUri, webhookUrl string,
) *Payrail {
	var err error
	var KVDb rawdb.KeyValueDB
	if useS3 {
		KVDb, err = rawdb.NewS3DB(s3AccKey, s3SecretKey, s3Region, s3BucketPrefix, s3Endpoint)
	} else {
		KVDb, err = rawdb.NewBoltDB(boltDirPath)
	}
	if err != nil {
		panic(err)
	}

	var wdb *Wdb
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewWdb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	reqCache, err := cache.NewRequirementCache(schema.DefaultRequirementTTL)
	if err != nil {
		panic(err)
	}

	sinks := make([]EventSink, 0, 2)
	if webhookUrl != "" {
		sinks = append(sinks, NewWebhookSink(webhookUrl))
	}
	if kafkaUri != "" {
		kw, err := NewKWriter(PaymentTopic, kafkaUri)
		if err != nil {
			panic(err)
		}
		sinks = append(sinks, kw)
	}
	var events *Dispatcher
	if len(sinks) > 0 {
		events, err = NewDispatcher(10, sinks...)
		if err != nil {
			panic(err)
		}
	}

	replay := NewReplayStore(schema.DefaultReplayTTL, KVDb)
	tokenMap := make(map[string]schema.TokenMeta, len(tokens))
	for _, tk := range tokens {
		tokenMap[tk.Symbol] = tk
	}

	s := &Payrail{
		engine:    gin.Default(),
		scheduler: gocron.NewScheduler(time.UTC),
		store:     KVDb,
		wdb:       wdb,
		cfg:       config.New(mySqlDsn, sqliteDir, useSqlite),
		reqCache:  reqCache,
		replay:    replay,
		issuer:    NewIssuer(recipient, chainId, schema.DefaultRequirementTTL, reqCache),
		verifier:  NewVerifier(replay, wdb, events),
		events:    events,
		recipient: recipient,
		chainId:   chainId,
		tokens:    tokenMap,
	}
	return s
}

func (s *Payrail) Run(port string) {
	s.cfg.Run()
	go s.runAPI(port)
	s.runJobs()
	NewMetricServer(":9000")
}

func (s *Payrail) Close() {
	s.scheduler.Stop()
	if s.events != nil {
		s.events.Close()
	}
	s.cfg.Close()
	s.reqCache.Close()
	if s.wdb != nil {
		s.wdb.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
	log.Info("payrail closed")
}
