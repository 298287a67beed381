package config

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/payrail-labs/payrail/config/schema"
)

// Config is the DB-backed route pricing table, refreshed on a schedule so
// price changes land without a restart.
type Config struct {
	wdb       *Wdb
	scheduler *gocron.Scheduler

	mu     sync.RWMutex
	routes map[string]schema.RoutePrice
}

func New(dsn string, sqliteDir string, useSqlite bool) *Config {
	var wdb *Wdb
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewWdb(dsn)
	}
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}
	c := &Config{
		wdb:       wdb,
		scheduler: gocron.NewScheduler(time.UTC),
		routes:    make(map[string]schema.RoutePrice),
	}
	c.refreshRoutePrices()
	return c
}

// NewStatic builds a fixed pricing table with no DB behind it, for embedding
// and tests.
func NewStatic(routes map[string]schema.RoutePrice) *Config {
	c := &Config{
		routes: make(map[string]schema.RoutePrice, len(routes)),
	}
	for route, rp := range routes {
		rp.Route = route
		c.routes[route] = rp
	}
	return c
}

func (c *Config) GetRoutePrice(route string) (schema.RoutePrice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rp, ok := c.routes[route]
	return rp, ok
}

func (c *Config) Routes() []schema.RoutePrice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]schema.RoutePrice, 0, len(c.routes))
	for _, rp := range c.routes {
		out = append(out, rp)
	}
	return out
}

func (c *Config) SetRoutePrice(rp schema.RoutePrice) error {
	if c.wdb != nil {
		if err := c.wdb.UpsertRoutePrice(rp); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.routes[rp.Route] = rp
	c.mu.Unlock()
	return nil
}

func (c *Config) Run() {
	if c.scheduler == nil {
		return
	}
	go c.runJobs()
}

func (c *Config) Close() {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
	if c.wdb != nil {
		c.wdb.Close()
	}
}
