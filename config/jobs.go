package config

import (
	"github.com/inconshreveable/log15"
	"github.com/payrail-labs/payrail/config/schema"
)

var log = log15.New("module", "payrail/config")

func (c *Config) runJobs() {
	c.scheduler.Every(5).Minute().SingletonMode().Do(c.refreshRoutePrices)
	c.scheduler.StartAsync()
}

func (c *Config) refreshRoutePrices() {
	if c.wdb == nil {
		return
	}
	prices, err := c.wdb.GetRoutePrices()
	if err != nil {
		log.Error("c.wdb.GetRoutePrices()", "err", err)
		return
	}
	routes := make(map[string]schema.RoutePrice, len(prices))
	for _, rp := range prices {
		routes[rp.Route] = rp
	}
	c.mu.Lock()
	c.routes = routes
	c.mu.Unlock()
}
