package cmd

import (
	"github.com/spf13/viper"

	"golang-social-analytics-service/cmd/socialstats/config"
	"golang-social-analytics-service/internal/mapping"
	"golang-social-analytics-service/internal/store"
)

// env bundles the opened storage tiers and the components built on them.
// Each command opens one env and closes it when done.
type env struct {
	fast    *store.FastTier
	durable *store.DurableTier
	manager *store.Manager
	mapper  *mapping.Mapper
}

func openEnv() (*env, error) {
	dir := viper.GetString("data-dir")
	if dir == "" {
		dir = dataDir
	}

	fast, durable, err := config.OpenStores(dir)
	if err != nil {
		return nil, err
	}

	return &env{
		fast:    fast,
		durable: durable,
		manager: store.NewManager(fast, durable, config.CreateManagerConfig(0)),
		mapper:  mapping.NewMapper(fast),
	}, nil
}

func (e *env) close() {
	e.durable.Close()
}
