//go:build wireinject
// +build wireinject

package di

import (
	"StratTick/internal/services/registry"
	"StratTick/internal/usecase"
	"StratTick/pkg/config"
	"StratTick/pkg/server"

	"github.com/google/wire"
)

var baseSet = wire.NewSet(
	ProvideKafkaProducer,
	ProvideLogger,
	ProvideMetrics,
	ProvideStrategyFactory,
	ProvideRegistry,
)

var storeSet = wire.NewSet(
	ProvideCandleStore,
	ProvideCycleGate,
)

var cycleSet = wire.NewSet(
	ProvideCache,
	ProvideBatchStore,
	ProvideBatchSink,
	ProvideTickCycle,
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		baseSet,
		storeSet,
		cycleSet,

		ProvideTickScheduler,
		ProvideCandleSync,
		ProvideKafkaConsumer,
		ProvideKafkaCandlesHandler,
		ProvideBatchReader,
		ProvideHTTPHandler,

		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeCycle wires a cycle driver for one-shot runs.
func InitializeCycle(cfg *config.Config) (*usecase.TickCycle, func(), error) {
	wire.Build(baseSet, storeSet, cycleSet)
	return nil, nil, nil
}

// InitializeCandleSync wires the market data sync without the cycle.
func InitializeCandleSync(cfg *config.Config) (*usecase.CandleSync, func(), error) {
	wire.Build(
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		storeSet,
		ProvideCandleSync,
	)
	return nil, nil, nil
}

// InitializeRegistry loads the registry alone.
func InitializeRegistry(cfg *config.Config) (*registry.Holder, func(), error) {
	wire.Build(
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideStrategyFactory,
		ProvideRegistry,
	)
	return nil, nil, nil
}
