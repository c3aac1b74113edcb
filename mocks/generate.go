package mocks

//go:generate mockgen -destination=./mock_signal_generator.go -package=mocks github.com/rxtech-lab/pump-backtest/internal/strategy SignalGenerator
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/datasource HistoricalDataStore
