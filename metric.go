package deedmarket

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	MetricNameSpace = "deedmarket"
)

var (
	propertiesMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "properties_minted",
			Help:      "properties registered on the ledger",
		},
	)
	listingsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "listings_active",
			Help:      "listings currently open for sale",
		},
	)
	tradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "trades_total",
			Help:      "completed buys",
		},
	)
	tradeVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "trade_volume",
			Help:      "payments routed to fund receivers, smallest unit",
		},
	)
	tradedUnits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "traded_units",
			Help:      "property units sold through the market",
		},
	)
)

func init() {
	prometheus.MustRegister(
		propertiesMinted,
		listingsActive,
		tradesTotal,
		tradeVolume,
		tradedUnits,
	)
}

func metricPropertyMinted() {
	propertiesMinted.Inc()
}

func metricListingCreated() {
	listingsActive.Inc()
}

func metricListingClosed() {
	listingsActive.Dec()
}

func metricTrade(quantity uint64, payment *big.Int) {
	tradesTotal.Inc()
	tradedUnits.Add(float64(quantity))
	vol, _ := decimal.NewFromBigInt(payment, 0).Float64()
	tradeVolume.Add(vol)
}

func metricSetActiveListings(n int64) {
	listingsActive.Set(float64(n))
}
