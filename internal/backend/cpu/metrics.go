package cpu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	colBufferReuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convkit_colbuf_reuse_total",
		Help: "Total number of column buffer reservations served from existing storage",
	})

	colBufferGrowths = promauto.NewCounter(prometheus.CounterOpts{
		Name: "convkit_colbuf_grow_total",
		Help: "Total number of column buffer reallocations",
	})

	colBufferBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "convkit_colbuf_size_bytes",
		Help: "Capacity in bytes of the most recently grown column buffer",
	})

	// OpDuration tracks time spent in each kernel driver.
	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "convkit_op_duration_seconds",
		Help:    "Time spent in convolution, pooling and upsampling drivers",
		Buckets: []float64{0.00001, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
	}, []string{"op", "strategy"})
)
