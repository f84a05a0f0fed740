package ratestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rateWindowUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "automod_rate_window_users",
	Help: "Number of users with an in-memory rate window",
})
