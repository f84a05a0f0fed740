package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "warden_build_info",
	Help: "Version of the running daemon",
}, []string{"version"})

var restartRequests = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_restart_requests",
	Help: "Number of approved remote restarts",
})
