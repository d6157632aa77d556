package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ClientsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_clients_connected",
			Help: "Currently connected websocket clients",
		},
	)
	LobbiesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lobbies_active",
			Help: "Lobbies currently held in memory",
		},
	)
	GamesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "games_started_total",
			Help: "Games started, by game type",
		},
		[]string{"game"},
	)
	GamesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "games_completed_total",
			Help: "Games played to completion",
		},
	)
	ActionsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_actions_rejected_total",
			Help: "Game actions rejected by precondition checks",
		},
	)
)

func init() {
	prometheus.MustRegister(ClientsConnected, LobbiesActive, GamesStarted, GamesCompleted, ActionsRejected)
}
