package ws

import "expvar"

var (
	metricConnections     = expvar.NewInt("ws_connections_total")
	metricConnectionsOpen = expvar.NewInt("ws_connections_open")
	metricRejectedJoins   = expvar.NewInt("ws_rejected_joins_total")
	metricBadMessages     = expvar.NewInt("ws_bad_messages_total")
)
