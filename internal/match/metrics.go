package match

import "expvar"

var (
	metricSessionsCreated   = expvar.NewInt("match_sessions_created_total")
	metricSessionsClosed    = expvar.NewInt("match_sessions_closed_total")
	metricPhaseTransitions  = expvar.NewInt("match_phase_transitions_total")
	metricStartGateTimeouts = expvar.NewInt("match_start_gate_timeouts_total")
	metricEvictions         = expvar.NewInt("match_idle_evictions_total")
	metricSettlementCalls   = expvar.NewInt("match_settlement_calls_total")
	metricSettlementErrors  = expvar.NewInt("match_settlement_errors_total")
	metricPayoutsDelivered  = expvar.NewInt("match_payouts_delivered_total")
	metricVotes             = expvar.NewInt("match_lobby_votes_total")
	metricLobbyReturns      = expvar.NewInt("match_lobby_returns_total")
)
