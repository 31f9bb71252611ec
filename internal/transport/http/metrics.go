package httptransport

import "expvar"

var (
	metricStateQueryTotal  = expvar.NewInt("session_state_query_total")
	metricStateQueryErrors = expvar.NewInt("session_state_query_errors_total")

	metricProfileQueryTotal  = expvar.NewInt("profile_query_total")
	metricProfileQueryErrors = expvar.NewInt("profile_query_errors_total")

	metricAdminCloseTotal   = expvar.NewInt("admin_session_close_total")
	metricAdminWinnerTotal  = expvar.NewInt("admin_winner_declared_total")
	metricAdminUnauthorized = expvar.NewInt("admin_unauthorized_total")
)
