package application

import "expvar"

// Counters exposed on /api/debug/vars.
var (
	ordersCreated    = expvar.NewInt("orders_created")
	ordersPaid       = expvar.NewInt("orders_paid")
	webhooksRejected = expvar.NewInt("webhooks_rejected")
)
