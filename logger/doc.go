// Package logger provides structured logging for rxkit using zerolog.
//
// Library packages never log on the notification hot path; they log
// subscription lifecycle, dropped terminal signals and recovered panics
// through named component loggers:
//
//	log := logger.Get("stream")
//	log.Debug("subscription released", logger.Fields(logger.FieldSubscription, id))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
package logger
