// Package logger provides structured logging for scopecache using zerolog.
//
// Loggers carry map-based fields and are tagged per component, so the cache
// and its pruner can be told apart in a shared log stream.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.NewDefault("resolver").WithComponent("scopecache")
//	log.Info("entry evicted", logger.Fields("binding", "db", "scope_token", 7))
package logger
