// Package inspect exposes a cache over HTTP for operators.
//
//	GET  /cache/stats   counters and sizes
//	GET  /cache/health  200 while active, 503 once disposed
//	POST /cache/prune   runs one sweep and reports how many entries it deactivated
//
// Register mounts the routes on any gin router. Server wraps them in a
// component.Component serving HTTP/1.1 and cleartext HTTP/2.
package inspect
