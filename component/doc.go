// Package component defines the lifecycle contract shared by the cache and
// the services that embed it.
//
// A Component is started once, reports Health while running, and is
// stopped once. A Registry starts components in registration order and
// stops them in reverse.
package component
