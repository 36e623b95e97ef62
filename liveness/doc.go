// Package liveness tracks whether scopes are still in use.
//
// The cache never holds a scope object. It holds the scope's Token, and the
// Registry flips that token to dead when the scope's owner signals the end
// of the scope, either by dropping its last reference (Acquire/Release) or by
// calling End directly. Once a scope ends the registry forgets the scope
// object as well, so nothing in the cache keeps it reachable.
//
// Scopes and bindings are compared by identity: a pointer, channel or unsafe
// pointer. A nil scope is the unscoped bucket, represented by a shared token
// that never dies.
package liveness
