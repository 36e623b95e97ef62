package liveness

import (
	"fmt"
	"sync/atomic"
)

// Token is the cache's non-owning handle on a scope.
type Token struct {
	id   uint64
	dead atomic.Bool
}

// ID returns the token's registry-unique, monotonically assigned number.
// The unscoped token has ID 0.
func (t *Token) ID() uint64 { return t.id }

// Alive reports whether the scope behind the token is still in use.
func (t *Token) Alive() bool { return !t.dead.Load() }

// Unscoped reports whether t is the shared unscoped token.
func (t *Token) Unscoped() bool { return t == unscoped }

func (t *Token) String() string {
	if t.Unscoped() {
		return "unscoped"
	}
	return fmt.Sprintf("scope#%d", t.id)
}

// kill marks the token dead. Reports whether this call did it.
func (t *Token) kill() bool {
	if t.Unscoped() {
		return false
	}
	return t.dead.CompareAndSwap(false, true)
}

var unscoped = &Token{}

// Unscoped returns the token of the unscoped bucket.
func Unscoped() *Token { return unscoped }
