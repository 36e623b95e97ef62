package liveness

import (
	"sync"

	"github.com/kbukum/scopecache/errors"
)

type tracked struct {
	token *Token
	refs  int
}

// Registry assigns tokens to scopes and records when scopes end.
type Registry struct {
	mu       sync.Mutex
	scopes   map[any]*tracked
	nextID   uint64
	hooks    map[uint64]func(*Token)
	nextHook uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		scopes: make(map[any]*tracked),
		hooks:  make(map[uint64]func(*Token)),
	}
}

// OnEnd calls fn with the token of every scope that ends after OnEnd
// returns. fn runs on the goroutine that ended the scope, outside the
// registry lock. The returned func removes fn.
func (r *Registry) OnEnd(fn func(*Token)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHook++
	id := r.nextHook
	r.hooks[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.hooks, id)
		r.mu.Unlock()
	}
}

// ended kills t and notifies OnEnd hooks.
func (r *Registry) ended(t *Token) {
	if !t.kill() {
		return
	}
	r.mu.Lock()
	hooks := make([]func(*Token), 0, len(r.hooks))
	for _, fn := range r.hooks {
		hooks = append(hooks, fn)
	}
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(t)
	}
}

// Track returns the live token for scope, assigning one with a reference
// count of 1 on first use. A nil scope yields the unscoped token.
func (r *Registry) Track(scope any) (*Token, error) {
	if scope == nil {
		return unscoped, nil
	}
	if err := CheckIdentity("scope", scope); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.scopes[scope]; ok {
		return t.token, nil
	}
	r.nextID++
	t := &tracked{token: &Token{id: r.nextID}, refs: 1}
	r.scopes[scope] = t
	return t.token, nil
}

// Lookup returns the live token for scope without creating one. It reports
// false when the scope was never tracked or has already ended.
func (r *Registry) Lookup(scope any) (*Token, bool) {
	if scope == nil {
		return unscoped, true
	}
	if CheckIdentity("scope", scope) != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.scopes[scope]
	if !ok {
		return nil, false
	}
	return t.token, true
}

// Acquire adds an owner to scope, tracking it if needed.
func (r *Registry) Acquire(scope any) error {
	if scope == nil {
		return nil
	}
	if err := CheckIdentity("scope", scope); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.scopes[scope]; ok {
		t.refs++
		return nil
	}
	r.nextID++
	r.scopes[scope] = &tracked{token: &Token{id: r.nextID}, refs: 1}
	return nil
}

// Release drops one owner of scope and ends it when none remain. It reports
// whether the scope ended. Releasing an unknown or ended scope is a no-op.
func (r *Registry) Release(scope any) (bool, error) {
	if scope == nil {
		return false, errors.InvalidArgument("scope", "the unscoped bucket cannot be released")
	}
	if err := CheckIdentity("scope", scope); err != nil {
		return false, err
	}

	r.mu.Lock()
	t, ok := r.scopes[scope]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	t.refs--
	if t.refs > 0 {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.scopes, scope)
	r.mu.Unlock()

	r.ended(t.token)
	return true, nil
}

// End ends scope regardless of how many owners it has. It reports whether
// the scope was live.
func (r *Registry) End(scope any) bool {
	if scope == nil || CheckIdentity("scope", scope) != nil {
		return false
	}

	r.mu.Lock()
	t, ok := r.scopes[scope]
	if ok {
		delete(r.scopes, scope)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.ended(t.token)
	return true
}

// Len returns the number of live tracked scopes, excluding the unscoped bucket.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}
