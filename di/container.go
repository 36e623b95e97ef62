package di

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/cache"
	"github.com/kbukum/scopecache/errors"
	"github.com/kbukum/scopecache/liveness"
	"github.com/kbukum/scopecache/logger"
)

// Lifetime determines how long a resolved instance is reused.
type Lifetime int

const (
	Transient Lifetime = iota // Built on every resolution
	Singleton                 // One instance per container
	Scoped                    // One instance per scope
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return fmt.Sprintf("Lifetime(%d)", int(l))
	}
}

// RegistrationInfo describes a registered key for introspection.
type RegistrationInfo struct {
	Key      string
	Lifetime Lifetime
}

// registration is also the binding identity under which instances are
// remembered.
type registration struct {
	key         string
	constructor reflect.Value
	lifetime    Lifetime

	// mu serialises first builds so concurrent resolutions share one instance.
	mu sync.Mutex
}

// Container resolves registered keys, remembering singleton and scoped
// instances in a cache.
type Container struct {
	mu            sync.RWMutex
	registrations map[string]*registration
	cache         *cache.Cache
	log           *logger.Logger
	closeOnce     sync.Once
}

// Option configures a Container.
type Option func(*Container)

// WithCache makes the container remember instances in c. The container
// takes ownership and disposes c on Close.
func WithCache(c *cache.Cache) Option {
	return func(ct *Container) { ct.cache = c }
}

// WithLogger sets the container's logger.
func WithLogger(l *logger.Logger) Option {
	return func(ct *Container) {
		if l != nil {
			ct.log = l
		}
	}
}

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	containerType = reflect.TypeOf((*Container)(nil))
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// NewContainer creates a container. Without WithCache it owns a cache that
// deactivates through activation.CloserPipeline and is pruned every
// cache.DefaultPruneInterval.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		registrations: make(map[string]*registration),
		log:           logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.New(nil, nil, cache.WithLogger(c.log))
	}
	c.log = c.log.WithComponent("di")
	return c
}

// Register adds a constructor for key. Accepted constructor shapes are
// func() T, func() (T, error), func(context.Context) (T, error) and
// func(*Container) (T, error).
func (c *Container) Register(key string, constructor any, lifetime Lifetime) error {
	fn := reflect.ValueOf(constructor)
	if err := checkConstructor(fn); err != nil {
		return err
	}
	if lifetime < Transient || lifetime > Scoped {
		return errors.InvalidArgument("lifetime", lifetime.String())
	}
	return c.add(&registration{key: key, constructor: fn, lifetime: lifetime})
}

// RegisterInstance registers a pre-built singleton. The container owns it
// and deactivates it on Close.
func (c *Container) RegisterInstance(key string, instance any) error {
	if instance == nil {
		return errors.InvalidArgument("instance", "must not be nil")
	}
	reg := &registration{key: key, lifetime: Singleton}
	if err := c.add(reg); err != nil {
		return err
	}
	if err := c.cache.Remember(activation.NewContext(reg, nil, instance)); err != nil {
		c.mu.Lock()
		delete(c.registrations, key)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Container) add(reg *registration) error {
	if reg.key == "" {
		return errors.InvalidArgument("key", "must not be empty")
	}
	if c.cache.Disposed() {
		return errors.AlreadyDisposed("container")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.registrations[reg.key]; exists {
		return errors.InvalidArgument("key", fmt.Sprintf("%s already registered", reg.key))
	}
	c.registrations[reg.key] = reg

	c.log.Debug("Registered", logger.Fields("key", reg.key, "lifetime", reg.lifetime.String()))
	return nil
}

// Resolve resolves key outside any scope.
func (c *Container) Resolve(key string) (any, error) {
	return c.ResolveIn(context.Background(), nil, key)
}

// ResolveIn resolves key within scope. Singletons ignore scope; scoped keys
// require a non-nil scope, which must be a pointer or channel identity.
func (c *Container) ResolveIn(ctx context.Context, scope any, key string) (any, error) {
	c.mu.RLock()
	reg, ok := c.registrations[key]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("registration", key)
	}
	if c.cache.Disposed() {
		return nil, errors.AlreadyDisposed("container")
	}

	switch reg.lifetime {
	case Transient:
		return c.build(ctx, reg)
	case Singleton:
		scope = nil
	case Scoped:
		if scope == nil {
			return nil, errors.InvalidArgument("scope", fmt.Sprintf("scoped key %s needs a scope", key))
		}
		if err := liveness.CheckIdentity("scope", scope); err != nil {
			return nil, err
		}
	}

	if instance, found, err := c.cache.TryGet(reg, scope); err != nil || found {
		return instance, err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if instance, found, err := c.cache.TryGet(reg, scope); err != nil || found {
		return instance, err
	}
	if !reg.constructor.IsValid() {
		return nil, errors.NotFound("instance", key)
	}

	instance, err := c.build(ctx, reg)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Remember(activation.NewContext(reg, scope, instance)); err != nil {
		return nil, err
	}

	c.log.Debug("Resolved", logger.Fields("key", key, "lifetime", reg.lifetime.String()))
	return instance, nil
}

// EndScope deactivates every instance built in scope and ends it. Returns
// the number of instances deactivated.
func (c *Container) EndScope(scope any) int {
	n := c.cache.Clear(scope)
	c.cache.Registry().End(scope)
	return n
}

// Registrations returns info about all registered keys, sorted by key.
func (c *Container) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.registrations))
	for key, reg := range c.registrations {
		result = append(result, RegistrationInfo{Key: key, Lifetime: reg.lifetime})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Cache returns the cache instances are remembered in.
func (c *Container) Cache() *cache.Cache { return c.cache }

// Close disposes the cache, deactivating every remembered instance. It is
// safe to call more than once.
func (c *Container) Close() error {
	c.closeOnce.Do(func() {
		c.cache.Dispose()
		c.log.Info("Container closed")
	})
	return nil
}

func checkConstructor(fn reflect.Value) error {
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return errors.InvalidArgument("constructor", "must be a function")
	}
	t := fn.Type()
	switch t.NumIn() {
	case 0:
	case 1:
		if in := t.In(0); in != contextType && in != containerType {
			return errors.InvalidArgument("constructor", "parameter must be context.Context or *di.Container, got "+in.String())
		}
	default:
		return errors.InvalidArgument("constructor", "must take at most one parameter")
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return errors.InvalidArgument("constructor", "second result must be error")
		}
	default:
		return errors.InvalidArgument("constructor", "must return (instance) or (instance, error)")
	}
	return nil
}

func (c *Container) build(ctx context.Context, reg *registration) (any, error) {
	if !reg.constructor.IsValid() {
		return nil, errors.NotFound("instance", reg.key)
	}

	var args []reflect.Value
	if reg.constructor.Type().NumIn() == 1 {
		if reg.constructor.Type().In(0) == contextType {
			args = []reflect.Value{reflect.ValueOf(&ctx).Elem()}
		} else {
			args = []reflect.Value{reflect.ValueOf(c)}
		}
	}

	results := reg.constructor.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, fmt.Errorf("di: constructing %s: %w", reg.key, results[1].Interface().(error))
	}
	if isNil(results[0]) {
		return nil, fmt.Errorf("di: constructor for %s returned nil", reg.key)
	}
	return results[0].Interface(), nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
