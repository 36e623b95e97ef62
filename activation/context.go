package activation

// Context describes one resolution: the binding that produced the instance,
// the instance itself and the scope it belongs to. A nil scope means the
// instance is unscoped.
type Context interface {
	Binding() any
	Instance() any
	GetScope() any
}

type resolution struct {
	binding  any
	scope    any
	instance any
}

// NewContext returns a Context for callers without a richer resolution
// record of their own.
func NewContext(binding, scope, instance any) Context {
	return &resolution{binding: binding, scope: scope, instance: instance}
}

func (r *resolution) Binding() any  { return r.binding }
func (r *resolution) Instance() any { return r.instance }
func (r *resolution) GetScope() any { return r.scope }
