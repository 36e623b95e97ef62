// Package cachetest provides deterministic pruners, recording pipelines and
// identity helpers for tests of the cache and code built on it.
package cachetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/scopecache/activation"
	"github.com/kbukum/scopecache/cache"
)

// Scope is a pointer identity usable as a cache scope.
type Scope struct{ Name string }

// NewScope returns a fresh scope identity.
func NewScope(name string) *Scope { return &Scope{Name: name} }

func (s *Scope) String() string { return "scope:" + s.Name }

// Binding is a pointer identity usable as a cache binding.
type Binding struct{ Name string }

// NewBinding returns a fresh binding identity.
func NewBinding(name string) *Binding { return &Binding{Name: name} }

func (b *Binding) String() string { return "binding:" + b.Name }

// Instance is a cached value that records nothing itself.
type Instance struct{ Name string }

// NewInstance returns a fresh instance.
func NewInstance(name string) *Instance { return &Instance{Name: name} }

// ManualPruner records StartPruning and StopPruning calls and sweeps only
// when Sweep is called.
type ManualPruner struct {
	mu      sync.Mutex
	targets []cache.Prunable
	starts  int
	stops   int
}

var _ cache.Pruner = (*ManualPruner)(nil)

// NewManualPruner creates a pruner that never sweeps on its own.
func NewManualPruner() *ManualPruner { return &ManualPruner{} }

func (p *ManualPruner) StartPruning(target cache.Prunable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	p.targets = append(p.targets, target)
}

func (p *ManualPruner) StopPruning() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

// Starts returns how many times StartPruning was called.
func (p *ManualPruner) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

// Stops returns how many times StopPruning was called.
func (p *ManualPruner) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

// Targets returns the caches handed to StartPruning.
func (p *ManualPruner) Targets() []cache.Prunable {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]cache.Prunable(nil), p.targets...)
}

// Sweep runs one prune on every target and returns the total deactivated.
func (p *ManualPruner) Sweep(ctx context.Context) int {
	n := 0
	for _, t := range p.Targets() {
		n += t.Prune(ctx)
	}
	return n
}

// RecordingPipeline counts deactivations per instance. Instances registered
// with FailOn return an error; those registered with PanicOn panic.
type RecordingPipeline struct {
	mu     sync.Mutex
	counts map[any]int
	order  []any
	fail   map[any]error
	panics map[any]bool
}

var _ activation.Pipeline = (*RecordingPipeline)(nil)

// NewRecordingPipeline creates an empty recording pipeline.
func NewRecordingPipeline() *RecordingPipeline {
	return &RecordingPipeline{
		counts: make(map[any]int),
		fail:   make(map[any]error),
		panics: make(map[any]bool),
	}
}

// FailOn makes deactivating instance return err.
func (p *RecordingPipeline) FailOn(instance any, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[instance] = err
}

// PanicOn makes deactivating instance panic.
func (p *RecordingPipeline) PanicOn(instance any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panics[instance] = true
}

func (p *RecordingPipeline) Deactivate(instance any, _ activation.Context) error {
	p.mu.Lock()
	p.counts[instance]++
	p.order = append(p.order, instance)
	err := p.fail[instance]
	panics := p.panics[instance]
	p.mu.Unlock()

	if panics {
		panic(fmt.Sprintf("deactivate %v", instance))
	}
	return err
}

// Count returns how many times instance was deactivated.
func (p *RecordingPipeline) Count(instance any) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[instance]
}

// Total returns the number of Deactivate calls.
func (p *RecordingPipeline) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Deactivated returns instances in the order they were deactivated.
func (p *RecordingPipeline) Deactivated() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.order...)
}
