package activation

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/scopecache/errors"
	"github.com/kbukum/scopecache/logger"
)

// Pipeline releases the resources held by an instance that is leaving the
// cache. The cache calls Deactivate exactly once per stored instance.
type Pipeline interface {
	Deactivate(instance any, origin Context) error
}

// PipelineFunc adapts a function to the Pipeline interface.
type PipelineFunc func(instance any, origin Context) error

// Deactivate calls f.
func (f PipelineFunc) Deactivate(instance any, origin Context) error {
	return f(instance, origin)
}

// CloserPipeline deactivates instances that know how to close themselves:
// Close() error, Close(), or Stop(context.Context) error. Instances with
// none of these are left alone.
type CloserPipeline struct {
	// StopTimeout bounds Stop(ctx) calls. Zero means 10 seconds.
	StopTimeout time.Duration
	log         *logger.Logger
}

// NewCloserPipeline creates a CloserPipeline logging through log.
func NewCloserPipeline(log *logger.Logger) *CloserPipeline {
	if log == nil {
		log = logger.WithComponent("activation")
	}
	return &CloserPipeline{StopTimeout: 10 * time.Second, log: log}
}

// Deactivate releases instance. A panic in the release hook is returned as
// a DEACTIVATION_FAILED error.
func (p *CloserPipeline) Deactivate(instance any, origin Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.DeactivationFailed(instance, fmt.Errorf("panic: %v", r))
		}
	}()

	switch v := instance.(type) {
	case interface{ Close() error }:
		err = v.Close()
	case interface{ Close() }:
		v.Close()
	case interface{ Stop(context.Context) error }:
		timeout := p.StopTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err = v.Stop(ctx)
	default:
		return nil
	}

	if err != nil {
		return errors.DeactivationFailed(instance, err)
	}
	if p.log != nil {
		p.log.Debug("Instance deactivated", logger.Fields(logger.FieldInstance, fmt.Sprintf("%T", instance)))
	}
	return nil
}
