package activation

import (
	"context"
	"fmt"
	"testing"

	"github.com/kbukum/scopecache/errors"
	"github.com/kbukum/scopecache/logger"
)

type errCloser struct {
	closed int
	err    error
}

func (c *errCloser) Close() error {
	c.closed++
	return c.err
}

type plainCloser struct{ closed int }

func (c *plainCloser) Close() { c.closed++ }

type stopper struct {
	stopped     int
	hadDeadline bool
}

func (s *stopper) Stop(ctx context.Context) error {
	s.stopped++
	_, s.hadDeadline = ctx.Deadline()
	return nil
}

type panicky struct{}

func (panicky) Close() error { panic("half torn down") }

func TestNewContext(t *testing.T) {
	binding, scope, instance := &struct{ n int }{1}, &struct{ n int }{2}, "value"
	ctx := NewContext(binding, scope, instance)
	if ctx.Binding() != binding || ctx.GetScope() != scope || ctx.Instance() != instance {
		t.Error("expected NewContext to return what it was given")
	}
}

func TestPipelineFunc(t *testing.T) {
	var got any
	p := PipelineFunc(func(instance any, origin Context) error {
		got = instance
		return nil
	})
	if err := p.Deactivate("x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "x" {
		t.Errorf("expected function to receive instance, got %v", got)
	}
}

func TestCloserPipeline(t *testing.T) {
	p := NewCloserPipeline(logger.Nop())

	t.Run("close with error result", func(t *testing.T) {
		c := &errCloser{}
		if err := p.Deactivate(c, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.closed != 1 {
			t.Errorf("expected Close once, got %d", c.closed)
		}
	})

	t.Run("close failure is wrapped", func(t *testing.T) {
		cause := fmt.Errorf("already closed")
		err := p.Deactivate(&errCloser{err: cause}, nil)
		if !errors.HasCode(err, errors.ErrCodeDeactivationFailed) {
			t.Fatalf("expected DEACTIVATION_FAILED, got %v", err)
		}
		appErr, _ := errors.AsAppError(err)
		if appErr.Cause != cause {
			t.Error("expected cause to be preserved")
		}
	})

	t.Run("plain close", func(t *testing.T) {
		c := &plainCloser{}
		if err := p.Deactivate(c, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.closed != 1 {
			t.Errorf("expected Close once, got %d", c.closed)
		}
	})

	t.Run("stop gets a deadline", func(t *testing.T) {
		s := &stopper{}
		if err := p.Deactivate(s, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.stopped != 1 || !s.hadDeadline {
			t.Errorf("expected one Stop with deadline, got stopped=%d deadline=%v", s.stopped, s.hadDeadline)
		}
	})

	t.Run("panic becomes error", func(t *testing.T) {
		err := p.Deactivate(panicky{}, nil)
		if !errors.HasCode(err, errors.ErrCodeDeactivationFailed) {
			t.Fatalf("expected DEACTIVATION_FAILED, got %v", err)
		}
	})

	t.Run("non closer is ignored", func(t *testing.T) {
		if err := p.Deactivate(42, nil); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestCloserPipelineZeroValue(t *testing.T) {
	var p CloserPipeline
	s := &stopper{}
	if err := p.Deactivate(s, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.hadDeadline {
		t.Error("expected default stop timeout to apply")
	}
}
