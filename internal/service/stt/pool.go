package stt

import (
	"context"
	"errors"
	"sync"

	"speech-feedback-service/internal/service/audio"
)

// ErrPoolClosed is returned by Transcribe after Close.
var ErrPoolClosed = errors.New("stt pool closed")

// Pool hands each transcription a dedicated adapter instance, for runtimes
// whose model handles cannot serve concurrent inference. Callers wait for a
// free instance or for their context to end.
type Pool struct {
	name      string
	instances []Adapter
	free      chan Adapter
	done      chan struct{}
	closeOnce sync.Once
}

// NewPool creates a pool over the given instances. It panics on an empty list.
func NewPool(instances ...Adapter) *Pool {
	if len(instances) == 0 {
		panic("stt: NewPool requires at least one adapter")
	}
	p := &Pool{
		name:      instances[0].Name(),
		instances: instances,
		free:      make(chan Adapter, len(instances)),
		done:      make(chan struct{}),
	}
	for _, a := range instances {
		p.free <- a
	}
	return p
}

// Name returns the provider name of the pooled instances.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the number of pooled instances.
func (p *Pool) Size() int {
	return len(p.instances)
}

// Transcribe borrows an instance for the duration of one call.
func (p *Pool) Transcribe(ctx context.Context, w audio.Waveform) (Result, error) {
	var a Adapter
	select {
	case <-p.done:
		return Result{}, ErrPoolClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case a = <-p.free:
	}
	defer func() { p.free <- a }()

	select {
	case <-p.done:
		return Result{}, ErrPoolClosed
	default:
	}
	return a.Transcribe(ctx, w)
}

// Close closes every instance. Idempotent.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		for _, a := range p.instances {
			if e := a.Close(); e != nil {
				err = e
			}
		}
	})
	return err
}
