package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
)

// Pipeline is a pull-based stream of record batches produced by a physical
// plan node.
type Pipeline interface {
	// Read returns the next batch. The caller owns the returned record and
	// must release it. Read returns EOF once the pipeline is exhausted.
	Read(context.Context) (arrow.Record, error)
	// Close releases the resources of the pipeline, including its inputs.
	Close()
}

// EOF is returned by [Pipeline.Read] when no more batches are available.
var EOF = errors.New("pipeline exhausted") //nolint:revive,staticcheck

type state struct {
	batch arrow.Record
	err   error
}

type readFunc func(context.Context, []Pipeline) (arrow.Record, error)

// GenericPipeline is a [Pipeline] whose batches are produced by a read
// function over its inputs.
type GenericPipeline struct {
	inputs []Pipeline
	read   readFunc
}

func newGenericPipeline(read readFunc, inputs ...Pipeline) *GenericPipeline {
	return &GenericPipeline{
		read:   read,
		inputs: inputs,
	}
}

var _ Pipeline = (*GenericPipeline)(nil)

// Read implements Pipeline.
func (p *GenericPipeline) Read(ctx context.Context) (arrow.Record, error) {
	if p.read == nil {
		return nil, EOF
	}
	return p.read(ctx, p.inputs)
}

// Close implements Pipeline.
func (p *GenericPipeline) Close() {
	for _, inp := range p.inputs {
		inp.Close()
	}
}

func errorPipeline(ctx context.Context, err error) Pipeline {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return newGenericPipeline(func(_ context.Context, _ []Pipeline) (arrow.Record, error) {
		return nil, err
	})
}

func emptyPipeline() Pipeline {
	return newGenericPipeline(func(_ context.Context, _ []Pipeline) (arrow.Record, error) {
		return nil, EOF
	})
}

// recordPipeline returns rec once. It takes ownership of rec.
func recordPipeline(rec arrow.Record, inputs ...Pipeline) Pipeline {
	return newGenericPipeline(func(_ context.Context, _ []Pipeline) (arrow.Record, error) {
		if rec == nil {
			return nil, EOF
		}
		out := rec
		rec = nil
		return out, nil
	}, inputs...)
}

// materialize returns a pipeline that reads all of input on the first call
// to Read and passes the concatenated record to fn. The result of fn is
// returned as a single batch. schema is the schema of input, not of the
// result.
func materialize(mem memory.Allocator, schema *arrow.Schema, input Pipeline, fn func(ctx context.Context, rec arrow.Record) (arrow.Record, error)) Pipeline {
	done := false
	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (arrow.Record, error) {
		if done {
			return nil, EOF
		}
		done = true

		rec, err := ReadAll(ctx, inputs[0], mem, schema)
		if err != nil {
			return nil, err
		}
		defer rec.Release()
		return fn(ctx, rec)
	}, input)
}

// ReadAll drains p and concatenates its batches into a single record. The
// result has the given schema and zero rows if p yields no batches.
func ReadAll(ctx context.Context, p Pipeline, mem memory.Allocator, schema *arrow.Schema) (arrow.Record, error) {
	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := p.Read(ctx)
		if errors.Is(err, EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		batches = append(batches, rec)
	}

	if len(batches) == 1 && batches[0].Schema().Equal(schema) {
		rec := batches[0]
		rec.Retain()
		return rec, nil
	}
	rec, err := arrowutil.ConcatRecords(mem, schema, batches)
	if err != nil {
		return nil, fmt.Errorf("concatenating batches: %w", err)
	}
	return rec, nil
}

// prefetchWrapper wraps a [Pipeline] with pre-fetching capability,
// reading data in a separate goroutine to enable concurrent processing.
type prefetchWrapper struct {
	Pipeline // the pipeline that is wrapped

	initialized bool                    // whether the pre-fetching goroutine is running
	ch          chan state              // the results channel for pre-fetched items
	cancel      context.CancelCauseFunc // cancellation function for the context
}

var _ Pipeline = (*prefetchWrapper)(nil)

// newPrefetchingPipeline creates a pipeline that reads from p in a separate
// goroutine, so that the next batch of p is computed while the consumer
// processes the current one.
//
// The goroutine starts on the first call to Read and stops when the wrapped
// pipeline fails, is exhausted, or the wrapper is closed.
func newPrefetchingPipeline(p Pipeline) *prefetchWrapper {
	return &prefetchWrapper{
		Pipeline: p,
		ch:       make(chan state),
	}
}

// Read implements [Pipeline].
func (p *prefetchWrapper) Read(ctx context.Context) (arrow.Record, error) {
	p.init(ctx)
	return p.read(ctx)
}

func (p *prefetchWrapper) init(ctx context.Context) {
	if p.initialized {
		return
	}

	p.initialized = true

	ctx, p.cancel = context.WithCancelCause(ctx)
	go p.prefetch(ctx) // nolint:errcheck
}

func (p prefetchWrapper) prefetch(ctx context.Context) error {
	defer close(p.ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			var s state
			s.batch, s.err = p.Pipeline.Read(ctx)
			if s.err != nil {
				select {
				case <-ctx.Done():
				case p.ch <- s:
				}
				return s.err
			}

			// Sending blocks until the batch is read by the consumer.
			select {
			case <-ctx.Done():
				s.batch.Release()
				return ctx.Err()
			case p.ch <- s:
			}
		}
	}
}

func (p *prefetchWrapper) read(_ context.Context) (arrow.Record, error) {
	state, ok := <-p.ch
	if !ok {
		return nil, context.Canceled
	}
	return state.batch, state.err
}

// Close implements [Pipeline].
func (p *prefetchWrapper) Close() {
	if p.cancel != nil {
		p.cancel(errors.New("pipeline is closed"))

		// Drain until the prefetch goroutine exits, so that the wrapped
		// pipeline is not read concurrently with Close.
		for s := range p.ch {
			if s.batch != nil {
				s.batch.Release()
			}
		}
	}
	p.Pipeline.Close()
}

type tracedPipeline struct {
	name  string
	inner Pipeline
}

var _ Pipeline = (*tracedPipeline)(nil)

// tracePipeline wraps a [Pipeline] to record each call to Read with a span.
func tracePipeline(name string, pipeline Pipeline) *tracedPipeline {
	return &tracedPipeline{
		name:  name,
		inner: pipeline,
	}
}

func (p *tracedPipeline) Read(ctx context.Context) (arrow.Record, error) {
	ctx, span := tracer.Start(ctx, p.name+".Read")
	defer span.End()

	res, err := p.inner.Read(ctx)
	if err != nil && !errors.Is(err, EOF) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return res, err
}

func (p *tracedPipeline) Close() { p.inner.Close() }

type lazyPipeline struct {
	ctor func(ctx context.Context, inputs []Pipeline) Pipeline

	inputs []Pipeline
	built  Pipeline
}

// newLazyPipeline defers construction of a [Pipeline] to the first call to
// Read. Scans use it so that sources are only opened when the query runs.
func newLazyPipeline(ctor func(ctx context.Context, inputs []Pipeline) Pipeline, inputs []Pipeline) *lazyPipeline {
	return &lazyPipeline{
		ctor:   ctor,
		inputs: inputs,
	}
}

var _ Pipeline = (*lazyPipeline)(nil)

// Read reads the next value from the inner pipeline, constructing it first
// if needed.
func (lp *lazyPipeline) Read(ctx context.Context) (arrow.Record, error) {
	if lp.built == nil {
		lp.built = lp.ctor(ctx, lp.inputs)
	}
	return lp.built.Read(ctx)
}

// Close closes the constructed pipeline, or the inputs if it was never
// built.
func (lp *lazyPipeline) Close() {
	if lp.built != nil {
		lp.built.Close()
	} else {
		for _, inp := range lp.inputs {
			inp.Close()
		}
	}
	lp.built = nil
}
