package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/planner/physical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

var tracer = otel.Tracer("pkg/engine/internal/executor")

type Config struct {
	// BatchSize is the number of rows scans read per batch.
	BatchSize int

	// Pool runs chunked work. A nil pool uses one worker per CPU.
	Pool      *workers.Pool
	Allocator memory.Allocator

	// StringCache encodes categorical columns. Every categorical column
	// produced by a query is encoded against it.
	StringCache *types.StringCache

	SumNullPolicy types.SumNullPolicy

	// MaxCrossJoinRows bounds the output of cross joins. Zero disables the
	// check.
	MaxCrossJoinRows int

	// PrefetchInputs reads the inputs of unions in background goroutines.
	PrefetchInputs bool
}

// Run returns the pipeline producing the result of plan. The pipeline is
// lazy: no source is read before the first call to Read.
func Run(ctx context.Context, cfg Config, plan *physical.Plan, logger log.Logger) Pipeline {
	if cfg.Pool == nil {
		cfg.Pool = workers.New(0, 0)
	}
	if cfg.Allocator == nil {
		cfg.Allocator = memory.DefaultAllocator
	}
	if cfg.StringCache == nil {
		cfg.StringCache = types.NewStringCache()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	c := &Context{
		cfg:    cfg,
		plan:   plan,
		logger: logger,
		evaluator: &evaluator{
			pool:     cfg.Pool,
			mem:      cfg.Allocator,
			cache:    cfg.StringCache,
			sumNulls: cfg.SumNullPolicy,
		},
	}
	if plan == nil {
		return errorPipeline(ctx, errors.New("plan is nil"))
	}
	node, err := plan.Root()
	if err != nil {
		return errorPipeline(ctx, err)
	}
	return c.execute(ctx, node)
}

// Context is the execution context
type Context struct {
	cfg Config

	logger    log.Logger
	plan      *physical.Plan
	evaluator *evaluator
}

func (c *Context) execute(ctx context.Context, node physical.Node) Pipeline {
	children := c.plan.Children(node)
	inputs := make([]Pipeline, 0, len(children))
	for _, child := range children {
		inputs = append(inputs, c.execute(ctx, child))
	}

	switch n := node.(type) {
	case *physical.DataFrameScan:
		// Opening a source may be expensive, so it is deferred until the
		// first read.
		return newLazyPipeline(func(ctx context.Context, _ []Pipeline) Pipeline {
			return tracePipeline("physical.DataFrameScan", c.executeDataFrameScan(ctx, n))
		}, inputs)

	case *physical.Filter:
		return tracePipeline("physical.Filter", c.executeFilter(ctx, n, inputs))
	case *physical.Projection:
		return tracePipeline("physical.Projection", c.executeProjection(ctx, n, inputs))
	case *physical.Window:
		return tracePipeline("physical.Window", c.executeWindow(ctx, n, inputs))
	case *physical.Aggregate:
		return tracePipeline("physical."+n.Type().String(), c.executeAggregate(ctx, n, inputs))
	case *physical.HashJoin:
		return tracePipeline("physical.HashJoin", c.executeHashJoin(ctx, n, inputs))
	case *physical.AsOfJoin:
		return tracePipeline("physical.AsOfJoin", c.executeAsOfJoin(ctx, n, inputs))
	case *physical.CrossJoin:
		return tracePipeline("physical.CrossJoin", c.executeCrossJoin(ctx, n, inputs))
	case *physical.Sort:
		return tracePipeline("physical.Sort", c.executeSort(ctx, n, inputs))
	case *physical.Union:
		return tracePipeline("physical.Union", c.executeUnion(ctx, n, inputs))
	case *physical.Limit:
		return tracePipeline("physical.Limit", c.executeLimit(ctx, n, inputs))
	case *physical.Distinct:
		return tracePipeline("physical.Distinct", c.executeDistinct(ctx, n, inputs))
	default:
		return errorPipeline(ctx, fmt.Errorf("invalid node type: %T", node))
	}
}

func checkInputs(node physical.Node, inputs []Pipeline, want int) error {
	if len(inputs) != want {
		return fmt.Errorf("%s expects exactly %d input(s), got %d", node.Type(), want, len(inputs))
	}
	return nil
}

func outputSchema(node physical.Node) *arrow.Schema {
	return node.Schema().ToArrow()
}

func (c *Context) inputSchemas(node physical.Node) []*arrow.Schema {
	children := c.plan.Children(node)
	schemas := make([]*arrow.Schema, len(children))
	for i, child := range children {
		schemas[i] = outputSchema(child)
	}
	return schemas
}

func (c *Context) executeFilter(ctx context.Context, node *physical.Filter, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeFilter", trace.WithAttributes(
		attribute.Int("num_predicates", len(node.Predicates)),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	if len(node.Predicates) == 0 {
		return inputs[0]
	}
	return newFilterPipeline(node.Predicates, inputs[0], c.evaluator, c.inputSchemas(node)[0])
}

func (c *Context) executeProjection(ctx context.Context, node *physical.Projection, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeProjection", trace.WithAttributes(
		attribute.Stringer("mode", node.Mode),
		attribute.Int("num_exprs", len(node.Exprs)),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	return newProjectionPipeline(node.Exprs, node.Mode, inputs[0], c.evaluator, c.inputSchemas(node)[0], outputSchema(node))
}

func (c *Context) executeWindow(ctx context.Context, node *physical.Window, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeWindow", trace.WithAttributes(
		attribute.Int("num_exprs", len(node.Exprs)),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	return newWindowPipeline(node.Exprs, inputs[0], c.evaluator, c.inputSchemas(node)[0], outputSchema(node))
}

func (c *Context) executeAggregate(ctx context.Context, node *physical.Aggregate, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeAggregate", trace.WithAttributes(
		attribute.Int("num_keys", len(node.Keys)),
		attribute.Int("num_aggs", len(node.Aggs)),
		attribute.Bool("sorted", node.Sorted),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	level.Debug(c.logger).Log("msg", "executing aggregation", "keys", len(node.Keys), "aggs", len(node.Aggs), "sorted", node.Sorted)
	return newAggregatePipeline(node, inputs[0], c.evaluator, c.inputSchemas(node)[0], outputSchema(node))
}

func (c *Context) executeHashJoin(ctx context.Context, node *physical.HashJoin, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeHashJoin", trace.WithAttributes(
		attribute.Stringer("type", node.JoinType),
		attribute.Int("num_keys", len(node.LeftOn)),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 2); err != nil {
		return errorPipeline(ctx, err)
	}
	return newJoinPipeline(inputs, c.inputSchemas(node), node, c.evaluator, c.hashJoin(node))
}

func (c *Context) executeAsOfJoin(ctx context.Context, node *physical.AsOfJoin, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeAsOfJoin", trace.WithAttributes(
		attribute.Stringer("strategy", node.Strategy),
		attribute.Int("num_by", len(node.LeftBy)),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 2); err != nil {
		return errorPipeline(ctx, err)
	}
	return newJoinPipeline(inputs, c.inputSchemas(node), node, c.evaluator, c.asofJoin(node))
}

func (c *Context) executeCrossJoin(ctx context.Context, node *physical.CrossJoin, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeCrossJoin")
	defer span.End()

	if err := checkInputs(node, inputs, 2); err != nil {
		return errorPipeline(ctx, err)
	}
	return newJoinPipeline(inputs, c.inputSchemas(node), node, c.evaluator, c.crossJoin())
}

func (c *Context) executeSort(ctx context.Context, node *physical.Sort, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeSort", trace.WithAttributes(
		attribute.Int("num_keys", len(node.Keys)),
		attribute.Int("fetch", node.Fetch),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	return newSortPipeline(node.Keys, node.Fetch, inputs[0], c.evaluator, c.inputSchemas(node)[0], outputSchema(node))
}

func (c *Context) executeUnion(ctx context.Context, node *physical.Union, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeUnion", trace.WithAttributes(
		attribute.Int("num_inputs", len(inputs)),
		attribute.Bool("prefetch", c.cfg.PrefetchInputs),
	))
	defer span.End()

	if len(inputs) == 0 {
		return emptyPipeline()
	}
	if c.cfg.PrefetchInputs {
		for i := range inputs {
			inputs[i] = newPrefetchingPipeline(inputs[i])
		}
	}
	return newUnionPipeline(inputs, c.evaluator, outputSchema(node))
}

func (c *Context) executeLimit(ctx context.Context, node *physical.Limit, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeLimit", trace.WithAttributes(
		attribute.Int("offset", node.Offset),
		attribute.Int("length", node.Length),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	if node.Length <= 0 {
		inputs[0].Close()
		return emptyPipeline()
	}
	return NewLimitPipeline(inputs[0], node.Offset, node.Length)
}

func (c *Context) executeDistinct(ctx context.Context, node *physical.Distinct, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeDistinct", trace.WithAttributes(
		attribute.Int("num_subset", len(node.Subset)),
	))
	defer span.End()

	if err := checkInputs(node, inputs, 1); err != nil {
		return errorPipeline(ctx, err)
	}
	return newDistinctPipeline(node.Subset, inputs[0], c.evaluator, c.inputSchemas(node)[0], outputSchema(node))
}
