// Package engine runs lazy queries built with the logical package and
// returns their results as frames.
package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"
	"github.com/coder/quartz"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JacekPliszka/polars/pkg/engine/frame"
	"github.com/JacekPliszka/polars/pkg/engine/internal/executor"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/planner/physical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

var tracer = otel.Tracer("pkg/engine")

// Params holds parameters for constructing a new [Engine].
type Params struct {
	Logger     log.Logger            // Logger for optional log messages.
	Registerer prometheus.Registerer // Registerer for optional metrics.

	Config Config // Config for the Engine.

	// Allocator allocates the memory of query results. Defaults to
	// memory.DefaultAllocator.
	Allocator memory.Allocator

	// StringCache encodes the categorical columns of every query. If nil,
	// each query gets its own cache.
	StringCache *types.StringCache

	// Clock measures the duration of query phases. Defaults to the real
	// clock.
	Clock quartz.Clock
}

// validate validates p and applies defaults.
func (p *Params) validate() error {
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	}
	if p.Registerer == nil {
		p.Registerer = prometheus.NewRegistry()
	}
	if p.Allocator == nil {
		p.Allocator = memory.DefaultAllocator
	}
	if p.Clock == nil {
		p.Clock = quartz.NewReal()
	}
	return p.Config.Validate()
}

// Engine optimizes, plans and executes lazy queries.
type Engine struct {
	logger  log.Logger
	metrics *metrics
	cfg     Config
	clock   quartz.Clock

	mem   memory.Allocator
	cache *types.StringCache

	// plans maps the root of a logical plan to its optimized physical plan.
	plans *lru.Cache[logical.Plan, *physical.Plan]
}

// New creates a new Engine.
func New(params Params) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		logger:  params.Logger,
		metrics: newMetrics(params.Registerer),
		cfg:     params.Config,
		clock:   params.Clock,
		mem:     params.Allocator,
		cache:   params.StringCache,
	}
	if params.Config.PlanCacheSize > 0 {
		plans, err := lru.New[logical.Plan, *physical.Plan](params.Config.PlanCacheSize)
		if err != nil {
			return nil, err
		}
		e.plans = plans
	}
	return e, nil
}

// Schema returns the schema of the result of df without executing it.
func (e *Engine) Schema(df *logical.DataFrame) (types.Schema, error) {
	if df == nil {
		return types.Schema{}, errors.New("dataframe is nil")
	}
	return df.Schema()
}

// Collect executes df and returns its result. The caller owns the returned
// frame and must release it.
func (e *Engine) Collect(ctx context.Context, df *logical.DataFrame) (*frame.Frame, error) {
	if df == nil {
		return nil, errors.New("dataframe is nil")
	}
	startTime := e.clock.Now()

	logger := log.With(e.logger, "engine", "lazy", "query", queryID(df.Plan()))
	ctx, span := tracer.Start(ctx, "Engine.Collect")
	defer span.End()

	level.Info(logger).Log("msg", "starting query")

	plan, durPlanning, err := e.buildPlan(ctx, logger, df.Plan())
	if err != nil {
		return nil, e.fail(span, logger, "failed to plan query", err)
	}

	f, durExecution, err := e.execute(ctx, logger, plan)
	if err != nil {
		return nil, e.fail(span, logger, "failed to execute query", err)
	}

	e.metrics.queries.WithLabelValues(statusSuccess).Inc()
	e.metrics.rowsProduced.Add(float64(f.NumRows()))
	level.Info(logger).Log(
		"msg", "finished executing",
		"rows", humanize.Comma(int64(f.NumRows())),
		"duration_planning", durPlanning,
		"duration_execution", durExecution,
		"duration_full", e.clock.Since(startTime),
	)
	span.SetStatus(codes.Ok, "")
	return f, nil
}

func (e *Engine) fail(span trace.Span, logger log.Logger, msg string, err error) error {
	e.metrics.queries.WithLabelValues(statusFailure).Inc()
	level.Error(logger).Log("msg", msg, "err", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// buildPlan returns the optimized physical plan of lp, reusing a cached plan
// when possible.
func (e *Engine) buildPlan(ctx context.Context, logger log.Logger, lp logical.Plan) (*physical.Plan, time.Duration, error) {
	span := trace.SpanFromContext(ctx)
	if e.plans != nil {
		if plan, ok := e.plans.Get(lp); ok {
			e.metrics.planCacheHits.Inc()
			span.AddEvent("reused cached plan")
			return plan, 0, nil
		}
		e.metrics.planCacheMiss.Inc()
	}
	start := e.clock.Now()

	optimized, err := e.optimize(lp)
	if err != nil {
		return nil, 0, err
	}
	durOptimize := e.clock.Since(start)
	e.metrics.optimize.Observe(durOptimize.Seconds())
	level.Debug(logger).Log("msg", "finished logical optimization", "plan", logical.FormatTree(optimized), "duration", durOptimize.String())

	planStart := e.clock.Now()
	plan, err := e.physicalPlan(optimized)
	if err != nil {
		return nil, 0, err
	}
	durPlanning := e.clock.Since(planStart)
	e.metrics.planning.Observe(durPlanning.Seconds())
	level.Debug(logger).Log("msg", "finished physical planning", "plan", physical.PrintAsTree(plan), "duration", durPlanning.String())

	span.AddEvent("finished planning", trace.WithAttributes(
		attribute.Int("nodes", plan.Len()),
		attribute.Stringer("duration", e.clock.Since(start)),
	))
	if e.plans != nil {
		e.plans.Add(lp, plan)
	}
	return plan, e.clock.Since(start), nil
}

func (e *Engine) optimize(lp logical.Plan) (logical.Plan, error) {
	return logical.Optimize(lp, e.cfg.Optimizer.options())
}

func (e *Engine) physicalPlan(lp logical.Plan) (*physical.Plan, error) {
	planner := physical.NewPlanner()
	plan, err := planner.Build(lp)
	if err != nil {
		return nil, err
	}
	return planner.Optimize(plan)
}

// execute runs plan and reads its whole result.
func (e *Engine) execute(ctx context.Context, logger log.Logger, plan *physical.Plan) (*frame.Frame, time.Duration, error) {
	root, err := plan.Root()
	if err != nil {
		return nil, 0, err
	}
	start := e.clock.Now()

	pool := workers.New(e.cfg.Workers, e.cfg.ChunkSize)
	stop := pool.Watch(ctx)
	defer stop()

	cache := e.cache
	if cache == nil {
		cache = types.NewStringCache()
	}
	level.Debug(logger).Log("msg", "executing query", "workers", pool.Workers(), "chunk_size", pool.ChunkSize())

	pipeline := executor.Run(ctx, executor.Config{
		BatchSize:        e.cfg.BatchSize,
		Pool:             pool,
		Allocator:        e.mem,
		StringCache:      cache,
		SumNullPolicy:    e.cfg.sumNullPolicy(),
		MaxCrossJoinRows: e.cfg.MaxCrossJoinRows,
		PrefetchInputs:   e.cfg.PrefetchInputs,
	}, plan, logger)
	defer pipeline.Close()

	rec, err := executor.ReadAll(ctx, pipeline, e.mem, root.Schema().ToArrow())
	if err != nil {
		return nil, 0, err
	}
	f, err := frame.FromRecord(rec)
	if err != nil {
		return nil, 0, err
	}
	dur := e.clock.Since(start)
	e.metrics.execute.Observe(dur.Seconds())
	return f, dur, nil
}

// ExplainOptions select the plan [Engine.Explain] renders.
type ExplainOptions struct {
	// Optimized renders the plan after the optimizer passes ran.
	Optimized bool

	// Physical renders the physical plan. It implies Optimized.
	Physical bool
}

// Explain renders the plan of df as a tree.
func (e *Engine) Explain(df *logical.DataFrame, opts ExplainOptions) (string, error) {
	if df == nil {
		return "", errors.New("dataframe is nil")
	}
	if _, err := df.Schema(); err != nil {
		return "", err
	}
	if !opts.Optimized && !opts.Physical {
		return logical.FormatTree(df.Plan()), nil
	}

	optimized, err := e.optimize(df.Plan())
	if err != nil {
		return "", err
	}
	if !opts.Physical {
		return logical.FormatTree(optimized), nil
	}
	plan, err := e.physicalPlan(optimized)
	if err != nil {
		return "", err
	}
	return physical.PrintAsTree(plan), nil
}

// queryID identifies a query in logs by the hash of its plan.
func queryID(p logical.Plan) string {
	return strconv.FormatUint(xxhash.Sum64String(logical.FormatTree(p)), 16)
}
