package executor

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JacekPliszka/polars/pkg/engine/internal/arrowutil"
	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/planner/physical"
)

func (c *Context) executeDataFrameScan(ctx context.Context, node *physical.DataFrameScan) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeDataFrameScan", trace.WithAttributes(
		attribute.String("source", node.Source.Name()),
		attribute.Int("num_columns", len(node.Columns)),
		attribute.Int("num_predicates", len(node.Predicates)),
		attribute.Bool("sliced", node.Slice != nil),
	))
	defer span.End()

	reader, err := node.Source.Open(ctx, logical.ScanOptions{
		Columns:   node.Columns,
		BatchSize: c.cfg.BatchSize,
		Allocator: c.cfg.Allocator,
	})
	if err != nil {
		return errorPipeline(ctx, err)
	}
	span.AddEvent("opened source")
	return newScanPipeline(reader, node, c.evaluator)
}

// scanPipeline reads batches from a source, applies the scan predicates and
// slice, and narrows the batches to the output columns. Categorical columns
// are re-encoded against the query's string cache.
type scanPipeline struct {
	reader     array.RecordReader
	predicates []logical.Expr
	ev         *evaluator
	schema     *arrow.Schema

	sliced                          bool
	offsetRemaining, limitRemaining int64
}

var _ Pipeline = (*scanPipeline)(nil)

func newScanPipeline(reader array.RecordReader, node *physical.DataFrameScan, ev *evaluator) *scanPipeline {
	p := &scanPipeline{
		reader:     reader,
		predicates: node.Predicates,
		ev:         ev,
		schema:     node.Schema().ToArrow(),
	}
	if node.Slice != nil {
		p.sliced = true
		p.offsetRemaining = int64(node.Slice.Offset)
		p.limitRemaining = int64(node.Slice.Length)
	}
	return p
}

// Read implements Pipeline.
func (p *scanPipeline) Read(ctx context.Context) (arrow.Record, error) {
	for {
		if p.sliced && p.limitRemaining <= 0 {
			return nil, EOF
		}
		if err := p.ev.pool.Check(ctx); err != nil {
			return nil, err
		}
		if !p.reader.Next() {
			if err := p.reader.Err(); err != nil {
				return nil, err
			}
			return nil, EOF
		}

		batch, err := p.prepare(ctx, p.reader.Record())
		if err != nil {
			return nil, err
		}
		if batch.NumRows() == 0 {
			batch.Release()
			continue
		}
		return batch, nil
	}
}

func (p *scanPipeline) prepare(ctx context.Context, batch arrow.Record) (arrow.Record, error) {
	batch, err := p.encodeCategoricals(batch)
	if err != nil {
		return nil, err
	}
	if len(p.predicates) > 0 {
		filtered, err := p.ev.filter(ctx, batch, p.predicates)
		batch.Release()
		if err != nil {
			return nil, err
		}
		batch = filtered
	}

	if p.sliced {
		start := min(p.offsetRemaining, batch.NumRows())
		end := min(start+p.limitRemaining, batch.NumRows())
		p.offsetRemaining -= start
		p.limitRemaining -= end - start
		if start != 0 || end != batch.NumRows() {
			sliced := batch.NewSlice(start, end)
			batch.Release()
			batch = sliced
		}
	}

	defer batch.Release()
	return p.ev.selectColumns(batch, p.schema)
}

// encodeCategoricals returns batch with every dictionary column encoded
// against the query's string cache, so that categorical columns of
// different sources can be compared and concatenated. The source keeps
// ownership of batch.
func (p *scanPipeline) encodeCategoricals(batch arrow.Record) (arrow.Record, error) {
	var cols []arrow.Array
	for i, col := range batch.Columns() {
		if col.DataType().ID() != arrow.DICTIONARY {
			continue
		}
		if cols == nil {
			cols = make([]arrow.Array, batch.NumCols())
			for j, c := range batch.Columns() {
				c.Retain()
				cols[j] = c
			}
		}
		cols[i].Release()
		cols[i] = arrowutil.EncodeCategorical(p.ev.mem, col, p.ev.cache)
	}
	if cols == nil {
		batch.Retain()
		return batch, nil
	}
	return p.ev.newRecord(batch.Schema(), cols, int(batch.NumRows()))
}

// Close implements Pipeline.
func (p *scanPipeline) Close() {
	p.reader.Release()
}
