package logical

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/JacekPliszka/polars/pkg/engine/frame"
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// DefaultBatchSize is the number of rows per batch when ScanOptions leave it
// unset.
const DefaultBatchSize = 8192

// ScanOptions control how a [Source] is read.
type ScanOptions struct {
	// Columns to read, in this order. Nil reads all columns.
	Columns []string

	BatchSize int
	Allocator memory.Allocator
}

// Source supplies the data of a [Scan] node. Implementations must report
// their schema without reading data.
type Source interface {
	// Name identifies the source in explain output.
	Name() string

	Schema() (types.Schema, error)

	// SortedBy lists the columns the data is known to be sorted by, in
	// ascending order with nulls first.
	SortedBy() []string

	// Open starts reading the source. The returned reader yields records with
	// exactly opts.Columns.
	Open(ctx context.Context, opts ScanOptions) (array.RecordReader, error)
}

// FrameSourceOption configures a frame source.
type FrameSourceOption func(*frameSource)

// WithSortedBy declares that the frame is sorted by the given columns.
func WithSortedBy(columns ...string) FrameSourceOption {
	return func(s *frameSource) { s.sortedBy = columns }
}

type frameSource struct {
	name     string
	frame    *frame.Frame
	sortedBy []string
}

// NewFrameSource returns a source reading from an in-memory frame. The source
// shares the frame's columns.
func NewFrameSource(name string, f *frame.Frame, opts ...FrameSourceOption) Source {
	s := &frameSource{name: name, frame: f}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *frameSource) Name() string                  { return s.name }
func (s *frameSource) Schema() (types.Schema, error) { return s.frame.Schema(), nil }
func (s *frameSource) SortedBy() []string            { return s.sortedBy }

func (s *frameSource) Open(ctx context.Context, opts ScanOptions) (array.RecordReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := s.frame.Record()
	schema := s.frame.Schema()
	if opts.Columns != nil {
		var (
			fields = make([]arrow.Field, len(opts.Columns))
			cols   = make([]arrow.Array, len(opts.Columns))
		)
		for i, name := range opts.Columns {
			idx := schema.Index(name)
			if idx < 0 {
				return nil, errors.Schemaf(name, "column not found in source %s", s.name)
			}
			fields[i] = rec.Schema().Field(idx)
			cols[i] = rec.Column(idx)
		}
		rec = array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows())
		defer rec.Release()
	}

	batchSize := int64(opts.BatchSize)
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var batches []arrow.Record
	for off := int64(0); off < rec.NumRows(); off += batchSize {
		batches = append(batches, rec.NewSlice(off, min(off+batchSize, rec.NumRows())))
	}
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	return array.NewRecordReader(rec.Schema(), batches)
}
