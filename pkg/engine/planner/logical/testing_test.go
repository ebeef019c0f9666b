package logical

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// testSource is a source with a fixed schema and no data.
type testSource struct {
	name     string
	schema   types.Schema
	sortedBy []string
}

func newTestSource(name string, fields ...types.Field) *testSource {
	return &testSource{name: name, schema: types.NewSchema(fields...)}
}

func (s *testSource) Name() string                  { return s.name }
func (s *testSource) Schema() (types.Schema, error) { return s.schema, nil }
func (s *testSource) SortedBy() []string            { return s.sortedBy }

func (s *testSource) Open(context.Context, ScanOptions) (array.RecordReader, error) {
	return nil, fmt.Errorf("test source %s cannot be read", s.name)
}

func field(name string, t types.DataType) types.Field { return types.Field{Name: name, Type: t} }

// abcSource has columns a and b of type Int64 and c of type String.
func abcSource() *testSource {
	return newTestSource("t", field("a", types.Int64), field("b", types.Int64), field("c", types.String))
}
