package arrowutil

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Concat concatenates arrays of the same type. Categorical arrays must have
// been encoded against the same string cache; the longest dictionary is used
// for the result.
func Concat(mem memory.Allocator, arrs []arrow.Array) (arrow.Array, error) {
	switch len(arrs) {
	case 0:
		return nil, errors.New("no arrays to concatenate")
	case 1:
		arrs[0].Retain()
		return arrs[0], nil
	}

	if _, ok := arrs[0].(*array.Dictionary); ok {
		return concatDictionaries(mem, arrs)
	}
	return array.Concatenate(arrs, mem)
}

func concatDictionaries(mem memory.Allocator, arrs []arrow.Array) (arrow.Array, error) {
	var (
		indices = make([]arrow.Array, len(arrs))
		dict    arrow.Array
	)
	for i, arr := range arrs {
		d, ok := arr.(*array.Dictionary)
		if !ok {
			return nil, fmt.Errorf("cannot concatenate %s with dictionary array", arr.DataType())
		}
		indices[i] = d.Indices()
		if dict == nil || d.Dictionary().Len() > dict.Len() {
			dict = d.Dictionary()
		}
	}

	combined, err := array.Concatenate(indices, mem)
	if err != nil {
		return nil, err
	}
	defer combined.Release()
	return array.NewDictionaryArray(arrs[0].DataType(), combined, dict), nil
}

// ConcatRecords concatenates records sharing one schema into a single
// record. The inputs are not released.
func ConcatRecords(mem memory.Allocator, schema *arrow.Schema, recs []arrow.Record) (arrow.Record, error) {
	if len(recs) == 1 {
		recs[0].Retain()
		return recs[0], nil
	}

	var rows int64
	for _, rec := range recs {
		rows += rec.NumRows()
	}

	cols := make([]arrow.Array, schema.NumFields())
	defer releaseAll(cols)
	for i := range cols {
		parts := make([]arrow.Array, 0, len(recs))
		for _, rec := range recs {
			parts = append(parts, rec.Column(i))
		}
		if len(parts) == 0 {
			b := array.NewBuilder(mem, schema.Field(i).Type)
			cols[i] = b.NewArray()
			b.Release()
			continue
		}
		col, err := Concat(mem, parts)
		if err != nil {
			return nil, fmt.Errorf("concatenating column %s: %w", schema.Field(i).Name, err)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}
