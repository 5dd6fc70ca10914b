// Package weights persists model parameters as an Arrow IPC stream. Each
// parameter becomes one record row: its stable name, its shape and its raw
// float32 data. The format is self-describing and readable by any Arrow
// implementation.
package weights

import (
	"fmt"
	"io"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-herald/internal/logger"
	"github.com/23skdu/longbow-herald/internal/tensor"
)

func snapshotSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "shape", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)},
		{Name: "data", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
	}, nil)
}

// Save writes params to w as a single-record Arrow IPC stream. Rows are
// sorted by name so identical parameter sets serialize identically.
func Save(w io.Writer, params map[string]*tensor.Tensor) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	alloc := memory.NewGoAllocator()
	schema := snapshotSchema()
	builder := array.NewRecordBuilder(alloc, schema)
	defer builder.Release()

	nameB := builder.Field(0).(*array.StringBuilder)
	shapeB := builder.Field(1).(*array.ListBuilder)
	shapeVals := shapeB.ValueBuilder().(*array.Int64Builder)
	dataB := builder.Field(2).(*array.ListBuilder)
	dataVals := dataB.ValueBuilder().(*array.Float32Builder)

	var total int
	for _, name := range names {
		t := params[name]
		nameB.Append(name)

		shapeB.Append(true)
		for _, d := range t.Shape {
			shapeVals.Append(int64(d))
		}

		dataB.Append(true)
		dataVals.AppendValues(t.Data, nil)
		total += len(t.Data)
	}

	rec := builder.NewRecord()
	defer rec.Release()

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write snapshot record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize snapshot stream: %w", err)
	}

	logger.Log.With("weights").Info("snapshot saved",
		"parameters", len(names),
		"values", total,
	)
	return nil
}

// Load reads an Arrow IPC stream written by Save and reconstructs the
// parameter map. Shape and value lengths are cross-checked per row.
func Load(r io.Reader) (map[string]*tensor.Tensor, error) {
	reader, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot stream: %w", err)
	}
	defer reader.Release()

	params := make(map[string]*tensor.Tensor)
	for reader.Next() {
		rec := reader.Record()
		names := rec.Column(0).(*array.String)
		shapes := rec.Column(1).(*array.List)
		shapeVals := shapes.ListValues().(*array.Int64)
		data := rec.Column(2).(*array.List)
		dataVals := data.ListValues().(*array.Float32)

		for i := 0; i < int(rec.NumRows()); i++ {
			name := names.Value(i)
			if _, dup := params[name]; dup {
				return nil, fmt.Errorf("duplicate parameter %q in snapshot", name)
			}

			sStart, sEnd := shapes.ValueOffsets(i)
			shape := make([]int, 0, sEnd-sStart)
			size := 1
			for j := sStart; j < sEnd; j++ {
				d := int(shapeVals.Value(int(j)))
				shape = append(shape, d)
				size *= d
			}

			dStart, dEnd := data.ValueOffsets(i)
			if int(dEnd-dStart) != size {
				return nil, fmt.Errorf("parameter %q: %d values for shape %v",
					name, dEnd-dStart, shape)
			}
			values := make([]float32, 0, size)
			for j := dStart; j < dEnd; j++ {
				values = append(values, dataVals.Value(int(j)))
			}

			t, err := tensor.FromSlice(values, shape...)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
			params[name] = t
		}
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read snapshot stream: %w", err)
	}

	logger.Log.With("weights").Info("snapshot loaded", "parameters", len(params))
	return params, nil
}
