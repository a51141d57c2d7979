package pgbulk_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/fwojciec/pgbulk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func measurementSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "sensor", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "reading", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "day", Type: arrow.FixedWidthTypes.Date32},
		{Name: "taken_at", Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}},
		{Name: "local_at", Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
		{Name: "level", Type: arrow.PrimitiveTypes.Int8},
		{Name: "time_of_day", Type: arrow.FixedWidthTypes.Time64us},
		{Name: "period", Type: arrow.FixedWidthTypes.MonthDayNanoInterval},
		{Name: "raw", Type: arrow.BinaryTypes.Binary, Nullable: true},
	}, nil)
}

func TestNewArrowMapping_Columns(t *testing.T) {
	t.Parallel()

	m, err := pgbulk.NewArrowMapping("sample", "measurements", measurementSchema())
	require.NoError(t, err)
	assert.Equal(t,
		"COPY sample.measurements(id, sensor, reading, ok, day, taken_at, local_at, level, time_of_day, period, raw) FROM STDIN BINARY",
		m.CopyCommand())

	var types []string
	for _, c := range m.Columns() {
		types = append(types, c.Codec.Name())
	}
	assert.Equal(t, []string{
		"int8", "text", "float8", "bool", "date", "timestamptz", "timestamp", "int2", "time", "interval", "bytea",
	}, types)
}

func TestNewArrowMapping_UnsupportedType(t *testing.T) {
	t.Parallel()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int32},
		{Name: "tags", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		{Name: "price", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}},
	}, nil)

	_, err := pgbulk.NewArrowMapping("sample", "measurements", schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 1 (tags): unsupported Arrow type")
	assert.Contains(t, err.Error(), "field 2 (price): unsupported Arrow type")
}

func TestArrowMapping_Encode(t *testing.T) {
	t.Parallel()

	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	schema := measurementSchema()
	b := array.NewRecordBuilder(alloc, schema)
	defer b.Release()

	takenAt := time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC)
	for i := range 2 {
		b.Field(0).(*array.Int64Builder).Append(int64(i + 1))
		if i == 0 {
			b.Field(1).(*array.StringBuilder).Append("sensor-a")
			b.Field(2).(*array.Float64Builder).Append(21.5)
			b.Field(10).(*array.BinaryBuilder).Append([]byte{0xCA, 0xFE})
		} else {
			b.Field(1).(*array.StringBuilder).AppendNull()
			b.Field(2).(*array.Float64Builder).AppendNull()
			b.Field(10).(*array.BinaryBuilder).AppendNull()
		}
		b.Field(3).(*array.BooleanBuilder).Append(i == 0)
		b.Field(4).(*array.Date32Builder).Append(arrow.Date32FromTime(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)))
		b.Field(5).(*array.TimestampBuilder).Append(arrow.Timestamp(takenAt.UnixMicro()))
		b.Field(6).(*array.TimestampBuilder).Append(arrow.Timestamp(takenAt.UnixMilli()))
		b.Field(7).(*array.Int8Builder).Append(-3)
		b.Field(8).(*array.Time64Builder).Append(arrow.Time64(90 * time.Minute / time.Microsecond))
		b.Field(9).(*array.MonthDayNanoIntervalBuilder).Append(arrow.MonthDayNanoInterval{Months: 1, Days: 2, Nanoseconds: 3500})
	}
	rec := b.NewRecord()
	defer rec.Release()

	m, err := pgbulk.NewArrowMapping("sample", "measurements", schema)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := m.Encode(&buf, pgbulk.ArrowRows(rec))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows := readStream(t, buf.Bytes())
	require.Len(t, rows, 2)

	first := rows[0]
	require.Len(t, first, 11)
	assert.Equal(t, int64(1), be64(first[0].Data))
	assert.Equal(t, "sensor-a", string(first[1].Data))
	assert.Equal(t, 21.5, f64(first[2].Data))
	assert.Equal(t, []byte{1}, first[3].Data)
	assert.Equal(t, int32(1), be32(first[4].Data))
	assert.Equal(t, int64(1_000_000), be64(first[5].Data))
	assert.Equal(t, int64(1_000_000), be64(first[6].Data))
	assert.Equal(t, int16(-3), be16(first[7].Data))
	assert.Equal(t, int64(90*60*1_000_000), be64(first[8].Data))
	assert.Equal(t, int64(3), be64(first[9].Data[0:8]), "nanoseconds truncated to microseconds")
	assert.Equal(t, int32(2), be32(first[9].Data[8:12]))
	assert.Equal(t, int32(1), be32(first[9].Data[12:16]))
	assert.Equal(t, []byte{0xCA, 0xFE}, first[10].Data)

	second := rows[1]
	assert.Equal(t, int64(2), be64(second[0].Data))
	assert.True(t, second[1].IsNull)
	assert.True(t, second[2].IsNull)
	assert.Equal(t, []byte{0}, second[3].Data)
	assert.True(t, second[10].IsNull)
}

func TestArrowMapping_SchemaMismatch(t *testing.T) {
	t.Parallel()

	alloc := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer alloc.AssertSize(t, 0)

	m, err := pgbulk.NewArrowMapping("", "readings", arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	}, nil))
	require.NoError(t, err)

	other := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.BinaryTypes.String}}, nil)
	b := array.NewRecordBuilder(alloc, other)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).Append("one")
	rec := b.NewRecord()
	defer rec.Release()

	_, err = m.Encode(&bytes.Buffer{}, pgbulk.ArrowRows(rec))
	var encErr *pgbulk.EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, "id", encErr.Column)
	assert.Contains(t, encErr.Err.Error(), "as int8")
}
