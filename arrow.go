package pgbulk

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/jackc/pgx/v5/pgtype"
)

// ArrowRow addresses one row of an Arrow record.
type ArrowRow struct {
	Record arrow.Record
	Row    int
}

// ArrowRows returns one ArrowRow per row of rec, in order.
func ArrowRows(rec arrow.Record) []ArrowRow {
	rows := make([]ArrowRow, rec.NumRows())
	for i := range rows {
		rows[i] = ArrowRow{Record: rec, Row: i}
	}
	return rows
}

// NewArrowMapping derives a mapping from an Arrow schema: one column per field,
// named after the field, in field order. Arrow nulls are written as NULL.
//
// Supported Arrow types and their PostgreSQL columns:
//   - bool -> bool
//   - int8, int16 -> int2
//   - int32 -> int4
//   - int64 -> int8
//   - float32 -> float4
//   - float64 -> float8
//   - string, large_string -> text
//   - binary -> bytea
//   - date32 -> date
//   - time64 -> time
//   - timestamp -> timestamp, or timestamptz when the type has a time zone
//   - month_day_nano interval -> interval (nanoseconds truncated to microseconds)
//
// Records passed to the mapping must have the schema s.
func NewArrowMapping(schema, table string, s *arrow.Schema, opts ...MappingOption) (*Mapping[ArrowRow], error) {
	b := NewMappingBuilder[ArrowRow](schema, table, opts...)
	for i, f := range s.Fields() {
		t, value, err := arrowColumn(i, f.Type)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("field %d (%s): %w", i, f.Name, err))
			continue
		}
		b.Map(f.Name, t, value)
	}
	return b.Build()
}

// arrowColumn returns the column type and extractor for the field at index i
func arrowColumn(i int, dt arrow.DataType) (DataType, func(ArrowRow) any, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return TypeBool, arrowValue(i, func(a *array.Boolean, row int) any { return a.Value(row) }), nil
	case arrow.INT8:
		return TypeInt2, arrowValue(i, func(a *array.Int8, row int) any { return int16(a.Value(row)) }), nil
	case arrow.INT16:
		return TypeInt2, arrowValue(i, func(a *array.Int16, row int) any { return a.Value(row) }), nil
	case arrow.INT32:
		return TypeInt4, arrowValue(i, func(a *array.Int32, row int) any { return a.Value(row) }), nil
	case arrow.INT64:
		return TypeInt8, arrowValue(i, func(a *array.Int64, row int) any { return a.Value(row) }), nil
	case arrow.FLOAT32:
		return TypeFloat4, arrowValue(i, func(a *array.Float32, row int) any { return a.Value(row) }), nil
	case arrow.FLOAT64:
		return TypeFloat8, arrowValue(i, func(a *array.Float64, row int) any { return a.Value(row) }), nil
	case arrow.STRING:
		return TypeText, arrowValue(i, func(a *array.String, row int) any { return a.Value(row) }), nil
	case arrow.LARGE_STRING:
		return TypeText, arrowValue(i, func(a *array.LargeString, row int) any { return a.Value(row) }), nil
	case arrow.BINARY:
		return TypeBytea, arrowValue(i, func(a *array.Binary, row int) any { return a.Value(row) }), nil
	case arrow.DATE32:
		return TypeDate, arrowValue(i, func(a *array.Date32, row int) any { return a.Value(row).ToTime() }), nil
	case arrow.TIME64:
		unit := dt.(*arrow.Time64Type).Unit
		return TypeTime, arrowValue(i, func(a *array.Time64, row int) any {
			return time.Duration(a.Value(row)) * unit.Multiplier()
		}), nil
	case arrow.TIMESTAMP:
		ts := dt.(*arrow.TimestampType)
		t := TypeTimestamp
		if ts.TimeZone != "" {
			t = TypeTimestamptz
		}
		unit := ts.Unit
		return t, arrowValue(i, func(a *array.Timestamp, row int) any { return a.Value(row).ToTime(unit) }), nil
	case arrow.INTERVAL_MONTH_DAY_NANO:
		return TypeInterval, arrowValue(i, func(a *array.MonthDayNanoInterval, row int) any {
			v := a.Value(row)
			return pgtype.Interval{
				Microseconds: v.Nanoseconds / 1000,
				Days:         v.Days,
				Months:       v.Months,
				Valid:        true,
			}
		}), nil
	default:
		return "", nil, fmt.Errorf("unsupported Arrow type %s", dt)
	}
}

// arrowValue builds an extractor for column i, written as NULL where the
// Arrow array is null.
func arrowValue[A arrow.Array](i int, value func(a A, row int) any) func(ArrowRow) any {
	return func(r ArrowRow) any {
		col := r.Record.Column(i)
		if col.IsNull(r.Row) {
			return nil
		}
		a, ok := col.(A)
		if !ok {
			// the codec rejects the array itself, naming its type
			return col
		}
		return value(a, r.Row)
	}
}
