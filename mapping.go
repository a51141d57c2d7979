package pgbulk

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Column binds a column name to a codec and the function extracting the
// column's value from a record. A nil value is written as NULL.
type Column[T any] struct {
	Name  string
	Codec Codec
	Value func(T) any
}

// MappingOption configures a MappingBuilder.
type MappingOption func(*mappingOptions)

type mappingOptions struct {
	registry *Registry
	quote    bool
}

// WithRegistry resolves type tags against r instead of the default registry.
func WithRegistry(r *Registry) MappingOption {
	return func(o *mappingOptions) {
		o.registry = r
	}
}

// WithQuotedIdentifiers quotes the table name and every column name in the
// COPY command.
func WithQuotedIdentifiers(quote bool) MappingOption {
	return func(o *mappingOptions) {
		o.quote = quote
	}
}

var sharedRegistry = sync.OnceValue(DefaultRegistry)

// rangeTypes maps element types to their built-in range type.
var rangeTypes = map[DataType]DataType{
	TypeInt4:        TypeInt4Range,
	TypeInt8:        TypeInt8Range,
	TypeNumeric:     TypeNumRange,
	TypeDate:        TypeDateRange,
	TypeTimestamp:   TypeTsRange,
	TypeTimestamptz: TypeTstzRange,
}

// MappingBuilder collects column bindings for a Mapping. Lookup failures are
// accumulated and reported together by Build.
type MappingBuilder[T any] struct {
	table   Table
	opts    mappingOptions
	columns []Column[T]
	errs    []error
}

// NewMappingBuilder starts a mapping for schema.table. An empty schema leaves
// the table name unqualified.
func NewMappingBuilder[T any](schema, table string, opts ...MappingOption) *MappingBuilder[T] {
	o := mappingOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = sharedRegistry()
	}
	return &MappingBuilder[T]{
		table: Table{Schema: schema, Name: table},
		opts:  o,
	}
}

// Map binds a column whose codec is looked up by type tag.
func (b *MappingBuilder[T]) Map(name string, t DataType, value func(T) any) *MappingBuilder[T] {
	c, err := b.opts.registry.Lookup(t)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("column %s: %w", name, err))
		return b
	}
	return b.MapCodec(name, c, value)
}

// MapCodec binds a column to an explicit codec, bypassing the registry.
func (b *MappingBuilder[T]) MapCodec(name string, c Codec, value func(T) any) *MappingBuilder[T] {
	switch {
	case name == "":
		b.errs = append(b.errs, errors.New("column name is empty"))
		return b
	case c == nil:
		b.errs = append(b.errs, fmt.Errorf("column %s: codec is nil", name))
		return b
	case value == nil:
		b.errs = append(b.errs, fmt.Errorf("column %s: value function is nil", name))
		return b
	}
	b.columns = append(b.columns, Column[T]{Name: name, Codec: c, Value: value})
	return b
}

// MapArray binds a one-dimensional array column of the given element type.
func (b *MappingBuilder[T]) MapArray(name string, elem DataType, value func(T) any) *MappingBuilder[T] {
	c, err := b.opts.registry.Lookup(elem)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("column %s: %w", name, err))
		return b
	}
	if c.OID() == 0 {
		b.errs = append(b.errs, fmt.Errorf("column %s: %s has no fixed OID for array elements", name, c.Name()))
		return b
	}
	return b.MapCodec(name, NewArrayCodec(c, c.OID()), value)
}

// MapRange binds a range column over the given element type. Values implement
// pgtype.RangeValuer, e.g. pgtype.Range[int32] for int4.
func (b *MappingBuilder[T]) MapRange(name string, elem DataType, value func(T) any) *MappingBuilder[T] {
	rt, ok := rangeTypes[elem]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("column %s: no range type over %q", name, elem))
		return b
	}
	return b.Map(name, rt, value)
}

// Ptr adapts an extractor returning a pointer; a nil pointer is written as NULL.
func Ptr[T, V any](f func(T) *V) func(T) any {
	return func(r T) any {
		if p := f(r); p != nil {
			return *p
		}
		return nil
	}
}

func boxed[T, V any](f func(T) V) func(T) any {
	if f == nil {
		return nil
	}
	return func(r T) any { return f(r) }
}

func (b *MappingBuilder[T]) MapBoolean(name string, f func(T) bool) *MappingBuilder[T] {
	return b.Map(name, TypeBool, boxed(f))
}

func (b *MappingBuilder[T]) MapSmallInt(name string, f func(T) int16) *MappingBuilder[T] {
	return b.Map(name, TypeInt2, boxed(f))
}

func (b *MappingBuilder[T]) MapInteger(name string, f func(T) int32) *MappingBuilder[T] {
	return b.Map(name, TypeInt4, boxed(f))
}

func (b *MappingBuilder[T]) MapBigInt(name string, f func(T) int64) *MappingBuilder[T] {
	return b.Map(name, TypeInt8, boxed(f))
}

func (b *MappingBuilder[T]) MapReal(name string, f func(T) float32) *MappingBuilder[T] {
	return b.Map(name, TypeFloat4, boxed(f))
}

func (b *MappingBuilder[T]) MapDouble(name string, f func(T) float64) *MappingBuilder[T] {
	return b.Map(name, TypeFloat8, boxed(f))
}

func (b *MappingBuilder[T]) MapNumeric(name string, f func(T) pgtype.Numeric) *MappingBuilder[T] {
	return b.Map(name, TypeNumeric, boxed(f))
}

func (b *MappingBuilder[T]) MapText(name string, f func(T) string) *MappingBuilder[T] {
	return b.Map(name, TypeText, boxed(f))
}

func (b *MappingBuilder[T]) MapVarchar(name string, f func(T) string) *MappingBuilder[T] {
	return b.Map(name, TypeVarchar, boxed(f))
}

// MapBytea binds a bytea column; a nil slice is written as an empty value.
func (b *MappingBuilder[T]) MapBytea(name string, f func(T) []byte) *MappingBuilder[T] {
	return b.Map(name, TypeBytea, boxed(f))
}

func (b *MappingBuilder[T]) MapDate(name string, f func(T) time.Time) *MappingBuilder[T] {
	return b.Map(name, TypeDate, boxed(f))
}

// MapTime binds a time column from the duration since midnight.
func (b *MappingBuilder[T]) MapTime(name string, f func(T) time.Duration) *MappingBuilder[T] {
	return b.Map(name, TypeTime, boxed(f))
}

// MapTimestamp binds a timestamp column. The wall clock of the value is
// written; its location is ignored.
func (b *MappingBuilder[T]) MapTimestamp(name string, f func(T) time.Time) *MappingBuilder[T] {
	return b.Map(name, TypeTimestamp, boxed(f))
}

// MapTimestampTz binds a timestamptz column; values are normalized to UTC.
func (b *MappingBuilder[T]) MapTimestampTz(name string, f func(T) time.Time) *MappingBuilder[T] {
	return b.Map(name, TypeTimestamptz, boxed(f))
}

func (b *MappingBuilder[T]) MapInterval(name string, f func(T) time.Duration) *MappingBuilder[T] {
	return b.Map(name, TypeInterval, boxed(f))
}

func (b *MappingBuilder[T]) MapUUID(name string, f func(T) uuid.UUID) *MappingBuilder[T] {
	return b.Map(name, TypeUUID, boxed(f))
}

// MapJSON binds a json column. Strings and byte slices are written as is;
// other values are marshalled.
func (b *MappingBuilder[T]) MapJSON(name string, f func(T) any) *MappingBuilder[T] {
	return b.Map(name, TypeJSON, f)
}

func (b *MappingBuilder[T]) MapJSONB(name string, f func(T) any) *MappingBuilder[T] {
	return b.Map(name, TypeJSONB, f)
}

// MapHstore binds an hstore column; a nil map is written as NULL.
func (b *MappingBuilder[T]) MapHstore(name string, f func(T) map[string]string) *MappingBuilder[T] {
	if f == nil {
		return b.Map(name, TypeHstore, nil)
	}
	return b.Map(name, TypeHstore, func(r T) any {
		if m := f(r); m != nil {
			return m
		}
		return nil
	})
}

func (b *MappingBuilder[T]) MapInet(name string, f func(T) netip.Addr) *MappingBuilder[T] {
	return b.Map(name, TypeInet, boxed(f))
}

func (b *MappingBuilder[T]) MapCidr(name string, f func(T) netip.Prefix) *MappingBuilder[T] {
	return b.Map(name, TypeCidr, boxed(f))
}

func (b *MappingBuilder[T]) MapMacAddr(name string, f func(T) net.HardwareAddr) *MappingBuilder[T] {
	return b.Map(name, TypeMacaddr, boxed(f))
}

func (b *MappingBuilder[T]) MapPoint(name string, f func(T) Point) *MappingBuilder[T] {
	return b.Map(name, TypePoint, boxed(f))
}

func (b *MappingBuilder[T]) MapLine(name string, f func(T) Line) *MappingBuilder[T] {
	return b.Map(name, TypeLine, boxed(f))
}

func (b *MappingBuilder[T]) MapLineSegment(name string, f func(T) LineSegment) *MappingBuilder[T] {
	return b.Map(name, TypeLseg, boxed(f))
}

func (b *MappingBuilder[T]) MapBox(name string, f func(T) Box) *MappingBuilder[T] {
	return b.Map(name, TypeBox, boxed(f))
}

func (b *MappingBuilder[T]) MapPath(name string, f func(T) Path) *MappingBuilder[T] {
	return b.Map(name, TypePath, boxed(f))
}

func (b *MappingBuilder[T]) MapPolygon(name string, f func(T) Polygon) *MappingBuilder[T] {
	return b.Map(name, TypePolygon, boxed(f))
}

func (b *MappingBuilder[T]) MapCircle(name string, f func(T) Circle) *MappingBuilder[T] {
	return b.Map(name, TypeCircle, boxed(f))
}

// Build returns the finished mapping. It fails if any binding failed, if no
// column was bound, or if a column name repeats.
func (b *MappingBuilder[T]) Build() (*Mapping[T], error) {
	errs := append([]error(nil), b.errs...)
	if b.table.Name == "" {
		errs = append(errs, errors.New("table name is empty"))
	}
	if len(b.columns) == 0 && len(b.errs) == 0 {
		errs = append(errs, errors.New("mapping has no columns"))
	}
	if len(b.columns) > maxColumns {
		errs = append(errs, fmt.Errorf("mapping has %d columns, at most %d are allowed", len(b.columns), maxColumns))
	}
	seen := make(map[string]struct{}, len(b.columns))
	for _, c := range b.columns {
		if _, dup := seen[c.Name]; dup {
			errs = append(errs, fmt.Errorf("column %s is mapped twice", c.Name))
		}
		seen[c.Name] = struct{}{}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("mapping %s: %w", b.table, err)
	}

	m := &Mapping[T]{
		table:   b.table,
		columns: append([]Column[T](nil), b.columns...),
		quote:   b.opts.quote,
	}
	m.command = m.buildCommand()
	return m, nil
}

// maxColumns is the largest column count a binary COPY row can carry.
const maxColumns = 1<<15 - 1

// Mapping is an immutable table plus ordered column bindings. It is safe for
// concurrent use as long as the extractor functions are.
type Mapping[T any] struct {
	table   Table
	columns []Column[T]
	quote   bool
	command string
}

// Table returns the target table.
func (m *Mapping[T]) Table() Table {
	return m.table
}

// Columns returns a copy of the column bindings in field order.
func (m *Mapping[T]) Columns() []Column[T] {
	return append([]Column[T](nil), m.columns...)
}

// CopyCommand returns the COPY ... FROM STDIN BINARY statement for the mapping.
func (m *Mapping[T]) CopyCommand() string {
	return m.command
}

func (m *Mapping[T]) buildCommand() string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = identifier(pgx.Identifier{c.Name}, m.quote)
	}
	return fmt.Sprintf("COPY %s(%s) FROM STDIN BINARY", m.table.QualifiedName(m.quote), strings.Join(names, ", "))
}

// WriteRecord writes r as one row. row is the record's position in its batch
// and is only used for error reporting. Codec failures are returned as
// *EncodingError; the row is then incomplete and the stream must be abandoned.
func (m *Mapping[T]) WriteRecord(w *Writer, r T, row int) error {
	if err := w.StartRow(len(m.columns)); err != nil {
		return err
	}
	for _, c := range m.columns {
		err := w.Write(c.Codec, c.Value(r))
		if err == nil {
			continue
		}
		var sinkErr *SinkError
		if errors.As(err, &sinkErr) || errors.Is(err, ErrWriterClosed) {
			return err
		}
		return &EncodingError{
			Table:  m.table.String(),
			Column: c.Name,
			Row:    row,
			Record: r,
			Err:    err,
		}
	}
	return nil
}

// Encode writes a complete COPY stream for records to sink and returns the
// number of rows written. The writer is closed even when a record fails; the
// record failure is returned in preference to a close failure.
func (m *Mapping[T]) Encode(sink io.Writer, records []T) (int64, error) {
	rows, _, err := m.encode(sink, records)
	return rows, err
}

func (m *Mapping[T]) encode(sink io.Writer, records []T) (rows, bytes int64, err error) {
	w, err := Open(sink)
	if err != nil {
		return 0, 0, err
	}
	for i, r := range records {
		if err = m.WriteRecord(w, r, i); err != nil {
			break
		}
	}
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return w.Rows(), w.BytesWritten(), err
}
