package pgbulk

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
)

// Codec encodes values of one PostgreSQL type into the binary COPY format.
// Implementations must be stateless and safe for concurrent use.
type Codec interface {
	// OID returns the wire type id, or 0 when the type has no fixed OID
	// (extension types such as hstore).
	OID() uint32
	// Name returns the human-readable type name
	Name() string
	// Size returns the payload length of v in bytes, without the length prefix.
	Size(v any) (int, error)
	// Append appends exactly Size(v) payload bytes for v to buf.
	Append(buf []byte, v any) ([]byte, error)
}

// Registry maps data types to codecs.
type Registry struct {
	mu     sync.RWMutex
	codecs map[DataType]Codec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[DataType]Codec)}
}

// DefaultRegistry creates a registry with every built-in codec registered,
// including arrays of the scalar types and the built-in range types.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	scalars := []struct {
		t DataType
		c Codec
	}{
		{TypeBool, BoolCodec{}},
		{TypeInt2, Int2Codec{}},
		{TypeInt4, Int4Codec{}},
		{TypeInt8, Int8Codec{}},
		{TypeFloat4, Float4Codec{}},
		{TypeFloat8, Float8Codec{}},
		{TypeNumeric, NumericCodec{}},
		{TypeChar, CharCodec{}},
		{TypeText, TextCodec{oid: TypeOIDText, name: "text"}},
		{TypeVarchar, TextCodec{oid: TypeOIDVarchar, name: "varchar"}},
		{TypeBpchar, TextCodec{oid: TypeOIDBpchar, name: "bpchar"}},
		{TypeName, TextCodec{oid: TypeOIDName, name: "name"}},
		{TypeBytea, ByteaCodec{}},
		{TypeDate, DateCodec{}},
		{TypeTime, TimeCodec{}},
		{TypeTimestamp, TimestampCodec{}},
		{TypeTimestamptz, TimestamptzCodec{}},
		{TypeInterval, IntervalCodec{}},
		{TypeUUID, UUIDCodec{}},
		{TypeJSON, JSONCodec{}},
		{TypeJSONB, JSONBCodec{}},
		{TypeHstore, HstoreCodec{}},
		{TypePoint, PointCodec{}},
		{TypeLine, LineCodec{}},
		{TypeLseg, LineSegmentCodec{}},
		{TypeBox, BoxCodec{}},
		{TypePath, PathCodec{}},
		{TypePolygon, PolygonCodec{}},
		{TypeCircle, CircleCodec{}},
		{TypeInet, InetCodec{}},
		{TypeCidr, InetCodec{CIDR: true}},
		{TypeMacaddr, MacaddrCodec{}},
		{TypeMacaddr8, MacaddrCodec{EUI64: true}},
	}
	for _, s := range scalars {
		r.register(s.t, s.c)
		if s.c.OID() != 0 {
			r.register(ArrayOf(s.t), NewArrayCodec(s.c, s.c.OID()))
		}
	}

	ranges := []struct {
		t    DataType
		oid  uint32
		elem Codec
	}{
		{TypeInt4Range, TypeOIDInt4Range, Int4Codec{}},
		{TypeInt8Range, TypeOIDInt8Range, Int8Codec{}},
		{TypeNumRange, TypeOIDNumRange, NumericCodec{}},
		{TypeDateRange, TypeOIDDateRange, DateCodec{}},
		{TypeTsRange, TypeOIDTsRange, TimestampCodec{}},
		{TypeTstzRange, TypeOIDTstzRange, TimestamptzCodec{}},
	}
	for _, rg := range ranges {
		c := newRangeCodec(rg.elem, rg.oid, string(rg.t))
		r.register(rg.t, c)
		r.register(ArrayOf(rg.t), NewArrayCodec(c, rg.oid))
	}

	return r
}

// Register adds a codec for t. It fails if t already has a codec.
func (r *Registry) Register(t DataType, c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codecs[t]; exists {
		return &AlreadyRegisteredError{Type: t}
	}
	r.codecs[t] = c
	return nil
}

// register is internal method for initial setup
func (r *Registry) register(t DataType, c Codec) {
	r.codecs[t] = c
}

// Lookup returns the codec registered for t.
func (r *Registry) Lookup(t DataType) (Codec, error) {
	r.mu.RLock()
	c, exists := r.codecs[t]
	r.mu.RUnlock()
	if !exists {
		return nil, &CodecNotRegisteredError{Type: t}
	}
	return c, nil
}

// Types returns the number of registered data types.
func (r *Registry) Types() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codecs)
}

// isNull reports whether v is written as a NULL field. Nil pointers are NULL.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}
	switch x := v.(type) {
	case pgtype.Numeric:
		return !x.Valid
	case pgtype.Date:
		return !x.Valid
	case pgtype.Time:
		return !x.Valid
	case pgtype.Timestamp:
		return !x.Valid
	case pgtype.Timestamptz:
		return !x.Valid
	case pgtype.Interval:
		return !x.Valid
	case pgtype.RangeValuer:
		return x.IsNull()
	}
	return false
}

// indirect dereferences pointers inside composite values. Nil pointers become nil.
func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func unsupportedValue(c Codec, v any) error {
	return fmt.Errorf("cannot encode %T as %s", v, c.Name())
}

func outOfRange(c Codec, v any) error {
	return fmt.Errorf("%v is out of range for %s", v, c.Name())
}
