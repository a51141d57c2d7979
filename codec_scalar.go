package pgbulk

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// BoolCodec handles PostgreSQL bool type (OID 16)
type BoolCodec struct{}

func (BoolCodec) OID() uint32  { return TypeOIDBool }
func (BoolCodec) Name() string { return "bool" }

func (c BoolCodec) Size(v any) (int, error) {
	if _, ok := v.(bool); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 1, nil
}

func (c BoolCodec) Append(buf []byte, v any) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	if b {
		return append(buf, 1), nil
	}
	return append(buf, 0), nil
}

// toInt64 converts any Go integer to int64. Unsigned values above MaxInt64 fail.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func integerInRange(c Codec, v any, lo, hi int64) (int64, error) {
	i, ok := toInt64(v)
	if !ok {
		return 0, unsupportedValue(c, v)
	}
	if i < lo || i > hi {
		return 0, fmt.Errorf("%d is out of range for %s", i, c.Name())
	}
	return i, nil
}

// Int2Codec handles PostgreSQL int2 type (OID 21)
type Int2Codec struct{}

func (Int2Codec) OID() uint32  { return TypeOIDInt2 }
func (Int2Codec) Name() string { return "int2" }

func (c Int2Codec) Size(v any) (int, error) {
	if _, err := integerInRange(c, v, math.MinInt16, math.MaxInt16); err != nil {
		return 0, err
	}
	return 2, nil
}

func (c Int2Codec) Append(buf []byte, v any) ([]byte, error) {
	i, err := integerInRange(c, v, math.MinInt16, math.MaxInt16)
	if err != nil {
		return buf, err
	}
	return binary.BigEndian.AppendUint16(buf, uint16(i)), nil
}

// Int4Codec handles PostgreSQL int4 type (OID 23)
type Int4Codec struct{}

func (Int4Codec) OID() uint32  { return TypeOIDInt4 }
func (Int4Codec) Name() string { return "int4" }

func (c Int4Codec) Size(v any) (int, error) {
	if _, err := integerInRange(c, v, math.MinInt32, math.MaxInt32); err != nil {
		return 0, err
	}
	return 4, nil
}

func (c Int4Codec) Append(buf []byte, v any) ([]byte, error) {
	i, err := integerInRange(c, v, math.MinInt32, math.MaxInt32)
	if err != nil {
		return buf, err
	}
	return binary.BigEndian.AppendUint32(buf, uint32(i)), nil
}

// Int8Codec handles PostgreSQL int8 type (OID 20)
type Int8Codec struct{}

func (Int8Codec) OID() uint32  { return TypeOIDInt8 }
func (Int8Codec) Name() string { return "int8" }

func (c Int8Codec) Size(v any) (int, error) {
	if _, ok := toInt64(v); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 8, nil
}

func (c Int8Codec) Append(buf []byte, v any) ([]byte, error) {
	i, ok := toInt64(v)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return binary.BigEndian.AppendUint64(buf, uint64(i)), nil
}

// Float4Codec handles PostgreSQL float4 type (OID 700)
type Float4Codec struct{}

func (Float4Codec) OID() uint32  { return TypeOIDFloat4 }
func (Float4Codec) Name() string { return "float4" }

func (c Float4Codec) Size(v any) (int, error) {
	if _, ok := v.(float32); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 4, nil
}

func (c Float4Codec) Append(buf []byte, v any) ([]byte, error) {
	f, ok := v.(float32)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return binary.BigEndian.AppendUint32(buf, math.Float32bits(f)), nil
}

// Float8Codec handles PostgreSQL float8 type (OID 701)
type Float8Codec struct{}

func (Float8Codec) OID() uint32  { return TypeOIDFloat8 }
func (Float8Codec) Name() string { return "float8" }

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func (c Float8Codec) Size(v any) (int, error) {
	if _, ok := toFloat64(v); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 8, nil
}

func (c Float8Codec) Append(buf []byte, v any) ([]byte, error) {
	f, ok := toFloat64(v)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(f)), nil
}

// CharCodec handles the single-byte PostgreSQL "char" type (OID 18)
type CharCodec struct{}

func (CharCodec) OID() uint32  { return TypeOIDChar }
func (CharCodec) Name() string { return "char" }

func (c CharCodec) char(v any) (byte, error) {
	switch x := v.(type) {
	case byte:
		return x, nil
	case string:
		if len(x) != 1 {
			return 0, fmt.Errorf("char value must be exactly 1 byte, got %d", len(x))
		}
		return x[0], nil
	}
	return 0, unsupportedValue(c, v)
}

func (c CharCodec) Size(v any) (int, error) {
	if _, err := c.char(v); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c CharCodec) Append(buf []byte, v any) ([]byte, error) {
	b, err := c.char(v)
	if err != nil {
		return buf, err
	}
	return append(buf, b), nil
}

// TextCodec handles text-like types (text, varchar, bpchar, name).
// Values are written as their UTF-8 bytes.
type TextCodec struct {
	oid  uint32
	name string
}

func (c TextCodec) OID() uint32 {
	if c.oid == 0 {
		return TypeOIDText
	}
	return c.oid
}

func (c TextCodec) Name() string {
	if c.name == "" {
		return "text"
	}
	return c.name
}

func (c TextCodec) Size(v any) (int, error) {
	switch x := v.(type) {
	case string:
		return len(x), nil
	case []byte:
		return len(x), nil
	}
	return 0, unsupportedValue(c, v)
}

func (c TextCodec) Append(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return append(buf, x...), nil
	case []byte:
		return append(buf, x...), nil
	}
	return buf, unsupportedValue(c, v)
}

// ByteaCodec handles PostgreSQL bytea type (OID 17)
type ByteaCodec struct{}

func (ByteaCodec) OID() uint32  { return TypeOIDBytea }
func (ByteaCodec) Name() string { return "bytea" }

func (c ByteaCodec) Size(v any) (int, error) {
	switch x := v.(type) {
	case []byte:
		return len(x), nil
	case string:
		return len(x), nil
	}
	return 0, unsupportedValue(c, v)
}

func (c ByteaCodec) Append(buf []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return append(buf, x...), nil
	case string:
		return append(buf, x...), nil
	}
	return buf, unsupportedValue(c, v)
}

// UUIDCodec handles PostgreSQL uuid type (OID 2950)
type UUIDCodec struct{}

func (UUIDCodec) OID() uint32  { return TypeOIDUUID }
func (UUIDCodec) Name() string { return "uuid" }

func (c UUIDCodec) uuid(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		u, err := uuid.Parse(x)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("invalid uuid %q: %w", x, err)
		}
		return u, nil
	}
	return uuid.UUID{}, unsupportedValue(c, v)
}

func (c UUIDCodec) Size(v any) (int, error) {
	if _, err := c.uuid(v); err != nil {
		return 0, err
	}
	return 16, nil
}

func (c UUIDCodec) Append(buf []byte, v any) ([]byte, error) {
	u, err := c.uuid(v)
	if err != nil {
		return buf, err
	}
	return append(buf, u[:]...), nil
}

// jsonText returns the JSON document for v. Strings and byte slices are taken
// as already-encoded JSON and must be valid; any other value is marshalled.
func jsonText(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return validJSON([]byte(x))
	case []byte:
		return validJSON(x)
	case json.RawMessage:
		return validJSON(x)
	}
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T to json: %w", v, err)
	}
	return b, nil
}

func validJSON(b []byte) ([]byte, error) {
	if !gojson.Valid(b) {
		return nil, fmt.Errorf("invalid json document: %q", truncate(b, 32))
	}
	return b, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// JSONCodec handles PostgreSQL json type (OID 114)
type JSONCodec struct{}

func (JSONCodec) OID() uint32  { return TypeOIDJSON }
func (JSONCodec) Name() string { return "json" }
func (JSONCodec) measured()    {}

func (JSONCodec) Size(v any) (int, error) {
	b, err := jsonText(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

func (JSONCodec) Append(buf []byte, v any) ([]byte, error) {
	b, err := jsonText(v)
	if err != nil {
		return buf, err
	}
	return append(buf, b...), nil
}

// jsonbVersion is the only jsonb binary format version PostgreSQL accepts.
const jsonbVersion = 1

// JSONBCodec handles PostgreSQL jsonb type (OID 3802)
type JSONBCodec struct{}

func (JSONBCodec) OID() uint32  { return TypeOIDJSONB }
func (JSONBCodec) Name() string { return "jsonb" }
func (JSONBCodec) measured()    {}

func (JSONBCodec) Size(v any) (int, error) {
	b, err := jsonText(v)
	if err != nil {
		return 0, err
	}
	return 1 + len(b), nil
}

func (JSONBCodec) Append(buf []byte, v any) ([]byte, error) {
	b, err := jsonText(v)
	if err != nil {
		return buf, err
	}
	buf = append(buf, jsonbVersion)
	return append(buf, b...), nil
}

// HstoreCodec handles the hstore extension type. hstore has no fixed OID.
type HstoreCodec struct{}

func (HstoreCodec) OID() uint32  { return 0 }
func (HstoreCodec) Name() string { return "hstore" }

func (c HstoreCodec) Size(v any) (int, error) {
	size := 4
	switch m := v.(type) {
	case map[string]string:
		for k, val := range m {
			size += 8 + len(k) + len(val)
		}
	case map[string]*string:
		for k, val := range m {
			size += 8 + len(k)
			if val != nil {
				size += len(*val)
			}
		}
	default:
		return 0, unsupportedValue(c, v)
	}
	return size, nil
}

func (c HstoreCodec) Append(buf []byte, v any) ([]byte, error) {
	switch m := v.(type) {
	case map[string]string:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(m)))
		for k, val := range m {
			buf = appendLengthPrefixed(buf, k)
			buf = appendLengthPrefixed(buf, val)
		}
	case map[string]*string:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(m)))
		for k, val := range m {
			buf = appendLengthPrefixed(buf, k)
			if val == nil {
				buf = appendNullLength(buf)
				continue
			}
			buf = appendLengthPrefixed(buf, *val)
		}
	default:
		return buf, unsupportedValue(c, v)
	}
	return buf, nil
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendNullLength(buf []byte) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(0xFFFFFFFF))
}
