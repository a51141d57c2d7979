package pgbulk

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// Range flag bits from PostgreSQL's rangetypes.h
const (
	rangeEmpty          = 0x01
	rangeLowerInclusive = 0x02
	rangeUpperInclusive = 0x04
	rangeLowerInfinite  = 0x08
	rangeUpperInfinite  = 0x10
)

// RangeCodec writes range values whose bounds are encoded by an element codec.
// Values implement pgtype.RangeValuer, e.g. pgtype.Range[int32].
type RangeCodec struct {
	elem Codec
	oid  uint32
	name string
}

// NewRangeCodec creates a range codec for a range type with the given OID.
func NewRangeCodec(elem Codec, oid uint32) *RangeCodec {
	return newRangeCodec(elem, oid, elem.Name()+"range")
}

func newRangeCodec(elem Codec, oid uint32, name string) *RangeCodec {
	return &RangeCodec{elem: elem, oid: oid, name: name}
}

func (c *RangeCodec) OID() uint32  { return c.oid }
func (c *RangeCodec) Name() string { return c.name }

// Elem returns the bound codec.
func (c *RangeCodec) Elem() Codec { return c.elem }

type rangeParts struct {
	flags        byte
	lower, upper any
}

func (c *RangeCodec) parts(v any) (rangeParts, error) {
	r, ok := v.(pgtype.RangeValuer)
	if !ok {
		return rangeParts{}, unsupportedValue(c, v)
	}
	lt, ut := r.BoundTypes()
	if lt == pgtype.Empty || ut == pgtype.Empty {
		return rangeParts{flags: rangeEmpty}, nil
	}

	lower, upper := r.Bounds()
	var p rangeParts
	switch lt {
	case pgtype.Unbounded:
		p.flags |= rangeLowerInfinite
	case pgtype.Inclusive:
		p.flags |= rangeLowerInclusive
		p.lower = indirect(lower)
	case pgtype.Exclusive:
		p.lower = indirect(lower)
	default:
		return rangeParts{}, fmt.Errorf("invalid lower bound type %q", lt)
	}
	switch ut {
	case pgtype.Unbounded:
		p.flags |= rangeUpperInfinite
	case pgtype.Inclusive:
		p.flags |= rangeUpperInclusive
		p.upper = indirect(upper)
	case pgtype.Exclusive:
		p.upper = indirect(upper)
	default:
		return rangeParts{}, fmt.Errorf("invalid upper bound type %q", ut)
	}

	if p.flags&rangeLowerInfinite == 0 && isNull(p.lower) {
		return rangeParts{}, fmt.Errorf("finite lower bound of %s has no value", c.name)
	}
	if p.flags&rangeUpperInfinite == 0 && isNull(p.upper) {
		return rangeParts{}, fmt.Errorf("finite upper bound of %s has no value", c.name)
	}
	return p, nil
}

func (c *RangeCodec) Size(v any) (int, error) {
	p, err := c.parts(v)
	if err != nil {
		return 0, err
	}
	size := 1
	for _, bound := range []struct {
		infinite bool
		value    any
	}{
		{p.flags&(rangeEmpty|rangeLowerInfinite) != 0, p.lower},
		{p.flags&(rangeEmpty|rangeUpperInfinite) != 0, p.upper},
	} {
		if bound.infinite {
			continue
		}
		s, err := c.elem.Size(bound.value)
		if err != nil {
			return 0, err
		}
		size += 4 + s
	}
	return size, nil
}

func (c *RangeCodec) Append(buf []byte, v any) ([]byte, error) {
	p, err := c.parts(v)
	if err != nil {
		return buf, err
	}
	buf = append(buf, p.flags)
	if p.flags&rangeEmpty != 0 {
		return buf, nil
	}
	if p.flags&rangeLowerInfinite == 0 {
		if buf, err = appendField(buf, c.elem, p.lower); err != nil {
			return buf, fmt.Errorf("lower bound: %w", err)
		}
	}
	if p.flags&rangeUpperInfinite == 0 {
		if buf, err = appendField(buf, c.elem, p.upper); err != nil {
			return buf, fmt.Errorf("upper bound: %w", err)
		}
	}
	return buf, nil
}
