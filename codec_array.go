package pgbulk

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// ArrayCodec writes one-dimensional arrays of an element codec.
// Values are slices or arrays of any element type the element codec accepts;
// nil elements and nil pointers are written as NULL. A nil slice is an empty array.
type ArrayCodec struct {
	elem    Codec
	elemOID uint32
}

// NewArrayCodec creates an array codec. elemOID is the wire type id written
// into every array header.
func NewArrayCodec(elem Codec, elemOID uint32) *ArrayCodec {
	return &ArrayCodec{elem: elem, elemOID: elemOID}
}

// OID returns the array type OID, or 0 when the element type has no known array type.
func (c *ArrayCodec) OID() uint32  { return ArrayOID(c.elemOID) }
func (c *ArrayCodec) Name() string { return "_" + c.elem.Name() }

// Elem returns the element codec.
func (c *ArrayCodec) Elem() Codec { return c.elem }

// each calls fn for every element, with pointers dereferenced.
func (c *ArrayCodec) each(v any, fn func(i int, e any) error) (int, error) {
	if elems, ok := v.([]any); ok {
		for i, e := range elems {
			if err := fn(i, indirect(e)); err != nil {
				return 0, err
			}
		}
		return len(elems), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0, unsupportedValue(c, v)
	}
	n := rv.Len()
	for i := 0; i < n; i++ {
		if err := fn(i, indirect(rv.Index(i).Interface())); err != nil {
			return 0, err
		}
	}
	return n, nil
}

func (c *ArrayCodec) Size(v any) (int, error) {
	size := 20
	n, err := c.each(v, func(i int, e any) error {
		size += 4
		if isNull(e) {
			return nil
		}
		es, err := c.elem.Size(e)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		size += es
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("array has too many elements: %d", n)
	}
	return size, nil
}

func (c *ArrayCodec) Append(buf []byte, v any) ([]byte, error) {
	hasNulls := int32(0)
	n, err := c.each(v, func(_ int, e any) error {
		if isNull(e) {
			hasNulls = 1
		}
		return nil
	})
	if err != nil {
		return buf, err
	}

	buf = binary.BigEndian.AppendUint32(buf, 1) // ndim
	buf = binary.BigEndian.AppendUint32(buf, uint32(hasNulls))
	buf = binary.BigEndian.AppendUint32(buf, c.elemOID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(n))
	buf = binary.BigEndian.AppendUint32(buf, 1) // lower bound

	_, err = c.each(v, func(i int, e any) error {
		var err error
		buf, err = appendField(buf, c.elem, e)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		return nil
	})
	return buf, err
}

// appendField appends a length-prefixed value, or the NULL length for null values.
func appendField(buf []byte, c Codec, v any) ([]byte, error) {
	if isNull(v) {
		return appendNullLength(buf), nil
	}
	if _, ok := c.(measured); ok {
		return appendMeasured(buf, c, v)
	}
	size, err := c.Size(v)
	if err != nil {
		return buf, err
	}
	length, err := fieldLength(size)
	if err != nil {
		return buf, fmt.Errorf("%s: %w", c.Name(), err)
	}
	start := len(buf)
	buf = binary.BigEndian.AppendUint32(buf, length)
	buf, err = c.Append(buf, v)
	if err != nil {
		return buf[:start], err
	}
	if written := len(buf) - start - 4; written != size {
		return buf[:start], fmt.Errorf("%s codec reported %d bytes but wrote %d", c.Name(), size, written)
	}
	return buf, nil
}

// measured is implemented by codecs whose Size and Append share one encoding
// step. Their payload is measured after Append instead of sized up front.
type measured interface {
	measured()
}

func appendMeasured(buf []byte, c Codec, v any) ([]byte, error) {
	start := len(buf)
	buf = append(buf, 0, 0, 0, 0)
	buf, err := c.Append(buf, v)
	if err != nil {
		return buf[:start], err
	}
	length, err := fieldLength(len(buf) - start - 4)
	if err != nil {
		return buf[:start], fmt.Errorf("%s: %w", c.Name(), err)
	}
	binary.BigEndian.PutUint32(buf[start:], length)
	return buf, nil
}
