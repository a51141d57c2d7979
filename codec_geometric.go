package pgbulk

import (
	"encoding/binary"
	"math"
)

// Point is a PostgreSQL point.
type Point struct {
	X, Y float64
}

// Line is the infinite line Ax + By + C = 0.
type Line struct {
	A, B, C float64
}

// LineSegment is a finite segment between two points.
type LineSegment struct {
	P1, P2 Point
}

// Box is a rectangle given by two opposite corners.
type Box struct {
	High, Low Point
}

// Path is an open or closed list of points.
type Path struct {
	Points []Point
	Closed bool
}

// Polygon is a closed list of points.
type Polygon struct {
	Points []Point
}

// Circle is a center point and a radius.
type Circle struct {
	Center Point
	Radius float64
}

func appendFloat(buf []byte, f float64) []byte {
	return binary.BigEndian.AppendUint64(buf, math.Float64bits(f))
}

func appendPoint(buf []byte, p Point) []byte {
	return appendFloat(appendFloat(buf, p.X), p.Y)
}

func appendPoints(buf []byte, pts []Point) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(pts)))
	for _, p := range pts {
		buf = appendPoint(buf, p)
	}
	return buf
}

// PointCodec handles PostgreSQL point type (OID 600)
type PointCodec struct{}

func (PointCodec) OID() uint32  { return TypeOIDPoint }
func (PointCodec) Name() string { return "point" }

func (c PointCodec) Size(v any) (int, error) {
	if _, ok := v.(Point); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 16, nil
}

func (c PointCodec) Append(buf []byte, v any) ([]byte, error) {
	p, ok := v.(Point)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return appendPoint(buf, p), nil
}

// LineCodec handles PostgreSQL line type (OID 628)
type LineCodec struct{}

func (LineCodec) OID() uint32  { return TypeOIDLine }
func (LineCodec) Name() string { return "line" }

func (c LineCodec) Size(v any) (int, error) {
	if _, ok := v.(Line); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 24, nil
}

func (c LineCodec) Append(buf []byte, v any) ([]byte, error) {
	l, ok := v.(Line)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return appendFloat(appendFloat(appendFloat(buf, l.A), l.B), l.C), nil
}

// LineSegmentCodec handles PostgreSQL lseg type (OID 601)
type LineSegmentCodec struct{}

func (LineSegmentCodec) OID() uint32  { return TypeOIDLseg }
func (LineSegmentCodec) Name() string { return "lseg" }

func (c LineSegmentCodec) Size(v any) (int, error) {
	if _, ok := v.(LineSegment); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 32, nil
}

func (c LineSegmentCodec) Append(buf []byte, v any) ([]byte, error) {
	s, ok := v.(LineSegment)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return appendPoint(appendPoint(buf, s.P1), s.P2), nil
}

// BoxCodec handles PostgreSQL box type (OID 603)
type BoxCodec struct{}

func (BoxCodec) OID() uint32  { return TypeOIDBox }
func (BoxCodec) Name() string { return "box" }

func (c BoxCodec) Size(v any) (int, error) {
	if _, ok := v.(Box); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 32, nil
}

func (c BoxCodec) Append(buf []byte, v any) ([]byte, error) {
	b, ok := v.(Box)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return appendPoint(appendPoint(buf, b.High), b.Low), nil
}

// PathCodec handles PostgreSQL path type (OID 602)
type PathCodec struct{}

func (PathCodec) OID() uint32  { return TypeOIDPath }
func (PathCodec) Name() string { return "path" }

func (c PathCodec) Size(v any) (int, error) {
	p, ok := v.(Path)
	if !ok {
		return 0, unsupportedValue(c, v)
	}
	return 1 + 4 + 16*len(p.Points), nil
}

func (c PathCodec) Append(buf []byte, v any) ([]byte, error) {
	p, ok := v.(Path)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	if p.Closed {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return appendPoints(buf, p.Points), nil
}

// PolygonCodec handles PostgreSQL polygon type (OID 604)
type PolygonCodec struct{}

func (PolygonCodec) OID() uint32  { return TypeOIDPolygon }
func (PolygonCodec) Name() string { return "polygon" }

func (c PolygonCodec) Size(v any) (int, error) {
	p, ok := v.(Polygon)
	if !ok {
		return 0, unsupportedValue(c, v)
	}
	return 4 + 16*len(p.Points), nil
}

func (c PolygonCodec) Append(buf []byte, v any) ([]byte, error) {
	p, ok := v.(Polygon)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return appendPoints(buf, p.Points), nil
}

// CircleCodec handles PostgreSQL circle type (OID 718)
type CircleCodec struct{}

func (CircleCodec) OID() uint32  { return TypeOIDCircle }
func (CircleCodec) Name() string { return "circle" }

func (c CircleCodec) Size(v any) (int, error) {
	if _, ok := v.(Circle); !ok {
		return 0, unsupportedValue(c, v)
	}
	return 24, nil
}

func (c CircleCodec) Append(buf []byte, v any) ([]byte, error) {
	ci, ok := v.(Circle)
	if !ok {
		return buf, unsupportedValue(c, v)
	}
	return appendFloat(appendPoint(buf, ci.Center), ci.Radius), nil
}
