package pgbulk

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const microsPerDay = 24 * 60 * 60 * 1_000_000

// DateCodec handles PostgreSQL date type (OID 1082)
type DateCodec struct{}

func (DateCodec) OID() uint32  { return TypeOIDDate }
func (DateCodec) Name() string { return "date" }

func (c DateCodec) days(v any) (int32, error) {
	switch x := v.(type) {
	case time.Time:
		return c.fit(x)
	case pgtype.Date:
		switch x.InfinityModifier {
		case pgtype.Infinity:
			return math.MaxInt32, nil
		case pgtype.NegativeInfinity:
			return math.MinInt32, nil
		}
		return c.fit(x.Time)
	}
	return 0, unsupportedValue(c, v)
}

func (c DateCodec) fit(t time.Time) (int32, error) {
	days, ok := postgresDays(t)
	if !ok {
		return 0, outOfRange(c, t)
	}
	return days, nil
}

func (c DateCodec) Size(v any) (int, error) {
	if _, err := c.days(v); err != nil {
		return 0, err
	}
	return 4, nil
}

func (c DateCodec) Append(buf []byte, v any) ([]byte, error) {
	days, err := c.days(v)
	if err != nil {
		return buf, err
	}
	return binary.BigEndian.AppendUint32(buf, uint32(days)), nil
}

// TimeCodec handles PostgreSQL time type (OID 1083)
type TimeCodec struct{}

func (TimeCodec) OID() uint32  { return TypeOIDTime }
func (TimeCodec) Name() string { return "time" }

func (c TimeCodec) micros(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		h, m, s := x.Clock()
		return (int64(h)*3600+int64(m)*60+int64(s))*1_000_000 + int64(x.Nanosecond()/1000), nil
	case time.Duration:
		if x < 0 || x.Microseconds() > microsPerDay {
			return 0, outOfRange(c, x)
		}
		return x.Microseconds(), nil
	case pgtype.Time:
		if x.Microseconds < 0 || x.Microseconds > microsPerDay {
			return 0, outOfRange(c, x.Microseconds)
		}
		return x.Microseconds, nil
	}
	return 0, unsupportedValue(c, v)
}

func (c TimeCodec) Size(v any) (int, error) {
	if _, err := c.micros(v); err != nil {
		return 0, err
	}
	return 8, nil
}

func (c TimeCodec) Append(buf []byte, v any) ([]byte, error) {
	us, err := c.micros(v)
	if err != nil {
		return buf, err
	}
	return binary.BigEndian.AppendUint64(buf, uint64(us)), nil
}

// TimestampCodec handles PostgreSQL timestamp type (OID 1114).
// The wall clock of a time.Time is written as is; its location is dropped.
type TimestampCodec struct{}

func (TimestampCodec) OID() uint32  { return TypeOIDTimestamp }
func (TimestampCodec) Name() string { return "timestamp" }

func (c TimestampCodec) micros(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return timestampMicros(c, x)
	case pgtype.Timestamp:
		if us, ok := infiniteMicros(x.InfinityModifier); ok {
			return us, nil
		}
		return timestampMicros(c, x.Time)
	}
	return 0, unsupportedValue(c, v)
}

func (c TimestampCodec) Size(v any) (int, error) {
	if _, err := c.micros(v); err != nil {
		return 0, err
	}
	return 8, nil
}

func (c TimestampCodec) Append(buf []byte, v any) ([]byte, error) {
	us, err := c.micros(v)
	if err != nil {
		return buf, err
	}
	return binary.BigEndian.AppendUint64(buf, uint64(us)), nil
}

// TimestamptzCodec handles PostgreSQL timestamptz type (OID 1184).
// Values are normalized to UTC before encoding.
type TimestamptzCodec struct{}

func (TimestamptzCodec) OID() uint32  { return TypeOIDTimestamptz }
func (TimestamptzCodec) Name() string { return "timestamptz" }

func (c TimestamptzCodec) micros(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return timestampMicros(c, x.UTC())
	case pgtype.Timestamptz:
		if us, ok := infiniteMicros(x.InfinityModifier); ok {
			return us, nil
		}
		return timestampMicros(c, x.Time.UTC())
	}
	return 0, unsupportedValue(c, v)
}

func (c TimestamptzCodec) Size(v any) (int, error) {
	if _, err := c.micros(v); err != nil {
		return 0, err
	}
	return 8, nil
}

func (c TimestamptzCodec) Append(buf []byte, v any) ([]byte, error) {
	us, err := c.micros(v)
	if err != nil {
		return buf, err
	}
	return binary.BigEndian.AppendUint64(buf, uint64(us)), nil
}

func timestampMicros(c Codec, t time.Time) (int64, error) {
	us, ok := postgresMicros(t)
	if !ok {
		return 0, outOfRange(c, t)
	}
	return us, nil
}

func infiniteMicros(m pgtype.InfinityModifier) (int64, bool) {
	switch m {
	case pgtype.Infinity:
		return math.MaxInt64, true
	case pgtype.NegativeInfinity:
		return math.MinInt64, true
	}
	return 0, false
}

// IntervalCodec handles PostgreSQL interval type (OID 1186).
// A time.Duration is written as microseconds with zero days and months.
type IntervalCodec struct{}

func (IntervalCodec) OID() uint32  { return TypeOIDInterval }
func (IntervalCodec) Name() string { return "interval" }

func (c IntervalCodec) interval(v any) (pgtype.Interval, error) {
	switch x := v.(type) {
	case time.Duration:
		return pgtype.Interval{Microseconds: x.Microseconds(), Valid: true}, nil
	case pgtype.Interval:
		return x, nil
	}
	return pgtype.Interval{}, unsupportedValue(c, v)
}

func (c IntervalCodec) Size(v any) (int, error) {
	if _, err := c.interval(v); err != nil {
		return 0, err
	}
	return 16, nil
}

func (c IntervalCodec) Append(buf []byte, v any) ([]byte, error) {
	iv, err := c.interval(v)
	if err != nil {
		return buf, err
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(iv.Microseconds))
	buf = binary.BigEndian.AppendUint32(buf, uint32(iv.Days))
	return binary.BigEndian.AppendUint32(buf, uint32(iv.Months)), nil
}
