package pgbulk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	numericPositive    = 0x0000
	numericNegative    = 0x4000
	numericNaN         = 0xC000
	numericPositiveInf = 0xD000
	numericNegativeInf = 0xF000

	// numericMaxScale is the largest display scale the dscale field can carry.
	numericMaxScale = 0x3FFF

	numericBase = 10000
)

var (
	bigNumericBase = big.NewInt(numericBase)
	bigTen         = big.NewInt(10)
)

// numericDigits is the PostgreSQL on-disk numeric layout.
type numericDigits struct {
	digits []int16 // base-10000 groups, most significant first
	weight int16
	sign   uint16
	dscale int16
}

func (d numericDigits) size() int {
	return 8 + 2*len(d.digits)
}

func (d numericDigits) appendTo(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(d.digits)))
	buf = binary.BigEndian.AppendUint16(buf, uint16(d.weight))
	buf = binary.BigEndian.AppendUint16(buf, d.sign)
	buf = binary.BigEndian.AppendUint16(buf, uint16(d.dscale))
	for _, g := range d.digits {
		buf = binary.BigEndian.AppendUint16(buf, uint16(g))
	}
	return buf
}

// NumericCodec handles PostgreSQL numeric type (OID 1700).
// Values are pgtype.Numeric, decimal strings, *big.Int, Go integers or float64.
type NumericCodec struct{}

func (NumericCodec) OID() uint32  { return TypeOIDNumeric }
func (NumericCodec) Name() string { return "numeric" }
func (NumericCodec) measured()    {}

func (c NumericCodec) Size(v any) (int, error) {
	d, err := c.digits(v)
	if err != nil {
		return 0, err
	}
	return d.size(), nil
}

func (c NumericCodec) Append(buf []byte, v any) ([]byte, error) {
	d, err := c.digits(v)
	if err != nil {
		return buf, err
	}
	return d.appendTo(buf), nil
}

func (c NumericCodec) digits(v any) (numericDigits, error) {
	n, err := c.numeric(v)
	if err != nil {
		return numericDigits{}, err
	}
	return encodeNumeric(n)
}

func (c NumericCodec) numeric(v any) (pgtype.Numeric, error) {
	switch x := v.(type) {
	case pgtype.Numeric:
		return x, nil
	case *big.Int:
		if x == nil {
			return pgtype.Numeric{}, errors.New("numeric value is a nil *big.Int")
		}
		return pgtype.Numeric{Int: x, Valid: true}, nil
	case string:
		return ParseNumeric(x)
	case float64:
		switch {
		case math.IsNaN(x):
			return pgtype.Numeric{NaN: true, Valid: true}, nil
		case math.IsInf(x, 1):
			return pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}, nil
		case math.IsInf(x, -1):
			return pgtype.Numeric{InfinityModifier: pgtype.NegativeInfinity, Valid: true}, nil
		}
		return ParseNumeric(strconv.FormatFloat(x, 'f', -1, 64))
	}
	if i, ok := toInt64(v); ok {
		return pgtype.Numeric{Int: big.NewInt(i), Valid: true}, nil
	}
	return pgtype.Numeric{}, unsupportedValue(c, v)
}

// ParseNumeric parses a decimal string such as "-12345.12345", "1.5e-3",
// "NaN" or "-Infinity". The number of fractional digits is kept as the scale.
func ParseNumeric(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan":
		return pgtype.Numeric{NaN: true, Valid: true}, nil
	case "infinity", "+infinity", "inf", "+inf":
		return pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}, nil
	case "-infinity", "-inf":
		return pgtype.Numeric{InfinityModifier: pgtype.NegativeInfinity, Valid: true}, nil
	}

	mantissa, exponent, hasExponent := s, "", false
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa, exponent, hasExponent = s[:i], s[i+1:], true
	}

	sign := ""
	if mantissa != "" && (mantissa[0] == '-' || mantissa[0] == '+') {
		if mantissa[0] == '-' {
			sign = "-"
		}
		mantissa = mantissa[1:]
	}

	intPart, fracPart := mantissa, ""
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		intPart, fracPart = mantissa[:i], mantissa[i+1:]
	}
	digits := intPart + fracPart
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q", s)
	}

	unscaled, ok := new(big.Int).SetString(sign+digits, 10)
	if !ok {
		return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q", s)
	}

	exp := -int64(len(fracPart))
	if hasExponent {
		e, err := strconv.ParseInt(exponent, 10, 32)
		if err != nil {
			return pgtype.Numeric{}, fmt.Errorf("invalid numeric exponent in %q: %w", s, err)
		}
		exp += e
	}
	if exp < math.MinInt32 || exp > math.MaxInt32 {
		return pgtype.Numeric{}, fmt.Errorf("numeric exponent out of range in %q", s)
	}

	return pgtype.Numeric{Int: unscaled, Exp: int32(exp), Valid: true}, nil
}

// encodeNumeric splits n into base-10000 digit groups. Zero keeps its scale.
func encodeNumeric(n pgtype.Numeric) (numericDigits, error) {
	if n.NaN {
		return numericDigits{sign: numericNaN}, nil
	}
	switch n.InfinityModifier {
	case pgtype.Infinity:
		return numericDigits{sign: numericPositiveInf}, nil
	case pgtype.NegativeInfinity:
		return numericDigits{sign: numericNegativeInf}, nil
	}

	unscaled := new(big.Int)
	if n.Int != nil {
		unscaled.Set(n.Int)
	}
	scale := 0
	if n.Exp < 0 {
		scale = -int(n.Exp)
	} else if n.Exp > 0 {
		unscaled.Mul(unscaled, new(big.Int).Exp(bigTen, big.NewInt(int64(n.Exp)), nil))
	}
	if scale > numericMaxScale {
		return numericDigits{}, fmt.Errorf("numeric scale %d exceeds %d", scale, numericMaxScale)
	}

	d := numericDigits{sign: numericPositive, dscale: int16(scale)}
	if unscaled.Sign() < 0 {
		d.sign = numericNegative
		unscaled.Neg(unscaled)
	}
	if unscaled.Sign() == 0 {
		return numericDigits{sign: numericPositive, dscale: int16(scale)}, nil
	}

	// groups are collected least significant first
	var groups []int16
	if unscaled.IsUint64() {
		groups = uint64Groups(unscaled.Uint64(), scale)
	} else {
		groups = bigGroups(unscaled, scale)
	}

	fractionGroups := (scale + 3) / 4
	weight := len(groups) - fractionGroups - 1
	if len(groups) > math.MaxInt16 || weight > math.MaxInt16 || weight < math.MinInt16 {
		return numericDigits{}, fmt.Errorf("numeric value has too many digits (%d groups)", len(groups))
	}

	d.weight = int16(weight)
	d.digits = make([]int16, len(groups))
	for i, g := range groups {
		d.digits[len(groups)-1-i] = g
	}
	return d, nil
}

var pow10 = [...]uint64{1, 10, 100, 1000, 10000}

func uint64Groups(u uint64, scale int) []int16 {
	groups := make([]int16, 0, 6)
	if rem := scale % 4; rem != 0 {
		m := pow10[rem]
		groups = append(groups, int16((u%m)*pow10[4-rem]))
		u /= m
	}
	for u != 0 {
		groups = append(groups, int16(u%numericBase))
		u /= numericBase
	}
	return groups
}

func bigGroups(u *big.Int, scale int) []int16 {
	groups := make([]int16, 0, len(u.Bits())*5)
	r := new(big.Int)
	if rem := scale % 4; rem != 0 {
		u.QuoRem(u, big.NewInt(int64(pow10[rem])), r)
		groups = append(groups, int16(r.Uint64()*pow10[4-rem]))
	}
	for u.Sign() != 0 {
		u.QuoRem(u, bigNumericBase, r)
		groups = append(groups, int16(r.Uint64()))
	}
	return groups
}
