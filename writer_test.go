package pgbulk_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"math/big"
	"testing"

	"github.com/fwojciec/pgbulk"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

var copyHeader = []byte{
	'P', 'G', 'C', 'O', 'P', 'Y', '\n', 0xFF, '\r', '\n', 0x00,
	0, 0, 0, 0, // flags
	0, 0, 0, 0, // header extension length
}

// failingSink fails every write
type failingSink struct{}

func (failingSink) Write([]byte) (int, error) { return 0, errBoom }

// closingSink records Close and optionally fails it
type closingSink struct {
	bytes.Buffer
	closed   int
	closeErr error
}

func (s *closingSink) Close() error {
	s.closed++
	return s.closeErr
}

// lyingCodec reports one byte more than it writes
type lyingCodec struct{ pgbulk.Int4Codec }

func (lyingCodec) Size(any) (int, error) { return 5, nil }

// oversizedCodec reports a payload too large for the length prefix
type oversizedCodec struct{ pgbulk.TextCodec }

func (oversizedCodec) Size(any) (int, error) { return math.MaxInt32 + 1, nil }

func TestWriter_EmptyStream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := pgbulk.Open(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	want := append(append([]byte(nil), copyHeader...), 0xFF, 0xFF)
	assert.Equal(t, want, buf.Bytes())
	assert.Len(t, copyHeader, 19)
	assert.Equal(t, int64(0), w.Rows())
	assert.Equal(t, int64(21), w.BytesWritten())
}

func TestWriter_RowFraming(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := pgbulk.Open(&buf)
	require.NoError(t, err)

	require.NoError(t, w.StartRow(3))
	require.NoError(t, w.WriteInt32(7))
	require.NoError(t, w.WriteNull())
	require.NoError(t, w.WriteText("hi"))
	require.NoError(t, w.Close())

	want := append([]byte(nil), copyHeader...)
	want = append(want,
		0, 3, // column count
		0, 0, 0, 4, 0, 0, 0, 7,
		0xFF, 0xFF, 0xFF, 0xFF,
		0, 0, 0, 2, 'h', 'i',
		0xFF, 0xFF, // trailer
	)
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, int64(1), w.Rows())
	assert.Equal(t, int64(len(want)), w.BytesWritten())
}

func TestWriter_TypedWritesMatchCodecs(t *testing.T) {
	t.Parallel()

	typed := func(w *pgbulk.Writer) error {
		return errors.Join(
			w.StartRow(8),
			w.WriteBool(true),
			w.WriteInt16(-2),
			w.WriteInt32(1<<20),
			w.WriteInt64(-1),
			w.WriteFloat32(1.5),
			w.WriteFloat64(-2.5),
			w.WriteText("text"),
			w.WriteBytes([]byte{1, 2}),
		)
	}
	generic := func(w *pgbulk.Writer) error {
		return errors.Join(
			w.StartRow(8),
			w.Write(pgbulk.BoolCodec{}, true),
			w.Write(pgbulk.Int2Codec{}, int16(-2)),
			w.Write(pgbulk.Int4Codec{}, int32(1<<20)),
			w.Write(pgbulk.Int8Codec{}, int64(-1)),
			w.Write(pgbulk.Float4Codec{}, float32(1.5)),
			w.Write(pgbulk.Float8Codec{}, -2.5),
			w.Write(pgbulk.TextCodec{}, "text"),
			w.Write(pgbulk.ByteaCodec{}, []byte{1, 2}),
		)
	}

	stream := func(write func(*pgbulk.Writer) error) []byte {
		var buf bytes.Buffer
		w, err := pgbulk.Open(&buf)
		require.NoError(t, err)
		require.NoError(t, write(w))
		require.NoError(t, w.Close())
		return buf.Bytes()
	}

	assert.Equal(t, stream(generic), stream(typed))
}

func TestWriter_NullSentinel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := pgbulk.Open(&buf)
	require.NoError(t, err)

	require.NoError(t, w.StartRow(7))
	require.NoError(t, w.Write(pgbulk.Int8Codec{}, nil))
	require.NoError(t, w.Write(pgbulk.TextCodec{}, nil))
	require.NoError(t, w.WriteBytes(nil))
	require.NoError(t, w.WriteNull())
	// typed nil pointers
	require.NoError(t, w.Write(lookup(t, pgbulk.TypeInt4Range), (*pgtype.Range[int32])(nil)))
	require.NoError(t, w.Write(pgbulk.NumericCodec{}, (*big.Int)(nil)))
	require.NoError(t, w.Write(pgbulk.TextCodec{}, (*string)(nil)))
	require.NoError(t, w.Close())

	p := pgbulk.NewParser(&buf)
	require.NoError(t, p.ParseHeader())
	fields, err := p.ParseTuple()
	require.NoError(t, err)
	require.Len(t, fields, 7)
	for _, f := range fields {
		assert.True(t, f.IsNull)
		assert.Empty(t, f.Data)
	}
}

func TestWriter_CodecFailureWritesNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		codec   pgbulk.Codec
		value   any
		wantErr string
	}{
		{"unsupported value", pgbulk.Int4Codec{}, "seven", "cannot encode string as int4"},
		{"size mismatch", lyingCodec{}, int32(7), "int4 codec reported 5 bytes but wrote 4"},
		{"payload too large", oversizedCodec{}, "x", "text: field of 2147483648 bytes exceeds the 2147483647 byte limit"},
		{"invalid json", pgbulk.JSONCodec{}, "{", "invalid json document"},
		{"invalid numeric", pgbulk.NumericCodec{}, "1.2.3", "invalid numeric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			w, err := pgbulk.Open(&buf)
			require.NoError(t, err)
			require.NoError(t, w.StartRow(1))
			before := w.BytesWritten()

			err = w.Write(tt.codec, tt.value)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, before, w.BytesWritten())

			// the writer stays usable after a codec failure
			require.NoError(t, w.WriteInt32(7))
			require.NoError(t, w.Close())

			p := pgbulk.NewParser(&buf)
			require.NoError(t, p.ParseHeader())
			fields, err := p.ParseTuple()
			require.NoError(t, err)
			require.Len(t, fields, 1)
			assert.Equal(t, []byte{0, 0, 0, 7}, fields[0].Data)
		})
	}
}

func TestWriter_JSONAndNumericFields(t *testing.T) {
	t.Parallel()

	values := []struct {
		codec pgbulk.Codec
		value any
	}{
		{pgbulk.JSONCodec{}, map[string]any{"a": []int{1, 2}}},
		{pgbulk.JSONBCodec{}, `{"b": true}`},
		{pgbulk.NumericCodec{}, "-12345.12345"},
		{pgbulk.NumericCodec{}, big.NewInt(0)},
	}

	var buf bytes.Buffer
	w, err := pgbulk.Open(&buf)
	require.NoError(t, err)
	require.NoError(t, w.StartRow(len(values)))
	for _, v := range values {
		require.NoError(t, w.Write(v.codec, v.value))
	}
	require.NoError(t, w.Close())

	p := pgbulk.NewParser(&buf)
	require.NoError(t, p.ParseHeader())
	fields, err := p.ParseTuple()
	require.NoError(t, err)
	require.Len(t, fields, len(values))
	for i, v := range values {
		assert.Equal(t, payload(t, v.codec, v.value), fields[i].Data)
	}
}

func TestWriter_SinkFailureIsSticky(t *testing.T) {
	t.Parallel()

	w, err := pgbulk.Open(failingSink{})
	require.NoError(t, err)
	require.NoError(t, w.StartRow(1))

	// larger than the sink buffer so it reaches the sink at once
	err = w.WriteBytes(make([]byte, pgbulk.DefaultSinkBufferSize+1))
	var sinkErr *pgbulk.SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "write", sinkErr.Op)
	require.ErrorIs(t, err, errBoom)

	assert.ErrorIs(t, w.StartRow(1), errBoom)
	assert.ErrorIs(t, w.WriteInt32(1), errBoom)
	assert.ErrorIs(t, w.Write(pgbulk.TextCodec{}, "x"), errBoom)

	err = w.Close()
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "write", sinkErr.Op)
}

func TestWriter_FlushFailureSurfacesOnClose(t *testing.T) {
	t.Parallel()

	w, err := pgbulk.Open(failingSink{})
	require.NoError(t, err)
	require.NoError(t, w.StartRow(1))
	require.NoError(t, w.WriteInt32(1))

	err = w.Close()
	var sinkErr *pgbulk.SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "flush", sinkErr.Op)
	assert.ErrorIs(t, err, errBoom)
}

func TestWriter_Close(t *testing.T) {
	t.Parallel()

	t.Run("closes the sink once", func(t *testing.T) {
		t.Parallel()
		sink := &closingSink{}
		w, err := pgbulk.Open(sink)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		assert.Equal(t, 1, sink.closed)
		assert.Equal(t, 21, sink.Len())
	})

	t.Run("sink close failure", func(t *testing.T) {
		t.Parallel()
		sink := &closingSink{closeErr: errBoom}
		w, err := pgbulk.Open(sink)
		require.NoError(t, err)
		err = w.Close()
		var sinkErr *pgbulk.SinkError
		require.ErrorAs(t, err, &sinkErr)
		assert.Equal(t, "close", sinkErr.Op)
	})

	t.Run("writes after close are rejected", func(t *testing.T) {
		t.Parallel()
		w, err := pgbulk.Open(io.Discard)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		assert.ErrorIs(t, w.StartRow(1), pgbulk.ErrWriterClosed)
		assert.ErrorIs(t, w.Write(pgbulk.BoolCodec{}, true), pgbulk.ErrWriterClosed)
		assert.ErrorIs(t, w.WriteNull(), pgbulk.ErrWriterClosed)
		assert.ErrorIs(t, w.WriteText("x"), pgbulk.ErrWriterClosed)
		assert.ErrorIs(t, w.WriteBytes([]byte{1}), pgbulk.ErrWriterClosed)
	})
}

func TestWriter_InvalidColumnCount(t *testing.T) {
	t.Parallel()

	w, err := pgbulk.Open(io.Discard)
	require.NoError(t, err)
	defer w.Close()

	for _, n := range []int{-1, 32768} {
		err := w.StartRow(n)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid column count")
	}
	assert.Equal(t, int64(0), w.Rows())
	require.NoError(t, w.StartRow(32767))
}
