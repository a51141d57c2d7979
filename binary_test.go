package pgbulk_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/fwojciec/pgbulk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stream builds a COPY stream by hand: header, rows, trailer
func stream(rows ...[]byte) []byte {
	data := append([]byte(nil), copyHeader...)
	for _, r := range rows {
		data = append(data, r...)
	}
	return append(data, 0xFF, 0xFF)
}

func TestParser_ParseHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		data        []byte
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid header",
			data: stream(),
		},
		{
			name: "header extension is skipped",
			data: append(append([]byte("PGCOPY\n\377\r\n\000"), 0, 0, 0, 0, 0, 0, 0, 2, 0xAB, 0xCD), 0xFF, 0xFF),
		},
		{
			name:        "invalid signature",
			data:        []byte("INVALID\n\377\r\n\000\x00\x00\x00\x00\x00\x00\x00\x00"),
			expectError: true,
			errorMsg:    "invalid PGCOPY signature",
		},
		{
			name:        "truncated header",
			data:        []byte("PGCOPY\n\377\r\n"),
			expectError: true,
			errorMsg:    "unexpected EOF reading header",
		},
		{
			name:        "truncated flags",
			data:        []byte("PGCOPY\n\377\r\n\000\x00\x00"),
			expectError: true,
			errorMsg:    "unexpected EOF reading header",
		},
		{
			name:        "truncated extension",
			data:        []byte("PGCOPY\n\377\r\n\000\x00\x00\x00\x00\x00\x00\x00\x08\x01"),
			expectError: true,
			errorMsg:    "unexpected EOF reading header extension",
		},
		{
			name:        "empty data",
			data:        []byte{},
			expectError: true,
			errorMsg:    "unexpected EOF reading header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			parser := pgbulk.NewParser(bytes.NewReader(tt.data))
			err := parser.ParseHeader()

			if tt.expectError {
				require.Error(t, err)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
				return
			}
			require.NoError(t, err)
			_, err = parser.ParseTuple()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestParser_ParseTuple(t *testing.T) {
	t.Parallel()

	t.Run("fields and nulls", func(t *testing.T) {
		t.Parallel()
		data := stream(
			[]byte{0, 2, 0, 0, 0, 1, 'a', 0xFF, 0xFF, 0xFF, 0xFF},
			[]byte{0, 1, 0, 0, 0, 0},
		)
		parser := pgbulk.NewParser(bytes.NewReader(data))
		require.NoError(t, parser.ParseHeader())

		fields, err := parser.ParseTuple()
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, pgbulk.Field{Data: []byte("a")}, fields[0])
		assert.True(t, fields[1].IsNull)

		fields, err = parser.ParseTuple()
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.False(t, fields[0].IsNull)
		assert.Empty(t, fields[0].Data)

		_, err = parser.ParseTuple()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("returned data is not reused", func(t *testing.T) {
		t.Parallel()
		data := stream([]byte{0, 2, 0, 0, 0, 2, 'a', 'b', 0, 0, 0, 2, 'c', 'd'})
		parser := pgbulk.NewParser(bytes.NewReader(data))
		require.NoError(t, parser.ParseHeader())
		fields, err := parser.ParseTuple()
		require.NoError(t, err)
		assert.Equal(t, "ab", string(fields[0].Data))
		assert.Equal(t, "cd", string(fields[1].Data))
	})

	errorTests := []struct {
		name     string
		row      []byte
		errorMsg string
	}{
		{"invalid field count", []byte{0xFF, 0xFE}, "invalid field count: -2"},
		{"invalid field length", []byte{0, 1, 0xFF, 0xFF, 0xFF, 0xFE}, "invalid field length: -2"},
		{"truncated field data", []byte{0, 1, 0, 0, 0, 9, 'a'}, "unexpected EOF reading field data"},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data := append(append([]byte(nil), copyHeader...), tt.row...)
			parser := pgbulk.NewParser(bytes.NewReader(data))
			require.NoError(t, parser.ParseHeader())
			_, err := parser.ParseTuple()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestParser_ReadsWriterOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := pgbulk.Open(&buf)
	require.NoError(t, err)
	for i := range 50 {
		require.NoError(t, w.StartRow(2))
		require.NoError(t, w.WriteInt64(int64(i)))
		if i%2 == 0 {
			require.NoError(t, w.WriteNull())
		} else {
			require.NoError(t, w.WriteText(string(rune('a'+i%26))))
		}
	}
	require.NoError(t, w.Close())

	parser := pgbulk.NewParser(&buf)
	require.NoError(t, parser.ParseHeader())
	rows := 0
	for {
		fields, err := parser.ParseTuple()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, int64(rows), be64(fields[0].Data))
		assert.Equal(t, rows%2 == 0, fields[1].IsNull)
		rows++
	}
	assert.Equal(t, 50, rows)
}
