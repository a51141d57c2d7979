package pgbulk

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// copySignature is the fixed 11-byte PGCOPY signature.
var copySignature = []byte("PGCOPY\n\377\r\n\000")

type writerState int

const (
	stateHeaderWritten writerState = iota
	stateRow
	stateClosed
)

// Writer writes PostgreSQL COPY binary format data to a sink.
//
// The caller writes StartRow(n) followed by exactly n fields per row; the
// writer does not count fields. A Writer is NOT safe for concurrent use.
type Writer struct {
	sink    io.Writer
	out     *bufio.Writer
	scratch []byte
	state   writerState
	rows    int64
	bytes   int64
	err     error // sticky sink failure
}

// Open writes the COPY header to sink and returns a writer positioned before
// the first row. If sink implements io.Closer it is closed by Close.
func Open(sink io.Writer) (*Writer, error) {
	w := &Writer{
		sink:    sink,
		out:     defaultBufferPool.getSinkWriter(sink),
		scratch: defaultBufferPool.GetByteSlice(SmallBufferSizeBytes),
	}

	header := append(w.scratch[:0], copySignature...)
	header = binary.BigEndian.AppendUint32(header, 0) // flags
	header = binary.BigEndian.AppendUint32(header, 0) // header extension length
	w.scratch = header[:0]
	if err := w.write(header); err != nil {
		w.release()
		return nil, err
	}
	return w, nil
}

// Rows returns the number of rows started so far.
func (w *Writer) Rows() int64 {
	return w.rows
}

// BytesWritten returns the number of bytes handed to the sink, including
// bytes still buffered.
func (w *Writer) BytesWritten() int64 {
	return w.bytes
}

func (w *Writer) write(p []byte) error {
	if w.err != nil {
		return w.err
	}
	n, err := w.out.Write(p)
	w.bytes += int64(n)
	if err != nil {
		w.err = &SinkError{Op: "write", Err: err}
	}
	return w.err
}

func (w *Writer) usable() error {
	if w.state == stateClosed {
		return ErrWriterClosed
	}
	return w.err
}

// StartRow writes the column count of the next row.
func (w *Writer) StartRow(columns int) error {
	if err := w.usable(); err != nil {
		return err
	}
	if columns < 0 || columns > math.MaxInt16 {
		return fmt.Errorf("invalid column count: %d", columns)
	}
	w.scratch = binary.BigEndian.AppendUint16(w.scratch[:0], uint16(columns))
	if err := w.write(w.scratch); err != nil {
		return err
	}
	w.rows++
	w.state = stateRow
	return nil
}

// Write writes one field using codec c. Null values are written as a -1 length.
// The payload is encoded before anything reaches the sink, so a codec failure
// writes nothing.
func (w *Writer) Write(c Codec, v any) error {
	if err := w.usable(); err != nil {
		return err
	}
	buf, err := appendField(w.scratch[:0], c, v)
	w.scratch = buf[:0]
	if err != nil {
		return err
	}
	return w.write(buf)
}

// WriteNull writes a NULL field.
func (w *Writer) WriteNull() error {
	if err := w.usable(); err != nil {
		return err
	}
	w.scratch = appendNullLength(w.scratch[:0])
	return w.write(w.scratch)
}

// fieldLength checks that a payload of n bytes fits the i32 length prefix.
func fieldLength(n int) (uint32, error) {
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("field of %d bytes exceeds the %d byte limit", n, math.MaxInt32)
	}
	return uint32(n), nil
}

func (w *Writer) fixed(size uint32) []byte {
	return binary.BigEndian.AppendUint32(w.scratch[:0], size)
}

// WriteBool writes a bool field.
func (w *Writer) WriteBool(v bool) error {
	if err := w.usable(); err != nil {
		return err
	}
	b := byte(0)
	if v {
		b = 1
	}
	w.scratch = append(w.fixed(1), b)
	return w.write(w.scratch)
}

// WriteInt16 writes an int2 field.
func (w *Writer) WriteInt16(v int16) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.scratch = binary.BigEndian.AppendUint16(w.fixed(2), uint16(v))
	return w.write(w.scratch)
}

// WriteInt32 writes an int4 field.
func (w *Writer) WriteInt32(v int32) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.scratch = binary.BigEndian.AppendUint32(w.fixed(4), uint32(v))
	return w.write(w.scratch)
}

// WriteInt64 writes an int8 field.
func (w *Writer) WriteInt64(v int64) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.scratch = binary.BigEndian.AppendUint64(w.fixed(8), uint64(v))
	return w.write(w.scratch)
}

// WriteFloat32 writes a float4 field.
func (w *Writer) WriteFloat32(v float32) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.scratch = binary.BigEndian.AppendUint32(w.fixed(4), math.Float32bits(v))
	return w.write(w.scratch)
}

// WriteFloat64 writes a float8 field.
func (w *Writer) WriteFloat64(v float64) error {
	if err := w.usable(); err != nil {
		return err
	}
	w.scratch = binary.BigEndian.AppendUint64(w.fixed(8), math.Float64bits(v))
	return w.write(w.scratch)
}

// WriteText writes a text field.
func (w *Writer) WriteText(v string) error {
	if err := w.usable(); err != nil {
		return err
	}
	size, err := fieldLength(len(v))
	if err != nil {
		return err
	}
	w.scratch = w.fixed(size)
	if err := w.write(w.scratch); err != nil {
		return err
	}
	if _, err := w.out.WriteString(v); err != nil {
		w.err = &SinkError{Op: "write", Err: err}
		return w.err
	}
	w.bytes += int64(len(v))
	return nil
}

// WriteBytes writes a bytea field. A nil slice is written as NULL.
func (w *Writer) WriteBytes(v []byte) error {
	if v == nil {
		return w.WriteNull()
	}
	if err := w.usable(); err != nil {
		return err
	}
	size, err := fieldLength(len(v))
	if err != nil {
		return err
	}
	w.scratch = w.fixed(size)
	if err := w.write(w.scratch); err != nil {
		return err
	}
	return w.write(v)
}

// Close writes the trailer, flushes buffered data and closes the sink if it
// is an io.Closer. Every step is attempted even after an earlier failure;
// a failure already recorded by the writer takes precedence over close
// failures. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.state == stateClosed {
		return nil
	}
	w.state = stateClosed
	inFlight := w.err

	var closeErr error
	trailer := binary.BigEndian.AppendUint16(w.scratch[:0], 0xFFFF)
	if n, err := w.out.Write(trailer); err != nil {
		closeErr = &SinkError{Op: "write trailer", Err: err}
	} else {
		w.bytes += int64(n)
	}
	if err := w.out.Flush(); err != nil && closeErr == nil {
		closeErr = &SinkError{Op: "flush", Err: err}
	}
	if c, ok := w.sink.(io.Closer); ok {
		if err := c.Close(); err != nil && closeErr == nil {
			closeErr = &SinkError{Op: "close", Err: err}
		}
	}
	w.release()

	if inFlight != nil {
		return inFlight
	}
	if closeErr != nil {
		w.err = closeErr
	}
	return closeErr
}

func (w *Writer) release() {
	if w.out != nil {
		defaultBufferPool.putSinkWriter(w.out)
		w.out = nil
	}
	if w.scratch != nil {
		defaultBufferPool.PutByteSlice(w.scratch)
		w.scratch = nil
	}
}
