package pgbulk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// defaultBufferCapacity is the initial capacity for reusable field data buffers
const defaultBufferCapacity = 256

// Parser reads PostgreSQL COPY binary format data, the format Writer produces.
// Fields are returned as raw payload bytes; decoding is left to the caller.
type Parser struct {
	reader io.Reader
	buf    []byte
}

// Field is one field of a parsed tuple.
type Field struct {
	Data   []byte
	IsNull bool
}

// NewParser creates a new binary format parser.
func NewParser(reader io.Reader) *Parser {
	return &Parser{
		reader: reader,
		buf:    make([]byte, 0, defaultBufferCapacity),
	}
}

// ParseHeader validates the PGCOPY signature and skips the header extension.
func (p *Parser) ParseHeader() error {
	signature := make([]byte, len(copySignature))
	if _, err := io.ReadFull(p.reader, signature); err != nil {
		return fmt.Errorf("unexpected EOF reading header: %w", err)
	}
	if !bytes.Equal(signature, copySignature) {
		return fmt.Errorf("invalid PGCOPY signature")
	}

	var flags uint32
	if err := binary.Read(p.reader, binary.BigEndian, &flags); err != nil {
		return fmt.Errorf("unexpected EOF reading header: %w", err)
	}

	var extLength uint32
	if err := binary.Read(p.reader, binary.BigEndian, &extLength); err != nil {
		return fmt.Errorf("unexpected EOF reading header: %w", err)
	}
	if extLength > 0 {
		if _, err := io.CopyN(io.Discard, p.reader, int64(extLength)); err != nil {
			return fmt.Errorf("unexpected EOF reading header extension: %w", err)
		}
	}
	return nil
}

// ParseTuple reads a single tuple (row).
// Returns io.EOF when the trailer (-1) is encountered.
func (p *Parser) ParseTuple() ([]Field, error) {
	var fieldCount int16
	if err := binary.Read(p.reader, binary.BigEndian, &fieldCount); err != nil {
		return nil, err
	}
	if fieldCount == -1 {
		return nil, io.EOF
	}
	if fieldCount < 0 {
		return nil, fmt.Errorf("invalid field count: %d", fieldCount)
	}

	fields := make([]Field, fieldCount)
	for i := range fields {
		field, err := p.ParseField()
		if err != nil {
			return nil, fmt.Errorf("error parsing field %d: %w", i, err)
		}
		fields[i] = field
	}
	return fields, nil
}

// ParseField reads one length-prefixed field. The returned data is a copy.
func (p *Parser) ParseField() (Field, error) {
	var length int32
	if err := binary.Read(p.reader, binary.BigEndian, &length); err != nil {
		return Field{}, err
	}
	if length == -1 {
		return Field{IsNull: true}, nil
	}
	if length < 0 {
		return Field{}, fmt.Errorf("invalid field length: %d", length)
	}

	if cap(p.buf) < int(length) {
		p.buf = make([]byte, length)
	} else {
		p.buf = p.buf[:length]
	}
	if _, err := io.ReadFull(p.reader, p.buf); err != nil {
		return Field{}, fmt.Errorf("unexpected EOF reading field data: %w", err)
	}

	data := make([]byte, length)
	copy(data, p.buf)
	return Field{Data: data}, nil
}
