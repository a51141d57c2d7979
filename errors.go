package pgbulk

import (
	"errors"
	"fmt"
)

var (
	// ErrWriterClosed is returned by writes to a closed Writer.
	ErrWriterClosed = errors.New("pgbulk: writer is closed")

	// ErrProcessorClosed is returned by Add and Flush once Close has begun.
	ErrProcessorClosed = errors.New("pgbulk: processor is closed")
)

// AlreadyRegisteredError is returned when a codec is registered twice for the same type
type AlreadyRegisteredError struct {
	Type DataType
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("codec already registered for type %q", e.Type)
}

// CodecNotRegisteredError is returned when no codec is registered for a type
type CodecNotRegisteredError struct {
	Type DataType
}

func (e *CodecNotRegisteredError) Error() string {
	return fmt.Sprintf("no codec registered for type %q", e.Type)
}

// EncodingError provides context about a value that could not be encoded
type EncodingError struct {
	Table  string // Qualified table name
	Column string // Column whose value failed
	Row    int    // Zero-based position of the record in the batch
	Record any    // The offending record
	Err    error  // The underlying codec error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s.%s at row %d: %v", e.Table, e.Column, e.Row, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// SinkError is returned when the underlying sink fails
type SinkError struct {
	Op  string // Which operation failed (e.g., "write", "flush", "close")
	Err error  // The underlying error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s failed: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// FlushError provides context about a batch the write handler rejected
type FlushError struct {
	Trigger string // What started the flush ("size", "timer", "manual", "close")
	Records int    // Number of records in the failed batch
	Err     error  // The handler error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("%s flush of %d records failed: %v", e.Trigger, e.Records, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}

// ConnectionError provides context about connection acquisition failures
type ConnectionError struct {
	Err error // The underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to acquire connection from pool: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CopyError provides context about a COPY the server rejected
type CopyError struct {
	SQL string // The COPY command that failed
	Err error  // The underlying error
}

func (e *CopyError) Error() string {
	sql := e.SQL
	if len(sql) > 100 {
		sql = sql[:100] + "..."
	}
	return fmt.Sprintf("copy failed: %v (SQL: %s)", e.Err, sql)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}
