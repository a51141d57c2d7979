package pgbulk

import (
	"bufio"
	"io"
	"sync"
)

const (
	// Buffer pool size classes for field scratch buffers
	SmallBufferSizeBytes  = 256   // 0-256 bytes
	MediumBufferSizeBytes = 4096  // 256-4KB bytes
	LargeBufferSizeBytes  = 65536 // 4KB-64KB bytes

	// DefaultSinkBufferSize is the size of the buffered writer placed in front of a sink.
	DefaultSinkBufferSize = 65536
)

// BufferPool manages reusable byte slices to minimize GC pressure while
// encoding fields. Uses size-class based pools; oversized slices are left to the GC.
type BufferPool struct {
	smallBytePool  *sync.Pool
	mediumBytePool *sync.Pool
	largeBytePool  *sync.Pool
	sinkPool       *sync.Pool // *bufio.Writer of DefaultSinkBufferSize
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		smallBytePool: &sync.Pool{
			New: func() any { return make([]byte, 0, SmallBufferSizeBytes) },
		},
		mediumBytePool: &sync.Pool{
			New: func() any { return make([]byte, 0, MediumBufferSizeBytes) },
		},
		largeBytePool: &sync.Pool{
			New: func() any { return make([]byte, 0, LargeBufferSizeBytes) },
		},
		sinkPool: &sync.Pool{
			New: func() any { return bufio.NewWriterSize(io.Discard, DefaultSinkBufferSize) },
		},
	}
}

var defaultBufferPool = NewBufferPool()

// GetByteSlice returns a zero-length byte slice with at least sizeHint capacity
// when sizeHint fits a size class.
func (bp *BufferPool) GetByteSlice(sizeHint int) []byte {
	switch {
	case sizeHint <= SmallBufferSizeBytes:
		return bp.smallBytePool.Get().([]byte)[:0]
	case sizeHint <= MediumBufferSizeBytes:
		return bp.mediumBytePool.Get().([]byte)[:0]
	case sizeHint <= LargeBufferSizeBytes:
		return bp.largeBytePool.Get().([]byte)[:0]
	default:
		return make([]byte, 0, sizeHint)
	}
}

// PutByteSlice returns a byte slice to the pool matching its capacity.
func (bp *BufferPool) PutByteSlice(slice []byte) {
	if slice == nil {
		return
	}
	slice = slice[:0]

	switch cap(slice) {
	case SmallBufferSizeBytes:
		bp.smallBytePool.Put(slice)
	case MediumBufferSizeBytes:
		bp.mediumBytePool.Put(slice)
	case LargeBufferSizeBytes:
		bp.largeBytePool.Put(slice)
		// For non-standard capacities, let GC handle them to avoid pool pollution
	}
}

// getSinkWriter returns a buffered writer reset onto sink.
func (bp *BufferPool) getSinkWriter(sink io.Writer) *bufio.Writer {
	w := bp.sinkPool.Get().(*bufio.Writer)
	w.Reset(sink)
	return w
}

func (bp *BufferPool) putSinkWriter(w *bufio.Writer) {
	w.Reset(io.Discard)
	bp.sinkPool.Put(w)
}
