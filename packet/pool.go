package packet

import "sync"

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 4096)
		return &b
	},
}

// GetBuffer returns a pooled byte slice with at least the requested
// capacity, reset to zero length.
func GetBuffer(size int) *[]byte {
	bp := bufferPool.Get().(*[]byte)
	if cap(*bp) < size {
		*bp = make([]byte, 0, size)
	}
	*bp = (*bp)[:0]
	return bp
}

// PutBuffer returns a buffer obtained from GetBuffer to the pool.
func PutBuffer(bp *[]byte) {
	bufferPool.Put(bp)
}
