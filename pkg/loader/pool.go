package loader

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// maxPooledBuffer keeps very large reads from pinning memory in the pool.
const maxPooledBuffer = 8 << 20

var bufferPool = sync.Pool{
	New: func() any {
		bufferPoolNews.Add(1)
		return new(bytes.Buffer)
	},
}

var bufferPoolGets atomic.Uint64
var bufferPoolNews atomic.Uint64

func getBuffer() *bytes.Buffer {
	bufferPoolGets.Add(1)
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// putBuffer returns buf to the pool. The caller must not keep slices of
// buf.Bytes() past this call; Parse copies everything it retains.
func putBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}

// BufferPoolStats returns pool reuse counters for diagnostics.
func BufferPoolStats() (hits uint64, misses uint64) {
	gets := bufferPoolGets.Load()
	news := bufferPoolNews.Load()
	if gets < news {
		return 0, news
	}
	return gets - news, news
}
