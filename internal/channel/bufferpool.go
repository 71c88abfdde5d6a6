package channel

import "sync"

const bufferSize = 65536

var buffers = sync.Pool{
	New: func() interface{} {
		return make([]byte, bufferSize)
	},
}

func getBuffer() []byte {
	return buffers.Get().([]byte)
}

func putBuffer(buf []byte) {
	if cap(buf) >= bufferSize {
		buffers.Put(buf[:bufferSize])
	}
}
