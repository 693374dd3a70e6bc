package loader

import "io"

// BufferStream is a Stream over an in-memory copy of the object bytes.
type BufferStream struct {
	buf     []byte
	pos     int
	storage Storage
}

func NewBufferStream(buf []byte, storage Storage) *BufferStream {
	return &BufferStream{buf: buf, storage: storage}
}

func (s *BufferStream) Read(p []byte) (int, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

func (s *BufferStream) Seek(off uint64) error {
	if off > uint64(len(s.buf)) {
		return ErrOutOfRange
	}
	s.pos = int(off)
	return nil
}

func (s *BufferStream) Peek(off uint64) []byte {
	if s.storage == StorageTemporary || off >= uint64(len(s.buf)) {
		return nil
	}
	return s.buf[off:]
}

func (s *BufferStream) Storage() Storage {
	return s.storage
}

// Bytes exposes the backing buffer. For StorageWritable streams this is the
// memory the linker patches in place.
func (s *BufferStream) Bytes() []byte {
	return s.buf
}
