/*
Copyright 2011-2025 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package internal

import (
	"bytes"
	"errors"
)

// errStreamClosed is returned by BufferStream's Read/Write once Close has
// been called.
var errStreamClosed = errors.New("stream closed")

// BufferStream is a closable in-memory byte stream backed by a bytes.Buffer,
// used anywhere this module needs an io.ReadWriteCloser without touching the
// filesystem (tests, benchmarks, the bit I/O round-trip harness).
type BufferStream struct {
	buf    *bytes.Buffer
	closed bool
}

// NewBufferStream creates a BufferStream. With no argument it starts empty;
// with one argument, that byte slice seeds the buffer's initial contents.
func NewBufferStream(seed ...[]byte) *BufferStream {
	bs := &BufferStream{buf: new(bytes.Buffer)}

	if len(seed) == 1 {
		bs.buf = bytes.NewBuffer(seed[0])
	}

	return bs
}

// Write appends b to the stream. Returns errStreamClosed once Close has run.
func (bs *BufferStream) Write(b []byte) (int, error) {
	if bs.closed {
		return 0, errStreamClosed
	}

	return bs.buf.Write(b)
}

// Read pulls the next len(b) bytes from the stream, (0, io.EOF) once drained.
func (bs *BufferStream) Read(b []byte) (int, error) {
	if bs.closed {
		return 0, errStreamClosed
	}

	return bs.buf.Read(b)
}

// Available reports how many unread bytes remain, 0 once closed.
func (bs *BufferStream) Available() int {
	if bs.closed {
		return 0
	}

	return bs.buf.Len()
}

// Len reports the total number of unread bytes currently buffered.
func (bs *BufferStream) Len() int {
	return bs.buf.Len()
}

// Close permanently disables further reads and writes.
func (bs *BufferStream) Close() error {
	bs.closed = true
	return nil
}
