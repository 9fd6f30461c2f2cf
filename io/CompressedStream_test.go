/*
Copyright 2011-2024 Frederic Langlet
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

package io

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	kanzi "github.com/tarnhelm/kanzi"
	"github.com/tarnhelm/kanzi/internal"
)

func TestCompressedStream(b *testing.T) {
	fmt.Println("Correctness Test")
	values := make([]byte, 65536<<6)
	incompressible := make([]byte, 65536<<6)
	sum := 0

	for test := 1; test <= 20; test++ {
		length := 65536 << uint(test%7)
		fmt.Printf("\nIteration %v\n", test)

		for i := range values {
			values[i] = byte(rand.Intn(4*test + 1))
			incompressible[i] = byte(rand.Intn(256))
		}

		if res := compress(values[0:length], "HUFFMAN", "LZ"); res == 0 {
			fmt.Println("Success")
		} else {
			fmt.Printf("Failure %v\n", res)
			sum += res
			break
		}

		if res := compress(values[0:length], "NONE", "ROLZ"); res == 0 {
			fmt.Println("Success")
		} else {
			fmt.Printf("Failure %v\n", res)
			sum += res
			break
		}

		if res := compress(values[0:length], "FPAQ", "BWT"); res == 0 {
			fmt.Println("Success")
		} else {
			fmt.Printf("Failure %v\n", res)
			sum += res
			break
		}

		if res := compress(incompressible[0:length], "HUFFMAN", "LZ"); res == 0 {
			fmt.Println("Success")
		} else {
			fmt.Printf("Failure %v\n", res)
			sum += res
		}
	}

	if res := compressAfterWriteClose(values[0:65536]); res == 0 {
		fmt.Println("Success")
	} else {
		fmt.Println("Failure")
		sum += res
	}

	if res := compressAfterReadClose(values[0:65536]); res == 0 {
		fmt.Println("Success")
	} else {
		fmt.Printf("Failure %v\n", res)
		sum += res
	}

	fmt.Println()

	if sum != 0 {
		b.Error()
	}
}

func compress(block []byte, entropy, transform string) int {
	jobs := uint(rand.Intn(4) + 1)
	var blockSize uint

	if n := rand.Intn(3); n == 1 {
		blockSize = uint(len(block))
	} else {
		blockSize = uint((len(block) / (n + 1)) & -16)
	}

	fmt.Printf("Block size: %v, jobs: %v \n", blockSize, jobs)

	{
		// Create an io.WriteCloser
		outputName := filepath.Join(os.TempDir(), "compressed.knz")
		output, err := os.Create(outputName)

		if err != nil {
			fmt.Printf("%v\n", err)
			return 1
		}

		// Create a Writer
		w, err2 := NewCompressedOutputStream(output, entropy, transform, blockSize, jobs, 32)

		if err2 != nil {
			fmt.Printf("%v\n", err2)
			return 2
		}

		// Compress block
		_, err = w.Write(block)

		if err != nil {
			fmt.Printf("%v\n", err)
			return 3
		}

		// Close Writer
		err = w.Close()

		if err != nil {
			fmt.Printf("%v\n", err)
			return 4
		}
	}

	{
		// Create an io.ReadCloser
		inputName := filepath.Join(os.TempDir(), "compressed.knz")
		input, err := os.Open(inputName)

		if err != nil {
			fmt.Printf("%v\n", err)
			return 5
		}

		// Create a Reader
		r, err2 := NewCompressedInputStream(input, 4)

		if err2 != nil {
			fmt.Printf("%v\n", err2)
			return 6
		}

		// Decompress block
		_, err = r.Read(block)

		if err != nil {
			fmt.Printf("%v\n", err)
			return 7
		}

		// Close Reader
		err = r.Close()

		if err != nil {
			fmt.Printf("%v\n", err)
			return 8
		}
	}

	// If we made it until here, the roundtrip is valid.
	// The checksum verification guarantees that the data
	// has been decompressed correctly.
	return 0
}

func TestEmptyInput(t *testing.T) {
	bs := internal.NewBufferStream()
	w, err := NewCompressedOutputStream(bs, "HUFFMAN", "DNA+LZ", 65536, 1, 0)

	if err != nil {
		t.Fatalf("Cannot create compressed stream: %v", err)
	}

	if err = w.Close(); err != nil {
		t.Fatalf("Error closing empty stream: %v", err)
	}

	r, err := NewCompressedInputStream(bs, 1)

	if err != nil {
		t.Fatalf("Cannot create decompression stream: %v", err)
	}

	block := make([]byte, 1024)
	n, err := r.Read(block)

	if n != 0 || err != io.EOF {
		t.Fatalf("Expected empty stream to decode to EOF, got n=%v, err=%v", n, err)
	}

	if err = r.Close(); err != nil {
		t.Fatalf("Error closing decompression stream: %v", err)
	}
}

func TestSingleByteInput(t *testing.T) {
	bs := internal.NewBufferStream()
	w, err := NewCompressedOutputStream(bs, "NONE", "NONE", 1024, 1, 0)

	if err != nil {
		t.Fatalf("Cannot create compressed stream: %v", err)
	}

	if _, err = w.Write([]byte{0x41}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err = w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewCompressedInputStream(bs, 1)

	if err != nil {
		t.Fatalf("Cannot create decompression stream: %v", err)
	}

	block := make([]byte, 16)
	n, err := r.Read(block)

	if err != nil && err != io.EOF {
		t.Fatalf("Read failed: %v", err)
	}

	if n != 1 || block[0] != 0x41 {
		t.Fatalf("Expected to decode [0x41], got %v bytes (first=%x)", n, block[0])
	}
}

func TestBlockRangeExtraction(t *testing.T) {
	const blkSize = 1024
	const nbBlocks = 10
	data := make([]byte, blkSize*nbBlocks)

	for i := range data {
		data[i] = byte(i / blkSize) // each block filled with its 0-based index
	}

	bs := internal.NewBufferStream()
	w, err := NewCompressedOutputStream(bs, "HUFFMAN", "LZ", blkSize, 1, 32)

	if err != nil {
		t.Fatalf("Cannot create compressed stream: %v", err)
	}

	if _, err = w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err = w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := make(map[string]interface{})
	ctx["jobs"] = uint(2)
	ctx["from"] = 3
	ctx["to"] = 5
	r, err := NewCompressedInputStreamWithCtx(bs, ctx)

	if err != nil {
		t.Fatalf("Cannot create decompression stream: %v", err)
	}

	decoded := make([]byte, 0, 2*blkSize)
	buf := make([]byte, blkSize)

	for {
		n, err := r.Read(buf)
		decoded = append(decoded, buf[0:n]...)

		if err == io.EOF {
			break
		}

		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}

		if n == 0 {
			break
		}
	}

	// Blocks 3 and 4 (1-based) only
	if len(decoded) != 2*blkSize {
		t.Fatalf("Expected %v bytes from block range [3,5), got %v", 2*blkSize, len(decoded))
	}

	for i, b := range decoded {
		if want := byte(2 + i/blkSize); b != want {
			t.Fatalf("Wrong data at offset %v: expected %v, got %v", i, want, b)
		}
	}
}

func TestCorruptedPayload(t *testing.T) {
	data := make([]byte, 8192)
	pattern := []byte("Hello, World!")

	for i := range data {
		data[i] = pattern[i%len(pattern)]
	}

	bs := internal.NewBufferStream()
	w, err := NewCompressedOutputStream(bs, "NONE", "NONE", 8192, 1, 32)

	if err != nil {
		t.Fatalf("Cannot create compressed stream: %v", err)
	}

	if _, err = w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err = w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Re-serialize with one bit flipped inside the block payload
	compressed := make([]byte, bs.Len())

	if _, err = bs.Read(compressed); err != nil {
		t.Fatalf("Cannot read compressed bytes: %v", err)
	}

	compressed[len(compressed)-64] ^= 0x10
	bs2 := internal.NewBufferStream(compressed)
	r, err := NewCompressedInputStream(bs2, 1)

	if err != nil {
		t.Fatalf("Cannot create decompression stream: %v", err)
	}

	block := make([]byte, len(data))
	n, err := r.Read(block)

	if err == nil {
		t.Fatalf("Expected a checksum error, got none (read %v bytes)", n)
	}

	ioerr, isIOErr := err.(*IOError)

	if isIOErr == false || ioerr.ErrorCode() != kanzi.ERR_CRC_CHECK {
		t.Fatalf("Expected block checksum mismatch, got %v", err)
	}

	if n != 0 {
		t.Fatalf("Corrupted block leaked %v bytes to the consumer", n)
	}
}

func TestCorruptedHeader(t *testing.T) {
	bs := internal.NewBufferStream()
	w, err := NewCompressedOutputStream(bs, "HUFFMAN", "LZ", 1024, 1, 0)

	if err != nil {
		t.Fatalf("Cannot create compressed stream: %v", err)
	}

	if _, err = w.Write(make([]byte, 4096)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err = w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	compressed := make([]byte, bs.Len())

	if _, err = bs.Read(compressed); err != nil {
		t.Fatalf("Cannot read compressed bytes: %v", err)
	}

	// Byte 10 sits inside the transform descriptor field
	compressed[10] ^= 0x01
	bs2 := internal.NewBufferStream(compressed)
	r, err := NewCompressedInputStream(bs2, 1)

	if err != nil {
		t.Fatalf("Cannot create decompression stream: %v", err)
	}

	if _, err = r.Read(make([]byte, 4096)); err == nil {
		t.Fatal("Expected decoding of a stream with corrupted header to fail")
	}
}

func compressAfterWriteClose(block []byte) int {
	fmt.Println("Test - write after close")
	buf := make([]byte, len(block))
	copy(buf, block)
	bs := internal.NewBufferStream()

	os, err := NewCompressedOutputStream(bs, "HUFFMAN", "NONE", uint(len(block)), 1, 0)

	if err != nil {
		fmt.Printf("%v\n", err)
		return 1
	}

	_, err = os.Write(block)

	if err != nil {
		fmt.Printf("%v\n", err)
		return 2
	}

	if err = os.Close(); err != nil {
		fmt.Printf("%v\n", err)
		return 3
	}

	_, err = os.Write(block)

	if err != nil {
		fmt.Printf("OK - expected error: %v\n", err)
		return 0
	}

	return 4
}

func compressAfterReadClose(block []byte) int {
	fmt.Println("Test - read after close")
	bs := internal.NewBufferStream()

	os, err := NewCompressedOutputStream(bs, "NONE", "NONE", uint(len(block)), 1, 0)

	if err != nil {
		fmt.Printf("%v\n", err)
		return 1
	}

	_, err = os.Write(block)

	if err != nil {
		fmt.Printf("%v\n", err)
		return 2
	}

	if err = os.Close(); err != nil {
		fmt.Printf("%v\n", err)
		return 3
	}

	is, err := NewCompressedInputStream(bs, 1)

	if err != nil {
		fmt.Printf("%v\n", err)
		return 4
	}

	_, err = is.Read(block)

	if err != nil {
		fmt.Printf("%v\n", err)
		return 5
	}

	if err = is.Close(); err != nil {
		fmt.Printf("%v\n", err)
		return 6
	}

	_, err = is.Read(block)

	if err != nil {
		fmt.Printf("OK - expected error: %v\n", err)
		return 0
	}

	return 7
}
