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

package entropy

import (
	"encoding/binary"
	"errors"
	"fmt"

	kanzi "github.com/tarnhelm/kanzi"
)

// HuffmanDecoder is a static Huffman decoder using lookup tables to decode
// symbols.
type HuffmanDecoder struct {
	bitstream     kanzi.InputBitStream
	codes         [256]uint16
	alphabet      [256]int
	sizes         [256]byte
	buffer        []byte
	table         []uint16 // decoding table: code -> size, symbol
	chunkSize     int
	isBsVersion3  bool
	maxSymbolSize int
}

// NewHuffmanDecoder creates an instance of HuffmanDecoder.
// Since the number of args is variable, this function can be called like this:
// NewHuffmanDecoder(bs) or NewHuffmanDecoder(bs, 16384) (the second argument
// being the chunk size)
func NewHuffmanDecoder(bs kanzi.InputBitStream, args ...uint) (*HuffmanDecoder, error) {
	if bs == nil {
		return nil, errors.New("Huffman codec: Invalid null bitstream parameter")
	}

	chkSize, err := huffmanChunkSize(args)

	if err != nil {
		return nil, err
	}

	d := &HuffmanDecoder{
		bitstream:     bs,
		isBsVersion3:  false,
		maxSymbolSize: _HUF_MAX_SYMBOL_SIZE_V4,
		chunkSize:     int(chkSize),
		buffer:        make([]byte, 0),
	}

	d.table = make([]uint16, 1<<d.maxSymbolSize)
	d.resetDefaultCodes()
	return d, nil
}

// NewHuffmanDecoderWithCtx creates an instance of HuffmanDecoder providing a
// context map.
func NewHuffmanDecoderWithCtx(bs kanzi.InputBitStream, ctx *map[string]any) (*HuffmanDecoder, error) {
	if bs == nil {
		return nil, errors.New("Huffman codec: Invalid null bitstream parameter")
	}

	bsVersion := uint(4)

	if ctx != nil {
		if val, containsKey := (*ctx)["bsVersion"]; containsKey {
			bsVersion = val.(uint)
		}
	}

	d := &HuffmanDecoder{bitstream: bs, isBsVersion3: bsVersion < 4}
	d.maxSymbolSize = _HUF_MAX_SYMBOL_SIZE_V4

	if d.isBsVersion3 {
		d.maxSymbolSize = _HUF_MAX_SYMBOL_SIZE_V3
	}

	d.table = make([]uint16, 1<<d.maxSymbolSize)
	d.chunkSize = int(_HUF_MAX_CHUNK_SIZE)
	d.buffer = make([]byte, 0)
	d.resetDefaultCodes()
	return d, nil
}

// resetDefaultCodes seeds sizes/codes with the identity mapping used before
// the first chunk's real lengths are read.
func (d *HuffmanDecoder) resetDefaultCodes() {
	for i := 0; i < 256; i++ {
		d.sizes[i] = 8
		d.codes[i] = uint16(i)
	}
}

// readLengths decodes the code lengths from the bitstream and generates
// the Huffman codes for decoding.
func (d *HuffmanDecoder) readLengths() (int, error) {
	count, err := DecodeAlphabet(d.bitstream, d.alphabet[:])

	if count == 0 || err != nil {
		return count, err
	}

	egdec, err := NewRiceGolombDecoder(d.bitstream, true, 1)

	if err != nil {
		return 0, err
	}

	curSize := int8(2)
	symbols := d.alphabet[0:count]

	// Decode lengths
	for _, s := range symbols {
		if s > 255 {
			return 0, fmt.Errorf("Invalid bitstream: incorrect Huffman symbol %d", s)
		}

		d.codes[s] = 0
		curSize += int8(egdec.DecodeByte())

		if curSize <= 0 || curSize > int8(d.maxSymbolSize) {
			return 0, fmt.Errorf("Invalid bitstream: incorrect size %d for Huffman symbol %d", curSize, s)
		}

		d.sizes[s] = byte(curSize)
	}

	if _, err := generateCanonicalCodes(d.sizes[:], d.codes[:], symbols, d.maxSymbolSize); err != nil {
		return count, err
	}

	egdec.Dispose()
	return count, nil
}

// buildDecodingTable fills the code -> (size, symbol) lookup table.
// max(CodeLen) must be <= d.maxSymbolSize.
func (d *HuffmanDecoder) buildDecodingTable(count int) {
	for i := range d.table {
		d.table[i] = 0
	}

	length := 0
	shift := d.maxSymbolSize
	symbols := d.alphabet[0:count]

	for _, s := range symbols {
		if d.sizes[s] > byte(length) {
			length = int(d.sizes[s])
		}

		// code -> size, symbol
		val := (uint16(s) << 8) | uint16(d.sizes[s])
		code := d.codes[s]

		// All maxSymbolSize bit values read from the bit stream and
		// starting with the same prefix point to symbol s
		idx := code << (shift - length)
		end := idx + (1 << (shift - length))
		t := d.table[idx:end]

		for j := range t {
			t[j] = val
		}
	}
}

// Read decodes data from the bitstream and return it in the provided buffer.
// Return the number of bytes read from the bitstream
func (d *HuffmanDecoder) Read(block []byte) (int, error) {
	if block == nil {
		return 0, errors.New("Huffman codec: Invalid null block parameter")
	}

	if len(block) == 0 {
		return 0, nil
	}

	end := len(block)
	startChunk := 0

	for startChunk < end {
		endChunk := startChunk + d.chunkSize

		if endChunk > end {
			endChunk = end
		}

		// For each chunk, read code lengths, rebuild codes, rebuild decoding table
		alphabetSize, err := d.readLengths()

		if alphabetSize == 0 || err != nil {
			return startChunk, err
		}

		if alphabetSize == 1 {
			// Shortcut for chunks with only one symbol
			for i := startChunk; i < endChunk; i++ {
				block[i] = byte(d.alphabet[0])
			}

			startChunk = endChunk
			continue
		}

		d.buildDecodingTable(alphabetSize)

		if d.isBsVersion3 {
			d.decodeChunkV3(block, startChunk, endChunk)
		} else if err := d.decodeChunkV4(block, startChunk, endChunk); err != nil {
			return startChunk, err
		}

		startChunk = endChunk
	}

	return len(block), nil
}

// decodeChunkV3 decodes a chunk written by a pre-v4 bitstream encoder: two
// symbols at a time via the fast path, falling back to bit-by-bit decoding
// for the tail too short to guarantee 64 buffered bits.
func (d *HuffmanDecoder) decodeChunkV3(block []byte, startChunk, endChunk int) {
	minCodeLen := int(d.sizes[d.alphabet[0]]) // not 0
	padding := 64 / minCodeLen

	if minCodeLen*padding != 64 {
		padding++
	}

	endChunk2 := startChunk
	szChunk := endChunk - startChunk - padding

	if szChunk > 0 {
		endChunk2 += (szChunk & -2)
	}

	bits := byte(0)
	st := uint64(0)

	for i := startChunk; i < endChunk2; i += 2 {
		if bits < 32 {
			st = (st << 32) | d.bitstream.ReadBits(32)
			bits += 32
		}

		val0 := d.table[int(st>>(bits-_HUF_MAX_SYMBOL_SIZE_V3))&_HUF_DECODING_MASK_V3]
		bits -= byte(val0)
		val1 := d.table[int(st>>(bits-_HUF_MAX_SYMBOL_SIZE_V3))&_HUF_DECODING_MASK_V3]
		bits -= byte(val1)
		block[i] = byte(val0 >> 8)
		block[i+1] = byte(val1 >> 8)
	}

	// Fallback to slow decoding
	for i := endChunk2; i < endChunk; i++ {
		code := 0
		codeLen := uint8(0)

		for {
			codeLen++

			if bits == 0 {
				code = (code << 1) | d.bitstream.ReadBit()
			} else {
				bits--
				code = (code << 1) | int((st>>bits)&1)
			}

			idx := code << (_HUF_MAX_SYMBOL_SIZE_V3 - codeLen)

			if uint8(d.table[idx]) == codeLen {
				block[i] = byte(d.table[idx] >> 8)
				break
			}

			if codeLen >= _HUF_MAX_SYMBOL_SIZE_V3 {
				panic(errors.New("Invalid bitstream: incorrect Huffman code"))
			}
		}
	}
}

// decodeChunkV4 decodes a chunk written by a v4+ bitstream encoder: the
// chunk is first read whole into d.buffer, then unpacked four symbols at a
// time via the fast path, falling back to one-at-a-time for the tail.
func (d *HuffmanDecoder) decodeChunkV4(block []byte, startChunk, endChunk int) error {
	// Read number of streams. Only 1 stream supported for now
	if d.bitstream.ReadBits(2) != 0 {
		return errors.New("Invalid Huffman data: number streams not supported in this version")
	}

	szBits := ReadVarInt(d.bitstream)

	if szBits == 0 {
		return nil
	}

	sz := int(szBits+7) >> 3
	minLenBuf := sz + (sz >> 3)

	if minLenBuf < 1024 {
		minLenBuf = 1024
	}

	if len(d.buffer) < int(minLenBuf) {
		d.buffer = make([]byte, minLenBuf)
	}

	d.bitstream.ReadArray(d.buffer, uint(szBits))
	state := uint64(0)
	bits := uint8(0)
	idx := 0
	n := startChunk

	for idx < sz-8 {
		shift := uint8((56 - bits) & 0xF8)
		state = (state << shift) | (binary.BigEndian.Uint64(d.buffer[idx:idx+8]) >> 1 >> (63 - shift)) // handle shift = 0
		idx += int(shift >> 3)
		bs := bits + shift - _HUF_MAX_SYMBOL_SIZE_V4
		val0 := d.table[(state>>bs)&_HUF_DECODING_MASK_V4]
		bs -= uint8(val0)
		val1 := d.table[(state>>bs)&_HUF_DECODING_MASK_V4]
		bs -= uint8(val1)
		val2 := d.table[(state>>bs)&_HUF_DECODING_MASK_V4]
		bs -= uint8(val2)
		val3 := d.table[(state>>bs)&_HUF_DECODING_MASK_V4]
		bs -= uint8(val3)
		bits = bs + _HUF_MAX_SYMBOL_SIZE_V4
		block[n+0] = byte(val0 >> 8)
		block[n+1] = byte(val1 >> 8)
		block[n+2] = byte(val2 >> 8)
		block[n+3] = byte(val3 >> 8)
		n += 4
	}

	// Last bytes
	nbBits := idx * 8

	for n < endChunk {
		for (bits < _HUF_MAX_SYMBOL_SIZE_V4) && (idx < sz) {
			state = (state << 8) | uint64(d.buffer[idx]&0xFF)
			idx++

			if idx == sz {
				nbBits = int(szBits)
			} else {
				nbBits += 8
			}

			// 'bits' may overshoot when idx == sz due to padding state bits
			// It is necessary to compute proper table indexes
			// and has no consequences (except bits != 0 at the end of chunk)
			bits += 8
		}

		var val uint16

		if bits >= _HUF_MAX_SYMBOL_SIZE_V4 {
			val = d.table[(state>>(bits-_HUF_MAX_SYMBOL_SIZE_V4))&_HUF_DECODING_MASK_V4]
		} else {
			val = d.table[(state<<(_HUF_MAX_SYMBOL_SIZE_V4-bits))&_HUF_DECODING_MASK_V4]
		}

		bits -= uint8(val)
		block[n] = byte(val >> 8)
		n++
	}

	return nil
}

// BitStream returns the underlying bitstream
func (d *HuffmanDecoder) BitStream() kanzi.InputBitStream {
	return d.bitstream
}

// Dispose this implementation does nothing
func (d *HuffmanDecoder) Dispose() {
}
