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
	"sort"

	kanzi "github.com/tarnhelm/kanzi"
	"github.com/tarnhelm/kanzi/internal"
)

// HuffmanEncoder is a static Huffman encoder using in-place generation of
// canonical codes instead of a tree.
type HuffmanEncoder struct {
	bitstream kanzi.OutputBitStream
	codes     [256]uint16
	buffer    []byte
	chunkSize int
}

// NewHuffmanEncoder creates an instance of HuffmanEncoder.
// Since the number of args is variable, this function can be called like this:
// NewHuffmanEncoder(bs) or NewHuffmanEncoder(bs, 16384) (the second argument
// being the chunk size)
func NewHuffmanEncoder(bs kanzi.OutputBitStream, args ...uint) (*HuffmanEncoder, error) {
	if bs == nil {
		return nil, errors.New("Huffman codec: Invalid null bitstream parameter")
	}

	chkSize, err := huffmanChunkSize(args)

	if err != nil {
		return nil, err
	}

	e := &HuffmanEncoder{bitstream: bs, chunkSize: int(chkSize)}

	// Default frequencies, sizes and codes
	for i := 0; i < 256; i++ {
		e.codes[i] = uint16(i)
	}

	return e, nil
}

// updateFrequencies rebuilds the Huffman codes for the given chunk
// frequencies, retrying with rescaled frequencies if the resulting code
// lengths overshoot the format's budget.
func (e *HuffmanEncoder) updateFrequencies(freqs []int) (int, error) {
	if freqs == nil || len(freqs) != 256 {
		return 0, errors.New("Huffman codec: Invalid frequencies parameter")
	}

	count := 0
	var sizes [256]byte
	var alphabet [256]int

	for i := range &e.codes {
		e.codes[i] = 0

		if freqs[i] > 0 {
			alphabet[count] = i
			count++
		}
	}

	symbols := alphabet[0:count]

	if _, err := EncodeAlphabet(e.bitstream, symbols); err != nil {
		return count, err
	}

	if count == 0 {
		return 0, nil
	}

	if count == 1 {
		e.codes[symbols[0]] = 1 << 12
		sizes[symbols[0]] = 1
	} else if err := e.generateMultiSymbolCodes(freqs, symbols, sizes[:], count); err != nil {
		return count, err
	}

	return count, e.transmitCodeLengths(symbols, sizes[:])
}

// generateMultiSymbolCodes computes code lengths for count >= 2 symbols,
// boosting the smallest frequencies and retrying whenever the max code
// length overshoots _HUF_MAX_SYMBOL_SIZE_V4.
func (e *HuffmanEncoder) generateMultiSymbolCodes(freqs []int, symbols []int, sizes []byte, count int) error {
	var ranks [256]int

	for retries := uint(0); ; retries++ {
		// Sort ranks by increasing freqs (first key) and increasing value (second key)
		for i := range symbols {
			ranks[i] = (freqs[symbols[i]] << 8) | symbols[i]
		}

		maxCodeLen, err := e.computeCodeLengths(sizes, ranks[0:count])

		if err != nil {
			return err
		}

		if maxCodeLen <= _HUF_MAX_SYMBOL_SIZE_V4 {
			// Usual case
			_, err := generateCanonicalCodes(sizes, e.codes[:], ranks[0:count], _HUF_MAX_SYMBOL_SIZE_V4)
			return err
		}

		// Sometimes, codes exceed the budget for the max code length => normalize
		// frequencies (boost the smallest frequencies) and try once more.
		if retries > 2 {
			return fmt.Errorf("Could not generate Huffman codes: max code length (%d bits) exceeded, ", _HUF_MAX_SYMBOL_SIZE_V4)
		}

		var f [256]int
		var alpha [256]int
		totalFreq := 0

		for i := range symbols {
			f[i] = freqs[symbols[i]]
			totalFreq += f[i]
		}

		// Normalize to a smaller scale
		if _, err := NormalizeFrequencies(f[:count], alpha[:count], totalFreq, int(_HUF_MAX_CHUNK_SIZE>>(retries+2))); err != nil {
			return err
		}

		for i := range symbols {
			freqs[symbols[i]] = f[i]
		}
	}
}

// transmitCodeLengths unary-encodes the differences between consecutive
// code lengths onto the bitstream; frequencies and codes do not matter to
// the decoder, only the lengths do.
func (e *HuffmanEncoder) transmitCodeLengths(symbols []int, sizes []byte) error {
	egenc, err := NewRiceGolombEncoder(e.bitstream, true, 1)

	if err != nil {
		return err
	}

	prevSize := byte(2)

	for _, s := range symbols {
		curSize := sizes[s]
		e.codes[s] |= (uint16(curSize) << 12)
		egenc.EncodeByte(curSize - prevSize)
		prevSize = curSize
	}

	egenc.Dispose()
	return nil
}

// computeCodeLengths derives minimum-redundancy code lengths for ranks
// (called only when len(ranks) >= 2), via the in-place algorithm described
// in "In-Place Calculation of Minimum-Redundancy Codes" by Alistair Moffat &
// Jyrki Katajainen.
func (e *HuffmanEncoder) computeCodeLengths(sizes []byte, ranks []int) (int, error) {
	var frequencies [256]int
	freqs := frequencies[0:len(ranks)]
	sort.Ints(ranks)

	for i := range ranks {
		freqs[i] = ranks[i] >> 8
		ranks[i] &= 0xFF

		if freqs[i] == 0 {
			return 0, errors.New("Could not generate Huffman codes: invalid code length 0")
		}
	}

	computeInPlaceSizesPhase1(freqs)
	maxCodeLen := computeInPlaceSizesPhase2(freqs)

	if maxCodeLen <= _HUF_MAX_SYMBOL_SIZE_V4 {
		for i := range freqs {
			sizes[ranks[i]] = byte(freqs[i])
		}
	}

	return maxCodeLen, nil
}

func computeInPlaceSizesPhase1(data []int) {
	n := len(data)

	for s, r, t := 0, 0, 0; t < n-1; t++ {
		sum := 0

		for i := 0; i < 2; i++ {
			if s >= n || (r < t && data[r] < data[s]) {
				sum += data[r]
				data[r] = t
				r++
				continue
			}

			sum += data[s]

			if s > t {
				data[s] = 0
			}

			s++
		}

		data[t] = sum
	}
}

// len(data) must be at least 2
func computeInPlaceSizesPhase2(data []int) int {
	if len(data) < 2 {
		return 0
	}

	levelTop := len(data) - 2 //root
	depth := 1
	i := len(data)
	totalNodesAtLevel := 2

	for i > 0 {
		k := levelTop

		for k > 0 && data[k-1] >= levelTop {
			k--
		}

		internalNodesAtLevel := levelTop - k
		leavesAtLevel := totalNodesAtLevel - internalNodesAtLevel

		for j := 0; j < leavesAtLevel; j++ {
			i--
			data[i] = depth
		}

		totalNodesAtLevel = internalNodesAtLevel << 1
		levelTop = k
		depth++
	}

	return depth - 1
}

// Write encodes the data provided into the bitstream. Return the number of byte
// written to the bitstream.  Dynamically compute the frequencies for every
// chunk of data in the block
func (e *HuffmanEncoder) Write(block []byte) (int, error) {
	if block == nil {
		return 0, errors.New("Huffman codec: Invalid null block parameter")
	}

	if len(block) == 0 {
		return 0, nil
	}

	end := len(block)
	startChunk := 0
	minBufLen := e.chunkSize + (e.chunkSize >> 3)

	if minBufLen > 2*len(block) {
		minBufLen = 2 * len(block)
	}

	if minBufLen < 65536 {
		minBufLen = 65536
	}

	if len(e.buffer) < minBufLen {
		e.buffer = make([]byte, minBufLen)
	}

	for startChunk < end {
		endChunk := startChunk + e.chunkSize

		if endChunk > len(block) {
			endChunk = len(block)
		}

		var freqs [256]int
		internal.ComputeHistogram(block[startChunk:endChunk], freqs[:], true, false)
		count, err := e.updateFrequencies(freqs[:])

		if err != nil {
			return startChunk, err
		}

		if count <= 1 {
			// Skip chunk if only one symbol
			startChunk = endChunk
			continue
		}

		nbBits := e.encodeChunk(block, startChunk, endChunk)

		// Write number of streams (0->1, 1->4, 2->8, 3->32)
		e.bitstream.WriteBits(0, 2)

		// Write chunk size in bits
		WriteVarInt(e.bitstream, uint32(nbBits))

		// Write compressed data to the stream
		e.bitstream.WriteArray(e.buffer[0:], uint(nbBits))

		startChunk = endChunk
	}

	return len(block), nil
}

// encodeChunk packs one chunk's Huffman codes into e.buffer 4 symbols at a
// time, returning the number of bits written.
func (e *HuffmanEncoder) encodeChunk(block []byte, startChunk, endChunk int) int {
	endChunk4 := ((endChunk - startChunk) & -4) + startChunk
	c := e.codes
	idx := 0
	state := uint64(0)
	bits := 0 // number of accumulated bits

	for i := startChunk; i < endChunk4; i += 4 {
		var code uint16
		code = c[block[i]]
		codeLen0 := (c[block[i]] >> 12)
		state = (state << codeLen0) | uint64(code&0x0FFF)
		code = c[block[i+1]]
		codeLen1 := (code >> 12)
		state = (state << codeLen1) | uint64(code&0x0FFF)
		code = c[block[i+2]]
		codeLen2 := (code >> 12)
		state = (state << codeLen2) | uint64(code&0x0FFF)
		code = c[block[i+3]]
		codeLen3 := (code >> 12)
		state = (state << codeLen3) | uint64(code&0x0FFF)
		bits += int(codeLen0 + codeLen1 + codeLen2 + codeLen3)
		binary.BigEndian.PutUint64(e.buffer[idx:idx+8], state<<uint(64-bits))
		idx += (bits >> 3)
		bits &= 7
	}

	for i := endChunk4; i < endChunk; i++ {
		code := c[block[i]]
		codeLen := (code >> 12)
		state = (state << codeLen) | uint64(code&0x0FFF)
		bits += int(codeLen)
	}

	nbBits := (idx * 8) + bits

	for bits >= 8 {
		bits -= 8
		e.buffer[idx] = byte(state >> uint(bits))
		idx++
	}

	if bits > 0 {
		e.buffer[idx] = byte(state << uint(8-bits))
		idx++
	}

	return nbBits
}

// Dispose this implementation does nothing
func (e *HuffmanEncoder) Dispose() {
}

// BitStream returns the underlying bitstream
func (e *HuffmanEncoder) BitStream() kanzi.OutputBitStream {
	return e.bitstream
}
