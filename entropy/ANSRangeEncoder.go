/*
Copyright 2011-2022 Frederic Langlet
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
	"errors"
	"fmt"

	kanzi "github.com/tarnhelm/kanzi"
	"github.com/tarnhelm/kanzi/internal"
)

// ANSRangeEncoder is an Asymmetric Numeral System encoder, order 0 or 1.
type ANSRangeEncoder struct {
	bitstream kanzi.OutputBitStream
	freqs     []int
	symbols   []encSymbol
	buffer    []byte
	chunkSize int
	order     uint
	logRange  uint
}

func newANSRangeEncoder(bs kanzi.OutputBitStream, order uint, chkSize uint, logRange uint) *ANSRangeEncoder {
	dim := int(255*order + 1)

	return &ANSRangeEncoder{
		bitstream: bs,
		order:     order,
		freqs:     make([]int, dim*257), // freqs[x][256] = total(freqs[x][0..255])
		symbols:   make([]encSymbol, dim*256),
		buffer:    make([]byte, 0),
		logRange:  logRange,
		chunkSize: int(chkSize),
	}
}

// NewANSRangeEncoder creates an instance of ANS encoder.
// The chunk size indicates how many bytes are encoded (per block) before
// resetting the frequency stats.
// Since the number of args is variable, this function can be called like this:
// NewANSRangeEncoder(bs) or NewANSRangeEncoder(bs, 0, 16384, 12)
// Arguments are order, chunk size and log range; the chunk size must be in
// [1024, 1<<27].
func NewANSRangeEncoder(bs kanzi.OutputBitStream, args ...uint) (*ANSRangeEncoder, error) {
	if bs == nil {
		return nil, errors.New("ANS codec: Invalid null bitstream parameter")
	}

	if len(args) > 3 {
		return nil, errors.New("ANS codec: At most order, chunk size and log range can be provided")
	}

	chkSize := _DEFAULT_ANS0_CHUNK_SIZE
	logRange := _DEFAULT_ANS_LOG_RANGE
	order := uint(0)

	if len(args) > 0 {
		order = args[0]

		if len(args) > 1 {
			chkSize = args[1]

			if len(args) > 2 {
				logRange = args[2]
			}
		}

		if order != 0 && order != 1 {
			return nil, errors.New("ANS codec: The order must be 0 or 1")
		}

		if chkSize < _ANS_MIN_CHUNK_SIZE {
			return nil, fmt.Errorf("ANS codec: The chunk size must be at least %d", _ANS_MIN_CHUNK_SIZE)
		}

		if chkSize > _ANS_MAX_CHUNK_SIZE {
			return nil, fmt.Errorf("ANS codec: The chunk size must be at most %d", _ANS_MAX_CHUNK_SIZE)
		}

		if logRange < 8 || logRange > 16 {
			return nil, fmt.Errorf("ANS codec: Invalid range: %d (must be in [8..16])", logRange)
		}

		if order == 1 {
			chkSize <<= 8

			if chkSize > _ANS_MAX_CHUNK_SIZE {
				chkSize = _ANS_MAX_CHUNK_SIZE
			}
		}
	}

	return newANSRangeEncoder(bs, order, chkSize, logRange-order), nil
}

// NewANSRangeEncoderWithCtx creates a new instance of ANSRangeEncoder providing a
// context map.
func NewANSRangeEncoderWithCtx(bs kanzi.OutputBitStream, order uint, ctx *map[string]interface{}) (*ANSRangeEncoder, error) {
	if bs == nil {
		return nil, errors.New("ANS codec: Invalid null bitstream parameter")
	}

	if order != 0 && order != 1 {
		return nil, errors.New("ANS codec: The order must be 0 or 1")
	}

	chkSize := _DEFAULT_ANS0_CHUNK_SIZE

	if order == 1 {
		chkSize <<= 8
	}

	return newANSRangeEncoder(bs, order, chkSize, _DEFAULT_ANS_LOG_RANGE), nil
}

// updateFrequencies computes cumulated frequencies per context and writes
// the header (alphabet + frequencies) for each one to the bitstream.
func (e *ANSRangeEncoder) updateFrequencies(frequencies []int, lr uint) (int, error) {
	res := 0
	endk := int(255*e.order + 1)
	e.bitstream.WriteBits(uint64(lr-8), 3) // logRange
	var alphabet [256]int
	var err error

	for k := 0; k < endk; k++ {
		f := frequencies[257*k : 257*(k+1)]
		symb := e.symbols[k<<8 : (k+1)<<8]
		var alphabetSize int

		if alphabetSize, err = NormalizeFrequencies(f, alphabet[:], f[256], 1<<lr); err != nil {
			break
		}

		if alphabetSize > 0 {
			sum := 0

			for i := 0; i < 256; i++ {
				if f[i] == 0 {
					continue
				}

				symb[i].reset(sum, f[i], lr)
				sum += f[i]
			}
		}

		if err = e.encodeHeader(alphabetSize, alphabet[:], f, lr); err != nil {
			break
		}

		res += alphabetSize
	}

	return res, err
}

// encodeHeader encodes the alphabet and, for each alphabet entry but the
// first (which is inferred by the decoder), its frequency minus one, in
// chunks sized by ansFrequencyChunkStep and field-widthed by the per-chunk
// max frequency.
func (e *ANSRangeEncoder) encodeHeader(alphabetSize int, alphabet []int, frequencies []int, lr uint) error {
	if _, err := EncodeAlphabet(e.bitstream, alphabet[0:alphabetSize:256]); err != nil {
		return err
	}

	if alphabetSize == 0 {
		return nil
	}

	chkSize := ansFrequencyChunkStep(alphabetSize)
	llr := ansLogMaxFieldWidth(lr)

	for i := 1; i < alphabetSize; i += chkSize {
		endj := i + chkSize

		if endj > alphabetSize {
			endj = alphabetSize
		}

		max := frequencies[alphabet[i]] - 1

		// Search for max frequency log size in next chunk
		for j := i + 1; j < endj; j++ {
			if frequencies[alphabet[j]]-1 > max {
				max = frequencies[alphabet[j]] - 1
			}
		}

		logMax := uint(0)

		for 1<<logMax <= max {
			logMax++
		}

		e.bitstream.WriteBits(uint64(logMax), llr)

		if logMax == 0 {
			// all frequencies equal one in this chunk
			continue
		}

		for j := i; j < endj; j++ {
			e.bitstream.WriteBits(uint64(frequencies[alphabet[j]]-1), logMax)
		}
	}

	return nil
}

// Write dynamically computes the frequencies for every chunk of data in the
// block and encodes each chunk of the block sequentially.
func (e *ANSRangeEncoder) Write(block []byte) (int, error) {
	if block == nil {
		return 0, errors.New("Invalid null block parameter")
	}

	if len(block) == 0 {
		return 0, nil
	}

	for i := range e.symbols {
		e.symbols[i] = encSymbol{}
	}

	e.growBuffer(2 * len(block))
	sizeChunk := e.chunkSize
	end := len(block)
	startChunk := 0

	for startChunk < end {
		endChunk := startChunk + sizeChunk

		if endChunk >= end {
			endChunk = end
			sizeChunk = endChunk - startChunk
		}

		alphabetSize, err := e.rebuildStatistics(block[startChunk:endChunk], e.logRange)

		if err != nil {
			return end, err
		}

		if e.order == 1 || alphabetSize > 1 {
			e.encodeChunk(block[startChunk:endChunk])
		}

		startChunk = endChunk
	}

	return end, nil
}

// growBuffer sizes e.buffer for up to hint bytes of chunk payload, capped
// at e.chunkSize+e.chunkSize/8 and then raised to at least 65536.
func (e *ANSRangeEncoder) growBuffer(hint int) {
	size := hint
	maxSize := e.chunkSize + (e.chunkSize >> 3)

	if size > maxSize {
		size = maxSize
	}

	if size < 65536 {
		size = 65536
	}

	if len(e.buffer) < size {
		e.buffer = make([]byte, size)
	}
}

func (e *ANSRangeEncoder) encodeSymbol(n int, st *int, sym encSymbol) int {
	if *st >= sym.xMax {
		e.buffer[n] = byte(*st)
		e.buffer[n-1] = byte(*st >> 8)
		*st >>= 16
		n -= 2
	}

	*st = *st + sym.bias + int((uint64(*st)*sym.invFreq)>>sym.invShift)*sym.cmplFreq
	return n
}

func (e *ANSRangeEncoder) encodeChunk(block []byte) {
	st0, st1, st2, st3 := _ANS_TOP, _ANS_TOP, _ANS_TOP, _ANS_TOP
	n := len(e.buffer) - 1
	end4 := len(block) & -4

	for i := len(block) - 1; i >= end4; i-- {
		e.buffer[n] = block[i]
		n--
	}

	if e.order == 0 {
		symb := e.symbols[0:256]

		for i := end4 - 1; i > 0; i -= 4 {
			n = e.encodeSymbol(n, &st0, symb[block[i]])
			n = e.encodeSymbol(n, &st1, symb[block[i-1]])
			n = e.encodeSymbol(n, &st2, symb[block[i-2]])
			n = e.encodeSymbol(n, &st3, symb[block[i-3]])
		}
	} else { // order 1
		quarter := end4 >> 2
		i0 := 1*quarter - 2
		i1 := 2*quarter - 2
		i2 := 3*quarter - 2
		i3 := end4 - 2
		prv0 := int(block[i0+1])
		prv1 := int(block[i1+1])
		prv2 := int(block[i2+1])
		prv3 := int(block[i3+1])

		for i0 >= 0 {
			cur0 := int(block[i0])
			n = e.encodeSymbol(n, &st0, e.symbols[(cur0<<8)|prv0])
			cur1 := int(block[i1])
			n = e.encodeSymbol(n, &st1, e.symbols[(cur1<<8)|prv1])
			cur2 := int(block[i2])
			n = e.encodeSymbol(n, &st2, e.symbols[(cur2<<8)|prv2])
			cur3 := int(block[i3])
			n = e.encodeSymbol(n, &st3, e.symbols[(cur3<<8)|prv3])
			prv0, prv1, prv2, prv3 = cur0, cur1, cur2, cur3
			i0--
			i1--
			i2--
			i3--
		}

		// Last symbols
		n = e.encodeSymbol(n, &st0, e.symbols[prv0])
		n = e.encodeSymbol(n, &st1, e.symbols[prv1])
		n = e.encodeSymbol(n, &st2, e.symbols[prv2])
		n = e.encodeSymbol(n, &st3, e.symbols[prv3])
	}

	n++

	// Write chunk size
	WriteVarInt(e.bitstream, uint32(len(e.buffer)-n))

	// Write final ANS state
	e.bitstream.WriteBits(uint64(st0), 32)
	e.bitstream.WriteBits(uint64(st1), 32)
	e.bitstream.WriteBits(uint64(st2), 32)
	e.bitstream.WriteBits(uint64(st3), 32)

	if len(e.buffer) != n {
		// Write encoded data to bitstream
		e.bitstream.WriteArray(e.buffer[n:], 8*uint(len(e.buffer)-n))
	}
}

// rebuildStatistics computes chunk frequencies, derives cumulated
// frequencies and writes the chunk header.
func (e *ANSRangeEncoder) rebuildStatistics(block []byte, lr uint) (int, error) {
	for i := range e.freqs {
		e.freqs[i] = 0
	}

	if e.order == 0 {
		internal.ComputeHistogram(block, e.freqs, true, true)
	} else {
		quarter := len(block) >> 2
		internal.ComputeHistogram(block[0*quarter:1*quarter], e.freqs, false, true)
		internal.ComputeHistogram(block[1*quarter:2*quarter], e.freqs, false, true)
		internal.ComputeHistogram(block[2*quarter:3*quarter], e.freqs, false, true)
		internal.ComputeHistogram(block[3*quarter:4*quarter], e.freqs, false, true)
	}

	return e.updateFrequencies(e.freqs, lr)
}

// Dispose implements ByteEncoder; this encoder holds no resource to release.
func (e *ANSRangeEncoder) Dispose() {
}

// BitStream returns the underlying bitstream.
func (e *ANSRangeEncoder) BitStream() kanzi.OutputBitStream {
	return e.bitstream
}
