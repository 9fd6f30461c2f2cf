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
)

// ANSRangeDecoder is an Asymmetric Numeral System decoder, order 0 or 1.
type ANSRangeDecoder struct {
	bitstream    kanzi.InputBitStream
	freqs        []int
	symbols      []decSymbol
	f2s          []byte // mapping frequency -> symbol
	buffer       []byte
	chunkSize    int
	logRange     uint
	order        uint
	isBsVersion1 bool
}

func newANSRangeDecoder(bs kanzi.InputBitStream, order uint, chkSize uint, isBsVersion1 bool) *ANSRangeDecoder {
	dim := int(255*order + 1)

	return &ANSRangeDecoder{
		bitstream:    bs,
		chunkSize:    int(chkSize),
		order:        order,
		freqs:        make([]int, dim*256),
		buffer:       make([]byte, 0),
		f2s:          make([]byte, 0),
		symbols:      make([]decSymbol, dim*256),
		isBsVersion1: isBsVersion1,
		logRange:     _DEFAULT_ANS_LOG_RANGE,
	}
}

// NewANSRangeDecoder creates an instance of ANS decoder.
// The chunk size indicates how many bytes are encoded (per block) before
// resetting the frequency stats.
// Since the number of args is variable, this function can be called like this:
// NewANSRangeDecoder(bs) or NewANSRangeDecoder(bs, 0, 16384, 12)
// Arguments are order and chunk size; the chunk size must be in [1024, 1<<27].
func NewANSRangeDecoder(bs kanzi.InputBitStream, args ...uint) (*ANSRangeDecoder, error) {
	if bs == nil {
		return nil, errors.New("ANS codec: Invalid null bitstream parameter")
	}

	if len(args) > 3 {
		return nil, errors.New("ANS codec: At most order, chunk size and bitstream version can be provided")
	}

	chkSize := _DEFAULT_ANS0_CHUNK_SIZE
	order := uint(0)

	if len(args) > 0 {
		order = args[0]

		if len(args) > 1 {
			chkSize = args[1]
		}

		if chkSize < _ANS_MIN_CHUNK_SIZE {
			return nil, fmt.Errorf("ANS codec: The chunk size must be at least %d", _ANS_MIN_CHUNK_SIZE)
		}

		if chkSize > _ANS_MAX_CHUNK_SIZE {
			return nil, fmt.Errorf("ANS codec: The chunk size must be at most %d", _ANS_MAX_CHUNK_SIZE)
		}

		if order != 0 && order != 1 {
			return nil, errors.New("ANS codec: The order must be 0 or 1")
		}

		if order == 1 {
			chkSize <<= 8

			if chkSize > _ANS_MAX_CHUNK_SIZE {
				chkSize = _ANS_MAX_CHUNK_SIZE
			}
		}
	}

	return newANSRangeDecoder(bs, order, chkSize, false), nil
}

// NewANSRangeDecoderWithCtx creates a new instance of ANSRangeDecoder providing a
// context map.
func NewANSRangeDecoderWithCtx(bs kanzi.InputBitStream, order uint, ctx *map[string]interface{}) (*ANSRangeDecoder, error) {
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

	bsVersion := uint(2)

	if ctx != nil {
		if val, containsKey := (*ctx)["bsVersion"]; containsKey {
			bsVersion = val.(uint)
		}
	}

	return newANSRangeDecoder(bs, order, chkSize, bsVersion == 1), nil
}

// decodeHeader decodes the alphabet and frequencies for each context from
// the bitstream and rebuilds the f2s (frequency-slot -> symbol) mapping the
// chunk decoders use to look a symbol up from the running ANS state.
func (d *ANSRangeDecoder) decodeHeader(frequencies, alphabet []int) (int, error) {
	d.logRange = uint(8 + d.bitstream.ReadBits(3))

	if d.logRange < 8 || d.logRange > 16 {
		return 0, fmt.Errorf("Invalid bitstream: range = %d (must be in [8..16])", d.logRange)
	}

	res := 0
	dim := int(255*d.order + 1)
	scale := 1 << d.logRange

	if len(d.f2s) < dim*scale {
		d.f2s = make([]byte, dim*scale)
	}

	for k := 0; k < dim; k++ {
		f := frequencies[k<<8 : (k+1)<<8]
		alphabetSize, err := DecodeAlphabet(d.bitstream, alphabet)

		if err != nil {
			return alphabetSize, err
		}

		if alphabetSize == 0 {
			continue
		}

		if err := d.decodeFrequencies(f, alphabet, alphabetSize, scale); err != nil {
			return alphabetSize, err
		}

		sum := 0
		symb := d.symbols[k<<8 : (k+1)<<8]
		freq2sym := d.f2s[k<<d.logRange : (k+1)<<d.logRange]

		// Create reverse mapping
		for i := range f {
			if f[i] == 0 {
				continue
			}

			for j := f[i] - 1; j >= 0; j-- {
				freq2sym[sum+j] = byte(i)
			}

			symb[i].reset(sum, f[i], d.logRange)
			sum += f[i]
		}

		res += alphabetSize
	}

	return res, nil
}

// decodeFrequencies reads the per-symbol frequencies for one context,
// chunk by chunk, and infers the first alphabet entry's frequency from the
// scale / sum-of-the-rest invariant the encoder relies on.
func (d *ANSRangeDecoder) decodeFrequencies(f, alphabet []int, alphabetSize, scale int) error {
	if alphabetSize != 256 {
		for i := range f {
			f[i] = 0
		}
	}

	chkSize := ansFrequencyChunkStep(alphabetSize)
	llr := ansLogMaxFieldWidth(d.logRange)
	sum := 0

	for i := 1; i < alphabetSize; i += chkSize {
		logMax := uint(d.bitstream.ReadBits(llr))

		if 1<<logMax > scale {
			return fmt.Errorf("Invalid bitstream: incorrect frequency size %d in ANS range decoder", logMax)
		}

		endj := i + chkSize

		if endj > alphabetSize {
			endj = alphabetSize
		}

		for j := i; j < endj; j++ {
			freq := 1

			if logMax > 0 {
				freq = int(1 + d.bitstream.ReadBits(logMax))

				if freq <= 0 || freq >= scale {
					return fmt.Errorf("Invalid bitstream: incorrect frequency %d for symbol '%d' in ANS range decoder", freq, alphabet[j])
				}
			}

			f[alphabet[j]] = freq
			sum += freq
		}
	}

	if scale <= sum {
		return fmt.Errorf("Invalid bitstream: incorrect frequency %d for symbol '%d' in ANS range decoder", f[alphabet[0]], alphabet[0])
	}

	f[alphabet[0]] = scale - sum
	return nil
}

// Read decodes data from the bitstream and writes it, chunk by chunk, into
// block.
func (d *ANSRangeDecoder) Read(block []byte) (int, error) {
	if block == nil {
		return 0, errors.New("Invalid null block parameter")
	}

	if len(block) == 0 {
		return 0, nil
	}

	for i := range d.symbols {
		d.symbols[i] = decSymbol{}
	}

	sizeChunk := d.chunkSize
	end := len(block)
	startChunk := 0
	var alphabet [256]int

	for startChunk < end {
		endChunk := startChunk + sizeChunk

		if endChunk >= end {
			endChunk = end
			sizeChunk = end - startChunk
		}

		alphabetSize, err := d.decodeHeader(d.freqs, alphabet[:])

		if err != nil || alphabetSize == 0 {
			return startChunk, err
		}

		if d.order == 0 && alphabetSize == 1 {
			// Shortcut for chunks with only one symbol
			for i := startChunk; i < endChunk; i++ {
				block[i] = byte(alphabet[0])
			}
		} else if d.isBsVersion1 {
			d.decodeChunkV1(block[startChunk:endChunk])
		} else {
			d.decodeChunkV2(block[startChunk:endChunk])
		}

		startChunk = endChunk
	}

	return len(block), nil
}

// readChunkPayload reads sz encoded bytes into d.buffer, growing it as needed.
func (d *ANSRangeDecoder) readChunkPayload(sz uint32) {
	if sz == 0 {
		return
	}

	if len(d.buffer) < int(sz) {
		d.buffer = make([]byte, sz+(sz>>3))
	}

	d.bitstream.ReadArray(d.buffer[0:sz], uint(8*sz))
}

func (d *ANSRangeDecoder) decodeChunkV1(block []byte) {
	sz := ReadVarInt(d.bitstream) & (_ANS_MAX_CHUNK_SIZE - 1)
	st0 := int(d.bitstream.ReadBits(32))
	st1 := 0

	if d.order == 0 {
		st1 = int(d.bitstream.ReadBits(32))
	}

	d.readChunkPayload(sz)

	n := 0
	lr := d.logRange
	mask := (1 << lr) - 1

	if d.order == 0 {
		freq2sym := d.f2s[0 : mask+1]
		symb := d.symbols[0:256]
		end2 := (len(block) & -2) - 1

		for i := 0; i < end2; i += 2 {
			cur1 := freq2sym[st1&mask]
			block[i] = cur1
			sym1 := symb[cur1]
			cur0 := freq2sym[st0&mask]
			block[i+1] = cur0
			sym0 := symb[cur0]

			// Compute next ANS state
			// D(x) = (s, q_s (x/M) + mod(x,M) - b_s) where s is such b_s <= x mod M < b_{s+1}
			st1 = sym1.freq*(st1>>lr) + (st1 & mask) - sym1.cumFreq
			st0 = sym0.freq*(st0>>lr) + (st0 & mask) - sym0.cumFreq

			// Normalize
			for st1 < _ANS_TOP {
				st1 = (st1 << 8) | int(d.buffer[n])
				st1 = (st1 << 8) | int(d.buffer[n+1])
				n += 2
			}

			for st0 < _ANS_TOP {
				st0 = (st0 << 8) | int(d.buffer[n])
				st0 = (st0 << 8) | int(d.buffer[n+1])
				n += 2
			}
		}

		if len(block)&1 != 0 {
			block[len(block)-1] = d.buffer[sz-1]
		}
	} else { // order1
		prv := 0

		for i := range block {
			cur := d.f2s[(prv<<lr)|(st0&mask)]
			block[i] = cur
			sym := d.symbols[(prv<<8)|int(cur)]

			// Compute next ANS state
			st0 = sym.freq*(st0>>lr) + (st0 & mask) - sym.cumFreq

			// Normalize
			for st0 < _ANS_TOP {
				st0 = (st0 << 8) | int(d.buffer[n])
				st0 = (st0 << 8) | int(d.buffer[n+1])
				n += 2
			}

			prv = int(cur)
		}
	}
}

func (d *ANSRangeDecoder) decodeSymbol(n int, st *int, sym decSymbol, mask int) int {
	// Compute next ANS state
	// D(x) = (s, q_s (x/M) + mod(x,M) - b_s) where s is such b_s <= x mod M < b_{s+1}
	*st = sym.freq*(*st>>d.logRange) + (*st & mask) - sym.cumFreq

	// Normalize
	if *st < _ANS_TOP {
		*st = (*st << 8) | int(d.buffer[n])
		*st = (*st << 8) | int(d.buffer[n+1])
		n += 2
	}

	return n
}

func (d *ANSRangeDecoder) decodeChunkV2(block []byte) {
	sz := ReadVarInt(d.bitstream) & (_ANS_MAX_CHUNK_SIZE - 1)
	st0 := int(d.bitstream.ReadBits(32))
	st1 := int(d.bitstream.ReadBits(32))
	st2 := int(d.bitstream.ReadBits(32))
	st3 := int(d.bitstream.ReadBits(32))
	d.readChunkPayload(sz)

	n := 0
	lr := d.logRange
	mask := (1 << lr) - 1
	end4 := len(block) & -4

	if d.order == 0 {
		freq2sym := d.f2s[0 : mask+1]
		symb := d.symbols[0:256]

		for i := 0; i < end4; i += 4 {
			cur3 := freq2sym[st3&mask]
			block[i] = byte(cur3)
			n = d.decodeSymbol(n, &st3, symb[cur3], mask)
			cur2 := freq2sym[st2&mask]
			block[i+1] = byte(cur2)
			n = d.decodeSymbol(n, &st2, symb[cur2], mask)
			cur1 := freq2sym[st1&mask]
			block[i+2] = byte(cur1)
			n = d.decodeSymbol(n, &st1, symb[cur1], mask)
			cur0 := freq2sym[st0&mask]
			block[i+3] = byte(cur0)
			n = d.decodeSymbol(n, &st0, symb[cur0], mask)
		}
	} else { // order 1
		quarter := end4 >> 2
		i0, i1, i2, i3 := 0, 1*quarter, 2*quarter, 3*quarter
		prv0, prv1, prv2, prv3 := 0, 0, 0, 0

		for i0 < quarter {
			symbols3 := d.symbols[prv3<<8:]
			symbols2 := d.symbols[prv2<<8:]
			symbols1 := d.symbols[prv1<<8:]
			symbols0 := d.symbols[prv0<<8:]
			cur3 := int(d.f2s[(prv3<<d.logRange)+(st3&mask)])
			block[i3] = byte(cur3)
			n = d.decodeSymbol(n, &st3, symbols3[cur3], mask)
			cur2 := int(d.f2s[(prv2<<d.logRange)+(st2&mask)])
			block[i2] = byte(cur2)
			n = d.decodeSymbol(n, &st2, symbols2[cur2], mask)
			cur1 := int(d.f2s[(prv1<<d.logRange)+(st1&mask)])
			block[i1] = byte(cur1)
			n = d.decodeSymbol(n, &st1, symbols1[cur1], mask)
			cur0 := int(d.f2s[(prv0<<d.logRange)+(st0&mask)])
			block[i0] = byte(cur0)
			n = d.decodeSymbol(n, &st0, symbols0[cur0], mask)
			prv3, prv2, prv1, prv0 = cur3, cur2, cur1, cur0
			i0++
			i1++
			i2++
			i3++
		}
	}

	for i := end4; i < len(block); i++ {
		block[i] = d.buffer[n]
		n++
	}
}

// BitStream returns the underlying bitstream.
func (d *ANSRangeDecoder) BitStream() kanzi.InputBitStream {
	return d.bitstream
}

// Dispose implements ByteDecoder; this decoder holds no resource to release.
func (d *ANSRangeDecoder) Dispose() {
}
