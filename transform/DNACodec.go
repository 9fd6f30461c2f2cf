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

package transform

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tarnhelm/kanzi/internal"
)

const (
	_DNA_MIN_BLOCKSIZE = 1024
	_DNA_ESCAPE_NIBBLE = byte(15)
)

// _dnaAlphabet lists the 12 symbols internal.DetectSimpleType treats as
// DT_DNA (upper/lower case A C G T U N). Each maps to a 4 bit code;
// _DNA_ESCAPE_NIBBLE (15) marks a byte outside the alphabet.
var _dnaAlphabet = [12]byte{'a', 'c', 'g', 'n', 't', 'u', 'A', 'C', 'G', 'N', 'T', 'U'}

// DNACodec packs nucleotide sequences two symbols per byte. Bytes outside
// the 12-symbol DNA alphabet are escaped: the nibble slot carries
// _DNA_ESCAPE_NIBBLE and the literal byte is appended, in order, to a
// trailer section after the packed nibble stream. This keeps decode a
// simple two-pointer walk with no backtracking.
//
// Layout: [4 bytes big endian original length] [packed nibbles, ceil(n/2)
// bytes, high nibble first] [escaped literal bytes, in encounter order].
type DNACodec struct {
	ctx *map[string]any
}

// NewDNACodec creates a new instance of DNACodec
func NewDNACodec() (*DNACodec, error) {
	this := &DNACodec{}
	return this, nil
}

// NewDNACodecWithCtx creates a new instance of DNACodec using a
// configuration map as parameter.
func NewDNACodecWithCtx(ctx *map[string]any) (*DNACodec, error) {
	this := &DNACodec{ctx: ctx}
	return this, nil
}

func dnaNibble(b byte) (byte, bool) {
	for i, s := range _dnaAlphabet {
		if s == b {
			return byte(i), true
		}
	}

	return 0, false
}

// Forward applies the function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (this *DNACodec) Forward(src, dst []byte) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	if &src[0] == &dst[0] {
		return 0, 0, errors.New("Input and output buffers cannot be equal")
	}

	if n := this.MaxEncodedLen(len(src)); len(dst) < n {
		return 0, 0, fmt.Errorf("Output buffer is too small - size: %d, required %d", len(dst), n)
	}

	if len(src) < _DNA_MIN_BLOCKSIZE {
		return 0, 0, fmt.Errorf("Input block is too small - size: %d, required %d", len(src), _DNA_MIN_BLOCKSIZE)
	}

	if this.ctx != nil {
		dt := internal.DT_UNDEFINED

		if val, containsKey := (*this.ctx)["dataType"]; containsKey {
			dt = val.(internal.DataType)
		}

		if dt != internal.DT_UNDEFINED && dt != internal.DT_DNA {
			return 0, 0, errors.New("DNA Codec: forward transform skip, not DNA data")
		}
	}

	var freqs0 [256]int
	internal.ComputeHistogram(src, freqs0[:], true, false)
	nonDNA := len(src)

	for _, s := range _dnaAlphabet {
		nonDNA -= freqs0[s]
	}

	// Mirrors internal.DetectSimpleType: at most ~1/12 of the block may
	// fall outside the DNA alphabet for this transform to be worth running.
	if nonDNA > len(src)/12 {
		return 0, 0, errors.New("DNA Codec: forward transform skip, too many non DNA symbols")
	}

	count := len(src)
	packedLen := (count + 1) / 2
	binary.BigEndian.PutUint32(dst[0:4], uint32(count))
	packed := dst[4 : 4+packedLen]
	litIdx := 4 + packedLen

	for i := 0; i < count; i++ {
		nib, ok := dnaNibble(src[i])

		if !ok {
			nib = _DNA_ESCAPE_NIBBLE

			if litIdx >= len(dst) {
				return 0, 0, errors.New("DNA Codec: forward transform failed, output buffer too small")
			}

			dst[litIdx] = src[i]
			litIdx++
		}

		if i&1 == 0 {
			packed[i>>1] = nib << 4
		} else {
			packed[i>>1] |= nib
		}
	}

	if litIdx >= count {
		return 0, 0, errors.New("DNA Codec: forward transform skip, not enough savings")
	}

	return uint(count), uint(litIdx), nil
}

// Inverse applies the reverse function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (this *DNACodec) Inverse(src, dst []byte) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	if &src[0] == &dst[0] {
		return 0, 0, errors.New("Input and output buffers cannot be equal")
	}

	if len(src) < 4 {
		return 0, 0, fmt.Errorf("Input block is too small - size: %d, required %d", len(src), 4)
	}

	count := int(binary.BigEndian.Uint32(src[0:4]))

	if count > len(dst) {
		return 0, 0, errors.New("DNA Codec: invalid data (incorrect output size)")
	}

	packedLen := (count + 1) / 2

	if 4+packedLen > len(src) {
		return 0, 0, errors.New("DNA Codec: invalid data (truncated packed nibbles)")
	}

	packed := src[4 : 4+packedLen]
	litIdx := 4 + packedLen

	for i := 0; i < count; i++ {
		var nib byte

		if i&1 == 0 {
			nib = packed[i>>1] >> 4
		} else {
			nib = packed[i>>1] & 0x0F
		}

		if nib == _DNA_ESCAPE_NIBBLE {
			if litIdx >= len(src) {
				return 0, 0, errors.New("DNA Codec: invalid data (truncated literal trailer)")
			}

			dst[i] = src[litIdx]
			litIdx++
		} else {
			if int(nib) >= len(_dnaAlphabet) {
				return 0, 0, errors.New("DNA Codec: invalid data (bad nibble)")
			}

			dst[i] = _dnaAlphabet[nib]
		}
	}

	return uint(litIdx), uint(count), nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (this *DNACodec) MaxEncodedLen(srcLen int) int {
	return srcLen + (srcLen+1)/2 + 4 + 16
}
