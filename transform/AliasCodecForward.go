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

package transform

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tarnhelm/kanzi/internal"
)

// Forward applies the function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (a *AliasCodec) Forward(src, dst []byte) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	if &src[0] == &dst[0] {
		return 0, 0, errors.New("Input and output buffers cannot be equal")
	}

	if n := a.MaxEncodedLen(len(src)); len(dst) < n {
		return 0, 0, fmt.Errorf("Output buffer is too small - size: %d, required %d", len(dst), n)
	}

	if len(src) < _ALIAS_MIN_BLOCKSIZE {
		return 0, 0, fmt.Errorf("Input block is too small - size: %d, required %d", len(src), _ALIAS_MIN_BLOCKSIZE)
	}

	if err := a.checkAliasable(); err != nil {
		return 0, 0, err
	}

	freqs0, n0, absent := findFreeByteSlots(src)

	if n0 < 16 {
		return 0, 0, errors.New("Alias Codec: forward transform skip, not enough free slots")
	}

	count := len(src)
	var srcIdx, dstIdx uint
	var err error

	if n0 >= 240 {
		srcIdx, dstIdx, err = encodeSmallAlphabet(dst, src, freqs0, absent, n0, count)
	} else {
		srcIdx, dstIdx, err = encodeDigrams(dst, src, absent, n0, count)
	}

	if err != nil {
		return 0, 0, err
	}

	if int(dstIdx) >= count {
		return 0, 0, errors.New("Alias Codec: forward transform skip, not enough savings")
	}

	return srcIdx, dstIdx, nil
}

// checkAliasable rejects data types that never benefit from byte aliasing
// (multimedia, UTF-8, executables, raw binary).
func (a *AliasCodec) checkAliasable() error {
	if a.ctx == nil {
		return nil
	}

	dt := internal.DT_UNDEFINED

	if val, containsKey := (*a.ctx)["dataType"]; containsKey {
		dt = val.(internal.DataType)
	}

	switch dt {
	case internal.DT_MULTIMEDIA, internal.DT_UTF8, internal.DT_EXE, internal.DT_BIN:
		return errors.New("Alias Codec: forward transform skip, binary data")
	default:
		return nil
	}
}

// findFreeByteSlots returns the order-0 histogram of src, the count of byte
// values absent from it, and the list of those absent values (candidate
// alias targets).
func findFreeByteSlots(src []byte) (freqs0 [256]int, n0 int, absent [256]int) {
	internal.ComputeHistogram(src, freqs0[:], true, false)

	for i := range &freqs0 {
		if freqs0[i] == 0 {
			absent[n0] = i
			n0++
		}
	}

	return freqs0, n0, absent
}

// encodeSmallAlphabet handles the n0 >= 240 case: the source alphabet is
// small enough (at most 16 symbols, or exactly one) to pack 2 or 4 values
// per output byte instead of aliasing digrams.
func encodeSmallAlphabet(dst, src []byte, freqs0 [256]int, absent [256]int, n0, count int) (uint, uint, error) {
	dst[0] = byte(n0)

	if n0 == 255 {
		dst[1] = src[0]
		binary.LittleEndian.PutUint32(dst[2:], uint32(count))
		return uint(count), 6, nil
	}

	var map8 [256]byte
	dstIdx := 1
	j := 0

	for i := range freqs0 {
		if freqs0[i] != 0 {
			dst[dstIdx] = byte(i)
			dstIdx++
			map8[i] = byte(j)
			j++
		}
	}

	if n0 >= 252 {
		return pack4PerByte(dst, src, map8, dstIdx, count)
	}

	return pack2PerByte(dst, src, map8, dstIdx, count)
}

// pack4PerByte packs 4 source symbols (each needing only 2 bits, since at
// most 4 distinct values remain) into each output byte.
func pack4PerByte(dst, src []byte, map8 [256]byte, dstIdx, count int) (uint, uint, error) {
	srcIdx := 0
	c3 := count & 3
	dst[dstIdx] = byte(c3)
	dstIdx++
	copy(dst[dstIdx:], src[srcIdx:srcIdx+c3])
	srcIdx += c3
	dstIdx += c3

	for srcIdx < count {
		dst[dstIdx] = (map8[int(src[srcIdx+0])] << 6) | (map8[int(src[srcIdx+1])] << 4) |
			(map8[int(src[srcIdx+2])] << 2) | map8[int(src[srcIdx+3])]
		srcIdx += 4
		dstIdx++
	}

	return uint(srcIdx), uint(dstIdx), nil
}

// pack2PerByte packs 2 source symbols (each needing only 4 bits, since at
// most 16 distinct values remain) into each output byte.
func pack2PerByte(dst, src []byte, map8 [256]byte, dstIdx, count int) (uint, uint, error) {
	srcIdx := 0
	dst[dstIdx] = byte(count & 1)
	dstIdx++

	if (count & 1) != 0 {
		dst[dstIdx] = src[srcIdx]
		srcIdx++
		dstIdx++
	}

	for srcIdx < count {
		dst[dstIdx] = (map8[int(src[srcIdx])] << 4) | map8[int(src[srcIdx+1])]
		srcIdx += 2
		dstIdx++
	}

	return uint(srcIdx), uint(dstIdx), nil
}

// encodeDigrams handles the common case: not enough free 1-byte slots to
// pack the whole alphabet, so instead the n0 most frequent 2-byte digrams
// are each replaced by one of the free byte values.
func encodeDigrams(dst, src []byte, absent [256]int, n0, count int) (uint, uint, error) {
	symb := [65536]*aliasSymbol{}
	n1 := 0

	{
		var freqs1 [65536]int
		internal.ComputeHistogram(src, freqs1[:], false, false)

		for i := range &freqs1 {
			if freqs1[i] == 0 {
				continue
			}

			symb[n1] = &aliasSymbol{val: i, freq: freqs1[i]}
			n1++
		}
	}

	if n0 > n1 {
		// Fewer distinct 2-byte symbols than 1-byte symbols
		n0 = n1

		if n0 < 16 {
			return 0, 0, errors.New("Alias Codec: forward transform skip, not enough free slots")
		}
	}

	sortByFreqDesc(symb[0:n1])
	var map16 [65536]int16

	// Build map symbol -> alias
	for i := range &map16 {
		map16[i] = int16(0x100 | (i >> 8))
	}

	savings := 0
	dst[0] = byte(n0)
	srcIdx := 0
	dstIdx := 1

	// Header: emit map length then map data
	for i := 0; i < n0; i++ {
		savings += symb[i].freq // ignore factor 2
		idx := symb[i].val
		map16[idx] = int16(0x200 | absent[i])
		dst[dstIdx] = byte(idx >> 8)
		dst[dstIdx+1] = byte(idx)
		dst[dstIdx+2] = byte(absent[i])
		dstIdx += 3
	}

	if savings*20 < count {
		return 0, 0, errors.New("Alias Codec: forward transform skip, not enough savings")
	}

	srcEnd := count - 1

	for srcIdx < srcEnd {
		alias := map16[(int(src[srcIdx])<<8)|int(src[srcIdx+1])]
		dst[dstIdx] = byte(alias)
		srcIdx += int(alias >> 8)
		dstIdx++
	}

	if srcIdx != count {
		dst[dstIdx] = src[srcIdx]
		srcIdx++
		dstIdx++
	}

	return uint(srcIdx), uint(dstIdx), nil
}
