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
)

// Inverse applies the reverse function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (a *AliasCodec) Inverse(src, dst []byte) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	if len(src) < 2 {
		return 0, 0, fmt.Errorf("Input block is too small - size: %d, required %d", len(src), 2)
	}

	if &src[0] == &dst[0] {
		return 0, 0, errors.New("Input and output buffers cannot be equal")
	}

	n := int(src[0])

	if n < 16 {
		return 0, 0, errors.New("Alias codec: invalid data (incorrect number of slots)")
	}

	count := len(src)

	if n >= 240 {
		return decodeSmallAlphabet(dst, src, 256-n, count)
	}

	return decodeDigrams(dst, src, n)
}

// decodeSmallAlphabet reverses encodeSmallAlphabet: n is the number of
// distinct symbols packed per output byte group (1 symbol verbatim, or 4/2
// symbols per input byte).
func decodeSmallAlphabet(dst, src []byte, n, count int) (uint, uint, error) {
	srcIdx := 1

	if n == 1 {
		val := src[1]
		oSize := int(binary.LittleEndian.Uint32(src[2:]))

		if oSize > len(dst) {
			return 0, 0, errors.New("Alias codec: invalid data (incorrect output size)")
		}

		for i := range dst[0:oSize] {
			dst[i] = val
		}

		return uint(count), uint(oSize), nil
	}

	var idx2symb [16]byte

	for i := 0; i < n; i++ {
		idx2symb[i] = src[srcIdx]
		srcIdx++
	}

	adjust := int(src[srcIdx])
	srcIdx++

	if adjust < 0 || adjust > 3 {
		return 0, 0, errors.New("Alias codec: invalid data")
	}

	if n <= 4 {
		return unpack4PerByte(dst, src, idx2symb, srcIdx, adjust, count)
	}

	return unpack2PerByte(dst, src, idx2symb, srcIdx, adjust, count)
}

// unpack4PerByte reverses pack4PerByte: each input byte expands back to the
// 4 source symbols it was built from, via a precomputed 256-entry lookup.
func unpack4PerByte(dst, src []byte, idx2symb [16]byte, srcIdx, adjust, count int) (uint, uint, error) {
	var decodeMap [256]uint32

	for i := 0; i < 256; i++ {
		var val uint32
		val = uint32(idx2symb[(i>>0)&0x03])
		val <<= 8
		val |= uint32(idx2symb[(i>>2)&0x03])
		val <<= 8
		val |= uint32(idx2symb[(i>>4)&0x03])
		val <<= 8
		val |= uint32(idx2symb[(i>>6)&0x03])
		decodeMap[i] = val
	}

	dstIdx := 0
	copy(dst[dstIdx:], src[srcIdx:srcIdx+adjust])
	srcIdx += adjust
	dstIdx += adjust

	for srcIdx < count {
		binary.LittleEndian.PutUint32(dst[dstIdx:], decodeMap[int(src[srcIdx])])
		srcIdx++
		dstIdx += 4
	}

	return uint(srcIdx), uint(dstIdx), nil
}

// unpack2PerByte reverses pack2PerByte: each input byte expands back to the
// 2 source symbols it was built from, via a precomputed 256-entry lookup.
func unpack2PerByte(dst, src []byte, idx2symb [16]byte, srcIdx, adjust, count int) (uint, uint, error) {
	var decodeMap [256]uint16

	for i := 0; i < 256; i++ {
		val := uint16(idx2symb[i&0x0F])
		val <<= 8
		val |= uint16(idx2symb[i>>4])
		decodeMap[i] = val
	}

	dstIdx := 0

	if adjust != 0 {
		dst[dstIdx] = src[srcIdx]
		srcIdx++
		dstIdx++
	}

	for srcIdx < count {
		val := decodeMap[int(src[srcIdx])]
		srcIdx++
		binary.LittleEndian.PutUint16(dst[dstIdx:], val)
		dstIdx += 2
	}

	return uint(srcIdx), uint(dstIdx), nil
}

// decodeDigrams reverses encodeDigrams: n is the number of aliased digrams
// recorded in the header.
func decodeDigrams(dst, src []byte, n int) (uint, uint, error) {
	var map16 [256]int
	srcIdx := 1

	for i := range &map16 {
		map16[i] = 0x10000 | int(i)
	}

	for i := 0; i < n; i++ {
		map16[int(src[srcIdx+2])] = 0x20000 | int(src[srcIdx]) | (int(src[srcIdx+1]) << 8)
		srcIdx += 3
	}

	dstIdx := 0
	srcEnd := len(src)

	for srcIdx < srcEnd {
		val := map16[int(src[srcIdx])]
		srcIdx++
		dst[dstIdx] = byte(val)
		dst[dstIdx+1] = byte(val >> 8)
		dstIdx += (val >> 16)
	}

	return uint(srcIdx), uint(dstIdx), nil
}
