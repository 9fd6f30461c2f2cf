/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License")
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package hash

import (
	"encoding/binary"
)

// BlockHash32 is the 32-bit content hash used to validate individual blocks
// of the container. It is a straight port of the xxhash32 algorithm (Yann
// Collet, https://github.com/Cyan4973/xxHash) and is always seeded with the
// container magic so that encoder and decoder agree on the value without
// needing to exchange the seed out of band.
type BlockHash32 struct {
	seed uint32
}

const (
	_XXH32_PRIME1 = uint32(2654435761)
	_XXH32_PRIME2 = uint32(2246822519)
	_XXH32_PRIME3 = uint32(3266489917)
	_XXH32_PRIME4 = uint32(668265263)
	_XXH32_PRIME5 = uint32(374761393)
)

// NewBlockHash32 creates a 32 bit hash seeded with the given value.
func NewBlockHash32(seed uint32) *BlockHash32 {
	return &BlockHash32{seed: seed}
}

// SetSeed changes the hash seed.
func (h *BlockHash32) SetSeed(seed uint32) {
	h.seed = seed
}

// Hash returns the 32 bit hash of data.
func (h *BlockHash32) Hash(data []byte) uint32 {
	n := len(data)
	var h32 uint32
	i := 0

	if n >= 16 {
		end16 := n - 16
		v1 := h.seed + _XXH32_PRIME1 + _XXH32_PRIME2
		v2 := h.seed + _XXH32_PRIME2
		v3 := h.seed
		v4 := h.seed - _XXH32_PRIME1

		for i <= end16 {
			buf := data[i : i+16]
			v1 = xxh32Round(v1, binary.LittleEndian.Uint32(buf[0:4]))
			v2 = xxh32Round(v2, binary.LittleEndian.Uint32(buf[4:8]))
			v3 = xxh32Round(v3, binary.LittleEndian.Uint32(buf[8:12]))
			v4 = xxh32Round(v4, binary.LittleEndian.Uint32(buf[12:16]))
			i += 16
		}

		h32 = ((v1 << 1) | (v1 >> 31)) + ((v2 << 7) | (v2 >> 25)) +
			((v3 << 12) | (v3 >> 20)) + ((v4 << 18) | (v4 >> 14))
	} else {
		h32 = h.seed + _XXH32_PRIME5
	}

	h32 += uint32(n)

	for i+4 <= n {
		h32 += binary.LittleEndian.Uint32(data[i:i+4]) * _XXH32_PRIME3
		h32 = ((h32 << 17) | (h32 >> 15)) * _XXH32_PRIME4
		i += 4
	}

	for i < n {
		h32 += uint32(data[i]) * _XXH32_PRIME5
		h32 = ((h32 << 11) | (h32 >> 21)) * _XXH32_PRIME1
		i++
	}

	h32 ^= h32 >> 15
	h32 *= _XXH32_PRIME2
	h32 ^= h32 >> 13
	h32 *= _XXH32_PRIME3
	return h32 ^ (h32 >> 16)
}

func xxh32Round(acc, val uint32) uint32 {
	acc += val * _XXH32_PRIME2
	return ((acc << 13) | (acc >> 19)) * _XXH32_PRIME1
}
