/*
Copyright 2011-2025 Frederic Langlet
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

package transform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	kanzi "github.com/tarnhelm/kanzi"
)

// Reduced Offset Lempel Ziv transform.
// More information about ROLZ at http://ezcodesample.com/rolz/rolz_article.html
//
// Two variants share this file's plumbing: rolzANSCodec ("ROLZ") entropy
// codes literals and matches with ANS, while rolzCMCodec ("ROLZX") uses a
// small dedicated binary range coder (see ROLZBitCodec.go) and checks more
// candidate positions per symbol.

const (
	_ROLZ_HASH_SIZE       = 1 << 16
	_ROLZ_MIN_MATCH3      = 3
	_ROLZ_MIN_MATCH4      = 4
	_ROLZ_MIN_MATCH7      = 7
	_ROLZ_MAX_MATCH1      = _ROLZ_MIN_MATCH3 + 65535
	_ROLZ_MAX_MATCH2      = _ROLZ_MIN_MATCH3 + 255
	_ROLZ_LOG_POS_CHECKS1 = 4
	_ROLZ_LOG_POS_CHECKS2 = 5
	_ROLZ_CHUNK_SIZE      = 16 * 1024 * 1024
	_ROLZ_HASH_MASK       = ^uint32(_ROLZ_CHUNK_SIZE - 1)
	_ROLZ_MATCH_FLAG      = 0
	_ROLZ_LITERAL_FLAG    = 1
	_ROLZ_MATCH_CTX       = 0
	_ROLZ_LITERAL_CTX     = 1
	_ROLZ_HASH_SEED       = 200002979
	_ROLZ_MAX_BLOCK_SIZE  = 1 << 30 // 1 GB
	_ROLZ_MIN_BLOCK_SIZE  = 64
	_ROLZ_PSCALE          = 0xFFFF
	_ROLZ_TOP             = uint64(0x00FFFFFFFFFFFFFF)
	_MASK_0_56            = uint64(0x00FFFFFFFFFFFFFF)
	_MASK_0_32            = uint64(0x00000000FFFFFFFF)
)

func getKey1(p []byte) uint32 {
	return uint32(binary.LittleEndian.Uint16(p))
}

func getKey2(p []byte) uint32 {
	return uint32((binary.LittleEndian.Uint64(p)*_ROLZ_HASH_SEED)>>40) & 0xFFFF
}

func rolzhash(p []byte) uint32 {
	return ((binary.LittleEndian.Uint32(p) << 8) * _ROLZ_HASH_SEED) & _ROLZ_HASH_MASK
}

func emitCopy(buf []byte, dstIdx, ref, matchLen int) int {
	if dstIdx >= ref+matchLen {
		copy(buf[dstIdx:], buf[ref:ref+matchLen])
		return dstIdx + matchLen
	}

	// Handle overlapping segments
	for matchLen != 0 {
		buf[dstIdx] = buf[ref]
		dstIdx++
		ref++
		matchLen--
	}

	return dstIdx
}

// emitLengthROLZ variable-length-encodes litLen (7 bits per byte, MSB
// continuation flag) into block, returning the number of bytes written.
func emitLengthROLZ(block []byte, litLen int) int {
	idx := 0

	if litLen >= 1<<7 {
		if litLen >= 1<<14 {
			if litLen >= 1<<21 {
				block[idx] = byte(0x80 | (litLen >> 21))
				idx++
			}

			block[idx] = byte(0x80 | (litLen >> 14))
			idx++
		}

		block[idx] = byte(0x80 | (litLen >> 7))
		idx++
	}

	block[idx] = byte(litLen & 0x7F)
	return idx + 1
}

// readLengthROLZ reverses emitLengthROLZ, returning (litLen, bytes consumed).
func readLengthROLZ(lenBuf []byte) (int, int) {
	next := lenBuf[0]
	idx := 1
	litLen := int(next & 0x7F)

	if next >= 128 {
		next = lenBuf[idx]
		idx++
		litLen = (litLen << 7) | int(next&0x7F)

		if next >= 128 {
			next = lenBuf[idx]
			idx++
			litLen = (litLen << 7) | int(next&0x7F)

			if next >= 128 {
				next = lenBuf[idx]
				idx++
				litLen = (litLen << 7) | int(next&0x7F)
			}
		}
	}

	return litLen, idx
}

// ROLZCodec dispatches to one of the two ROLZ variants picked at
// construction time.
type ROLZCodec struct {
	delegate kanzi.ByteTransform
}

// NewROLZCodec creates a new instance of ROLZCodec providing
// the log of the number of matches to check for during encoding.
func NewROLZCodec(logPosChecks uint) (*ROLZCodec, error) {
	d, err := newRolzANSCodec(logPosChecks)
	return &ROLZCodec{delegate: d}, err
}

// NewROLZCodecWithFlag creates a new instance of ROLZCodec.
// If the bool parameter is false, encode literals and matches using ANS.
// Otherwise encode literals and matches using CM and check more match
// positions.
func NewROLZCodecWithFlag(extra bool) (*ROLZCodec, error) {
	var err error
	var d kanzi.ByteTransform

	if extra {
		d, err = newRolzCMCodec(_ROLZ_LOG_POS_CHECKS2)
	} else {
		d, err = newRolzANSCodec(_ROLZ_LOG_POS_CHECKS1)
	}

	return &ROLZCodec{delegate: d}, err
}

// NewROLZCodecWithCtx creates a new instance of ROLZCodec providing a
// context map. If the map contains a transform name set to "ROLZX"
// encode literals and matches using CM and check more match positions.
// Otherwise encode literals and matches using ANS.
func NewROLZCodecWithCtx(ctx *map[string]any) (*ROLZCodec, error) {
	c := &ROLZCodec{}
	var err error
	var d kanzi.ByteTransform

	if val, containsKey := (*ctx)["transform"]; containsKey {
		if strings.Contains(val.(string), "ROLZX") {
			d, err = newRolzCMCodecWithCtx(_ROLZ_LOG_POS_CHECKS2, ctx)
			c.delegate = d
		}
	}

	if c.delegate == nil && err == nil {
		d, err = newRolzANSCodecWithCtx(_ROLZ_LOG_POS_CHECKS1, ctx)
		c.delegate = d
	}

	return c, err
}

// Forward applies the function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (c *ROLZCodec) Forward(src, dst []byte) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	if len(src) < _ROLZ_MIN_BLOCK_SIZE {
		return 0, 0, errors.New("ROLZ codec forward transform skip: block too small")
	}

	if &src[0] == &dst[0] {
		return 0, 0, errors.New("Input and output buffers cannot be equal")
	}

	if len(src) > _ROLZ_MAX_BLOCK_SIZE {
		return 0, 0, fmt.Errorf("The max ROLZ codec block size is %d, got %d", _ROLZ_MAX_BLOCK_SIZE, len(src))
	}

	return c.delegate.Forward(src, dst)
}

// Inverse applies the reverse function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (c *ROLZCodec) Inverse(src, dst []byte) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	if &src[0] == &dst[0] {
		return 0, 0, errors.New("Input and output buffers cannot be equal")
	}

	if len(src) > _ROLZ_MAX_BLOCK_SIZE {
		return 0, 0, fmt.Errorf("The max ROLZ codec block size is %d, got %d", _ROLZ_MAX_BLOCK_SIZE, len(src))
	}

	return c.delegate.Inverse(src, dst)
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (c *ROLZCodec) MaxEncodedLen(srcLen int) int {
	return c.delegate.MaxEncodedLen(srcLen)
}
