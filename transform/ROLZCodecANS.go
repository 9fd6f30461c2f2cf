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
	"math/bits"

	kanzi "github.com/tarnhelm/kanzi"
	"github.com/tarnhelm/kanzi/bitstream"
	"github.com/tarnhelm/kanzi/entropy"
	"github.com/tarnhelm/kanzi/internal"
)

// rolzANSCodec entropy codes literals and matches with ANS ("ROLZ" id).
type rolzANSCodec struct {
	matches      []uint32
	counters     []int32
	logPosChecks uint
	maskChecks   int32
	posChecks    int32
	minMatch     int
	ctx          *map[string]any
}

func newRolzANSCodec(logPosChecks uint) (*rolzANSCodec, error) {
	if (logPosChecks < 2) || (logPosChecks > 8) {
		return nil, fmt.Errorf("ROLZ codec forward transform failed: Invalid logPosChecks parameter: %d (must be in [2..8])", logPosChecks)
	}

	a := &rolzANSCodec{}
	a.logPosChecks = logPosChecks
	a.posChecks = 1 << logPosChecks
	a.maskChecks = a.posChecks - 1
	a.counters = make([]int32, 1<<16)
	a.matches = make([]uint32, 0)
	return a, nil
}

func newRolzANSCodecWithCtx(logPosChecks uint, ctx *map[string]any) (*rolzANSCodec, error) {
	a, err := newRolzANSCodec(logPosChecks)

	if err != nil {
		return nil, err
	}

	a.ctx = ctx
	return a, nil
}

// findMatch returns match position index (logPosChecks bits) + length (8 bits) or -1
func (a *rolzANSCodec) findMatch(buf []byte, pos int, hash32 uint32, counter int32, matches []uint32) (int, int) {
	maxMatch := min(_ROLZ_MAX_MATCH1, len(buf)-pos)

	if maxMatch < a.minMatch {
		return -1, -1
	}

	maxMatch -= 4
	bestLen := 0
	bestIdx := -1
	curBuf := buf[pos:]

	// Check all recorded positions
	for i := counter; i > counter-a.posChecks; i-- {
		ref := matches[i&a.maskChecks]

		// Hash check may save a memory access ...
		if ref&_ROLZ_HASH_MASK != hash32 {
			continue
		}

		ref &= ^_ROLZ_HASH_MASK
		refBuf := buf[ref:]

		if refBuf[bestLen] != curBuf[bestLen] {
			continue
		}

		n := 0

		for n < maxMatch {
			if diff := binary.LittleEndian.Uint32(refBuf[n:]) ^ binary.LittleEndian.Uint32(curBuf[n:]); diff != 0 {
				n += (bits.TrailingZeros32(diff) >> 3)
				break
			}

			n += 4
		}

		if n > bestLen {
			bestIdx = int(i)
			bestLen = n
		}
	}

	if bestLen < a.minMatch {
		return -1, -1
	}

	return int(counter) - bestIdx, bestLen - a.minMatch
}

// pickParams derives minMatch/delta/literal order/flag byte from the data
// type recorded (or detected) in the context map.
func (a *rolzANSCodec) pickParams(src []byte) (litOrder uint, delta int, flags byte) {
	litOrder = uint(1)

	if len(src) < 1<<17 {
		litOrder = 0
	}

	flags = byte(litOrder)
	a.minMatch = _ROLZ_MIN_MATCH3
	delta = 2

	if a.ctx == nil {
		flags |= byte(a.logPosChecks << 4)
		return litOrder, delta, flags
	}

	dt := internal.DT_UNDEFINED

	if val, containsKey := (*a.ctx)["dataType"]; containsKey {
		dt = val.(internal.DataType)
	}

	if dt == internal.DT_UNDEFINED {
		var freqs0 [256]int
		internal.ComputeHistogram(src, freqs0[:], true, false)
		dt = internal.DetectSimpleType(len(src), freqs0[:])

		if dt != internal.DT_UNDEFINED {
			(*a.ctx)["dataType"] = dt
		}
	}

	if dt == internal.DT_EXE {
		delta = 3
		flags |= 8
	} else if dt == internal.DT_DNA {
		delta = 8
		a.minMatch = _ROLZ_MIN_MATCH7
		flags |= 4
	} else if dt == internal.DT_MULTIMEDIA {
		delta = 8
		a.minMatch = _ROLZ_MIN_MATCH4
		flags |= 2
	}

	flags |= byte(a.logPosChecks << 4)
	return litOrder, delta, flags
}

// Forward applies the function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (a *rolzANSCodec) Forward(src, dst []byte) (uint, uint, error) {
	if n := a.MaxEncodedLen(len(src)); len(dst) < n {
		return 0, 0, fmt.Errorf("ROLZ codec forward transform failed: output buffer is too small - size: %d, required %d", len(dst), n)
	}

	srcEnd := len(src) - 4
	binary.BigEndian.PutUint32(dst[0:], uint32(len(src)))
	sizeChunk := len(src)

	if sizeChunk > _ROLZ_CHUNK_SIZE {
		sizeChunk = _ROLZ_CHUNK_SIZE
	}

	startChunk := 0
	litBuf := make([]byte, a.MaxEncodedLen(sizeChunk))
	lenBuf := make([]byte, sizeChunk/5)
	mIdxBuf := make([]byte, sizeChunk/4)
	tkBuf := make([]byte, sizeChunk/4)
	var err error

	for i := range a.counters {
		a.counters[i] = 0
	}

	litOrder, delta, flags := a.pickParams(src)
	dst[4] = flags
	srcIdx := 0
	dstIdx := 5

	if len(a.matches) == 0 {
		a.matches = make([]uint32, _ROLZ_HASH_SIZE<<a.logPosChecks)
	}

	// Main loop
	for startChunk < srcEnd {
		for i := range a.matches {
			a.matches[i] = 0
		}

		endChunk := startChunk + sizeChunk

		if endChunk >= srcEnd {
			endChunk = srcEnd
			sizeChunk = endChunk - startChunk
		}

		buf := src[startChunk:endChunk]
		litIdx, tkIdx, lenIdx, mIdx := a.tokenizeChunk(buf, srcEnd-startChunk, delta, litBuf, lenBuf, mIdxBuf, tkBuf)
		srcIdx = sizeChunk

		var chunkBytes []byte

		if chunkBytes, err = a.writeANSChunk(litBuf[0:litIdx], tkBuf[0:tkIdx], lenBuf[0:lenIdx], mIdxBuf[0:mIdx], litOrder); err != nil {
			break
		}

		if dstIdx+len(chunkBytes) > len(dst) {
			err = errors.New("ROLZ codec forward transform skip: destination buffer too small")
			break
		}

		copy(dst[dstIdx:dstIdx+len(chunkBytes)], chunkBytes)
		dstIdx += len(chunkBytes)
		startChunk = endChunk
	}

	if err == nil {
		if dstIdx+4 > len(dst) {
			err = errors.New("ROLZ codec forward transform skip: destination buffer too small")
		} else {
			// Emit last literals
			srcIdx += (startChunk - sizeChunk)
			dst[dstIdx] = src[srcIdx]
			dst[dstIdx+1] = src[srcIdx+1]
			dst[dstIdx+2] = src[srcIdx+2]
			dst[dstIdx+3] = src[srcIdx+3]
			srcIdx += 4
			dstIdx += 4

			if srcIdx != len(src) {
				err = errors.New("ROLZ codec forward transform skip: destination buffer too small")
			} else if dstIdx >= len(src) {
				err = errors.New("ROLZ codec forward transform skip: no compression")
			}
		}
	}

	return uint(srcIdx), uint(dstIdx), err
}

// tokenizeChunk scans one chunk of buf for matches, splitting it into the
// literal/token/length/match-index streams later entropy coded together.
// srcEndRel is srcEnd-startChunk, used to size the first literal run.
func (a *rolzANSCodec) tokenizeChunk(buf []byte, srcEndRel, delta int, litBuf, lenBuf, mIdxBuf, tkBuf []byte) (litIdx, tkIdx, lenIdx, mIdx int) {
	srcIdx := 0
	n := min(srcEndRel, 8)

	for j := 0; j < n; j++ {
		litBuf[litIdx] = buf[srcIdx]
		litIdx++
		srcIdx++
	}

	firstLitIdx := srcIdx
	srcInc := 0
	sizeChunk := len(buf)

	for srcIdx < sizeChunk {
		var key uint32

		if a.minMatch == _ROLZ_MIN_MATCH3 {
			key = getKey1(buf[srcIdx-delta:])
		} else {
			key = getKey2(buf[srcIdx-delta:])
		}

		m := a.matches[key<<a.logPosChecks : (key+1)<<a.logPosChecks]
		hash32 := rolzhash(buf[srcIdx : srcIdx+4])
		matchIdx, matchLen := a.findMatch(buf, srcIdx, hash32, a.counters[key], m)

		// Register current position
		a.counters[key] = (a.counters[key] + 1) & a.maskChecks
		m[a.counters[key]] = hash32 | uint32(srcIdx)

		if matchIdx < 0 {
			srcIdx++
			srcIdx += (srcInc >> 6)
			srcInc++
			continue
		}

		// Check if better match at next position
		srcIdx1 := srcIdx + 1

		if a.minMatch == _ROLZ_MIN_MATCH3 {
			key = getKey1(buf[srcIdx1-delta:])
		} else {
			key = getKey2(buf[srcIdx1-delta:])
		}

		m = a.matches[key<<a.logPosChecks : (key+1)<<a.logPosChecks]
		hash32 = rolzhash(buf[srcIdx1 : srcIdx1+4])
		matchIdx1, matchLen1 := a.findMatch(buf, srcIdx1, hash32, a.counters[key], m)

		if (matchIdx1 >= 0) && (matchLen1 > matchLen) {
			// New match is better
			matchIdx = matchIdx1
			matchLen = matchLen1
			srcIdx = srcIdx1

			// Register current position
			a.counters[key] = (a.counters[key] + 1) & a.maskChecks
			m[a.counters[key]] = hash32 | uint32(srcIdx)
		}

		// token LLLLLMMM -> L lit length, M match length
		litLen := srcIdx - firstLitIdx
		var token byte

		if matchLen >= 7 {
			token = 7
			lenIdx += emitLengthROLZ(lenBuf[lenIdx:], matchLen-7)
		} else {
			token = byte(matchLen)
		}

		// Emit literals
		if litLen > 0 {
			if litLen >= 31 {
				token |= 0xF8
				lenIdx += emitLengthROLZ(lenBuf[lenIdx:], litLen-31)
			} else {
				token |= byte(litLen << 3)
			}

			copy(litBuf[litIdx:], buf[firstLitIdx:firstLitIdx+litLen])
			litIdx += litLen
		}

		tkBuf[tkIdx] = token
		tkIdx++

		// Emit match index
		mIdxBuf[mIdx] = byte(matchIdx)
		mIdx++
		srcIdx += (matchLen + a.minMatch)
		firstLitIdx = srcIdx
		srcInc = 0
	}

	// Emit last chunk literals
	srcIdx = sizeChunk
	litLen := srcIdx - firstLitIdx

	if tkIdx != 0 {
		// At least one match to emit
		if litLen >= 31 {
			tkBuf[tkIdx] = 0xF8
		} else {
			tkBuf[tkIdx] = byte(litLen << 3)
		}

		tkIdx++
	}

	if litLen > 0 {
		if litLen >= 31 {
			lenIdx += emitLengthROLZ(lenBuf[lenIdx:], litLen-31)
		}

		copy(litBuf[litIdx:], buf[firstLitIdx:firstLitIdx+litLen])
		litIdx += litLen
	}

	return litIdx, tkIdx, lenIdx, mIdx
}

// writeANSChunk range-codes the four per-chunk streams into a bit stream and
// returns the resulting bytes.
func (a *rolzANSCodec) writeANSChunk(litBuf, tkBuf, lenBuf, mIdxBuf []byte, litOrder uint) ([]byte, error) {
	os := internal.NewBufferStream(make([]byte, 0, (len(litBuf)+len(tkBuf)+len(lenBuf)+len(mIdxBuf))/4+64))
	var err error

	// Scope to deallocate resources early
	{
		var obs kanzi.OutputBitStream

		if obs, err = bitstream.NewDefaultOutputBitStream(os, 65536); err != nil {
			return nil, err
		}

		obs.WriteBits(uint64(len(litBuf)), 32)
		obs.WriteBits(uint64(len(tkBuf)), 32)
		obs.WriteBits(uint64(len(lenBuf)), 32)
		obs.WriteBits(uint64(len(mIdxBuf)), 32)
		var litEnc *entropy.ANSRangeEncoder

		if litEnc, err = entropy.NewANSRangeEncoder(obs, litOrder); err != nil {
			return nil, err
		}

		if _, err = litEnc.Write(litBuf); err != nil {
			return nil, err
		}

		litEnc.Dispose()
		var mEnc *entropy.ANSRangeEncoder

		if mEnc, err = entropy.NewANSRangeEncoder(obs, 0, 32768); err != nil {
			return nil, err
		}

		if _, err = mEnc.Write(tkBuf); err != nil {
			return nil, err
		}

		if _, err = mEnc.Write(lenBuf); err != nil {
			return nil, err
		}

		if _, err = mEnc.Write(mIdxBuf); err != nil {
			return nil, err
		}

		mEnc.Dispose()
		obs.Close()
	}

	chunkBytes := make([]byte, os.Len())

	if _, err = os.Read(chunkBytes); err != nil {
		return nil, err
	}

	return chunkBytes, nil
}

// Inverse applies the reverse function to the src and writes the result
// to the destination. Returns number of bytes read, number of bytes
// written and possibly an error.
func (a *rolzANSCodec) Inverse(src, dst []byte) (uint, uint, error) {
	if len(src) < 5 {
		return 0, 0, errors.New("ROLZ codec inverse transform failed: invalid input data (input array too small)")
	}

	dstEnd := int(binary.BigEndian.Uint32(src[0:])) - 4

	if dstEnd <= 0 || dstEnd > len(dst) {
		return 0, 0, errors.New("ROLZ codec inverse transform failed: invalid input data")
	}

	startChunk := 0
	srcIdx := 5
	dstIdx := 0
	sizeChunk := min(len(dst), _ROLZ_CHUNK_SIZE)
	litBuf := make([]byte, sizeChunk)
	mLenBuf := make([]byte, sizeChunk/5)
	mIdxBuf := make([]byte, sizeChunk/4)
	tkBuf := make([]byte, sizeChunk/4)
	var err error

	for i := range a.counters {
		a.counters[i] = 0
	}

	flags := src[4]
	litOrder := uint(flags & 1)
	delta := 2
	a.minMatch = _ROLZ_MIN_MATCH3
	bsVersion := uint(6)

	if len(a.matches) < int(a.logPosChecks) {
		a.matches = make([]uint32, _ROLZ_HASH_SIZE<<a.logPosChecks)
	}
	if a.ctx != nil {
		if val, containsKey := (*a.ctx)["bsVersion"]; containsKey {
			bsVersion = val.(uint)
		}
	}

	if bsVersion >= 4 {
		if flags&0x0E == 2 {
			a.minMatch = _ROLZ_MIN_MATCH4
			delta = 8
		} else if flags&0x0E == 4 {
			a.minMatch = _ROLZ_MIN_MATCH7
			delta = 8
		} else if flags&0x0E == 8 {
			delta = 3
		}
	} else if bsVersion >= 3 {
		if flags&6 == 2 {
			a.minMatch = _ROLZ_MIN_MATCH4
		} else if flags&6 == 4 {
			a.minMatch = _ROLZ_MIN_MATCH7
		}
	}

	a.logPosChecks = uint(flags >> 4)

	if a.logPosChecks < 2 || a.logPosChecks > 8 {
		return 0, 0, errors.New("ROLZ codec inverse transform failed: invalid 'logPosChecks' value in bitstream")
	}

	a.posChecks = 1 << a.logPosChecks
	a.maskChecks = a.posChecks - 1

	// Main loop
	for startChunk < dstEnd {
		for i := range a.matches {
			a.matches[i] = 0
		}

		endChunk := startChunk + sizeChunk

		if endChunk > dstEnd {
			endChunk = dstEnd
		}

		sizeChunk = endChunk - startChunk
		buf := dst[startChunk:endChunk]
		var litLen, tkLen, mLenLen, mIdxLen, consumed int

		if litLen, tkLen, mLenLen, mIdxLen, consumed, err = a.readANSChunk(src[srcIdx:], litBuf, tkBuf, mLenBuf, mIdxBuf, litOrder); err != nil {
			goto End
		}

		srcIdx += consumed

		if tkLen == 0 {
			// Shortcut when no match
			copy(buf[dstIdx:], litBuf[0:sizeChunk])
			startChunk = endChunk
			dstIdx += sizeChunk
			continue
		}

		if dstIdx, err = a.decodeChunk(buf, delta, bsVersion, startChunk, dstEnd, litBuf[0:litLen], tkBuf[0:tkLen], mLenBuf[0:mLenLen], mIdxBuf[0:mIdxLen]); err != nil {
			goto End
		}

		startChunk = endChunk
	}

End:
	if err == nil {
		// Emit last literals
		dstIdx += (startChunk - sizeChunk)

		if dstIdx+4 > len(dst) && srcIdx+4 > len(src) {
			err = errors.New("ROLZ codec inverse transform failed: invalid input data")
		} else {
			dst[dstIdx] = src[srcIdx]
			dst[dstIdx+1] = src[srcIdx+1]
			dst[dstIdx+2] = src[srcIdx+2]
			dst[dstIdx+3] = src[srcIdx+3]
			srcIdx += 4
			dstIdx += 4
		}

		if srcIdx != len(src) {
			err = errors.New("ROLZ codec inverse transform failed: invalid input data")
		}
	}

	return uint(srcIdx), uint(dstIdx), err
}

// readANSChunk decodes the four per-chunk streams written by writeANSChunk
// out of src, filling the caller-provided scratch buffers. Returns the
// number of bytes consumed from src.
func (a *rolzANSCodec) readANSChunk(src, litBuf, tkBuf, mLenBuf, mIdxBuf []byte, litOrder uint) (litLen, tkLen, mLenLen, mIdxLen, consumed int, err error) {
	is := internal.NewBufferStream(src)
	var ibs kanzi.InputBitStream

	if ibs, err = bitstream.NewDefaultInputBitStream(is, 65536); err != nil {
		return
	}

	litLen = int(ibs.ReadBits(32))
	tkLen = int(ibs.ReadBits(32))
	mLenLen = int(ibs.ReadBits(32))
	mIdxLen = int(ibs.ReadBits(32))

	if litLen < 0 || litLen > len(litBuf) {
		err = fmt.Errorf("ROLZ codec: Invalid length for literals: got %d, must be positive and less than or equal to %d", litLen, len(litBuf))
		return
	}

	if tkLen < 0 || tkLen > len(tkBuf) {
		err = fmt.Errorf("ROLZ codec: Invalid length for tokens: got %d, must be positive and less than or equal to %d", tkLen, len(tkBuf))
		return
	}

	if mLenLen < 0 || mLenLen > len(mLenBuf) {
		err = fmt.Errorf("ROLZ codec: Invalid length for match lengths: got %d, must be positive and less than or equal to %d", mLenLen, len(mLenBuf))
		return
	}

	if mIdxLen < 0 || mIdxLen > len(mIdxBuf) {
		err = fmt.Errorf("ROLZ codec: Invalid length for match indexes: got %d, must be positive and less than or equal to %d", mIdxLen, len(mIdxBuf))
		return
	}

	var litDec *entropy.ANSRangeDecoder

	if litDec, err = entropy.NewANSRangeDecoderWithCtx(ibs, litOrder, a.ctx); err != nil {
		return
	}

	if _, err = litDec.Read(litBuf[0:litLen]); err != nil {
		return
	}

	litDec.Dispose()
	var mDec *entropy.ANSRangeDecoder

	if mDec, err = entropy.NewANSRangeDecoderWithCtx(ibs, 0, a.ctx); err != nil {
		return
	}

	if _, err = mDec.Read(tkBuf[0:tkLen]); err != nil {
		return
	}

	if _, err = mDec.Read(mLenBuf[0:mLenLen]); err != nil {
		return
	}

	if _, err = mDec.Read(mIdxBuf[0:mIdxLen]); err != nil {
		return
	}

	mDec.Dispose()
	consumed = int((ibs.Read() + 7) >> 3)
	ibs.Close()
	return
}

// decodeChunk rebuilds one chunk of plaintext from its decoded literal,
// token, match-length and match-index streams, returning the chunk-relative
// write offset reached (mirrors the value the caller threads into the
// final-literals computation after the main loop ends).
func (a *rolzANSCodec) decodeChunk(buf []byte, delta int, bsVersion uint, startChunk, dstEnd int, litBuf, tkBuf, mLenBuf, mIdxBuf []byte) (int, error) {
	sizeChunk := len(buf)
	litIdx, lenIdx, mIdx, tkIdx := 0, 0, 0, 0
	dstIdx := 0
	mm := 8

	if bsVersion < 3 {
		mm = 2
	}

	if startChunk >= dstEnd {
		mm = dstEnd - startChunk
	}

	for j := 0; j < mm; j++ {
		buf[dstIdx] = litBuf[litIdx]
		dstIdx++
		litIdx++
	}

	for dstIdx < sizeChunk {
		// token LLLLLMMM -> L lit length, M match length
		token := tkBuf[tkIdx]
		tkIdx++
		matchLen := int(token & 0x07)

		if matchLen == 7 {
			ml, deltaIdx := readLengthROLZ(mLenBuf[lenIdx : lenIdx+4])
			lenIdx += deltaIdx
			matchLen = ml + 7
		}

		var litLen int

		if token < 0xF8 {
			litLen = int(token >> 3)
		} else {
			ll, deltaIdx := readLengthROLZ(mLenBuf[lenIdx : lenIdx+4])
			lenIdx += deltaIdx
			litLen = ll + 31
		}

		if litLen > 0 {
			if dstIdx+litLen > len(litBuf) {
				return 0, errors.New("ROLZ codec inverse transform failed: invalid data")
			}

			srcInc := 0
			d := buf[dstIdx-delta:]
			copy(d[delta:], litBuf[litIdx:litIdx+litLen])

			if a.minMatch == _ROLZ_MIN_MATCH3 {
				for n := 0; n < litLen; n++ {
					key := getKey1(d[n:])
					c := (a.counters[key] + 1) & a.maskChecks
					a.matches[(key<<a.logPosChecks)+uint32(c)] = uint32(dstIdx + n)
					a.counters[key] = c
					n += (srcInc >> 6)
					srcInc++
				}
			} else {
				for n := 0; n < litLen; n++ {
					key := getKey2(d[n:])
					c := (a.counters[key] + 1) & a.maskChecks
					a.matches[(key<<a.logPosChecks)+uint32(c)] = uint32(dstIdx + n)
					a.counters[key] = c
					n += (srcInc >> 6)
					srcInc++
				}
			}

			litIdx += litLen
			dstIdx += litLen

			if dstIdx >= sizeChunk {
				// Last chunk literals not followed by match
				if dstIdx == sizeChunk {
					break
				}

				return 0, errors.New("ROLZ codec inverse transform failed: invalid data")
			}
		}

		// Sanity check
		if dstIdx+matchLen+a.minMatch > dstEnd {
			return 0, errors.New("ROLZ codec inverse transform failed: invalid data")
		}

		matchIdx := int32(mIdxBuf[mIdx] & 0xFF)
		mIdx++
		var key uint32

		if a.minMatch == _ROLZ_MIN_MATCH3 {
			key = getKey1(buf[dstIdx-delta:])
		} else {
			key = getKey2(buf[dstIdx-delta:])
		}

		m := a.matches[key<<a.logPosChecks : (key+1)<<a.logPosChecks]
		ref := int(m[(a.counters[key]-matchIdx)&a.maskChecks])
		a.counters[key] = (a.counters[key] + 1) & a.maskChecks
		m[a.counters[key]] = uint32(dstIdx)
		dstIdx = emitCopy(buf, dstIdx, ref, matchLen+a.minMatch)
	}

	return dstIdx, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (a *rolzANSCodec) MaxEncodedLen(srcLen int) int {
	if srcLen <= 512 {
		return srcLen + 64
	}

	return srcLen
}
