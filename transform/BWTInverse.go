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
	"errors"
	"sync"

	"github.com/tarnhelm/kanzi/internal"
)

// gatherChunkCursors reads the n primary indexes (each minus one, since they
// point one past the byte a cursor should start from) this module's packed
// index+value table is addressed by, validating each falls within data.
func (b *BWT) gatherChunkCursors(n int, dataLen int32) ([_BWT_MAX_CHUNKS]int32, error) {
	var cursors [_BWT_MAX_CHUNKS]int32

	for i := 0; i < n; i++ {
		t := int32(b.PrimaryIndex(i)) - 1

		if t < 0 || t >= dataLen {
			return cursors, errors.New("Invalid input: corrupted BWT primary index")
		}

		cursors[i] = t
	}

	return cursors, nil
}

// inverseSingleChunk inverts the whole block in one pass using a packed
// index+value table (the "merge TPSI" strategy), the cheaper approach for
// blocks no larger than _BWT_BLOCK_SIZE_THRESHOLD2.
func (b *BWT) inverseSingleChunk(src, dst []byte, count int) (uint, uint, error) {
	if len(src) == 0 {
		return 0, 0, nil
	}

	pIdx := int(b.PrimaryIndex(0))

	if pIdx <= 0 || pIdx > len(src) {
		return 0, 0, errors.New("Invalid input: corrupted BWT primary index")
	}

	// Lazy dynamic memory allocation
	minLenBuf := max(count, 64)

	if len(b.buffer) < minLenBuf {
		b.buffer = make([]int32, minLenBuf)
	}

	// Aliasing
	data := b.buffer

	// Build array of packed index + value (assumes block size < 2^24)
	buckets := [256]int{}
	internal.ComputeHistogram(src[0:count], buckets[:], true, false)
	sum := 0

	for i, v := range &buckets {
		tmp := v
		buckets[i] = sum
		sum += tmp
	}

	data[buckets[src[0]]] = int32(0xFF00) | int32(src[0])
	buckets[src[0]]++

	for i := 1; i < pIdx; i++ {
		val := int32(src[i])
		data[buckets[val]] = int32((i-1)<<8) | val
		buckets[val]++
	}

	for i := pIdx; i < count; i++ {
		val := int32(src[i])
		data[buckets[val]] = int32(i<<8) | val
		buckets[val]++
	}

	if GetBWTChunks(count) != _BWT_MAX_CHUNKS {
		t := int32(pIdx - 1)

		for i := range src {
			ptr := data[t]
			dst[i] = byte(ptr)
			t = ptr >> 8
		}

		return uint(count), uint(count), nil
	}

	cursors, err := b.gatherChunkCursors(_BWT_MAX_CHUNKS, int32(len(data)))

	if err != nil {
		return 0, 0, err
	}

	ckSize := count >> 3

	if ckSize*8 != count {
		ckSize++
	}

	lanes := make([][]byte, _BWT_MAX_CHUNKS)

	for i := 0; i < _BWT_MAX_CHUNKS-1; i++ {
		lanes[i] = dst[i*ckSize : (i+1)*ckSize]
	}

	lanes[_BWT_MAX_CHUNKS-1] = dst[(_BWT_MAX_CHUNKS-1)*ckSize : count]

	// Last interval [7*chunk:count] is smaller whenever 8*ckSize != count
	end := count - ckSize*(_BWT_MAX_CHUNKS-1)
	n := 0

	for ; n < end; n++ {
		for lane := range lanes {
			ptr := data[cursors[lane]]
			lanes[lane][n] = byte(ptr)
			cursors[lane] = ptr >> 8
		}
	}

	for ; n < ckSize; n++ {
		for lane := 0; lane < _BWT_MAX_CHUNKS-1; lane++ {
			ptr := data[cursors[lane]]
			lanes[lane][n] = byte(ptr)
			cursors[lane] = ptr >> 8
		}
	}

	return uint(count), uint(count), nil
}

// inverseMultiChunk inverts blocks larger than _BWT_BLOCK_SIZE_THRESHOLD2
// using the "biPSIv2" strategy, sharding the chunk range across b.jobs
// goroutines via internal.ComputeJobsPerTask.
func (b *BWT) inverseMultiChunk(src, dst []byte, count int) (uint, uint, error) {
	// Lazy dynamic memory allocations
	minLenBuf := max(count+1, 256)

	if len(b.buffer) < minLenBuf {
		b.buffer = make([]int32, minLenBuf)
	}

	pIdx := int(b.PrimaryIndex(0))

	if pIdx > len(src) {
		return 0, 0, errors.New("Invalid input: corrupted BWT primary index")
	}

	freqs := [256]int{}
	internal.ComputeHistogram(src[0:count], freqs[:], true, false)
	buckets := make([]int, 65536)

	for c, sum := 0, 1; c < 256; c++ {
		f := sum
		sum += freqs[c]
		freqs[c] = f

		if f == sum {
			continue
		}

		ptr := buckets[c<<8 : (c+1)<<8]
		hi := min(sum, pIdx)
		lo := max(f-1, pIdx)

		for i := f; i < hi; i++ {
			ptr[src[i]]++
		}

		for i := lo; i < sum-1; i++ {
			ptr[src[i]]++
		}
	}

	lastc := int(src[0])
	fastBits := make([]uint16, _BWT_MASK_FASTBITS+1)
	shift := fastBitsShift(count)

	for c, v, sum := 0, 0, 1; c < 256; c++ {
		if c == lastc {
			sum++
		}

		ptr := buckets[c:]

		for d := 0; d < 256; d++ {
			val := ptr[d<<8]
			ptr[d<<8] = sum
			sum += val

			if val == 0 {
				continue
			}

			fb := uint16((c << 8) | d)
			ve := (sum - 1) >> shift

			for ; v <= ve; v++ {
				fastBits[v] = fb
			}
		}
	}

	data := b.buffer

	for i := 0; i < pIdx; i++ {
		appendCursor(data, buckets, freqs[:], src, i, i, pIdx)
	}

	for i := pIdx; i < count; i++ {
		appendCursor(data, buckets, freqs[:], src, i, i+1, pIdx)
	}

	for c := 0; c < 256; c++ {
		c256 := c << 8

		for d := 0; d < c; d++ {
			buckets[(d<<8)|c], buckets[c256|d] = buckets[c256|d], buckets[(d<<8)|c]
		}
	}

	chunks := GetBWTChunks(count)

	// Several chunks may be decoded concurrently, depending on the number
	// of jobs available for this block.
	ckSize := count / chunks

	if ckSize*chunks != count {
		ckSize++
	}

	nbTasks := min(int(b.jobs), chunks)
	jobsPerTask, _ := internal.ComputeJobsPerTask(make([]uint, nbTasks), uint(chunks), uint(nbTasks))
	var wg sync.WaitGroup

	for j, c := 0, 0; j < nbTasks; j++ {
		wg.Add(1)
		start := c * ckSize
		lastChunk := c + int(jobsPerTask[j])

		go func(start, firstChunk, lastChunk int) {
			defer wg.Done()
			b.invertChunkRange(dst, buckets, fastBits, b.primaryIndexes[:], count, start, ckSize, firstChunk, lastChunk)
		}(start, c, lastChunk)

		c = lastChunk
	}

	wg.Wait()
	dst[count-1] = byte(lastc)
	return uint(count), uint(count), nil
}

// fastBitsShift returns the shift that keeps (total >> shift) within the
// fastBits lookup table's range.
func fastBitsShift(total int) uint {
	shift := uint(0)

	for (total >> shift) > _BWT_MASK_FASTBITS {
		shift++
	}

	return shift
}

// appendCursor records one forward-scan cursor (position readPos, to be
// written at writePos) into the bucket-indexed table, unless it straddles
// the primary index (which has no predecessor byte to pair with).
func appendCursor(data []int32, buckets []int, freqs []int, src []byte, readPos, writePos, pIdx int) {
	c := int(src[readPos])
	p := freqs[c]
	freqs[c]++

	switch {
	case p < pIdx:
		idx := (c << 8) | int(src[p])
		data[buckets[idx]] = int32(writePos)
		buckets[idx]++
	case p > pIdx:
		idx := (c << 8) | int(src[p-1])
		data[buckets[idx]] = int32(writePos)
		buckets[idx]++
	}
}

// invertChunkRange walks the chunks [firstChunk, lastChunk) of the biPSIv2
// inversion, eight at a time while the remaining span allows it and then
// one at a time for the tail.
func (b *BWT) invertChunkRange(dst []byte, buckets []int, fastBits []uint16, indexes []uint, total, start, ckSize, firstChunk, lastChunk int) {
	data := b.buffer
	shift := fastBitsShift(total)
	c := firstChunk

	lanes := make([][]byte, _BWT_MAX_CHUNKS)

	for i := range lanes {
		lanes[i] = dst[i*ckSize:]
	}

	if start+_BWT_MAX_CHUNKS*ckSize <= total {
		var p [_BWT_MAX_CHUNKS]int

		for c+_BWT_MAX_CHUNKS-1 < lastChunk {
			end := start + ckSize

			for lane := range p {
				p[lane] = int(indexes[c+lane])
			}

			for i := start + 1; i <= end; i += 2 {
				var s [_BWT_MAX_CHUNKS]uint16

				for lane := range s {
					s[lane] = fastBits[p[lane]>>shift]

					for buckets[s[lane]] <= p[lane] {
						s[lane]++
					}
				}

				for lane := range s {
					lanes[lane][i-1] = byte(s[lane] >> 8)
					lanes[lane][i] = byte(s[lane])
					p[lane] = int(data[p[lane]])
				}
			}

			start += _BWT_MAX_CHUNKS * ckSize
			c += _BWT_MAX_CHUNKS
		}
	}

	for c < lastChunk {
		end := min(start+ckSize, total-1)
		p := int(indexes[c])

		for i := start + 1; i <= end; i += 2 {
			s := fastBits[p>>shift]

			for buckets[s] <= p {
				s++
			}

			dst[i-1] = byte(s >> 8)
			dst[i] = byte(s)
			p = int(data[p])
		}

		start = end
		c++
	}
}
