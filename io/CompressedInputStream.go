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

package io

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	kanzi "github.com/tarnhelm/kanzi"
	"github.com/tarnhelm/kanzi/bitstream"
	"github.com/tarnhelm/kanzi/entropy"
	"github.com/tarnhelm/kanzi/hash"
	"github.com/tarnhelm/kanzi/internal"
	"github.com/tarnhelm/kanzi/transform"
)

type decodingTaskResult struct {
	err            *IOError
	data           []byte
	decoded        int
	blockID        int
	skipped        bool
	checksum       uint32
	completionTime time.Time
}

// CompressedInputStream is a Reader that reads compressed data
// from an InputBitStream.
type CompressedInputStream struct {
	blockSize       int
	hasher          *hash.BlockHash32
	buffers         []blockBuffer
	entropyType     uint32
	transformType   uint64
	ibs             kanzi.InputBitStream
	initialized     int32
	closed          int32
	blockID         int32
	jobs            int
	bufferThreshold int
	available       int // decoded not consumed bytes
	consumed        int // decoded consumed bytes
	nbInputBlocks   int
	outputSize      int64
	listeners       []kanzi.Listener
	ctx             map[string]interface{}
}

type decodingTask struct {
	iBuffer            *blockBuffer
	oBuffer            *blockBuffer
	hasher             *hash.BlockHash32
	blockLength        uint
	blockTransformType uint64
	blockEntropyType   uint32
	currentBlockID     int32
	processedBlockID   *int32
	wg                 *sync.WaitGroup
	listeners          []kanzi.Listener
	ibs                kanzi.InputBitStream
	ctx                map[string]interface{}
}

// NewCompressedInputStream creates a new instance of CompressedInputStream.
func NewCompressedInputStream(is io.ReadCloser, jobs uint) (*CompressedInputStream, error) {
	ctx := make(map[string]interface{})
	ctx["jobs"] = jobs
	return NewCompressedInputStreamWithCtx(is, ctx)
}

// NewCompressedInputStreamWithCtx creates a new instance of CompressedInputStream
// using a map of parameters.
func NewCompressedInputStreamWithCtx(is io.ReadCloser, ctx map[string]interface{}) (*CompressedInputStream, error) {
	ibs, err := bitstream.NewDefaultInputBitStream(is, _STREAM_DEFAULT_BUFFER_SIZE)

	if err != nil {
		return nil, &IOError{msg: fmt.Sprintf("Cannot create input bit stream: %v", err), code: kanzi.ERR_CREATE_BITSTREAM}
	}

	return createCompressedInputStreamWithCtx(ibs, ctx)
}

// NewCompressedInputStreamWithCtx2 creates a new instance of CompressedInputStream
// using a map of parameters and a custom input bitstream.
func NewCompressedInputStreamWithCtx2(ibs kanzi.InputBitStream, ctx map[string]interface{}) (*CompressedInputStream, error) {
	return createCompressedInputStreamWithCtx(ibs, ctx)
}

func createCompressedInputStreamWithCtx(ibs kanzi.InputBitStream, ctx map[string]interface{}) (*CompressedInputStream, error) {
	if ibs == nil {
		return nil, &IOError{msg: "Invalid null input bitstream parameter", code: kanzi.ERR_CREATE_STREAM}
	}

	if ctx == nil {
		return nil, &IOError{msg: "Invalid null context parameter", code: kanzi.ERR_CREATE_STREAM}
	}

	tasks := ctx["jobs"].(uint)

	if tasks == 0 || tasks > _MAX_CONCURRENCY {
		return nil, &IOError{
			msg:  fmt.Sprintf("The number of jobs must be in [1..%d], got %d", _MAX_CONCURRENCY, tasks),
			code: kanzi.ERR_CREATE_STREAM,
		}
	}

	r := &CompressedInputStream{
		ibs:           ibs,
		jobs:          int(tasks),
		listeners:     make([]kanzi.Listener, 0),
		ctx:           ctx,
		entropyType:   entropy.NONE_TYPE,
		transformType: transform.NONE_TYPE,
	}

	r.buffers = make([]blockBuffer, 2*r.jobs)

	for i := range r.buffers {
		r.buffers[i] = blockBuffer{Buf: make([]byte, 0)}
	}

	return r, nil
}

// AddListener adds an event listener to this input stream.
// Returns true if the listener has been added.
func (r *CompressedInputStream) AddListener(bl kanzi.Listener) bool {
	if bl == nil {
		return false
	}

	r.listeners = append(r.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this input stream.
// Returns true if the listener has been removed.
func (r *CompressedInputStream) RemoveListener(bl kanzi.Listener) bool {
	if bl == nil {
		return false
	}

	for i, e := range r.listeners {
		if e == bl {
			r.listeners = append(r.listeners[0:i], r.listeners[i+1:]...)
			return true
		}
	}

	return false
}

func (r *CompressedInputStream) readHeader() error {
	defer func() {
		if rec := recover(); rec != nil {
			panic(&IOError{msg: "Cannot read bitstream header: " + rec.(error).Error(), code: kanzi.ERR_READ_FILE})
		}
	}()

	fileType := r.ibs.ReadBits(32)

	if fileType != _BITSTREAM_TYPE {
		return &IOError{msg: "Invalid stream type", code: kanzi.ERR_INVALID_FILE}
	}

	bsVersion := uint(r.ibs.ReadBits(4))

	if bsVersion > _BITSTREAM_FORMAT_VERSION {
		return &IOError{
			msg:  fmt.Sprintf("Invalid bitstream, cannot read this version of the stream: %d", bsVersion),
			code: kanzi.ERR_STREAM_VERSION,
		}
	}

	if bsVersion < _BITSTREAM_MIN_READ_VERSION {
		return &IOError{
			msg:  fmt.Sprintf("Invalid bitstream, cannot read reserved version of the stream: %d", bsVersion),
			code: kanzi.ERR_STREAM_VERSION,
		}
	}

	r.ctx["bsVersion"] = bsVersion

	if r.ibs.ReadBit() == 1 {
		r.hasher = hash.NewBlockHash32(_BITSTREAM_TYPE)
	}

	r.entropyType = uint32(r.ibs.ReadBits(5))
	eType, err := entropy.GetName(r.entropyType)

	if err != nil {
		return &IOError{msg: fmt.Sprintf("Invalid bitstream, invalid entropy type: %d", r.entropyType), code: kanzi.ERR_INVALID_CODEC}
	}

	r.ctx["entropy"] = eType

	// Read transforms: 8*6 bits
	r.transformType = r.ibs.ReadBits(48)
	tType, err := transform.GetName(r.transformType)

	if err != nil {
		return &IOError{msg: fmt.Sprintf("Invalid bitstream, invalid transform type: %d", r.transformType), code: kanzi.ERR_INVALID_CODEC}
	}

	r.ctx["transform"] = tType
	r.blockSize = int(r.ibs.ReadBits(28)) << 4

	if r.blockSize < _MIN_BITSTREAM_BLOCK_SIZE || r.blockSize > _MAX_BITSTREAM_BLOCK_SIZE {
		return &IOError{msg: fmt.Sprintf("Invalid bitstream, incorrect block size: %d", r.blockSize), code: kanzi.ERR_BLOCK_SIZE}
	}

	r.ctx["blockSize"] = uint(r.blockSize)
	r.bufferThreshold = r.blockSize

	if bsVersion < _BITSTREAM_FORMAT_VERSION {
		// Legacy header: 6 bit number of blocks (0 means 'unknown', 63 means
		// 63 or more), then a 4 bit check value.
		r.nbInputBlocks = int(r.ibs.ReadBits(6))

		if r.nbInputBlocks == 0 {
			r.nbInputBlocks = _UNKNOWN_NB_BLOCKS
		}

		cksum1 := uint32(r.ibs.ReadBits(4))
		cksum2 := legacyHeaderChecksum(uint32(bsVersion), r.entropyType, r.transformType, r.blockSize, r.nbInputBlocks)

		if cksum1 != cksum2 {
			return &IOError{msg: "Invalid bitstream: corrupted header", code: kanzi.ERR_CRC_CHECK}
		}

		r.notifyHeaderDecoded()
		return nil
	}

	// Current header: 2 bit size mask, 16*szMask bits of original size (0
	// means 'unknown'), then a 16 bit check value.
	szMask := uint(r.ibs.ReadBits(2))
	origSize := uint64(0)

	if szMask > 0 {
		origSize = r.ibs.ReadBits(16 * szMask)
		r.outputSize = int64(origSize)
		r.ctx["outputSize"] = r.outputSize
		nbBlocks := int((r.outputSize + int64(r.blockSize) - 1) / int64(r.blockSize))

		switch {
		case nbBlocks >= _MAX_CONCURRENCY:
			r.nbInputBlocks = _MAX_CONCURRENCY - 1
		case nbBlocks == 0:
			r.nbInputBlocks = 1
		default:
			r.nbInputBlocks = nbBlocks
		}
	} else {
		r.nbInputBlocks = _UNKNOWN_NB_BLOCKS
	}

	cksum1 := uint32(r.ibs.ReadBits(16))
	cksum2 := headerChecksum(uint32(bsVersion), r.entropyType, r.transformType, r.blockSize, szMask, origSize)

	if cksum1 != cksum2 {
		return &IOError{msg: "Invalid bitstream: corrupted header", code: kanzi.ERR_CRC_CHECK}
	}

	r.notifyHeaderDecoded()
	return nil
}

// notifyHeaderDecoded reports the decoded header fields as a CSV line
// (input name, bitstream version, checksum bits, block size, entropy codec,
// transforms, compressed size, original size) consumed by the info printers.
func (r *CompressedInputStream) notifyHeaderDecoded() {
	if len(r.listeners) == 0 {
		return
	}

	checkSize := 0

	if r.hasher != nil {
		checkSize = 32
	}

	inputName := ""

	if v, hasKey := r.ctx["inputName"]; hasKey {
		inputName = v.(string)
	}

	compSize := ""

	if v, hasKey := r.ctx["fileSize"]; hasKey {
		compSize = fmt.Sprintf("%d", v.(int64))
	}

	origSize := ""

	if r.outputSize > 0 {
		origSize = fmt.Sprintf("%d", r.outputSize)
	}

	w1, _ := entropy.GetName(r.entropyType)

	if w1 == "NONE" {
		w1 = ""
	}

	w2, _ := transform.GetName(r.transformType)

	if w2 == "NONE" {
		w2 = ""
	}

	msg := fmt.Sprintf("%s,%d,%d,%d,%s,%s,%s,%s", inputName, r.ctx["bsVersion"].(uint),
		checkSize, r.blockSize, w1, w2, compSize, origSize)
	evt := kanzi.NewEventFromString(kanzi.EVT_AFTER_HEADER_DECODING, 0, msg, time.Now())
	notifyListeners(r.listeners, evt)
}

// Close reads the buffered data from the input stream and releases resources.
// Close makes the bitstream unavailable for further reads. Idempotent
func (r *CompressedInputStream) Close() error {
	if atomic.SwapInt32(&r.closed, 1) == 1 {
		return nil
	}

	if err := r.ibs.Close(); err != nil {
		return err
	}

	r.available = 0

	for i := range r.buffers {
		r.buffers[i] = blockBuffer{Buf: make([]byte, 0)}
	}

	return nil
}

// Read reads up to len(block) bytes and copies them into block.
// It returns the number of bytes read (0 <= n <= len(block)) and any error encountered.
func (r *CompressedInputStream) Read(block []byte) (int, error) {
	if atomic.LoadInt32(&r.closed) == 1 {
		return 0, &IOError{msg: "Stream closed", code: kanzi.ERR_READ_FILE}
	}

	if atomic.SwapInt32(&r.initialized, 1) == 0 {
		if err := r.readHeader(); err != nil {
			return 0, err
		}
	}

	off := 0
	remaining := len(block)

	for remaining > 0 {
		avail := r.available
		bufOff := r.consumed % r.blockSize

		if avail > r.bufferThreshold-bufOff {
			avail = r.bufferThreshold - bufOff
		}

		lenChunk := remaining

		// lenChunk = min(remaining, min(r.available, r.bufferThreshold-bufOff))
		if lenChunk > avail {
			lenChunk = avail
		}

		if lenChunk > 0 {
			// Process a chunk of in-buffer data. No access to bitstream required
			bufID := r.consumed / r.blockSize
			copy(block[off:], r.buffers[bufID].Buf[bufOff:bufOff+lenChunk])
			off += lenChunk
			remaining -= lenChunk
			r.available -= lenChunk
			r.consumed += lenChunk

			if r.available > 0 && bufOff+lenChunk >= r.bufferThreshold {
				// Move to next buffer
				continue
			}

			if remaining == 0 {
				break
			}
		}

		// Buffer empty, time to decode
		if r.available == 0 {
			var err error

			if r.available, err = r.processBlock(); err != nil {
				return len(block) - remaining, err
			}

			if r.available == 0 {
				// Reached end of stream
				if len(block) == remaining {
					// EOF and we did not read any bytes in this call
					return 0, io.EOF
				}

				break
			}
		}
	}

	return len(block) - remaining, nil
}

func (r *CompressedInputStream) processBlock() (int, error) {
	if atomic.LoadInt32(&r.blockID) == _CANCEL_TASKS_ID {
		return 0, nil
	}

	blkSize := r.blockSize

	// Add a padding area to manage any block temporarily expanded
	if _EXTRA_BUFFER_SIZE >= blkSize>>4 {
		blkSize += _EXTRA_BUFFER_SIZE
	} else {
		blkSize += blkSize >> 4
	}

	// Protect against future concurrent modification of the list of block listeners
	listeners := make([]kanzi.Listener, len(r.listeners))
	copy(listeners, r.listeners)
	decoded := 0

	for {
		nbTasks, jobsPerTask := assignJobsPerTask(r.jobs, r.nbInputBlocks)
		results := make([]decodingTaskResult, nbTasks)
		wg := sync.WaitGroup{}
		firstID := r.blockID
		bufSize := r.blockSize + _EXTRA_BUFFER_SIZE

		if bufSize < r.blockSize+(r.blockSize>>4) {
			bufSize = r.blockSize + (r.blockSize >> 4)
		}

		// Invoke as many go routines as required
		for taskID := 0; taskID < nbTasks; taskID++ {
			r.buffers[taskID].Buf = growBuffer(r.buffers[taskID].Buf, bufSize)
			copyCtx := make(map[string]interface{}, len(r.ctx))

			for k, v := range r.ctx {
				copyCtx[k] = v
			}

			copyCtx["jobs"] = jobsPerTask[taskID]
			wg.Add(1)

			task := decodingTask{
				iBuffer:            &r.buffers[taskID],
				oBuffer:            &r.buffers[r.jobs+taskID],
				hasher:             r.hasher,
				blockLength:        uint(blkSize),
				blockTransformType: r.transformType,
				blockEntropyType:   r.entropyType,
				currentBlockID:     firstID + int32(taskID) + 1,
				processedBlockID:   &r.blockID,
				wg:                 &wg,
				listeners:          listeners,
				ibs:                r.ibs,
				ctx:                copyCtx,
			}

			// Invoke the tasks concurrently
			go task.decode(&results[taskID])
		}

		// Wait for completion of all tasks
		wg.Wait()
		skipped := 0

		for _, res := range results {
			if res.decoded > r.blockSize {
				return decoded, &IOError{msg: "Invalid data", code: kanzi.ERR_PROCESS_BLOCK}
			}

			decoded += res.decoded

			if res.err != nil {
				return decoded, res.err
			}

			if res.skipped {
				skipped++
			}
		}

		n := 0

		for _, res := range results {
			copy(r.buffers[n].Buf, res.data[0:res.decoded])
			n++

			if len(listeners) > 0 {
				// Notify after transform ... in block order !
				evt := kanzi.NewEvent(kanzi.EVT_AFTER_TRANSFORM, int(res.blockID),
					int64(res.decoded), uint64(res.checksum), hashEventType(r.hasher), res.completionTime)
				notifyListeners(listeners, evt)
			}
		}

		// Unless all blocks were skipped, exit the loop (usual case)
		if skipped != nbTasks {
			break
		}
	}

	r.consumed = 0
	return decoded, nil
}

// GetRead returns the number of bytes read so far.
func (r *CompressedInputStream) GetRead() uint64 {
	return (r.ibs.Read() + 7) >> 3
}

// decode decodes mode + transformed entropy coded data:
//
//	mode | 0b10000000 => copy block
//	mode | 0b0yy00000 => size(size(block))-1
//	mode | 0b000y0000 => 1 if more than 4 transforms
//
// case 4 transforms or less: mode | 0b0000yyyy => transform sequence skip flags (1 means skip)
// case more than 4 transforms: mode | 0b00000000, then 0byyyyyyyy => transform sequence skip flags
func (t *decodingTask) decode(res *decodingTaskResult) {
	data := t.iBuffer.Buf
	buffer := t.oBuffer.Buf
	decoded := 0
	checksum1 := uint32(0)
	skipped := false

	defer func() {
		res.data = t.iBuffer.Buf
		res.decoded = decoded
		res.blockID = int(t.currentBlockID)
		res.completionTime = time.Now()
		res.checksum = checksum1
		res.skipped = skipped

		if r := recover(); r != nil {
			res.err = &IOError{msg: r.(error).Error(), code: kanzi.ERR_PROCESS_BLOCK}
		}

		if res.err != nil || (res.decoded == 0 && !res.skipped) {
			atomic.StoreInt32(t.processedBlockID, _CANCEL_TASKS_ID)
		} else if atomic.LoadInt32(t.processedBlockID) == t.currentBlockID-1 {
			atomic.StoreInt32(t.processedBlockID, t.currentBlockID)
		}

		t.wg.Done()
	}()

	// Lock free synchronization
	for {
		taskID := atomic.LoadInt32(t.processedBlockID)

		if taskID == _CANCEL_TASKS_ID {
			return
		}

		if taskID == t.currentBlockID-1 {
			break
		}

		runtime.Gosched()
	}

	// Read shared bitstream sequentially
	lr := uint(t.ibs.ReadBits(5)) + 3
	read := t.ibs.ReadBits(lr)

	if read == 0 {
		return
	}

	if read > uint64(1)<<34 {
		res.err = &IOError{msg: "Invalid block size", code: kanzi.ERR_BLOCK_SIZE}
		return
	}

	r := int((read + 7) >> 3)
	maxL := r

	if int(t.blockLength) > r {
		maxL = int(t.blockLength)
	}

	if len(data) < maxL {
		data = growBuffer(data, maxL)
		t.iBuffer.Buf = data
	}

	readChunkedArray(t.ibs, data, read)

	// After completion of the bitstream reading, increment the block id.
	// It unblocks the task processing the next block (if any)
	atomic.StoreInt32(t.processedBlockID, t.currentBlockID)

	if t.blockOutOfRange() {
		skipped = true
		return
	}

	// All the code below is concurrent
	// Create a bitstream local to the task
	bufStream := internal.NewBufferStream(data[0:r])
	ibs, _ := bitstream.NewDefaultInputBitStream(bufStream, 16384)

	mode := byte(ibs.ReadBits(8))
	skipFlags := byte(0)

	if mode&_COPY_BLOCK_MASK != 0 {
		t.blockTransformType = transform.NONE_TYPE
		t.blockEntropyType = entropy.NONE_TYPE
	} else if mode&_TRANSFORMS_MASK != 0 {
		skipFlags = byte(ibs.ReadBits(8))
	} else {
		skipFlags = (mode << 4) | 0x0F
	}

	dataSize := 1 + uint((mode>>5)&0x03)
	length := dataSize << 3
	mask := uint64(1<<length) - 1
	preTransformLength := uint(ibs.ReadBits(length) & mask)

	if preTransformLength == 0 {
		res.err = &IOError{msg: "Invalid block size", code: kanzi.ERR_BLOCK_SIZE}
		return
	}

	if preTransformLength > _MAX_BITSTREAM_BLOCK_SIZE {
		// Error => cancel concurrent decoding tasks
		res.err = &IOError{msg: fmt.Sprintf("Invalid compressed block length: %d", preTransformLength), code: kanzi.ERR_BLOCK_SIZE}
		return
	}

	if t.hasher != nil {
		checksum1 = uint32(ibs.ReadBits(32))
	}

	if len(t.listeners) > 0 {
		evt := kanzi.NewEvent(kanzi.EVT_BEFORE_ENTROPY, int(t.currentBlockID),
			int64(-1), uint64(checksum1), hashEventType(t.hasher), time.Now())
		notifyListeners(t.listeners, evt)
	}

	bufferSize := t.blockLength

	if bufferSize < preTransformLength+_EXTRA_BUFFER_SIZE {
		bufferSize = preTransformLength + _EXTRA_BUFFER_SIZE
	}

	buffer = growBuffer(buffer, int(bufferSize))
	t.oBuffer.Buf = buffer
	t.ctx["size"] = preTransformLength

	// Each block is decoded separately
	// Rebuild the entropy decoder to reset block statistics
	ed, err := entropy.NewEntropyDecoder(ibs, t.ctx, t.blockEntropyType)

	if err != nil {
		// Error => cancel concurrent decoding tasks
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_INVALID_CODEC}
		return
	}

	defer ed.Dispose()

	if _, err = ed.Read(buffer[0:preTransformLength]); err != nil {
		// Error => cancel concurrent decoding tasks
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_PROCESS_BLOCK}
		return
	}

	ibs.Close()

	if len(t.listeners) > 0 {
		evt := kanzi.NewEvent(kanzi.EVT_AFTER_ENTROPY, int(t.currentBlockID),
			int64(ibs.Read())/8, uint64(checksum1), hashEventType(t.hasher), time.Now())
		notifyListeners(t.listeners, evt)

		evt = kanzi.NewEvent(kanzi.EVT_BEFORE_TRANSFORM, int(t.currentBlockID),
			int64(preTransformLength), uint64(checksum1), hashEventType(t.hasher), time.Now())
		notifyListeners(t.listeners, evt)
	}

	t.ctx["size"] = preTransformLength
	tr, err := transform.New(&t.ctx, t.blockTransformType)

	if err != nil {
		// Error => return
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_INVALID_CODEC}
		return
	}

	tr.SetSkipFlags(skipFlags)
	var oIdx uint

	if _, oIdx, err = tr.Inverse(buffer[0:preTransformLength], data); err != nil {
		// Error => return
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_PROCESS_BLOCK}
		return
	}

	decoded = int(oIdx)

	if t.hasher != nil {
		checksum2 := t.hasher.Hash(data[0:decoded])

		if checksum2 != checksum1 {
			res.err = &IOError{
				msg:  fmt.Sprintf("Corrupted bitstream: expected checksum %x, found %x", checksum1, checksum2),
				code: kanzi.ERR_CRC_CHECK,
			}
			return
		}
	}
}

// blockOutOfRange reports whether ctx["from"]/ctx["to"] (set when the caller
// only wants a sub-range of blocks decoded) excludes this block.
func (t *decodingTask) blockOutOfRange() bool {
	if v, hasKey := t.ctx["from"]; hasKey && int(t.currentBlockID) < v.(int) {
		return true
	}

	if v, hasKey := t.ctx["to"]; hasKey && int(t.currentBlockID) >= v.(int) {
		return true
	}

	return false
}

// readChunkedArray reads the read bits of the shared bitstream into data in
// chunks no larger than 1<<30 bits, the limit ReadArray's bookkeeping assumes.
func readChunkedArray(ibs kanzi.InputBitStream, data []byte, read uint64) {
	for n := uint(0); read > 0; {
		chkSize := uint(1 << 30)

		if read < 1<<30 {
			chkSize = uint(read)
		}

		ibs.ReadArray(data[n:], chkSize)
		n += (chkSize + 7) >> 3
		read -= uint64(chkSize)
	}
}
