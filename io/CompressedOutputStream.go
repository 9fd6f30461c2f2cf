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

// CompressedOutputStream is a Writer that writes compressed data
// to an OutputBitStream.
type CompressedOutputStream struct {
	blockSize     int
	hasher        *hash.BlockHash32
	hasher64      *hash.BlockHash64
	buffers       []blockBuffer
	entropyType   uint32
	transformType uint64
	obs           kanzi.OutputBitStream
	initialized   int32
	closed        int32
	blockID       int32
	jobs          int
	nbInputBlocks int
	outputSize    int64
	available     int
	listeners     []kanzi.Listener
	ctx           map[string]interface{}
}

type encodingTask struct {
	iBuffer            *blockBuffer
	oBuffer            *blockBuffer
	hasher             *hash.BlockHash32
	hasher64           *hash.BlockHash64
	blockLength        uint
	blockTransformType uint64
	blockEntropyType   uint32
	currentBlockID     int32
	processedBlockID   *int32
	wg                 *sync.WaitGroup
	listeners          []kanzi.Listener
	obs                kanzi.OutputBitStream
	ctx                map[string]interface{}
}

type encodingTaskResult struct {
	err *IOError
}

// NewCompressedOutputStream creates a new instance of CompressedOutputStream.
// checksum selects the per-block content hash width: 0 (disabled), 32 or 64.
func NewCompressedOutputStream(os io.WriteCloser, codec, transform string, blockSize, jobs, checksum uint) (*CompressedOutputStream, error) {
	ctx := make(map[string]interface{})
	ctx["entropy"] = codec
	ctx["transform"] = transform
	ctx["blockSize"] = blockSize
	ctx["jobs"] = jobs
	ctx["checksum"] = checksum
	return NewCompressedOutputStreamWithCtx(os, ctx)
}

// NewCompressedOutputStreamWithCtx creates a new instance of CompressedOutputStream using a
// map of parameters and a writer.
func NewCompressedOutputStreamWithCtx(os io.WriteCloser, ctx map[string]interface{}) (*CompressedOutputStream, error) {
	obs, err := bitstream.NewDefaultOutputBitStream(os, _STREAM_DEFAULT_BUFFER_SIZE)

	if err != nil {
		return nil, &IOError{msg: fmt.Sprintf("Cannot create output bit stream: %v", err), code: kanzi.ERR_CREATE_BITSTREAM}
	}

	return createCompressedOutputStreamWithCtx(obs, ctx)
}

// NewCompressedOutputStreamWithCtx2 creates a new instance of CompressedOutputStream using a
// map of parameters and a custom output bitstream.
func NewCompressedOutputStreamWithCtx2(obs kanzi.OutputBitStream, ctx map[string]interface{}) (*CompressedOutputStream, error) {
	return createCompressedOutputStreamWithCtx(obs, ctx)
}

func validateOutputStreamCtx(ctx map[string]interface{}) (tasks uint, bSize uint, err *IOError) {
	tasks = ctx["jobs"].(uint)

	if tasks == 0 || tasks > _MAX_CONCURRENCY {
		return 0, 0, &IOError{
			msg:  fmt.Sprintf("The number of jobs must be in [1..%d], got %d", _MAX_CONCURRENCY, tasks),
			code: kanzi.ERR_CREATE_STREAM,
		}
	}

	bSize = ctx["blockSize"].(uint)

	if bSize > _MAX_BITSTREAM_BLOCK_SIZE {
		return 0, 0, &IOError{
			msg:  fmt.Sprintf("The block size must be at most %d MB", _MAX_BITSTREAM_BLOCK_SIZE>>20),
			code: kanzi.ERR_CREATE_STREAM,
		}
	}

	if bSize < _MIN_BITSTREAM_BLOCK_SIZE {
		return 0, 0, &IOError{msg: fmt.Sprintf("The block size must be at least %d", _MIN_BITSTREAM_BLOCK_SIZE), code: kanzi.ERR_CREATE_STREAM}
	}

	if int(bSize)&-16 != int(bSize) {
		return 0, 0, &IOError{msg: "The block size must be a multiple of 16", code: kanzi.ERR_CREATE_STREAM}
	}

	if checksum := ctx["checksum"].(uint); checksum != 0 && checksum != 32 && checksum != 64 {
		return 0, 0, &IOError{
			msg:  fmt.Sprintf("The block checksum size must be 0, 32 or 64, got %d", checksum),
			code: kanzi.ERR_CREATE_STREAM,
		}
	}

	return tasks, bSize, nil
}

func createCompressedOutputStreamWithCtx(obs kanzi.OutputBitStream, ctx map[string]interface{}) (*CompressedOutputStream, error) {
	if obs == nil {
		return nil, &IOError{msg: "Invalid null output bitstream parameter", code: kanzi.ERR_CREATE_STREAM}
	}

	if ctx == nil {
		return nil, &IOError{msg: "Invalid null context parameter", code: kanzi.ERR_CREATE_STREAM}
	}

	tasks, bSize, verr := validateOutputStreamCtx(ctx)

	if verr != nil {
		return nil, verr
	}

	ctx["bsVersion"] = uint(_BITSTREAM_FORMAT_VERSION)
	eType, err := entropy.GetType(ctx["entropy"].(string))

	if err != nil {
		return nil, &IOError{msg: err.Error(), code: kanzi.ERR_CREATE_STREAM}
	}

	tType, err := transform.GetType(ctx["transform"].(string))

	if err != nil {
		return nil, &IOError{msg: err.Error(), code: kanzi.ERR_CREATE_STREAM}
	}

	w := &CompressedOutputStream{
		obs:           obs,
		entropyType:   eType,
		transformType: tType,
		blockSize:     int(bSize),
		jobs:          int(tasks),
		listeners:     make([]kanzi.Listener, 0),
		ctx:           ctx,
	}

	nbBlocks := _UNKNOWN_NB_BLOCKS

	// If input size has been provided, remember it for the header (szMask +
	// original size fields) and derive the number of blocks in the input data
	// to bound the concurrency of the first wave of encoding tasks.
	if val, containsKey := ctx["fileSize"]; containsKey {
		fileSize := val.(int64)
		w.outputSize = fileSize
		nbBlocks = int((fileSize + int64(bSize-1)) / int64(bSize))
	}

	switch {
	case nbBlocks >= _MAX_CONCURRENCY:
		w.nbInputBlocks = _MAX_CONCURRENCY - 1
	case nbBlocks == 0:
		w.nbInputBlocks = 1
	default:
		w.nbInputBlocks = nbBlocks
	}

	// The bitstream always carries the 32 bit block hash when checksums are
	// enabled. The 64 bit variant additionally feeds the wider hash to the
	// block event listeners.
	if checksum := ctx["checksum"].(uint); checksum != 0 {
		w.hasher = hash.NewBlockHash32(_BITSTREAM_TYPE)

		if checksum == 64 {
			w.hasher64 = hash.NewBlockHash64(_BITSTREAM_TYPE)
		}
	}

	w.buffers = make([]blockBuffer, 2*w.jobs)
	bufSize := w.blockSize + w.blockSize>>6

	if bufSize < 65536 {
		bufSize = 65536
	}

	// Allocate first buffer and add padding for incompressible blocks
	w.buffers[0] = blockBuffer{Buf: make([]byte, bufSize)}
	w.buffers[w.jobs] = blockBuffer{Buf: make([]byte, 0)}

	for i := 1; i < w.jobs; i++ {
		w.buffers[i] = blockBuffer{Buf: make([]byte, 0)}
		w.buffers[i+w.jobs] = blockBuffer{Buf: make([]byte, 0)}
	}

	return w, nil
}

// AddListener adds an event listener to this output stream.
// Returns true if the listener has been added.
func (w *CompressedOutputStream) AddListener(bl kanzi.Listener) bool {
	if bl == nil {
		return false
	}

	w.listeners = append(w.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this output stream.
// Returns true if the listener has been removed.
func (w *CompressedOutputStream) RemoveListener(bl kanzi.Listener) bool {
	if bl == nil {
		return false
	}

	for i, e := range w.listeners {
		if e == bl {
			w.listeners = append(w.listeners[:i], w.listeners[i+1:]...)
			return true
		}
	}

	return false
}

func (w *CompressedOutputStream) writeHeader() *IOError {
	cksum := uint32(0)

	if w.hasher != nil {
		cksum = 1
	}

	if w.obs.WriteBits(_BITSTREAM_TYPE, 32) != 32 {
		return &IOError{msg: "Cannot write bitstream type to header", code: kanzi.ERR_WRITE_FILE}
	}

	if w.obs.WriteBits(_BITSTREAM_FORMAT_VERSION, 4) != 4 {
		return &IOError{msg: "Cannot write bitstream version to header", code: kanzi.ERR_WRITE_FILE}
	}

	if w.obs.WriteBits(uint64(cksum), 1) != 1 {
		return &IOError{msg: "Cannot write checksum to header", code: kanzi.ERR_WRITE_FILE}
	}

	if w.obs.WriteBits(uint64(w.entropyType), 5) != 5 {
		return &IOError{msg: "Cannot write entropy type to header", code: kanzi.ERR_WRITE_FILE}
	}

	if w.obs.WriteBits(uint64(w.transformType), 48) != 48 {
		return &IOError{msg: "Cannot write transform types to header", code: kanzi.ERR_WRITE_FILE}
	}

	if w.obs.WriteBits(uint64(w.blockSize>>4), 28) != 28 {
		return &IOError{msg: "Cannot write block size to header", code: kanzi.ERR_WRITE_FILE}
	}

	// szMask selects how many bits (16*szMask) carry the original input size.
	// 0 means the size is unknown; sizes of 2^48 and above cannot be encoded.
	szMask := uint(0)

	if w.outputSize > 0 {
		switch {
		case w.outputSize < 1<<16:
			szMask = 1
		case w.outputSize < 1<<32:
			szMask = 2
		case w.outputSize < 1<<48:
			szMask = 3
		}
	}

	if w.obs.WriteBits(uint64(szMask), 2) != 2 {
		return &IOError{msg: "Cannot write size mask to header", code: kanzi.ERR_WRITE_FILE}
	}

	if szMask > 0 {
		if w.obs.WriteBits(uint64(w.outputSize), 16*szMask) != 16*szMask {
			return &IOError{msg: "Cannot write original size to header", code: kanzi.ERR_WRITE_FILE}
		}
	}

	cksum = headerChecksum(_BITSTREAM_FORMAT_VERSION, w.entropyType, w.transformType, w.blockSize, szMask, uint64(w.outputSize))

	if w.obs.WriteBits(uint64(cksum), 16) != 16 {
		return &IOError{msg: "Cannot write checksum to header", code: kanzi.ERR_WRITE_FILE}
	}

	return nil
}

// Write writes len(block) bytes from block to the underlying data stream.
// It returns the number of bytes written from block (0 <= n <= len(block)) and
// any error encountered that caused the write to stop early.
func (w *CompressedOutputStream) Write(block []byte) (int, error) {
	if atomic.LoadInt32(&w.closed) == 1 {
		return 0, &IOError{msg: "Stream closed", code: kanzi.ERR_WRITE_FILE}
	}

	off := 0
	remaining := len(block)

	for remaining > 0 {
		lenChunk := remaining
		bufOff := w.available % w.blockSize

		if lenChunk > w.blockSize-bufOff {
			lenChunk = w.blockSize - bufOff
		}

		if lenChunk == 0 {
			continue
		}

		// Process a chunk of in-buffer data. No access to bitstream required
		bufID := w.available / w.blockSize
		copy(w.buffers[bufID].Buf[bufOff:], block[off:off+lenChunk])
		bufOff += lenChunk
		off += lenChunk
		remaining -= lenChunk
		w.available += lenChunk

		if bufOff >= w.blockSize {
			if bufID+1 < w.jobs {
				// Current write buffer is full
				if len(w.buffers[bufID+1].Buf) == 0 {
					bufSize := w.blockSize + w.blockSize>>6

					if bufSize < 65536 {
						bufSize = 65536
					}

					w.buffers[bufID+1].Buf = make([]byte, bufSize)
				}
			} else if err := w.processBlock(); err != nil {
				// If all buffers are full, time to encode
				return len(block) - remaining, err
			}
		}

		if remaining == 0 {
			break
		}
	}

	return len(block) - remaining, nil
}

// Close writes the buffered data to the output stream then writes
// a final empty block and releases resources.
// Close makes the bitstream unavailable for further writes. Idempotent.
func (w *CompressedOutputStream) Close() error {
	if atomic.SwapInt32(&w.closed, 1) == 1 {
		return nil
	}

	if err := w.processBlock(); err != nil {
		return err
	}

	// Write end block of size 0
	w.obs.WriteBits(0, 5) // write length-3 (5 bits max)
	w.obs.WriteBits(0, 3)

	if err := w.obs.Close(); err != nil {
		return err
	}

	// Release resources
	for i := range w.buffers {
		w.buffers[i] = blockBuffer{Buf: make([]byte, 0)}
	}

	return nil
}

func (w *CompressedOutputStream) processBlock() error {
	if atomic.SwapInt32(&w.initialized, 1) == 0 {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}

	if w.available == 0 {
		return nil
	}

	// Protect against future concurrent modification of the list of block listeners
	listeners := make([]kanzi.Listener, len(w.listeners))
	copy(listeners, w.listeners)

	nbTasks, jobsPerTask := assignJobsPerTask(w.jobs, w.nbInputBlocks)
	wg := sync.WaitGroup{}
	results := make([]encodingTaskResult, nbTasks)
	firstID := w.blockID

	// Invoke as many go routines as required
	for taskID := 0; taskID < nbTasks; taskID++ {
		dataLength := w.available

		if dataLength > w.blockSize {
			dataLength = w.blockSize
		}

		if dataLength == 0 {
			break
		}

		copyCtx := make(map[string]interface{}, len(w.ctx))

		for k, v := range w.ctx {
			copyCtx[k] = v
		}

		copyCtx["jobs"] = jobsPerTask[taskID]
		wg.Add(1)
		w.available -= dataLength

		task := encodingTask{
			iBuffer:            &w.buffers[taskID],
			oBuffer:            &w.buffers[w.jobs+taskID],
			hasher:             w.hasher,
			hasher64:           w.hasher64,
			blockLength:        uint(dataLength),
			blockTransformType: w.transformType,
			blockEntropyType:   w.entropyType,
			currentBlockID:     firstID + int32(taskID) + 1,
			processedBlockID:   &w.blockID,
			wg:                 &wg,
			obs:                w.obs,
			listeners:          listeners,
			ctx:                copyCtx,
		}

		// Invoke the tasks concurrently
		go task.encode(&results[taskID])
	}

	// Wait for completion of all tasks
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return r.err
		}
	}

	return nil
}

// GetWritten returns the number of bytes written so far.
func (w *CompressedOutputStream) GetWritten() uint64 {
	return (w.obs.Written() + 7) >> 3
}

// encode transforms and entropy codes one block; its 'mode' byte records whether the block was
// copied verbatim and how many bytes encode the post-transform length:
//
//	mode | 0b10000000 => copy block
//	mode | 0b0yy00000 => size(size(block))-1
//	mode | 0b000y0000 => 1 if more than 4 transforms
//
// case 4 transforms or less: mode | 0b0000yyyy => transform sequence skip flags (1 means skip)
// case more than 4 transforms: mode | 0b00000000, then 0byyyyyyyy => transform sequence skip flags
func (t *encodingTask) encode(res *encodingTaskResult) {
	data := t.iBuffer.Buf
	buffer := t.oBuffer.Buf
	mode := byte(0)
	checksum := uint32(0)

	defer func() {
		if r := recover(); r != nil {
			res.err = &IOError{msg: r.(error).Error(), code: kanzi.ERR_PROCESS_BLOCK}
		}

		// Unblock other tasks
		if res.err != nil {
			atomic.StoreInt32(t.processedBlockID, _CANCEL_TASKS_ID)
		} else if atomic.LoadInt32(t.processedBlockID) == t.currentBlockID-1 {
			atomic.StoreInt32(t.processedBlockID, t.currentBlockID)
		}

		t.wg.Done()
	}()

	// The bitstream always carries the 32 bit hash; the 64 bit variant only
	// widens what the listeners see.
	evtHash := uint64(0)
	evtHashType := kanzi.EVT_HASH_NONE

	if t.hasher != nil {
		checksum = t.hasher.Hash(data[0:t.blockLength])
		evtHash = uint64(checksum)
		evtHashType = kanzi.EVT_HASH_32BITS

		if t.hasher64 != nil {
			evtHash = t.hasher64.Hash(data[0:t.blockLength])
			evtHashType = kanzi.EVT_HASH_64BITS
		}
	}

	if len(t.listeners) > 0 {
		evt := kanzi.NewEvent(kanzi.EVT_BEFORE_TRANSFORM, int(t.currentBlockID),
			int64(t.blockLength), evtHash, evtHashType, time.Now())
		notifyListeners(t.listeners, evt)
	}

	if t.blockLength <= _SMALL_BLOCK_SIZE {
		t.blockTransformType = transform.NONE_TYPE
		t.blockEntropyType = entropy.NONE_TYPE
		mode |= byte(_COPY_BLOCK_MASK)
	} else if t.shouldSkipTransform(data) {
		t.blockTransformType = transform.NONE_TYPE
		t.blockEntropyType = entropy.NONE_TYPE
		mode |= _COPY_BLOCK_MASK
	}

	t.ctx["size"] = t.blockLength
	tr, err := transform.New(&t.ctx, t.blockTransformType)

	if err != nil {
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_CREATE_CODEC}
		return
	}

	requiredSize := tr.MaxEncodedLen(int(t.blockLength))

	if t.blockLength >= 4 {
		magic := internal.GetMagicType(data)

		switch {
		case internal.IsDataCompressed(magic):
			t.ctx["dataType"] = internal.DT_BIN
		case internal.IsDataMultimedia(magic):
			t.ctx["dataType"] = internal.DT_MULTIMEDIA
		case internal.IsDataExecutable(magic):
			t.ctx["dataType"] = internal.DT_EXE
		}
	}

	data = growBuffer(data, requiredSize)
	t.iBuffer.Buf = data
	buffer = growBuffer(buffer, requiredSize)
	t.oBuffer.Buf = buffer

	// Forward transform (ignore error, encode skipFlags)
	_, postTransformLength, _ := tr.Forward(data[0:t.blockLength], buffer)
	t.ctx["size"] = postTransformLength
	dataSize := uint(1)

	if postTransformLength >= 256 {
		dataSize = uint(internal.Log2NoCheck(uint32(postTransformLength))>>3) + 1

		if dataSize > 4 {
			res.err = &IOError{msg: "Invalid block data length", code: kanzi.ERR_WRITE_FILE}
			return
		}
	}

	// Record size of 'block size' - 1 in bytes
	mode |= byte(((dataSize - 1) & 0x03) << 5)

	if len(t.listeners) > 0 {
		evt := kanzi.NewEvent(kanzi.EVT_AFTER_TRANSFORM, int(t.currentBlockID),
			int64(postTransformLength), evtHash, evtHashType, time.Now())
		notifyListeners(t.listeners, evt)
	}

	bufSize := postTransformLength

	if bufSize < t.blockLength+(t.blockLength>>3) {
		bufSize = t.blockLength + (t.blockLength >> 3)
	}

	if bufSize < 512*1024 {
		bufSize = 512 * 1024
	}

	if len(data) < int(bufSize) {
		// Rare case where the transform expanded the input or the entropy
		// coder may expand the size
		data = make([]byte, bufSize)
	}

	// Create a bitstream local to the task
	bufStream := internal.NewBufferStream(data[0:0:cap(data)])
	obs, _ := bitstream.NewDefaultOutputBitStream(bufStream, 16384)

	// Write block 'header' (mode + compressed length)
	if (mode&_COPY_BLOCK_MASK) != 0 || tr.Len() <= 4 {
		mode |= byte(tr.SkipFlags() >> 4)
		obs.WriteBits(uint64(mode), 8)
	} else {
		mode |= _TRANSFORMS_MASK
		obs.WriteBits(uint64(mode), 8)
		obs.WriteBits(uint64(tr.SkipFlags()), 8)
	}

	obs.WriteBits(uint64(postTransformLength), 8*dataSize)

	if t.hasher != nil {
		obs.WriteBits(uint64(checksum), 32)
	}

	if len(t.listeners) > 0 {
		evt := kanzi.NewEvent(kanzi.EVT_BEFORE_ENTROPY, int(t.currentBlockID),
			int64(postTransformLength), evtHash, evtHashType, time.Now())
		notifyListeners(t.listeners, evt)
	}

	// Each block is encoded separately
	// Rebuild the entropy encoder to reset block statistics
	ee, err := entropy.NewEntropyEncoder(obs, t.ctx, t.blockEntropyType)

	if err != nil {
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_CREATE_CODEC}
		return
	}

	if _, err = ee.Write(buffer[0:postTransformLength]); err != nil {
		res.err = &IOError{msg: err.Error(), code: kanzi.ERR_PROCESS_BLOCK}
		return
	}

	// Dispose before displaying statistics. Dispose may write to the bitstream
	ee.Dispose()
	obs.Close()
	written := obs.Written()

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

	if len(t.listeners) > 0 {
		evt := kanzi.NewEvent(kanzi.EVT_AFTER_ENTROPY, int(t.currentBlockID),
			int64((written+7)>>3), evtHash, evtHashType, time.Now())
		notifyListeners(t.listeners, evt)
	}

	// Emit block size in bits (max size pre-entropy is 1 GB = 1 << 30 bytes)
	lw := uint(3)

	if written >= 8 {
		lw = uint(internal.Log2NoCheck(uint32(written>>3)) + 4)
	}

	t.obs.WriteBits(uint64(lw-3), 5) // write length-3 (5 bits max)
	t.obs.WriteBits(written, lw)
	writeChunkedArray(t.obs, data, written)
}

// shouldSkipTransform decides whether ctx["skipBlocks"] plus a cheap magic /
// entropy estimate of data says this block should bypass the transform and
// entropy stages entirely and be stored as-is.
func (t *encodingTask) shouldSkipTransform(data []byte) bool {
	skipOpt, present := t.ctx["skipBlocks"]

	if !present || !skipOpt.(bool) {
		return false
	}

	if t.blockLength >= 8 && internal.IsDataCompressed(internal.GetMagicType(data)) {
		return true
	}

	histo := [256]int{}
	internal.ComputeHistogram(data[0:t.blockLength], histo[:], true, false)
	entropy1024 := internal.ComputeFirstOrderEntropy1024(int(t.blockLength), histo[:])
	return entropy1024 >= entropy.INCOMPRESSIBLE_THRESHOLD
}

// writeChunkedArray writes the written bits of data to obs in chunks no
// larger than 1<<30 bits, the limit WriteArray's bookkeeping assumes.
func writeChunkedArray(obs kanzi.OutputBitStream, data []byte, written uint64) {
	chkSize := uint(1 << 30)

	if written < 1<<30 {
		chkSize = uint(written)
	}

	for n := uint(0); written > 0; {
		obs.WriteArray(data[n:], chkSize)
		n += (chkSize + 7) >> 3
		written -= uint64(chkSize)
		chkSize = uint(1 << 30)

		if written < 1<<30 {
			chkSize = uint(written)
		}
	}
}
