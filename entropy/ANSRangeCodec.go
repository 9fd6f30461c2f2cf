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

// Package entropy implements an Asymmetric Numeral System codec, among others.
// See "Asymmetric Numeral System" by Jarek Duda at http://arxiv.org/abs/0902.0271.
// The ANS state machine here is ported from https://github.com/rygorous/ryg_rans;
// see https://github.com/Cyan4973/FiniteStateEntropy for an alternate C take.
//
// ANSRangeEncoder/ANSRangeDecoder live in their own files (ANSRangeEncoder.go,
// ANSRangeDecoder.go); this file holds what both sides share: the wire
// constants, the per-symbol tables, and the header chunking math that the
// encoder writes and the decoder must read back identically.
package entropy

const (
	_ANS_TOP                 = 1 << 15       // max possible for ANS_TOP=1<23
	_DEFAULT_ANS0_CHUNK_SIZE = uint(1 << 15) // 32 KB by default
	_ANS_MIN_CHUNK_SIZE      = 1024
	_ANS_MAX_CHUNK_SIZE      = 1 << 27 // 8*MAX_CHUNK_SIZE must not overflow
	_DEFAULT_ANS_LOG_RANGE   = uint(12)
)

// encSymbol holds the per-symbol constants the ANS encoder needs to fold a
// symbol into the running state without a division on the hot path.
type encSymbol struct {
	xMax     int    // (Exclusive) upper bound of pre-normalization interval
	bias     int    // Bias
	cmplFreq int    // Complement of frequency: (1 << scale_bits) - freq
	invShift uint8  // Reciprocal shift
	invFreq  uint64 // Fixed-point reciprocal frequency
}

func (s *encSymbol) reset(cumFreq, freq int, logRange uint) {
	// Make sure xMax is a positive int32. Compatibility with Java implementation
	if freq >= 1<<logRange {
		freq = (1 << logRange) - 1
	}

	s.xMax = ((_ANS_TOP >> logRange) << 16) * freq
	s.cmplFreq = (1 << logRange) - freq

	if freq < 2 {
		s.invFreq = 0xFFFFFFFF
		s.invShift = 32
		s.bias = cumFreq + (1 << logRange) - 1
		return
	}

	shift := uint(0)

	for freq > 1<<shift {
		shift++
	}

	// Alverson, "Integer Division using reciprocals"
	s.invFreq = (((1 << (shift + 31)) + uint64(freq-1)) / uint64(freq)) & 0xFFFFFFFF
	s.invShift = uint8(32 + shift - 1)
	s.bias = cumFreq
}

// decSymbol is the decoder's mirror of encSymbol: only cumFreq/freq are
// needed to invert the ANS state transition given the symbol read from f2s.
type decSymbol struct {
	cumFreq int
	freq    int
}

func (s *decSymbol) reset(cumFreq, freq int, logRange uint) {
	// Mirror encoder
	if freq >= 1<<logRange {
		freq = (1 << logRange) - 1
	}

	s.cumFreq = cumFreq
	s.freq = freq
}

// ansFrequencyChunkStep returns how many alphabet entries share one
// logMax header field: small alphabets pack frequencies more densely since
// there's less entropy to amortize the logMax overhead over.
func ansFrequencyChunkStep(alphabetSize int) int {
	if alphabetSize < 64 {
		return 6
	}

	return 8
}

// ansLogMaxFieldWidth returns the number of bits needed to store a logMax
// value no larger than lr, i.e. the smallest llr with 1<<llr > lr.
func ansLogMaxFieldWidth(lr uint) uint {
	llr := uint(3)

	for 1<<llr <= lr {
		llr++
	}

	return llr
}
