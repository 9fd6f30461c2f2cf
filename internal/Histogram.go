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

package internal

// ComputeFirstOrderEntropy1024 computes the order 0 entropy of the block
// and scales the result by 1024 (result in the [0..1024] range).
// histo must hold the order-0 frequencies computed by ComputeHistogram,
// sized at least 256.
func ComputeFirstOrderEntropy1024(blockLen int, histo []int) int {
	if blockLen == 0 {
		return 0
	}

	sum := uint64(0)
	logLength1024, _ := Log2ScaledBy1024(uint32(blockLen))

	for _, count := range histo[:256] {
		if count == 0 {
			continue
		}

		log1024, _ := Log2ScaledBy1024(uint32(count))
		sum += (uint64(count) * uint64(logLength1024-log1024)) >> 3
	}

	return int(sum / uint64(blockLen))
}

// ComputeHistogram computes the order 0 or order 1 histogram for the input
// block and returns it in the 'freqs' slice. If withTotal is true, the last
// spot in each order-0 frequency slice carries the running total (each
// order-0 slice must then be of length 257).
func ComputeHistogram(block []byte, freqs []int, isOrder0, withTotal bool) {
	if isOrder0 {
		computeOrder0Histogram(block, freqs, withTotal)
		return
	}

	computeOrder1Histogram(block, freqs, withTotal)
}

func computeOrder0Histogram(block []byte, freqs []int, withTotal bool) {
	if withTotal {
		freqs[256] = len(block)
	}

	for _, b := range block {
		freqs[b]++
	}
}

func computeOrder1Histogram(block []byte, freqs []int, withTotal bool) {
	stride := 257
	shift := uint(0)

	if !withTotal {
		stride = 256
		shift = 8
	}

	prev := uint(0)

	for _, b := range block {
		cur := uint(b)

		if withTotal {
			freqs[prev+cur]++
			freqs[prev+256]++
		} else {
			freqs[prev+cur]++
		}

		if shift == 8 {
			prev = cur << shift
		} else {
			prev = uint(stride) * cur
		}
	}
}

// DetectSimpleType classifies a block from its order-0 histogram into one of
// the cheap-to-recognize data families (DNA, purely numeric, base64, binary,
// or a tiny alphabet), falling back to DT_UNDEFINED when none match.
func DetectSimpleType(count int, freqs0 []int) DataType {
	if count == 0 {
		return DT_UNDEFINED
	}

	if sum := sumSymbolFreqs(freqs0, dnaSymbols); sum > count-count/12 {
		return DT_DNA
	}

	if sum := sumSymbolFreqs(freqs0, numericSymbols); sum == count {
		return DT_NUMERIC
	}

	if sum := sumSymbolFreqs(freqs0, base64Symbols); sum+freqs0[0x3D] == count {
		return DT_BASE64
	}

	distinct := 0

	for _, f := range freqs0[:256] {
		if f > 0 {
			distinct++
		}
	}

	switch {
	case distinct == 256:
		return DT_BIN
	case distinct <= 4:
		return DT_SMALL_ALPHABET
	default:
		return DT_UNDEFINED
	}
}

func sumSymbolFreqs(freqs0 []int, symbols string) int {
	sum := 0

	for i := 0; i < len(symbols); i++ {
		sum += freqs0[symbols[i]]
	}

	return sum
}
