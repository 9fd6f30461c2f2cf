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

package entropy

import (
	"fmt"
	"strings"

	kanzi "github.com/tarnhelm/kanzi"
)

const (
	NONE_TYPE    = uint32(0)  // No compression
	HUFFMAN_TYPE = uint32(1)  // Huffman
	FPAQ_TYPE    = uint32(2)  // Fast PAQ (order 0)
	PAQ_TYPE     = uint32(3)  // Obsolete
	RANGE_TYPE   = uint32(4)  // Range
	ANS0_TYPE    = uint32(5)  // Asymmetric Numerical System order 0
	CM_TYPE      = uint32(6)  // Context Model
	TPAQ_TYPE    = uint32(7)  // Tangelo PAQ
	ANS1_TYPE    = uint32(8)  // Asymmetric Numerical System order 1
	TPAQX_TYPE   = uint32(9)  // Tangelo PAQ Extra
	RESERVED1    = uint32(10) // Reserved
	RESERVED2    = uint32(11) // Reserved
	RESERVED3    = uint32(12) // Reserved
	RESERVED4    = uint32(13) // Reserved
	RESERVED5    = uint32(14) // Reserved
	RESERVED6    = uint32(15) // Reserved
)

// entropyCodecNames is the single source of truth mapping a wire type code
// to its display name; GetName and GetType both derive from it rather than
// each carrying their own switch.
var entropyCodecNames = map[uint32]string{
	NONE_TYPE:    "NONE",
	HUFFMAN_TYPE: "HUFFMAN",
	ANS0_TYPE:    "ANS0",
	ANS1_TYPE:    "ANS1",
	RANGE_TYPE:   "RANGE",
	FPAQ_TYPE:    "FPAQ",
	CM_TYPE:      "CM",
	TPAQ_TYPE:    "TPAQ",
	TPAQX_TYPE:   "TPAQX",
}

// newCMPredictor and newTPAQPredictor adapt the concrete *CMPredictor/
// *TPAQPredictor constructors to a common kanzi.Predictor-returning shape,
// since Go function types aren't covariant in their result types and so
// can't be passed to newPredictor{Decoder,Encoder}Factory directly.
func newCMPredictor(ctx *map[string]any) (kanzi.Predictor, error) {
	return NewCMPredictor(ctx)
}

func newTPAQPredictor(ctx *map[string]any) (kanzi.Predictor, error) {
	return NewTPAQPredictor(ctx)
}

// decoderFactories maps a wire type code to the constructor that builds the
// matching kanzi.EntropyDecoder. CM/TPAQ/TPAQX share a predictor-then-binary-
// coder shape that doesn't fit the table directly, so those are wrapped in
// a closure built by newPredictorDecoderFactory.
var decoderFactories = map[uint32]func(kanzi.InputBitStream, map[string]any) (kanzi.EntropyDecoder, error){
	HUFFMAN_TYPE: func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		return NewHuffmanDecoderWithCtx(ibs, &ctx)
	},
	ANS0_TYPE: func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		return NewANSRangeDecoderWithCtx(ibs, 0, &ctx)
	},
	ANS1_TYPE: func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		return NewANSRangeDecoderWithCtx(ibs, 1, &ctx)
	},
	RANGE_TYPE: func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		return NewRangeDecoderWithCtx(ibs, &ctx)
	},
	FPAQ_TYPE: func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		return NewFPAQDecoderWithCtx(ibs, &ctx)
	},
	CM_TYPE: newPredictorDecoderFactory(newCMPredictor),
	TPAQ_TYPE: newPredictorDecoderFactory(newTPAQPredictor),
	TPAQX_TYPE: newPredictorDecoderFactory(newTPAQPredictor),
	NONE_TYPE: func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		return NewNullEntropyDecoder(ibs)
	},
}

// newPredictorDecoderFactory adapts a Predictor constructor (CMPredictor,
// TPAQPredictor) into the decoderFactories table shape, since every
// predictor-based codec is just that predictor wrapped in a BinaryEntropyDecoder.
func newPredictorDecoderFactory(newPredictor func(*map[string]any) (kanzi.Predictor, error)) func(kanzi.InputBitStream, map[string]any) (kanzi.EntropyDecoder, error) {
	return func(ibs kanzi.InputBitStream, ctx map[string]any) (kanzi.EntropyDecoder, error) {
		predictor, err := newPredictor(&ctx)

		if err != nil {
			return nil, err
		}

		return NewBinaryEntropyDecoder(ibs, predictor)
	}
}

// NewEntropyDecoder creates a new entropy decoder using the provided type and bitstream.
func NewEntropyDecoder(ibs kanzi.InputBitStream, ctx map[string]any, entropyType uint32) (kanzi.EntropyDecoder, error) {
	factory, ok := decoderFactories[entropyType]

	if !ok {
		return nil, fmt.Errorf("Unsupported entropy codec type: '%d'", entropyType)
	}

	return factory(ibs, ctx)
}

// encoderFactories is the encoder-side mirror of decoderFactories.
var encoderFactories = map[uint32]func(kanzi.OutputBitStream, map[string]any) (kanzi.EntropyEncoder, error){
	HUFFMAN_TYPE: func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		return NewHuffmanEncoder(obs)
	},
	ANS0_TYPE: func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		return NewANSRangeEncoderWithCtx(obs, 0, &ctx)
	},
	ANS1_TYPE: func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		return NewANSRangeEncoderWithCtx(obs, 1, &ctx)
	},
	RANGE_TYPE: func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		return NewRangeEncoderWithCtx(obs, &ctx)
	},
	FPAQ_TYPE: func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		return NewFPAQEncoderWithCtx(obs, &ctx)
	},
	CM_TYPE: newPredictorEncoderFactory(newCMPredictor),
	TPAQ_TYPE: newPredictorEncoderFactory(newTPAQPredictor),
	TPAQX_TYPE: newPredictorEncoderFactory(newTPAQPredictor),
	NONE_TYPE: func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		return NewNullEntropyEncoder(obs)
	},
}

func newPredictorEncoderFactory(newPredictor func(*map[string]any) (kanzi.Predictor, error)) func(kanzi.OutputBitStream, map[string]any) (kanzi.EntropyEncoder, error) {
	return func(obs kanzi.OutputBitStream, ctx map[string]any) (kanzi.EntropyEncoder, error) {
		predictor, err := newPredictor(&ctx)

		if err != nil {
			return nil, err
		}

		return NewBinaryEntropyEncoder(obs, predictor)
	}
}

// NewEntropyEncoder creates a new entropy encoder using the provided type and bitstream.
func NewEntropyEncoder(obs kanzi.OutputBitStream, ctx map[string]any, entropyType uint32) (kanzi.EntropyEncoder, error) {
	factory, ok := encoderFactories[entropyType]

	if !ok {
		return nil, fmt.Errorf("Unsupported entropy codec type: '%d'", entropyType)
	}

	return factory(obs, ctx)
}

// GetName returns the name of the entropy codec given its type.
func GetName(entropyType uint32) (string, error) {
	if name, ok := entropyCodecNames[entropyType]; ok {
		return name, nil
	}

	return "", fmt.Errorf("Unsupported entropy codec type: '%d'", entropyType)
}

// GetType returns the type of the entropy codec given its name.
func GetType(entropyName string) (uint32, error) {
	upper := strings.ToUpper(entropyName)

	for t, name := range entropyCodecNames {
		if name == upper {
			return t, nil
		}
	}

	return 0, fmt.Errorf("Unsupported entropy codec type: '%v'", entropyName)
}
