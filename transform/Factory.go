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

package transform

import (
	"fmt"
	"strings"

	kanzi "github.com/tarnhelm/kanzi"
)

const (
	_BFF_ONE_SHIFT = 6                        // bits per transform
	_BFF_MAX_SHIFT = (8 - 1) * _BFF_ONE_SHIFT // 8 transforms
	_BFF_MASK      = (1 << _BFF_ONE_SHIFT) - 1

	// Up to 64 transforms can be declared (6 bit index)
	NONE_TYPE   = uint64(0)  // Copy
	BWT_TYPE    = uint64(1)  // Burrows Wheeler
	BWTS_TYPE   = uint64(2)  // Burrows Wheeler Scott
	LZ_TYPE     = uint64(3)  // Lempel Ziv
	SNAPPY_TYPE = uint64(4)  // Snappy (obsolete)
	RLT_TYPE    = uint64(5)  // Run Length
	ZRLT_TYPE   = uint64(6)  // Zero Run Length
	MTFT_TYPE   = uint64(7)  // Move To Front
	RANK_TYPE   = uint64(8)  // Rank
	EXE_TYPE    = uint64(9)  // EXE codec
	DICT_TYPE   = uint64(10) // Text codec
	ROLZ_TYPE   = uint64(11) // ROLZ codec
	ROLZX_TYPE  = uint64(12) // ROLZ Extra codec
	SRT_TYPE    = uint64(13) // Sorted Rank
	LZP_TYPE    = uint64(14) // Lempel Ziv Predict
	MM_TYPE     = uint64(15) // Multimedia (FSD) codec
	LZX_TYPE    = uint64(16) // Lempel Ziv Extra
	UTF_TYPE    = uint64(17) // UTF codec
	PACK_TYPE   = uint64(18) // Alias Codec
	DNA_TYPE    = uint64(19) // DNA codec
	RESERVED3   = uint64(20) // Reserved
	RESERVED4   = uint64(21) // Reserved
	RESERVED5   = uint64(22) // Reserved
)

// tokenEntry pairs a transform's wire name with the constructor that builds
// it from a context map; transformTokens is the single source of truth both
// newToken and the name<->type lookups derive from.
type tokenEntry struct {
	name  string
	build func(ctx *map[string]interface{}) (kanzi.ByteTransform, error)
}

// adaptCtor widens a concrete *XxxWithCtx constructor (the shape every
// transform in this package is built with) to the kanzi.ByteTransform
// interface the token table needs; Go function values aren't covariant in
// their result types, so this generic wrapper replaces what would otherwise
// be one hand-written adapter per transform.
func adaptCtor[T kanzi.ByteTransform](ctor func(*map[string]interface{}) (T, error)) func(*map[string]interface{}) (kanzi.ByteTransform, error) {
	return func(ctx *map[string]interface{}) (kanzi.ByteTransform, error) {
		return ctor(ctx)
	}
}

var transformTokens = map[uint64]tokenEntry{
	NONE_TYPE: {"NONE", adaptCtor(NewNullTransformWithCtx)},
	BWT_TYPE:  {"BWT", adaptCtor(NewBWTBlockCodecWithCtx)},
	BWTS_TYPE: {"BWTS", adaptCtor(NewBWTSWithCtx)},
	UTF_TYPE:  {"UTF", adaptCtor(NewUTFCodecWithCtx)},
	MM_TYPE:   {"MM", adaptCtor(NewFSDCodecWithCtx)},
	PACK_TYPE: {"PACK", adaptCtor(NewAliasCodecWithCtx)},
	DNA_TYPE:  {"DNA", adaptCtor(NewDNACodecWithCtx)},
	SRT_TYPE:  {"SRT", adaptCtor(NewSRTWithCtx)},
	ZRLT_TYPE: {"ZRLT", adaptCtor(NewZRLTWithCtx)},
	RLT_TYPE:  {"RLT", adaptCtor(NewRLTWithCtx)},
	EXE_TYPE:  {"EXE", adaptCtor(NewEXECodecWithCtx)},
	ROLZ_TYPE: {"ROLZ", adaptCtor(NewROLZCodecWithCtx)},
	// ROLZX shares the ROLZ constructor; NewROLZCodecWithCtx itself looks at
	// ctx["transform"] for an "ROLZX" substring to pick the extra variant.
	ROLZX_TYPE: {"ROLZX", adaptCtor(NewROLZCodecWithCtx)},
	DICT_TYPE:  {"TEXT", newDictTransform},
	LZ_TYPE:    {"LZ", newLZTransform(LZ_TYPE)},
	LZX_TYPE:   {"LZX", newLZTransform(LZX_TYPE)},
	LZP_TYPE:   {"LZP", newLZTransform(LZP_TYPE)},
	RANK_TYPE:  {"RANK", newSBRTTransform(SBRT_MODE_RANK)},
	MTFT_TYPE:  {"MTFT", newSBRTTransform(SBRT_MODE_MTF)},
}

// transformNamesByType is the reverse index over transformTokens, built once
// at package init for GetType's name lookups.
var transformNamesByType = func() map[string]uint64 {
	m := make(map[string]uint64, len(transformTokens))

	for t, entry := range transformTokens {
		m[entry.name] = t
	}

	return m
}()

// newDictTransform picks the text codec variant based on the entropy codec
// named in ctx["entropy"], mirroring the original's "codec 2 pairs better with
// simple entropy coders" heuristic.
func newDictTransform(ctx *map[string]interface{}) (kanzi.ByteTransform, error) {
	textCodecType := 1

	if val, containsKey := (*ctx)["entropy"]; containsKey {
		entropyType := strings.ToUpper(val.(string))

		if entropyType == "NONE" || entropyType == "ANS0" ||
			entropyType == "HUFFMAN" || entropyType == "RANGE" {
			textCodecType = 2
		}
	}

	(*ctx)["textcodec"] = textCodecType
	return NewTextCodecWithCtx(ctx)
}

// newLZTransform returns a constructor that stashes which LZ variant is
// requested into ctx["lz"] before delegating to the shared LZCodec.
func newLZTransform(variant uint64) func(*map[string]interface{}) (kanzi.ByteTransform, error) {
	return func(ctx *map[string]interface{}) (kanzi.ByteTransform, error) {
		(*ctx)["lz"] = variant
		return NewLZCodecWithCtx(ctx)
	}
}

// newSBRTTransform returns a constructor that stashes which SBRT mode
// (rank or move-to-front) is requested before delegating to the shared SBRT.
func newSBRTTransform(mode int) func(*map[string]interface{}) (kanzi.ByteTransform, error) {
	return func(ctx *map[string]interface{}) (kanzi.ByteTransform, error) {
		(*ctx)["sbrt"] = mode
		return NewSBRTWithCtx(ctx)
	}
}

// New creates a new instance of ByteTransformSequence based on the provided
// function type.
func New(ctx *map[string]interface{}, functionType uint64) (*ByteTransformSequence, error) {
	nbtr := 0

	// Several transforms
	for s := _BFF_MAX_SHIFT; s >= 0; s -= _BFF_ONE_SHIFT {
		if (functionType>>uint(s))&_BFF_MASK != NONE_TYPE {
			nbtr++
		}
	}

	// Only null transforms ? Keep first.
	if nbtr == 0 {
		nbtr = 1
	}

	transforms := make([]kanzi.ByteTransform, nbtr)
	nbtr = 0
	var err error

	for i := range transforms {
		t := (functionType >> (_BFF_MAX_SHIFT - _BFF_ONE_SHIFT*uint(i))) & _BFF_MASK

		if t != NONE_TYPE || i == 0 {
			if transforms[nbtr], err = newToken(ctx, t); err != nil {
				return nil, err
			}
		}

		nbtr++
	}

	return NewByteTransformSequence(transforms)
}

func newToken(ctx *map[string]interface{}, functionType uint64) (kanzi.ByteTransform, error) {
	entry, ok := transformTokens[functionType]

	if !ok {
		return nil, fmt.Errorf("Unknown transform type: '%d'", functionType)
	}

	return entry.build(ctx)
}

// GetName transforms the function type into a function name
func GetName(functionType uint64) (string, error) {
	var s string
	var name string
	var err error

	for i := uint(0); i < 8; i++ {
		t := (functionType >> (_BFF_MAX_SHIFT - _BFF_ONE_SHIFT*i)) & _BFF_MASK

		if t == NONE_TYPE {
			continue
		}

		if name, err = getByteFunctionNameToken(t); err != nil {
			return "", err
		}

		if len(s) != 0 {
			s += "+"
		}

		s += name
	}

	if len(s) == 0 {
		if name, err = getByteFunctionNameToken(NONE_TYPE); err != nil {
			return "", err
		}

		s += name
	}

	return s, nil
}

func getByteFunctionNameToken(functionType uint64) (string, error) {
	entry, ok := transformTokens[functionType]

	if !ok {
		return "", fmt.Errorf("Unknown transform type: '%d'", functionType)
	}

	return entry.name, nil
}

// GetType transforms the function name into a function type.
// The returned type contains 8 transform type values (masks).
func GetType(name string) (uint64, error) {
	if strings.IndexByte(name, byte('+')) < 0 {
		res, err := getByteFunctionTypeToken(name)

		if err != nil {
			return 0, err
		}

		return res << _BFF_MAX_SHIFT, nil
	}

	tokens := strings.Split(name, "+")

	if len(tokens) == 0 {
		return 0, fmt.Errorf("Unknown transform type: '%s'", name)
	}

	if len(tokens) > 8 {
		return 0, fmt.Errorf("Only 8 transforms allowed: '%s'", name)
	}

	res := uint64(0)
	shift := _BFF_MAX_SHIFT

	for _, token := range tokens {
		tkType, err := getByteFunctionTypeToken(token)

		if err != nil {
			return 0, err
		}

		// Skip null transform
		if tkType != NONE_TYPE {
			res |= (tkType << shift)
			shift -= _BFF_ONE_SHIFT
		}
	}

	return res, nil
}

func getByteFunctionTypeToken(name string) (uint64, error) {
	name = strings.ToUpper(name)

	t, ok := transformNamesByType[name]

	if !ok {
		return 0, fmt.Errorf("Unknown transform type: '%s'", name)
	}

	return t, nil
}
