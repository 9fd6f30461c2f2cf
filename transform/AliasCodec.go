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

import "sort"

const (
	_ALIAS_MIN_BLOCKSIZE = 1024
)

// aliasSymbol pairs an order-1 (2-byte) symbol with its observed frequency,
// used to rank digram candidates by how much replacing them with a 1-byte
// alias would save.
type aliasSymbol struct {
	val  int // symbol
	freq int // frequency
}

type aliasByFreqDesc []*aliasSymbol

func (s aliasByFreqDesc) Len() int {
	return len(s)
}

func (s aliasByFreqDesc) Less(i, j int) bool {
	if r := s[j].freq - s[i].freq; r != 0 {
		return r < 0
	}

	return s[j].val < s[i].val
}

func (s aliasByFreqDesc) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// AliasCodec is a simple codec replacing 2-byte symbols with 1-byte aliases
// whenever the source alphabet leaves enough unused byte values to alias
// into (a "free slot" count of at least 16).
type AliasCodec struct {
	ctx *map[string]interface{}
}

// NewAliasCodec creates a new instance of AliasCodec
func NewAliasCodec() (*AliasCodec, error) {
	return &AliasCodec{}, nil
}

// NewAliasCodecWithCtx creates a new instance of AliasCodec using a
// configuration map as parameter.
func NewAliasCodecWithCtx(ctx *map[string]interface{}) (*AliasCodec, error) {
	return &AliasCodec{ctx: ctx}, nil
}

// MaxEncodedLen returns the max size required for the encoding output buffer
func (a AliasCodec) MaxEncodedLen(srcLen int) int {
	return srcLen + 1024
}

// sortByFreqDesc sorts the first n1 digram candidates by decreasing
// frequency (ties broken by descending symbol value), so the highest-savings
// digrams claim the lowest alias indexes.
func sortByFreqDesc(symbols []*aliasSymbol) {
	sort.Sort(aliasByFreqDesc(symbols))
}
