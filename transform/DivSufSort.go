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

// Suffix array construction constants. The ss* (substring sort) and tr*
// (tandem repeat sort) families live in DivSufSortSubstring.go and
// DivSufSortTandem.go respectively; this file holds the shared state and
// the top-level two-stage algorithm (sort B* suffixes, then derive the
// rest from them) that drives both.
const (
	_SS_INSERTIONSORT_THRESHOLD = 8
	_SS_BLOCKSIZE               = 1024
	_SS_MISORT_STACKSIZE        = 16
	_SS_SMERGE_STACKSIZE        = 32
	_TR_STACKSIZE               = 64
	_TR_INSERTIONSORT_THRESHOLD = 8
	_MASK_FFFF0000              = -65536    // make 32 bit systems happy
	_MASK_FF000000              = -16777216 // make 32 bit systems happy
	_MASK_0000FF00              = 65280     // make 32 bit systems happy
)

// dssSqqTable and dssLogTable are precomputed lookup tables backing the
// integer sqrt (dssIsqrt) and ilog2 (dssSsIlg/dssTrIlg) helpers the two
// sort families use to pick recursion limits and split points.
var dssSqqTable = []int{
	0, 16, 22, 27, 32, 35, 39, 42, 45, 48, 50, 53, 55, 57, 59, 61, 64, 65, 67, 69,
	71, 73, 75, 76, 78, 80, 81, 83, 84, 86, 87, 89, 90, 91, 93, 94, 96, 97, 98, 99,
	101, 102, 103, 104, 106, 107, 108, 109, 110, 112, 113, 114, 115, 116, 117, 118,
	119, 120, 121, 122, 123, 124, 125, 126, 128, 128, 129, 130, 131, 132, 133, 134,
	135, 136, 137, 138, 139, 140, 141, 142, 143, 144, 144, 145, 146, 147, 148, 149,
	150, 150, 151, 152, 153, 154, 155, 155, 156, 157, 158, 159, 160, 160, 161, 162,
	163, 163, 164, 165, 166, 167, 167, 168, 169, 170, 170, 171, 172, 173, 173, 174,
	175, 176, 176, 177, 178, 178, 179, 180, 181, 181, 182, 183, 183, 184, 185, 185,
	186, 187, 187, 188, 189, 189, 190, 191, 192, 192, 193, 193, 194, 195, 195, 196,
	197, 197, 198, 199, 199, 200, 201, 201, 202, 203, 203, 204, 204, 205, 206, 206,
	207, 208, 208, 209, 209, 210, 211, 211, 212, 212, 213, 214, 214, 215, 215, 216,
	217, 217, 218, 218, 219, 219, 220, 221, 221, 222, 222, 223, 224, 224, 225, 225,
	226, 226, 227, 227, 228, 229, 229, 230, 230, 231, 231, 232, 232, 233, 234, 234,
	235, 235, 236, 236, 237, 237, 238, 238, 239, 240, 240, 241, 241, 242, 242, 243,
	243, 244, 244, 245, 245, 246, 246, 247, 247, 248, 248, 249, 249, 250, 250, 251,
	251, 252, 252, 253, 253, 254, 254, 255,
}

var dssLogTable = []int{
	-1, 0, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4, 4,
	4, 4, 4, 4, 4, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5,
	5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6,
	6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
	7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7,
}

// DivSufSort builds suffix arrays (a port of libdivsufsort by Yuta Mori),
// reused across calls so its scratch buffers and stacks stay allocated.
type DivSufSort struct {
	sa         []int
	buffer     []int
	bucketA    [256]int
	bucketB    [65536]int
	ssStack    *dssStack
	trStack    *dssStack
	mergeStack *dssStack
}

// NewDivSufSort creates a new suffix array builder.
func NewDivSufSort() (*DivSufSort, error) {
	return &DivSufSort{
		ssStack:    newDssStack(_SS_MISORT_STACKSIZE),
		trStack:    newDssStack(_TR_STACKSIZE),
		mergeStack: newDssStack(_SS_SMERGE_STACKSIZE),
	}, nil
}

func (d *DivSufSort) reset() {
	d.ssStack.reset()
	d.trStack.reset()
	d.mergeStack.reset()
	d.bucketA = [256]int{}
	d.bucketB = [65536]int{}
}

// ComputeSuffixArray fills sa with the suffix array of src.
func (d *DivSufSort) ComputeSuffixArray(src []byte, sa []int) {
	length := len(src)

	// Lazy dynamic memory allocation
	if len(d.buffer) < length+1 {
		d.buffer = make([]int, length+1)
	}

	for i, b := range src {
		d.buffer[i] = int(b)
	}

	d.sa = sa
	d.reset()
	m := d.sortTypeBstar(d.bucketA[:], d.bucketB[:], length)
	d.constructSuffixArray(d.bucketA[:], d.bucketB[:], length, m)
}

// ComputeBWT builds the suffix array of src then derives the Burrows-Wheeler
// permutation into dst, recording one primary index per chunk (chunks
// dividing the block into equal-ish spans of size ceil(len(src)/chunks)).
// sa is scratch space of length len(src).
func (d *DivSufSort) ComputeBWT(src, dst []byte, sa []int, primaryIndexes []uint, chunks int) {
	length := len(src)
	d.ComputeSuffixArray(src, sa[0:length])
	n := 0

	if chunks == 1 {
		for n < length {
			if sa[n] == 0 {
				primaryIndexes[0] = uint(n)
				break
			}

			dst[n] = src[sa[n]-1]
			n++
		}

		dst[n] = src[length-1]
		n++

		for n < length {
			dst[n] = src[sa[n]-1]
			n++
		}

		return
	}

	step := length / chunks

	if step*chunks != length {
		step++
	}

	for n < length {
		if sa[n]%step == 0 {
			primaryIndexes[sa[n]/step] = uint(n)

			if sa[n] == 0 {
				break
			}
		}

		dst[n] = src[sa[n]-1]
		n++
	}

	dst[n] = src[length-1]
	n++

	for n < length {
		if sa[n]%step == 0 {
			primaryIndexes[sa[n]/step] = uint(n)
		}

		dst[n] = src[sa[n]-1]
		n++
	}
}

// constructSuffixArray expands the sorted type-B* suffixes (built by
// sortTypeBstar) into the full suffix array by two linear passes: right
// to left for type B suffixes, then left to right for the rest.
func (d *DivSufSort) constructSuffixArray(bucketA, bucketB []int, n, m int) {
	if m > 0 {
		for c1 := 254; c1 >= 0; c1-- {
			idx := c1 << 8
			i := bucketB[idx+c1+1]
			k := 0
			c2 := -1

			// Scan the suffix array from right to left.
			for j := bucketA[c1+1] - 1; j >= i; j-- {
				s := d.sa[j]
				d.sa[j] = ^s

				if s <= 0 {
					continue
				}

				s--
				c0 := d.buffer[s]

				if s > 0 && d.buffer[s-1] > c0 {
					s = ^s
				}

				if c0 != c2 {
					if c2 >= 0 {
						bucketB[idx+c2] = k
					}

					c2 = c0
					k = bucketB[idx+c2]
				}

				d.sa[k] = s
				k--
			}
		}
	}

	c2 := d.buffer[n-1]
	k := bucketA[c2]

	if d.buffer[n-2] < c2 {
		d.sa[k] = ^(n - 1)
	} else {
		d.sa[k] = n - 1
	}

	k++

	// Scan the suffix array from left to right.
	for i := 0; i < n; i++ {
		s := d.sa[i]

		if s <= 0 {
			d.sa[i] = ^s
			continue
		}

		s--
		c0 := d.buffer[s]

		if s == 0 || d.buffer[s-1] < c0 {
			s = ^s
		}

		if c0 != c2 {
			bucketA[c2] = k
			c2 = c0
			k = bucketA[c2]
		}

		d.sa[k] = s
		k++
	}
}

// sortTypeBstar buckets every suffix by its leading one or two bytes,
// sorts only the type-B* suffixes (those whose first two bytes strictly
// decrease), and ranks them via trSort - the expensive part of the
// algorithm, since every other suffix is later positioned relative to
// this sorted set in constructSuffixArray.
func (d *DivSufSort) sortTypeBstar(bucketA, bucketB []int, n int) int {
	m := n
	c0 := d.buffer[n-1]
	arr := d.sa

	// Count the number of occurrences of the first one or two characters of each
	// type A, B and B* suffix. Moreover, store the beginning position of all
	// type B* suffixes into the array SA.
	for i := n - 1; i >= 0; {
		c1 := c0

		for c0 >= c1 {
			c1 = c0
			bucketA[c1]++
			i--

			if i < 0 {
				break
			}

			c0 = d.buffer[i]
		}

		if i < 0 {
			break
		}

		bucketB[(c0<<8)+c1]++
		m--
		arr[m] = i
		i--
		c1 = c0

		for i >= 0 {
			c0 = d.buffer[i]

			if c0 > c1 {
				break
			}

			bucketB[(c1<<8)+c0]++
			c1 = c0
			i--
		}
	}

	m = n - m
	c0 = 0

	// A type B* suffix is lexicographically smaller than a type B suffix that
	// begins with the same first two characters.

	// Calculate the index of start/end point of each bucket.
	for i, j := 0, 0; c0 < 256; c0++ {
		t := i + bucketA[c0]
		bucketA[c0] = i + j // start point
		idx := c0 << 8
		i = t + bucketB[idx+c0]

		for c1 := c0 + 1; c1 < 256; c1++ {
			j += bucketB[idx+c1]
			bucketB[idx+c1] = j // end point
			i += bucketB[(c1<<8)+c0]
		}
	}

	if m > 0 {
		// Sort the type B* suffixes by their first two characters.
		pab := n - m

		for i := m - 2; i >= 0; i-- {
			t := arr[pab+i]
			idx := (d.buffer[t] << 8) + d.buffer[t+1]
			bucketB[idx]--
			arr[bucketB[idx]] = i
		}

		t := arr[pab+m-1]
		c0 = (d.buffer[t] << 8) + d.buffer[t+1]
		bucketB[c0]--
		arr[bucketB[c0]] = m - 1

		// Sort the type B* substrings using ssSort.
		bufSize := n - m - m
		c0 = 254

		for j := m; j > 0; c0-- {
			idx := c0 << 8

			for c1 := 255; c1 > c0; c1-- {
				i := bucketB[idx+c1]

				if j-i > 1 {
					d.ssSort(pab, i, j, m, bufSize, 2, n, arr[i] == m-1)
				}

				j = i
			}
		}

		// Compute ranks of type B* substrings.
		for i := m - 1; i >= 0; i-- {
			if arr[i] >= 0 {
				j := i

				for {
					arr[m+arr[i]] = i
					i--

					if i < 0 || arr[i] < 0 {
						break
					}
				}

				arr[i+1] = i - j

				if i <= 0 {
					break
				}
			}

			j := i

			for {
				arr[i] = ^arr[i]
				arr[m+arr[i]] = j
				i--

				if arr[i] >= 0 {
					break
				}
			}

			arr[m+arr[i]] = j
		}

		// Construct the inverse suffix array of type B* suffixes using trSort.
		d.trSort(m, 1)

		// Set the sorted order of type B* suffixes.
		c0 = d.buffer[n-1]
		var c1 int

		for i, j := n-1, m; i >= 0; {
			i--
			c1 = c0

			for i >= 0 {
				c0 = d.buffer[i]

				if c0 < c1 {
					break
				}

				c1 = c0
				i--
			}

			if i >= 0 {
				tt := i
				i--
				c1 = c0

				for i >= 0 {
					c0 = d.buffer[i]

					if c0 > c1 {
						break
					}

					c1 = c0
					i--
				}

				j--

				if tt == 0 || tt-i > 1 {
					arr[arr[m+j]] = tt
				} else {
					arr[arr[m+j]] = ^tt
				}
			}
		}

		// Calculate the index of start/end point of each bucket.
		bucketB[len(bucketB)-1] = n // end
		k := m - 1

		for c0 = 254; c0 >= 0; c0-- {
			i := bucketA[c0+1] - 1
			c2 := c0 << 8

			for c1 := 255; c1 > c0; c1-- {
				tt := i - bucketB[(c1<<8)+c0]
				bucketB[(c1<<8)+c0] = i // end point
				i = tt

				// Move all type B* suffixes to the correct position.
				// Typically very small number of copies
				for j := bucketB[c2+c1]; j <= k; {
					arr[i] = arr[k]
					i--
					k--
				}
			}

			bucketB[c2+c0+1] = i - bucketB[c2+c0] + 1 //start point
			bucketB[c2+c0] = i                        // end point
		}
	}

	return m
}
