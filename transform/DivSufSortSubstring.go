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

// Substring sort: sorts a span of type B* suffixes (and, in its last
// call, one extra non-B* "last suffix") by repeated doubling of the
// compared prefix length, using a multikey introsort with an explicit
// stack (ssStack) standing in for what would otherwise be recursion.

// ssSort sorts sa[first:last] (suffixes addressed indirectly through pa)
// by depth-character comparison, merging block-sized chunks through an
// auxiliary buffer of size bufSize located at sa[buf:].
func (d *DivSufSort) ssSort(pa, first, last, buf, bufSize, depth, n int, lastSuffix bool) {
	if lastSuffix {
		first++
	}

	limit := 0
	middle := last

	if bufSize < _SS_BLOCKSIZE && bufSize < last-first {
		limit = dssIsqrt(last - first)

		if bufSize < limit {
			if limit > _SS_BLOCKSIZE {
				limit = _SS_BLOCKSIZE
			}

			middle = last - limit
			buf = middle
			bufSize = limit
		} else {
			limit = 0
		}
	}

	var a int
	i := 0

	for a = first; middle-a > _SS_BLOCKSIZE; a += _SS_BLOCKSIZE {
		d.ssMultiKeyIntroSort(pa, a, a+_SS_BLOCKSIZE, depth)
		curBufSize := last - (a + _SS_BLOCKSIZE)
		var curBuf int

		if curBufSize > bufSize {
			curBuf = a + _SS_BLOCKSIZE
		} else {
			curBufSize = bufSize
			curBuf = buf
		}

		k := _SS_BLOCKSIZE
		b := a

		for j := i; j&1 != 0; j >>= 1 {
			d.ssSwapMerge(pa, b-k, b, b+k, curBuf, curBufSize, depth)
			b -= k
			k <<= 1
		}

		i++
	}

	d.ssMultiKeyIntroSort(pa, a, middle, depth)
	k := _SS_BLOCKSIZE

	for i != 0 {
		if i&1 != 0 {
			d.ssSwapMerge(pa, a-k, a, middle, buf, bufSize, depth)
			a -= k
		}

		k <<= 1
		i >>= 1
	}

	if limit != 0 {
		d.ssMultiKeyIntroSort(pa, middle, last, depth)
		d.ssInplaceMerge(pa, first, middle, last, depth)
	}

	if lastSuffix {
		i = d.sa[first-1]
		p1 := d.sa[pa+i]
		p11 := n - 2

		for a = first; a < last && (d.sa[a] < 0 || d.ssCompare4(p1, p11, pa+d.sa[a], depth) > 0); a++ {
			d.sa[a-1] = d.sa[a]
		}

		d.sa[a-1] = i
	}
}

func (d *DivSufSort) ssCompare4(pa, pb, p2, depth int) int {
	u1n := pb + 2
	u1 := pa + depth
	u2n := d.sa[p2+1] + 2
	u2 := d.sa[p2] + depth

	if u1n-u1 > u2n-u2 {
		for u2 < u2n && d.buffer[u1] == d.buffer[u2] {
			u1++
			u2++
		}
	} else {
		for u1 < u1n && d.buffer[u1] == d.buffer[u2] {
			u1++
			u2++
		}
	}

	if u1 < u1n {
		if u2 < u2n {
			return d.buffer[u1] - d.buffer[u2]
		}

		return 1
	}

	if u2 < u2n {
		return -1
	}

	return 0
}

func (d *DivSufSort) ssCompare3(p1, p2, depth int) int {
	u1n := d.sa[p1+1] + 2
	u1 := d.sa[p1] + depth
	u2n := d.sa[p2+1] + 2
	u2 := d.sa[p2] + depth
	buf := d.buffer

	if u1n-u1 > u2n-u2 {
		for u2 < u2n && buf[u1] == buf[u2] {
			u1++
			u2++
		}
	} else {
		for u1 < u1n && buf[u1] == buf[u2] {
			u1++
			u2++
		}
	}

	if u1 < u1n {
		if u2 < u2n {
			return buf[u1] - buf[u2]
		}

		return 1
	}

	if u2 < u2n {
		return -1
	}

	return 0
}

func (d *DivSufSort) ssInplaceMerge(pa, first, middle, last, depth int) {
	arr := d.sa

	for {
		var p, x int

		if arr[last-1] < 0 {
			x = 1
			p = pa + ^arr[last-1]
		} else {
			x = 0
			p = pa + arr[last-1]
		}

		a := first
		r := -1
		half := (middle - first) >> 1

		for length := middle - first; length > 0; length = half {
			b := a + half
			var c int

			if arr[b] >= 0 {
				c = arr[b]
			} else {
				c = ^arr[b]
			}

			q := d.ssCompare3(pa+c, p, depth)

			if q < 0 {
				a = b + 1
				half -= (length & 1) ^ 1
			} else {
				r = q
			}

			half >>= 1
		}

		if a < middle {
			if r == 0 {
				arr[a] = ^arr[a]
			}

			d.ssRotate(a, middle, last)
			last -= middle - a
			middle = a

			if first == middle {
				break
			}
		}

		last--

		if x != 0 {
			last--

			for arr[last] < 0 {
				last--
			}
		}

		if middle == last {
			break
		}
	}
}

func (d *DivSufSort) ssRotate(first, middle, last int) {
	l := middle - first
	r := last - middle
	arr := d.sa

	for l > 0 && r > 0 {
		if l == r {
			d.ssBlockSwap(first, middle, l)
			break
		}

		if l < r {
			a := last - 1
			b := middle - 1
			t := arr[a]

			for {
				arr[a] = arr[b]
				a--
				arr[b] = arr[a]
				b--

				if b < first {
					arr[a] = t
					last = a
					r -= l + 1

					if r <= l {
						break
					}

					a--
					b = middle - 1
					t = arr[a]
				}
			}
		} else {
			a := first
			b := middle
			t := arr[a]

			for {
				arr[a] = arr[b]
				a++
				arr[b] = arr[a]
				b++

				if last <= b {
					arr[a] = t
					first = a + 1
					l -= r + 1

					if l <= r {
						break
					}

					a++
					b = middle
					t = arr[a]
				}
			}
		}
	}
}

func (d *DivSufSort) ssBlockSwap(a, b, n int) {
	for n > 0 {
		d.sa[a], d.sa[b] = d.sa[b], d.sa[a]
		n--
		a++
		b++
	}
}

func dssGetIndex(a int) int {
	if a >= 0 {
		return a
	}

	return ^a
}

func (d *DivSufSort) ssSwapMerge(pa, first, middle, last, buf, bufSize, depth int) {
	arr := d.sa
	check := 0

	for {
		if last-middle <= bufSize {
			if first < middle && middle < last {
				d.ssMergeBackward(pa, first, middle, last, buf, depth)
			}

			if check&1 != 0 || (check&2 != 0 && d.ssCompare3(pa+dssGetIndex(d.sa[first-1]),
				pa+arr[first], depth) == 0) {
				arr[first] = ^arr[first]
			}

			if check&4 != 0 && d.ssCompare3(pa+dssGetIndex(arr[last-1]), pa+arr[last], depth) == 0 {
				arr[last] = ^arr[last]
			}

			se := d.mergeStack.pop()

			if se == nil {
				return
			}

			first = se.a
			middle = se.b
			last = se.c
			check = se.d
			continue
		}

		if middle-first <= bufSize {
			if first < middle {
				d.ssMergeForward(pa, first, middle, last, buf, depth)
			}

			if check&1 != 0 || (check&2 != 0 && d.ssCompare3(pa+dssGetIndex(arr[first-1]),
				pa+arr[first], depth) == 0) {
				arr[first] = ^arr[first]
			}

			if check&4 != 0 && d.ssCompare3(pa+dssGetIndex(arr[last-1]), pa+arr[last], depth) == 0 {
				arr[last] = ^arr[last]
			}

			se := d.mergeStack.pop()

			if se == nil {
				return
			}

			first = se.a
			middle = se.b
			last = se.c
			check = se.d
			continue
		}

		m := 0
		var length int

		if middle-first < last-middle {
			length = middle - first
		} else {
			length = last - middle
		}

		for half := length >> 1; length > 0; length, half = half, half>>1 {
			if d.ssCompare3(pa+dssGetIndex(arr[middle+m+half]), pa+dssGetIndex(arr[middle-m-half-1]), depth) < 0 {
				m += half + 1
				half -= (length & 1) ^ 1
			}
		}

		if m > 0 {
			lm := middle - m
			rm := middle + m
			d.ssBlockSwap(lm, middle, m)
			l := middle
			r := l
			next := 0

			if rm < last {
				if arr[rm] < 0 {
					arr[rm] = ^arr[rm]

					if first < lm {
						l--

						for arr[l] < 0 {
							l--
						}

						next |= 4
					}

					next |= 1
				} else if first < lm {
					for arr[r] < 0 {
						r++
					}

					next |= 2
				}
			}

			if l-first <= last-r {
				d.mergeStack.push(r, rm, last, (next&3)|(check&4), 0)
				middle = lm
				last = l
				check = (check & 3) | (next & 4)
			} else {
				if r == middle && (next&2) != 0 {
					next ^= 6
				}

				d.mergeStack.push(first, lm, l, (check&3)|(next&4), 0)
				first = r
				middle = rm
				check = (next & 3) | (check & 4)
			}
		} else {
			if d.ssCompare3(pa+dssGetIndex(arr[middle-1]), pa+arr[middle], depth) == 0 {
				arr[middle] = ^arr[middle]
			}

			if check&1 != 0 || (check&2 != 0 && d.ssCompare3(pa+dssGetIndex(d.sa[first-1]),
				pa+arr[first], depth) == 0) {
				arr[first] = ^arr[first]
			}

			if check&4 != 0 && d.ssCompare3(pa+dssGetIndex(arr[last-1]), pa+arr[last], depth) == 0 {
				arr[last] = ^arr[last]
			}

			se := d.mergeStack.pop()

			if se == nil {
				return
			}

			first = se.a
			middle = se.b
			last = se.c
			check = se.d
		}
	}
}

func (d *DivSufSort) ssMergeForward(pa, first, middle, last, buf, depth int) {
	arr := d.sa
	bufEnd := buf + middle - first - 1
	d.ssBlockSwap(buf, first, middle-first)
	a := first
	b := buf
	c := middle
	t := arr[a]

	for {
		if r := d.ssCompare3(pa+arr[b], pa+arr[c], depth); r < 0 {
			for {
				arr[a] = arr[b]
				a++

				if bufEnd <= b {
					arr[bufEnd] = t
					return
				}

				arr[b] = arr[a]
				b++

				if arr[b] >= 0 {
					break
				}
			}
		} else if r > 0 {
			for {
				arr[a] = arr[c]
				a++
				arr[c] = arr[a]
				c++

				if last <= c {
					for b < bufEnd {
						arr[a] = arr[b]
						a++
						arr[b] = arr[a]
						b++
					}

					arr[a] = arr[b]
					arr[b] = t
					return
				}

				if arr[c] >= 0 {
					break
				}
			}
		} else {
			arr[c] = ^arr[c]

			for {
				arr[a] = arr[b]
				a++

				if bufEnd <= b {
					arr[bufEnd] = t
					return
				}

				arr[b] = arr[a]
				b++

				if arr[b] >= 0 {
					break
				}
			}

			for {
				arr[a] = arr[c]
				a++
				arr[c] = arr[a]
				c++

				if last <= c {
					for b < bufEnd {
						arr[a] = arr[b]
						a++
						arr[b] = arr[a]
						b++
					}

					arr[a] = arr[b]
					arr[b] = t
					return
				}

				if arr[c] >= 0 {
					break
				}
			}
		}
	}
}

func (d *DivSufSort) ssMergeBackward(pa, first, middle, last, buf, depth int) {
	arr := d.sa
	bufEnd := buf + last - middle - 1
	d.ssBlockSwap(buf, middle, last-middle)
	x := 0
	var p1, p2 int

	if arr[bufEnd] < 0 {
		p1 = pa + ^arr[bufEnd]
		x |= 1
	} else {
		p1 = pa + arr[bufEnd]
	}

	if arr[middle-1] < 0 {
		p2 = pa + ^arr[middle-1]
		x |= 2
	} else {
		p2 = pa + arr[middle-1]
	}

	a := last - 1
	b := bufEnd
	c := middle - 1
	t := arr[a]

	for {
		if r := d.ssCompare3(p1, p2, depth); r > 0 {
			if x&1 != 0 {
				for {
					arr[a] = arr[b]
					a--
					arr[b] = arr[a]
					b--

					if arr[b] >= 0 {
						break
					}
				}

				x ^= 1
			}

			arr[a] = arr[b]
			a--

			if b <= buf {
				arr[buf] = t
				break
			}

			arr[b] = arr[a]
			b--

			if arr[b] < 0 {
				p1 = pa + ^arr[b]
				x |= 1
			} else {
				p1 = pa + arr[b]
			}
		} else if r < 0 {
			if x&2 != 0 {
				for {
					arr[a] = arr[c]
					a--
					arr[c] = arr[a]
					c--

					if arr[c] >= 0 {
						break
					}
				}

				x ^= 2
			}

			arr[a] = arr[c]
			a--
			arr[c] = arr[a]
			c--

			if c < first {
				for buf < b {
					arr[a] = arr[b]
					a--
					arr[b] = arr[a]
					b--
				}

				arr[a] = arr[b]
				arr[b] = t
				break
			}

			if arr[c] < 0 {
				p2 = pa + ^arr[c]
				x |= 2
			} else {
				p2 = pa + arr[c]
			}
		} else { // r = 0
			if x&1 != 0 {
				for {
					arr[a] = arr[b]
					a--
					arr[b] = arr[a]
					b--

					if arr[b] >= 0 {
						break
					}
				}

				x ^= 1
			}

			arr[a] = ^arr[b]
			a--

			if b <= buf {
				arr[buf] = t
				break
			}

			arr[b] = arr[a]
			b--

			if x&2 != 0 {
				for {
					arr[a] = arr[c]
					a--
					arr[c] = arr[a]
					c--

					if arr[c] >= 0 {
						break
					}
				}

				x ^= 2
			}

			arr[a] = arr[c]
			a--
			arr[c] = arr[a]
			c--

			if c < first {
				for buf < b {
					arr[a] = arr[b]
					a--
					arr[b] = arr[a]
					b--
				}

				arr[a] = arr[b]
				arr[b] = t
				break
			}

			if arr[b] < 0 {
				p1 = pa + ^arr[b]
				x |= 1
			} else {
				p1 = pa + arr[b]
			}

			if arr[c] < 0 {
				p2 = pa + ^arr[c]
				x |= 2
			} else {
				p2 = pa + arr[c]
			}
		}
	}
}

func (d *DivSufSort) ssInsertionSort(pa, first, last, depth int) {
	arr := d.sa

	for i := last - 2; i >= first; i-- {
		t := pa + arr[i]
		j := i + 1
		var r int

		for r = d.ssCompare3(t, pa+arr[j], depth); r > 0; {
			for {
				arr[j-1] = arr[j]
				j++

				if j >= last || arr[j] >= 0 {
					break
				}
			}

			if j >= last {
				break
			}

			r = d.ssCompare3(t, pa+arr[j], depth)
		}

		if r == 0 {
			arr[j] = ^arr[j]
		}

		arr[j-1] = t - pa
	}
}

func dssIsqrt(x int) int {
	if x >= _SS_BLOCKSIZE*_SS_BLOCKSIZE {
		return _SS_BLOCKSIZE
	}

	var e int

	if x&_MASK_FFFF0000 != 0 {
		if x&_MASK_FF000000 != 0 {
			e = 24 + dssLogTable[(x>>24)&0xFF]
		} else {
			e = 16 + dssLogTable[(x>>16)&0xFF]
		}
	} else {
		if x&_MASK_0000FF00 != 0 {
			e = 8 + dssLogTable[(x>>8)&0xFF]
		} else {
			e = dssLogTable[x&0xFF]
		}
	}

	if e < 8 {
		return dssSqqTable[x] >> 4
	}

	var y int

	if e >= 16 {
		y = dssSqqTable[x>>uint((e-6)-(e&1))] << uint((e>>1)-7)

		if e >= 24 {
			y = (y + 1 + x/y) >> 1
		}

		y = (y + 1 + x/y) >> 1
	} else {
		y = (dssSqqTable[x>>uint((e-6)-(e&1))] >> uint(7-(e>>1))) + 1
	}

	if x < y*y {
		return y - 1
	}

	return y
}

func (d *DivSufSort) ssMultiKeyIntroSort(pa, first, last, depth int) {
	limit := dssSsIlg(last - first)
	x := 0

	for {
		if last-first <= _SS_INSERTIONSORT_THRESHOLD {
			if last-first > 1 {
				d.ssInsertionSort(pa, first, last, depth)
			}

			se := d.ssStack.pop()

			if se == nil {
				return
			}

			first = se.a
			last = se.b
			depth = se.c
			limit = se.d
			continue
		}

		idx := depth

		// Create slice aliases
		// NOTE: buf1 can only replace d.buffer when the index is guaranteed
		// to be positive or zero (not in a pattern like d.buffer[...-1]) !!!
		buf1 := d.buffer[idx:len(d.buffer)]
		buf2 := d.sa[pa:len(d.sa)]

		if limit == 0 {
			d.ssHeapSort(idx, pa, first, last-first)
		}

		limit--
		var a int

		if limit < 0 {
			v := buf1[buf2[d.sa[first]]]

			for a = first + 1; a < last; a++ {
				if x = buf1[buf2[d.sa[a]]]; x != v {
					if a-first > 1 {
						break
					}

					v = x
					first = a
				}
			}

			if d.buffer[idx+buf2[d.sa[first]]-1] < v {
				first = d.ssPartition(pa, first, a, depth)
			}

			if a-first <= last-a {
				if a-first > 1 {
					d.ssStack.push(a, last, depth, -1, 0)
					last = a
					depth++
					limit = dssSsIlg(a - first)
				} else {
					first = a
					limit = -1
				}
			} else {
				if last-a > 1 {
					d.ssStack.push(first, a, depth+1, dssSsIlg(a-first), 0)
					first = a
					limit = -1
				} else {
					last = a
					depth++
					limit = dssSsIlg(a - first)
				}
			}

			continue
		}

		// choose pivot
		a = d.ssPivot(idx, pa, first, last)
		v := buf1[buf2[d.sa[a]]]
		d.sa[a], d.sa[first] = d.sa[first], d.sa[a]
		b := first + 1

		// partition
		for b < last {
			if x = buf1[buf2[d.sa[b]]]; x != v {
				break
			}

			b++
		}

		a = b

		if a < last && x < v {
			b++

			for b < last {
				if x = buf1[buf2[d.sa[b]]]; x > v {
					break
				}

				if x == v {
					d.sa[a], d.sa[b] = d.sa[b], d.sa[a]
					a++
				}

				b++
			}
		}

		c := last - 1

		for c > b {
			if x = buf1[buf2[d.sa[c]]]; x != v {
				break
			}

			c--
		}

		e := c

		if b < e && x > v {
			c--

			for c > b {
				if x = buf1[buf2[d.sa[c]]]; x < v {
					break
				}

				if x == v {
					d.sa[c], d.sa[e] = d.sa[e], d.sa[c]
					e--
				}

				c--
			}
		}

		for b < c {
			d.sa[b], d.sa[c] = d.sa[c], d.sa[b]
			b++

			for b < c {
				if x = buf1[buf2[d.sa[b]]]; x > v {
					break
				}

				if x == v {
					d.sa[a], d.sa[b] = d.sa[b], d.sa[a]
					a++
				}

				b++
			}

			c--

			for c > b {
				if x = buf1[buf2[d.sa[c]]]; x < v {
					break
				}

				if x == v {
					d.sa[c], d.sa[e] = d.sa[e], d.sa[c]
					e--
				}

				c--
			}
		}

		if a <= e {
			c = b - 1
			s := a - first
			tw := b - a

			if s > tw {
				s = tw
			}

			for p, q := first, b-s; s > 0; s-- {
				d.sa[p], d.sa[q] = d.sa[q], d.sa[p]
				p++
				q++
			}

			s = e - c
			tw = last - e - 1

			if s > tw {
				s = tw
			}

			for p, q := b, last-s; s > 0; s-- {
				d.sa[p], d.sa[q] = d.sa[q], d.sa[p]
				p++
				q++
			}

			a = first + (b - a)
			c = last - (e - c)

			if v <= d.buffer[idx+buf2[d.sa[a]]-1] {
				b = a
			} else {
				b = d.ssPartition(pa, a, c, depth)
			}

			if a-first <= last-c {
				if last-c <= c-b {
					d.ssStack.push(b, c, depth+1, dssSsIlg(c-b), 0)
					d.ssStack.push(c, last, depth, limit, 0)
					last = a
				} else if a-first <= c-b {
					d.ssStack.push(c, last, depth, limit, 0)
					d.ssStack.push(b, c, depth+1, dssSsIlg(c-b), 0)
					last = a
				} else {
					d.ssStack.push(c, last, depth, limit, 0)
					d.ssStack.push(first, a, depth, limit, 0)
					first = b
					last = c
					depth++
					limit = dssSsIlg(c - b)
				}
			} else {
				if a-first <= c-b {
					d.ssStack.push(b, c, depth+1, dssSsIlg(c-b), 0)
					d.ssStack.push(first, a, depth, limit, 0)
					first = c
				} else if last-c <= c-b {
					d.ssStack.push(first, a, depth, limit, 0)
					d.ssStack.push(b, c, depth+1, dssSsIlg(c-b), 0)
					first = c
				} else {
					d.ssStack.push(first, a, depth, limit, 0)
					d.ssStack.push(c, last, depth, limit, 0)
					first = b
					last = c
					depth++
					limit = dssSsIlg(c - b)
				}
			}
		} else {
			if d.buffer[idx+buf2[d.sa[first]]-1] < v {
				first = d.ssPartition(pa, first, last, depth)
				limit = dssSsIlg(last - first)
			} else {
				limit++
			}

			depth++
		}
	}
}

func (d *DivSufSort) ssPivot(td, pa, first, last int) int {
	t := last - first
	middle := first + (t >> 1)
	buf0 := d.buffer[td:]
	buf1 := d.sa[pa:]

	if t <= 512 {
		if t <= 32 {
			return d.ssMedian3(buf0, buf1, first, middle, last-1)
		}

		return d.ssMedian5(buf0, buf1, first, first+(t>>2), middle, last-1-(t>>2), last-1)
	}

	t >>= 3
	first = d.ssMedian3(buf0, buf1, first, first+t, first+(t<<1))
	middle = d.ssMedian3(buf0, buf1, middle-t, middle, middle+t)
	last = d.ssMedian3(buf0, buf1, last-1-(t<<1), last-1-t, last-1)
	return d.ssMedian3(buf0, buf1, first, middle, last)
}

func (d *DivSufSort) ssMedian5(buf0, buf1 []int, v1, v2, v3, v4, v5 int) int {
	if buf0[buf1[d.sa[v2]]] > buf0[buf1[d.sa[v3]]] {
		v2, v3 = v3, v2
	}

	if buf0[buf1[d.sa[v4]]] > buf0[buf1[d.sa[v5]]] {
		v4, v5 = v5, v4
	}

	if buf0[buf1[d.sa[v2]]] > buf0[buf1[d.sa[v4]]] {
		v2, v4 = v4, v2
		v3, v5 = v5, v3
	}

	if buf0[buf1[d.sa[v1]]] > buf0[buf1[d.sa[v3]]] {
		v1, v3 = v3, v1
	}

	if buf0[buf1[d.sa[v1]]] > buf0[buf1[d.sa[v4]]] {
		v1, v4 = v4, v1
		v3, v5 = v5, v3
	}

	if buf0[buf1[d.sa[v3]]] > buf0[buf1[d.sa[v4]]] {
		return v4
	}

	return v3
}

func (d *DivSufSort) ssMedian3(buf0, buf1 []int, v1, v2, v3 int) int {
	if buf0[buf1[d.sa[v1]]] > buf0[buf1[d.sa[v2]]] {
		v1, v2 = v2, v1
	}

	if buf0[buf1[d.sa[v2]]] > buf0[buf1[d.sa[v3]]] {
		if buf0[buf1[d.sa[v1]]] > buf0[buf1[d.sa[v3]]] {
			return v1
		}

		return v3
	}

	return v2
}

func (d *DivSufSort) ssPartition(pa, first, last, depth int) int {
	buf1 := d.sa
	buf2 := d.sa[pa:]
	a := first - 1
	b := last
	dd := depth - 1

	for {
		a++

		for a < b && buf2[buf1[a]]+dd >= buf2[buf1[a]+1] {
			buf1[a] = ^buf1[a]
			a++
		}

		b--

		for b > a && buf2[buf1[b]]+dd < buf2[buf1[b]+1] {
			b--
		}

		if b <= a {
			break
		}

		buf1[a], buf1[b] = ^buf1[b], buf1[a]
	}

	if first < a {
		buf1[first] = ^buf1[first]
	}

	return a
}

func (d *DivSufSort) ssHeapSort(idx, pa, saIdx, size int) {
	m := size

	if size&1 == 0 {
		m--

		if d.buffer[idx+d.sa[pa+d.sa[saIdx+(m>>1)]]] < d.buffer[idx+d.sa[pa+d.sa[saIdx+m]]] {
			d.sa[saIdx+(m>>1)], d.sa[saIdx+m] = d.sa[saIdx+m], d.sa[saIdx+(m>>1)]
		}
	}

	buf1 := d.buffer[idx:]
	buf2 := d.sa[pa:]
	buf3 := d.sa[saIdx:]

	for i := (m >> 1) - 1; i >= 0; i-- {
		d.ssFixDown(buf1, buf2, buf3, i, m)
	}

	if size&1 == 0 {
		d.sa[saIdx], d.sa[saIdx+m] = d.sa[saIdx+m], d.sa[saIdx]
		d.ssFixDown(buf1, buf2, buf3, 0, m)
	}

	for i := m - 1; i > 0; i-- {
		t := d.sa[saIdx]
		d.sa[saIdx] = d.sa[saIdx+i]
		d.ssFixDown(buf1, buf2, buf3, 0, i)
		d.sa[saIdx+i] = t
	}
}

func (d *DivSufSort) ssFixDown(buf1, buf2, buf3 []int, i, size int) {
	v := buf3[i]
	c := buf1[buf2[v]]
	j := (i << 1) + 1

	for j < size {
		k := j
		j++
		dv := buf1[buf2[buf3[k]]]
		e := buf1[buf2[buf3[j]]]

		if dv < e {
			k = j
			dv = e
		}

		if dv <= c {
			break
		}

		buf3[i] = buf3[k]
		i = k
		j = (i << 1) + 1
	}

	buf3[i] = v
}

func dssSsIlg(n int) int {
	if n&0xFF00 != 0 {
		return 8 + dssLogTable[(n>>8)&0xFF]
	}

	return dssLogTable[n&0xFF]
}
