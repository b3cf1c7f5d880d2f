/*
Copyright © 2026 the GeoCube authors.
This file is part of GeoCube.

GeoCube is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GeoCube is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GeoCube.  If not, see <http://www.gnu.org/licenses/>.
*/

package geocube

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/zeebo/blake3"
)

// contentHash accumulates a canonical little-endian encoding of mixed
// values into a BLAKE3 digest. Strings are length-prefixed so that
// adjacent fields cannot run together.
type contentHash struct {
	h   *blake3.Hasher
	buf [8]byte
}

func newContentHash() *contentHash {
	return &contentHash{h: blake3.New()}
}

func (c *contentHash) u64(v uint64) {
	binary.LittleEndian.PutUint64(c.buf[:], v)
	c.h.Write(c.buf[:])
}

func (c *contentHash) str(s string) {
	c.u64(uint64(len(s)))
	c.h.Write([]byte(s))
}

func (c *contentHash) ints(vs []int) {
	c.u64(uint64(len(vs)))
	for _, v := range vs {
		c.u64(uint64(int64(v)))
	}
}

func (c *contentHash) floats(vs []float64) {
	c.u64(uint64(len(vs)))
	for _, v := range vs {
		// Hash the bit pattern so that NaN fill values and negative
		// zero are distinguished.
		c.u64(math.Float64bits(v))
	}
}

// hex returns the first 8 bytes of the digest as 16 hex characters.
func (c *contentHash) hex() string {
	sum := c.h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// dataChecksum computes the value-level hash of a realized data array,
// keyed by dtype, shape, and fill value. Two arrays with identical
// dtype, shape, and values produce identical checksums regardless of
// how they were constructed; any single differing value changes the
// checksum.
func dataChecksum(dtype DType, shape []int, fill float64, elements []float64) string {
	h := newContentHash()
	h.str(string(dtype))
	h.ints(shape)
	h.u64(math.Float64bits(fill))
	h.floats(elements)
	return "0x" + h.hex()
}
