// Package ints contains a compact set of non-negative integers used as a visited set of rule ids.
package ints

import (
	"strconv"
	"strings"
)

const IntSizeShift = 5 + (^uint(0) >> 32 & 1)
const IntSize = 1 << IntSizeShift

// Set is a bit set of non-negative integers. Negative items are ignored.
type Set struct {
	chunks []uint
}

func NewSet(items ...int) *Set {
	result := &Set{}
	result.Add(items...)
	return result
}

func bitMask(item int) uint {
	return 1 << (uint(item) & (IntSize - 1))
}

func (s *Set) Add(items ...int) *Set {
	for _, item := range items {
		if item < 0 {
			continue
		}

		index := item >> IntSizeShift
		if index >= len(s.chunks) {
			chunks := make([]uint, index+1)
			copy(chunks, s.chunks)
			s.chunks = chunks
		}
		s.chunks[index] |= bitMask(item)
	}
	return s
}

func (s *Set) Contains(item int) bool {
	if item < 0 {
		return false
	}

	index := item >> IntSizeShift
	return index < len(s.chunks) && s.chunks[index]&bitMask(item) != 0
}

func (s *Set) Copy() *Set {
	chunks := make([]uint, len(s.chunks))
	copy(chunks, s.chunks)
	return &Set{chunks}
}

// With returns a copy of the set extended with given items, the set itself is not changed.
func (s *Set) With(items ...int) *Set {
	return s.Copy().Add(items...)
}

func (s *Set) IsEmpty() bool {
	for _, chunk := range s.chunks {
		if chunk != 0 {
			return false
		}
	}
	return true
}

func (s *Set) ToSlice() []int {
	var result []int
	for i, chunk := range s.chunks {
		item := i << IntSizeShift
		for ; chunk != 0; chunk >>= 1 {
			if chunk&1 != 0 {
				result = append(result, item)
			}
			item++
		}
	}
	return result
}

// Key returns a string that is equal for sets containing the same items.
func (s *Set) Key() string {
	var sb strings.Builder
	for i, item := range s.ToSlice() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(item))
	}
	return sb.String()
}
