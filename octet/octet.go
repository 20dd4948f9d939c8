// Copyright (c) 2020-2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package octet provides the borrowed byte-slice view that the rest
// of the codec is built on (§4.1, §9 "Borrowed views over byte
// slices"): a Reader/Writer pair of thin wrappers over externally
// owned memory, offering checked little-endian field accessors. A
// view never copies its backing storage and must not outlive it —
// the Go type system cannot express a lifetime bound the way a
// borrow-checked language would, so the rule is enforced by
// convention: a Reader/Writer is only ever constructed over a slice
// the caller keeps alive for at least as long as the view is used.
package octet

import "github.com/pkg/errors"

// ErrShort is returned by any accessor whose target range exceeds the
// bounds of the wrapped slice.
var ErrShort = errors.New("octet: short buffer")

// Reader is an immutable borrowed view over a byte region.
type Reader struct {
	b   []byte
	pos int
}

// NewReader wraps b for reading, starting at offset 0.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Len returns the number of unread octets remaining.
func (r *Reader) Len() int {
	return len(r.b) - r.pos
}

// Pos returns the current read offset.
func (r *Reader) Pos() int {
	return r.pos
}

// SetPos seeks to an absolute offset within the wrapped slice.
func (r *Reader) SetPos(pos int) error {
	if pos < 0 || pos > len(r.b) {
		return ErrShort
	}
	r.pos = pos
	return nil
}

// Remaining returns the unread tail of the wrapped slice, without
// copying.
func (r *Reader) Remaining() []byte {
	return r.b[r.pos:]
}

// Peek returns the next n octets without advancing the read position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.b) {
		return nil, ErrShort
	}
	return r.b[r.pos : r.pos+n], nil
}

// Skip advances the read position by n octets.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.b) {
		return ErrShort
	}
	r.pos += n
	return nil
}

// U8 reads one octet.
func (r *Reader) U8() (uint8, error) {
	b, err := r.Peek(1)
	if err != nil {
		return 0, err
	}
	r.pos++
	return b[0], nil
}

// U16 reads a little-endian 16-bit field.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Peek(2)
	if err != nil {
		return 0, err
	}
	r.pos += 2
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// U64 reads a little-endian 64-bit field, used for extended (EUI-64)
// addresses.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Peek(8)
	if err != nil {
		return 0, err
	}
	r.pos += 8
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// Bytes reads the next n octets as a sub-slice of the original
// backing storage (no copy).
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += n
	return b, nil
}

// Writer is a mutable borrowed view over a caller-owned byte region.
// It never grows the underlying slice; writes past its end fail
// closed with ErrShort, matching §4.1 ("Writers reject writes whose
// target exceeds the buffer").
type Writer struct {
	b   []byte
	pos int
}

// NewWriter wraps b for writing, starting at offset 0.
func NewWriter(b []byte) *Writer {
	return &Writer{b: b}
}

// Len returns the number of octets written so far.
func (w *Writer) Len() int {
	return w.pos
}

// Cap returns the total capacity of the wrapped slice.
func (w *Writer) Cap() int {
	return len(w.b)
}

// Bytes returns the written prefix of the wrapped slice, without
// copying.
func (w *Writer) Bytes() []byte {
	return w.b[:w.pos]
}

func (w *Writer) reserve(n int) ([]byte, error) {
	if n < 0 || w.pos+n > len(w.b) {
		return nil, ErrShort
	}
	dst := w.b[w.pos : w.pos+n]
	w.pos += n
	return dst, nil
}

// PutU8 appends one octet.
func (w *Writer) PutU8(v uint8) error {
	dst, err := w.reserve(1)
	if err != nil {
		return err
	}
	dst[0] = v
	return nil
}

// PutU16 appends a little-endian 16-bit field.
func (w *Writer) PutU16(v uint16) error {
	dst, err := w.reserve(2)
	if err != nil {
		return err
	}
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	return nil
}

// PutU64 appends a little-endian 64-bit field.
func (w *Writer) PutU64(v uint64) error {
	dst, err := w.reserve(8)
	if err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * uint(i)))
	}
	return nil
}

// PutBytes appends b verbatim.
func (w *Writer) PutBytes(b []byte) error {
	dst, err := w.reserve(len(b))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// PutU16At overwrites a little-endian 16-bit field already within the
// written prefix, for patching a field whose value is known only after
// later fields are written. No package in this module calls it.
func (w *Writer) PutU16At(pos int, v uint16) error {
	if pos < 0 || pos+2 > w.pos {
		return ErrShort
	}
	w.b[pos] = byte(v)
	w.b[pos+1] = byte(v >> 8)
	return nil
}
