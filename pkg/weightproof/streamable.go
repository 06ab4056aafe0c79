package weightproof

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/types"
)

// Writer implements the chain's canonical deterministic encoding:
// length-prefixed sequences, big-endian fixed-width integers, and
// optionals as a one-byte presence tag followed by the encoded value when
// present. It is the wire counterpart to the tagged-variant internal
// representation used by SubSlotDataV2 and friends.
type Writer struct {
	buf []byte
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint128 writes v as a fixed 16-byte big-endian unsigned integer.
func (w *Writer) WriteUint128(v *big.Int) {
	var b [16]byte
	v.FillBytes(b[:])
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteHash(h Hash) { w.buf = append(w.buf, h[:]...) }

// WriteBytes writes a length-prefixed (uint32) byte string.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteOptTrue writes the one-byte "present" optional tag.
func (w *Writer) WriteOptTrue() { w.buf = append(w.buf, 1) }

// WriteOptFalse writes the one-byte "absent" optional tag.
func (w *Writer) WriteOptFalse() { w.buf = append(w.buf, 0) }

// WriteSeqLen writes a uint32 sequence-length prefix; callers then encode
// each element in turn.
func (w *Writer) WriteSeqLen(n int) { w.WriteUint32(uint32(n)) }

// Reader is the decode counterpart of Writer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("weightproof: streamable decode: short buffer (need %d, have %d)", n, len(r.buf)-r.pos)
	}
	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadUint128() (*big.Int, error) {
	if err := r.need(16); err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(r.buf[r.pos : r.pos+16])
	r.pos += 16
	return v, nil
}

func (r *Reader) ReadHash() (Hash, error) {
	var h Hash
	if err := r.need(types.HashLength); err != nil {
		return h, err
	}
	copy(h[:], r.buf[r.pos:r.pos+types.HashLength])
	r.pos += types.HashLength
	return h, nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

func (r *Reader) ReadOpt() (bool, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	if tag > 1 {
		return false, fmt.Errorf("weightproof: streamable decode: bad optional tag %d", tag)
	}
	return tag == 1, nil
}

func (r *Reader) ReadSeqLen() (int, error) {
	n, err := r.ReadUint32()
	return int(n), err
}

// MarshalSubEpochData encodes a SubEpochData in wire form.
func MarshalSubEpochData(d SubEpochData) []byte {
	var w Writer
	w.WriteHash(d.RewardChainHash)
	w.WriteUint8(d.NumBlocksOverflow)
	if d.NewSubSlotIters != nil {
		w.WriteOptTrue()
		w.WriteUint64(*d.NewSubSlotIters)
	} else {
		w.WriteOptFalse()
	}
	if d.NewDifficulty != nil {
		w.WriteOptTrue()
		w.WriteUint64(*d.NewDifficulty)
	} else {
		w.WriteOptFalse()
	}
	return w.Bytes()
}

// UnmarshalSubEpochData decodes a SubEpochData from wire form.
func UnmarshalSubEpochData(b []byte) (SubEpochData, error) {
	r := NewReader(b)
	var d SubEpochData
	var err error
	if d.RewardChainHash, err = r.ReadHash(); err != nil {
		return d, err
	}
	if d.NumBlocksOverflow, err = r.ReadUint8(); err != nil {
		return d, err
	}
	present, err := r.ReadOpt()
	if err != nil {
		return d, err
	}
	if present {
		v, err := r.ReadUint64()
		if err != nil {
			return d, err
		}
		d.NewSubSlotIters = &v
	}
	present, err = r.ReadOpt()
	if err != nil {
		return d, err
	}
	if present {
		v, err := r.ReadUint64()
		if err != nil {
			return d, err
		}
		d.NewDifficulty = &v
	}
	return d, nil
}

// MarshalSubEpochs encodes a sequence of SubEpochData.
func MarshalSubEpochs(data []SubEpochData) []byte {
	var w Writer
	w.WriteSeqLen(len(data))
	for _, d := range data {
		w.buf = append(w.buf, MarshalSubEpochData(d)...)
	}
	return w.Bytes()
}

// UnmarshalSubEpochs decodes a sequence of SubEpochData. Each element is
// variable-length (two optionals), so this walks the reader directly
// rather than slicing fixed-width records.
func UnmarshalSubEpochs(b []byte) ([]SubEpochData, error) {
	r := NewReader(b)
	n, err := r.ReadSeqLen()
	if err != nil {
		return nil, err
	}
	out := make([]SubEpochData, 0, n)
	for i := 0; i < n; i++ {
		var d SubEpochData
		if d.RewardChainHash, err = r.ReadHash(); err != nil {
			return nil, err
		}
		if d.NumBlocksOverflow, err = r.ReadUint8(); err != nil {
			return nil, err
		}
		present, err := r.ReadOpt()
		if err != nil {
			return nil, err
		}
		if present {
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			d.NewSubSlotIters = &v
		}
		present, err = r.ReadOpt()
		if err != nil {
			return nil, err
		}
		if present {
			v, err := r.ReadUint64()
			if err != nil {
				return nil, err
			}
			d.NewDifficulty = &v
		}
		out = append(out, d)
	}
	return out, nil
}
