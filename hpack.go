package http2

import "sync"

// HPACK holds one direction's worth of HPACK state: the dynamic table
// plus the handful of knobs that govern how the encoder chooses
// representations. A connection owns two independent HPACK values, one
// per direction (RFC 7541's dynamic tables are not shared).
//
// https://tools.ietf.org/html/rfc7541
type HPACK struct {
	dynamic *dynamicTable

	// DisableCompression forces literal-without-Huffman output. Useful
	// for debugging wire captures.
	DisableCompression bool

	// MaxHeaderListSize bounds the total decoded size (RFC 7541 §4.1
	// Size() summed across every field parsed from one header block)
	// this side will accept. Zero means unlimited.
	MaxHeaderListSize uint32

	decodedSize uint32
}

var hpackPool = sync.Pool{
	New: func() interface{} {
		return &HPACK{dynamic: newDynamicTable(DefaultHeaderTableSize)}
	},
}

// AcquireHPack returns a pooled HPACK with an empty dynamic table.
func AcquireHPack() *HPACK {
	hp := hpackPool.Get().(*HPACK)
	hp.Reset()
	return hp
}

// ReleaseHPack returns hp to the pool.
func ReleaseHPack(hp *HPACK) {
	hpackPool.Put(hp)
}

// Reset clears decoder/encoder state and returns the dynamic table to
// DefaultHeaderTableSize, for both its current size and its hard limit.
func (hp *HPACK) Reset() {
	hp.dynamic.reset(DefaultHeaderTableSize)
	hp.DisableCompression = false
	hp.MaxHeaderListSize = 0
	hp.decodedSize = 0
}

// SetMaxTableSize sets the hard ceiling this side enforces on the
// dynamic table, independent of any Dynamic Table Size Update a peer
// sends (those can only shrink further, never grow past this).
func (hp *HPACK) SetMaxTableSize(size uint32) {
	hp.dynamic.hardLimit = size
	// hardLimit and size are set together, so this can never exceed it.
	_ = hp.dynamic.setMaxSize(size)
}

// beginHeaderList must be called once before decoding the first frame
// of a new header block, so MaxHeaderListSize accounts for the whole
// block rather than one frame's fragment of it.
func (hp *HPACK) beginHeaderList() {
	hp.decodedSize = 0
}

// Next decodes one HPACK representation from the front of src and
// returns the number of bytes consumed. If the representation was a
// header field, hf is filled in (Empty() returns false); if it was a
// Dynamic Table Size Update, hf is left empty and the caller should
// keep decoding the remainder of src.
func (hp *HPACK) Next(hf *HeaderField, src []byte) (int, error) {
	hf.Reset()

	if len(src) == 0 {
		return 0, ErrMissingBytes
	}

	first := src[0]

	switch {
	case first&0x80 != 0: // Indexed Header Field — RFC 7541 §6.1
		idx, n, err := readInt(7, first, src[1:])
		if err != nil {
			return 0, err
		}
		if idx == 0 {
			return 0, NewConnError(CompressionError, "zero index in indexed header field")
		}
		if err := hp.lookupIndexed(hf, int(idx)); err != nil {
			return 0, err
		}
		if err := hp.accountDecoded(hf); err != nil {
			return 0, err
		}
		return 1 + n, nil

	case first&0x40 != 0: // Literal with Incremental Indexing — §6.2.1
		return hp.readLiteral(hf, src, 6, true, false)

	case first&0x20 != 0: // Dynamic Table Size Update — §6.3
		size, n, err := readInt(5, first, src[1:])
		if err != nil {
			return 0, err
		}
		if err := hp.dynamic.setMaxSize(uint32(size)); err != nil {
			return 0, NewConnError(CompressionError, err.Error())
		}
		return 1 + n, nil

	case first&0x10 != 0: // Literal Never Indexed — §6.2.3
		return hp.readLiteral(hf, src, 4, false, true)

	default: // Literal Without Indexing — §6.2.2
		return hp.readLiteral(hf, src, 4, false, false)
	}
}

func (hp *HPACK) lookupIndexed(hf *HeaderField, idx int) error {
	if idx <= staticTableLen {
		e := staticTable[idx-1]
		hf.SetKey(e.name)
		hf.SetValue(e.value)
		return nil
	}

	d := hp.dynamic.at(idx - staticTableLen - 1)
	if d == nil {
		return NewConnError(CompressionError, "header index out of range")
	}
	d.CopyTo(hf)
	return nil
}

func (hp *HPACK) readLiteral(hf *HeaderField, src []byte, prefixBits byte, store, sensible bool) (int, error) {
	first := src[0]
	nameIdx, n, err := readInt(prefixBits, first, src[1:])
	if err != nil {
		return 0, err
	}
	consumed := 1 + n

	if nameIdx > 0 {
		if err := hp.lookupIndexed(hf, int(nameIdx)); err != nil {
			return 0, err
		}
	} else {
		name, n, err := readHPACKString(src[consumed:])
		if err != nil {
			return 0, err
		}
		hf.SetKeyBytes(name)
		consumed += n
	}

	value, n, err := readHPACKString(src[consumed:])
	if err != nil {
		return 0, err
	}
	hf.SetValueBytes(value)
	consumed += n

	hf.SetSensible(sensible)

	if err := hp.accountDecoded(hf); err != nil {
		return 0, err
	}

	if store {
		hp.dynamic.add(hf)
	}

	return consumed, nil
}

func (hp *HPACK) accountDecoded(hf *HeaderField) error {
	if hp.MaxHeaderListSize == 0 {
		return nil
	}
	hp.decodedSize += uint32(hf.Size())
	if hp.decodedSize > hp.MaxHeaderListSize {
		return NewConnError(CompressionError, "decompressed header list too large")
	}
	return nil
}

// readHPACKString decodes a length-prefixed, possibly Huffman-encoded
// string (RFC 7541 §5.2) from the front of src.
func readHPACKString(src []byte) ([]byte, int, error) {
	if len(src) == 0 {
		return nil, 0, ErrMissingBytes
	}

	first := src[0]
	huff := first&0x80 != 0

	length, n, err := readInt(7, first, src[1:])
	if err != nil {
		return nil, 0, err
	}
	consumed := 1 + n

	if uint64(len(src)-consumed) < length {
		return nil, 0, ErrMissingBytes
	}

	raw := src[consumed : consumed+int(length)]
	consumed += int(length)

	if !huff {
		return raw, consumed, nil
	}

	dec, err := huffmanDecodeAppend(nil, raw)
	if err != nil {
		return nil, 0, err
	}

	return dec, consumed, nil
}

// AppendHeader encodes hf onto dst using the dynamic/static table as
// the source of indexing candidates, and returns the extended dst.
//
// Sensible fields are always encoded as Literal Never Indexed and are
// never stored in the dynamic table, regardless of store.
func (hp *HPACK) AppendHeader(dst []byte, hf *HeaderField, store bool) []byte {
	if hf.IsSensible() {
		return hp.appendLiteral(dst, hf, 0x10, 4, false)
	}

	if idx, full := hp.findIndex(hf); idx > 0 {
		if full {
			return appendIndexed(dst, idx)
		}
		return hp.appendLiteralNameIndexed(dst, hf, idx, store)
	}

	if store {
		return hp.appendLiteral(dst, hf, 0x40, 6, true)
	}
	return hp.appendLiteral(dst, hf, 0x00, 4, false)
}

// findIndex looks for hf's (name, value) in the static table first and
// the dynamic table second. full reports whether value matched too.
func (hp *HPACK) findIndex(hf *HeaderField) (idx int, full bool) {
	key, value := hf.Key(), hf.Value()

	if i, ok := staticTableIndex[staticTableEntry{key, value}]; ok {
		return i, true
	}

	for i := 0; i < hp.dynamic.len(); i++ {
		e := hp.dynamic.at(i)
		if e.Key() == key && e.Value() == value {
			return staticTableLen + i + 1, true
		}
	}

	if i, ok := staticTableNameIndex[key]; ok {
		return i, false
	}

	for i := 0; i < hp.dynamic.len(); i++ {
		e := hp.dynamic.at(i)
		if e.Key() == key {
			return staticTableLen + i + 1, false
		}
	}

	return 0, false
}

func appendIndexed(dst []byte, idx int) []byte {
	dst = append(dst, 0x80)
	return appendInt(dst, 7, uint64(idx))
}

func (hp *HPACK) appendLiteralNameIndexed(dst []byte, hf *HeaderField, idx int, store bool) []byte {
	prefixByte, prefixBits := byte(0x00), byte(4)
	if store {
		prefixByte, prefixBits = 0x40, 6
	}

	dst = append(dst, prefixByte)
	dst = appendInt(dst, prefixBits, uint64(idx))
	dst = hp.appendString(dst, hf.ValueBytes())

	if store {
		hp.dynamic.add(hf)
	}

	return dst
}

func (hp *HPACK) appendLiteral(dst []byte, hf *HeaderField, prefixByte byte, prefixBits byte, store bool) []byte {
	dst = append(dst, prefixByte)
	dst = appendInt(dst, prefixBits, 0)
	dst = hp.appendString(dst, hf.KeyBytes())
	dst = hp.appendString(dst, hf.ValueBytes())

	if store {
		hp.dynamic.add(hf)
	}

	return dst
}

// appendString writes s as an HPACK string, choosing whichever of the
// plain or Huffman-encoded representation is shorter.
func (hp *HPACK) appendString(dst, s []byte) []byte {
	if hp.DisableCompression {
		dst = append(dst, 0)
		dst = appendInt(dst, 7, uint64(len(s)))
		return append(dst, s...)
	}

	huffLen := huffmanEncodedLen(s)
	if huffLen >= len(s) {
		dst = append(dst, 0)
		dst = appendInt(dst, 7, uint64(len(s)))
		return append(dst, s...)
	}

	dst = append(dst, 0x80)
	dst = appendInt(dst, 7, uint64(huffLen))
	return huffmanEncodeAppend(dst, s)
}
