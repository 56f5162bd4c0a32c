// Package hasher implements RollingHasher: an incremental base-4 hash
// over a sliding k-length window, with per-format state machines that
// skip fasta/fastq headers, quality lines, and newlines.
//
// Grounded on original_source's hash_functions.c: the base[256]
// character-class table, fbh_r/fbh_a/fbh_q base-hash scanners, and the
// endno resync convention for buffers that end mid-header or
// mid-quality-block.
package hasher

import "github.com/rnalab/katss/stream"

// class is the 256-entry character classification table: nucleotides
// map to their 2-bit code, and a handful of structural bytes get
// sentinel classes used by the base-hash scanners.
var class [256]byte

const (
	classNUL  = 4
	classGT   = 5 // '>'
	classAt   = 6 // '@'
	classPlus = 7 // '+'
	classNL   = 8 // '\n'
	classOth  = 9
)

func init() {
	for i := range class {
		class[i] = classOth
	}
	class['A'], class['a'] = 0, 0
	class['C'], class['c'] = 1, 1
	class['G'], class['g'] = 2, 2
	class['T'], class['t'] = 3, 3
	class['U'], class['u'] = 3, 3
	class[0] = classNUL
	class['>'] = classGT
	class['@'] = classAt
	class['+'] = classPlus
	class['\n'] = classNL
}

// endno records where the previous record ended, so the next call can
// resume correctly without re-scanning: 0 clean, 1 mid-header (finish
// skipping one line), 2 mid-quality-block (finish skipping two lines).
type endno int

const (
	endClean endno = iota
	endMidHeader
	endMidQuality
)

// Hasher is the RollingHasher: a k-length sliding window over a
// per-format byte stream.
type Hasher struct {
	k    int
	mask uint32

	kind stream.Kind

	window  uint32
	fill    int // 0..k, bytes accumulated into window so far
	hasPrev bool

	pending endno
}

// New initializes a Hasher for the given k (1..16) and record kind.
func New(k int, kind stream.Kind) *Hasher {
	h := &Hasher{k: k, kind: kind}
	h.mask = uint32(1)<<uint(2*k) - 1
	return h
}

// K returns the hasher's configured k.
func (h *Hasher) K() int { return h.k }

// Reset clears rolling state (used between independent buffers when the
// caller does not want endno carried forward, e.g. starting a fresh
// record after a sentinel/mask byte).
func (h *Hasher) Reset() {
	h.window = 0
	h.fill = 0
	h.hasPrev = false
	h.pending = endClean
}

// Cursor is a read position over one buffer handed to the hasher.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for incremental consumption by NextHash.
func NewCursor(buf []byte) *Cursor { return &Cursor{buf: buf} }

func (c *Cursor) peek() (byte, bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	return c.buf[c.pos], true
}

func (c *Cursor) next() (byte, bool) {
	b, ok := c.peek()
	if ok {
		c.pos++
	}
	return b, ok
}

// SetSeq attaches a fresh cursor to the hasher, resolving any pending
// endno by skipping the rest of the interrupted header/quality block
// before hashing resumes.
func (h *Hasher) SetSeq(c *Cursor) {
	h.hasPrev = false
	h.window = 0
	h.fill = 0

	switch h.pending {
	case endMidHeader:
		skipLine(c)
		h.pending = endClean
	case endMidQuality:
		skipLine(c)
		skipLine(c)
		h.pending = endClean
	}
}

func skipLine(c *Cursor) {
	for {
		b, ok := c.next()
		if !ok || b == '\n' {
			return
		}
	}
}

// NextHash returns the hash of the next window, or (0, false) once the
// cursor is exhausted. On exhaustion mid-header or mid-quality-block,
// it records the endno so the next SetSeq resumes correctly.
func (h *Hasher) NextHash(c *Cursor) (uint32, bool) {
	if !h.hasPrev {
		return h.baseHash(c)
	}
	for {
		b, ok := c.peek()
		if !ok {
			return 0, false
		}
		cl := class[b]
		switch {
		case cl <= 3:
			c.next()
			h.window = (h.window<<2 | uint32(cl)) & h.mask
			return h.window, true
		case b == '>' || b == '@' || b == '+':
			h.hasPrev = false
			return h.baseHash(c)
		case b == '\n':
			c.next()
			if h.kind == stream.Raw {
				h.hasPrev = false
				return h.baseHash(c)
			}
			continue
		case b == classNUL:
			c.next()
			continue
		default:
			c.next()
			h.hasPrev = false
			return h.baseHash(c)
		}
	}
}

// baseHash scans forward accumulating k valid nucleotides per the
// stream kind, skipping newlines and, for fasta/fastq, header and
// quality-block bytes. Returns (0,false) on cursor exhaustion, having
// recorded h.pending for the next SetSeq.
func (h *Hasher) baseHash(c *Cursor) (uint32, bool) {
	// Every base-hash scan starts from an empty window.
	h.window, h.fill = 0, 0
	switch h.kind {
	case stream.Fasta:
		return h.baseHashFasta(c)
	case stream.Fastq:
		return h.baseHashFastq(c)
	default:
		return h.baseHashRaw(c)
	}
}

func (h *Hasher) baseHashRaw(c *Cursor) (uint32, bool) {
	for {
		b, ok := c.next()
		if !ok {
			return 0, false
		}
		cl := class[b]
		if cl <= 3 {
			h.window = (h.window<<2 | uint32(cl)) & h.mask
			h.fill++
			if h.fill == h.k {
				h.hasPrev = true
				return h.window, true
			}
			continue
		}
		// '\n' or anything else resets the in-progress window.
		h.window = 0
		h.fill = 0
	}
}

func (h *Hasher) baseHashFasta(c *Cursor) (uint32, bool) {
	for {
		b, ok := c.next()
		if !ok {
			return 0, false
		}
		if b == '>' {
			if !skipLineOrPending(c, &h.pending, endMidHeader) {
				return 0, false
			}
			h.window, h.fill = 0, 0
			continue
		}
		if b == '\n' {
			// Multi-line sequences: an embedded newline is ignored, not
			// a window break.
			continue
		}
		cl := class[b]
		if cl <= 3 {
			h.window = (h.window<<2 | uint32(cl)) & h.mask
			h.fill++
			if h.fill == h.k {
				h.hasPrev = true
				return h.window, true
			}
			continue
		}
		h.window, h.fill = 0, 0
	}
}

func (h *Hasher) baseHashFastq(c *Cursor) (uint32, bool) {
	for {
		b, ok := c.next()
		if !ok {
			return 0, false
		}
		switch b {
		case '@':
			if !skipLineOrPending(c, &h.pending, endMidHeader) {
				return 0, false
			}
			h.window, h.fill = 0, 0
		case '+':
			if !skipLineOrPending(c, &h.pending, endMidQuality) {
				return 0, false
			}
			if !skipLineOrPending(c, &h.pending, endMidQuality) {
				return 0, false
			}
			h.window, h.fill = 0, 0
		case '\n':
			// Multi-line sequences: an embedded newline is ignored, not
			// a window break.
		default:
			cl := class[b]
			if cl <= 3 {
				h.window = (h.window<<2 | uint32(cl)) & h.mask
				h.fill++
				if h.fill == h.k {
					h.hasPrev = true
					return h.window, true
				}
				continue
			}
			h.window, h.fill = 0, 0
		}
	}
}

// skipLineOrPending skips to the next newline; if the cursor is
// exhausted first, it records pending for the next SetSeq and reports
// false so the caller can propagate cursor exhaustion.
func skipLineOrPending(c *Cursor, pending *endno, onExhaust endno) bool {
	for {
		b, ok := c.next()
		if !ok {
			*pending = onExhaust
			return false
		}
		if b == '\n' {
			return true
		}
	}
}

// Eos reports whether the cursor has reached a NUL terminator (end of
// sequence marker) rather than ordinary exhaustion.
func Eos(c *Cursor) bool {
	b, ok := c.peek()
	return ok && b == 0
}

// Unhash reconstructs the kmer string for hash under k, lexicographic
// per the canonical base-4 mapping; useT selects 'T' or 'U' for code 3.
func Unhash(hash uint32, k int, useT bool) string {
	buf := make([]byte, k)
	letters := [4]byte{'A', 'C', 'G', 'T'}
	if !useT {
		letters[3] = 'U'
	}
	for i := k - 1; i >= 0; i-- {
		buf[i] = letters[hash&3]
		hash >>= 2
	}
	return string(buf)
}

// upperClass classifies a single byte as an uppercase nucleotide code
// (0-3), or 0xFF for anything else, including lowercase -- the lookup
// Hash uses instead of the scanner's case-insensitive class table, since
// key lookup is case-sensitive uppercase-only (matching the original's
// katss_get, which switches only on 'A'/'C'/'G'/'T'/'U').
func upperClass(b byte) byte {
	switch b {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T', 'U':
		return 3
	default:
		return 0xFF
	}
}

// Hash computes the canonical hash of an in-memory kmer string (A/C/G/T/U,
// case-sensitive uppercase only -- lowercase is rejected, not folded),
// returning (0,false) on any non-nucleotide byte or on a length mismatch
// against k.
func Hash(kmer string, k int) (uint32, bool) {
	if len(kmer) != k {
		return 0, false
	}
	var h uint32
	for i := 0; i < len(kmer); i++ {
		cl := upperClass(kmer[i])
		if cl > 3 {
			return 0, false
		}
		h = h<<2 | uint32(cl)
	}
	return h, true
}
