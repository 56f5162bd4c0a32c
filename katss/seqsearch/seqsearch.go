// Package seqsearch implements SeqSearch: a nucleotide-equivalence
// (case-insensitive, U=T) substring matcher used by knockout masking,
// with fasta/fastq header- and quality-block-skipping variants.
//
// Grounded on original_source's seqseq.c for the matching semantics and
// the seqseqa/seqseqq/seql* header-skipping companions. Every needle
// length is matched by a direct left-to-right scan (unrolled comparisons
// for length 1-3 needles); no Horspool shift table is built.
package seqsearch

// cleanNT normalizes a byte for nucleotide-equivalent comparison:
// uppercase, and U treated as T.
func cleanNT(b byte) byte {
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	if b == 'U' {
		return 'T'
	}
	return b
}

func equalNT(a, b byte) bool { return cleanNT(a) == cleanNT(b) }

// Mode selects which header/quality-skipping behavior Search applies
// while scanning the haystack.
type Mode int

const (
	Plain Mode = iota // seqseq: no skipping
	Fasta             // seqseqa: skip '>' header lines
	Fastq             // seqseqq: skip '@' header + quality block after '+'
)

// Search finds occurrences of needle in haystack modulo nucleotide
// equivalence.
type Search struct {
	Needle []byte
	Mode   Mode
}

// New constructs a Search for needle under mode.
func New(needle []byte, mode Mode) *Search {
	return &Search{Needle: needle, Mode: mode}
}

// FindAll returns the start offsets of every (possibly overlapping)
// match of s.Needle within haystack, honoring s.Mode's skip rules.
func (s *Search) FindAll(haystack []byte) []int {
	var out []int
	i := 0
	n := len(haystack)
	m := len(s.Needle)
	if m == 0 {
		return nil
	}
	for i+m <= n {
		switch s.Mode {
		case Fasta:
			if haystack[i] == '>' {
				i = skipLine(haystack, i)
				continue
			}
		case Fastq:
			if haystack[i] == '@' {
				i = skipLine(haystack, i)
				continue
			}
			if haystack[i] == '+' {
				i = skipLine(haystack, i) // '+' line
				i = skipLine(haystack, i) // quality line
				continue
			}
		}
		if matchAt(haystack, i, s.Needle) {
			out = append(out, i)
		}
		i++
	}
	return out
}

func skipLine(buf []byte, i int) int {
	for i < len(buf) && buf[i] != '\n' {
		i++
	}
	if i < len(buf) {
		i++ // consume the newline itself
	}
	return i
}

func matchAt(haystack []byte, i int, needle []byte) bool {
	switch len(needle) {
	case 1:
		return equalNT(haystack[i], needle[0])
	case 2:
		return equalNT(haystack[i], needle[0]) && equalNT(haystack[i+1], needle[1])
	case 3:
		return equalNT(haystack[i], needle[0]) &&
			equalNT(haystack[i+1], needle[1]) &&
			equalNT(haystack[i+2], needle[2])
	default:
		for j := range needle {
			if !equalNT(haystack[i+j], needle[j]) {
				return false
			}
		}
		return true
	}
}

// Find returns the offset of the first match, or -1 if none.
func (s *Search) Find(haystack []byte) int {
	i := 0
	n := len(haystack)
	m := len(s.Needle)
	if m == 0 || m > n {
		return -1
	}
	for i+m <= n {
		switch s.Mode {
		case Fasta:
			if haystack[i] == '>' {
				i = skipLine(haystack, i)
				continue
			}
		case Fastq:
			if haystack[i] == '@' {
				i = skipLine(haystack, i)
				continue
			}
			if haystack[i] == '+' {
				i = skipLine(haystack, i)
				i = skipLine(haystack, i)
				continue
			}
		}
		if matchAt(haystack, i, s.Needle) {
			return i
		}
		i++
	}
	return -1
}

// LineStart walks back from offset to the start of its containing
// newline-delimited line (the seqlseq family).
func LineStart(haystack []byte, offset int) int {
	for offset > 0 && haystack[offset-1] != '\n' {
		offset--
	}
	return offset
}
