// Package classify implements FormatClassifier: a ten-line heuristic
// that labels a freshly opened stream as fasta, fastq, raw, or
// unsupported.
//
// Grounded directly on original_source's counter.c determine_filetype
// and is_nucleotide.
package classify

import (
	"bufio"
	"compress/gzip"
	"compress/zlib"
	"io"
	"os"
	"strings"

	"github.com/rnalab/katss"
)

// Format is the classifier's verdict.
type Format byte

const (
	Fasta       Format = 'a'
	Fastq       Format = 'q'
	Raw         Format = 's'
	Unsupported Format = 0
)

const maxLines = 10

// isNucleotide reports whether b is one of A,C,G,T,U in either case.
func isNucleotide(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'U', 'a', 'c', 'g', 't', 'u':
		return true
	}
	return false
}

func rawLine(line string) bool {
	if len(line) == 0 {
		return false
	}
	n := 0
	for i := 0; i < len(line); i++ {
		if isNucleotide(line[i]) {
			n++
		}
	}
	return float64(n)/float64(len(line)) >= 0.9
}

// Classify opens path, sniffing the same compression container as
// stream.Open, and applies the vote-counting rule over the first
// (up to) 10 lines: >=2 fastq-structural hits means fastq; any
// '>'/';' line means fasta; 10 raw-qualifying lines means raw;
// otherwise Unsupported.
func Classify(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unsupported, katss.NewError("classify.Classify", katss.IoError, err)
	}
	defer f.Close()

	var r io.Reader = f
	magic := make([]byte, 2)
	if n, _ := io.ReadFull(f, magic); n == 2 {
		if magic[0] == 0x1F && magic[1] == 0x8B {
			if _, err := f.Seek(0, io.SeekStart); err == nil {
				if zr, err := gzip.NewReader(f); err == nil {
					defer zr.Close()
					r = zr
				}
			}
		} else if magic[0] == 0x78 && (magic[1] == 0x01 || magic[1] == 0x5E || magic[1] == 0x9C || magic[1] == 0xDA) {
			if _, err := f.Seek(0, io.SeekStart); err == nil {
				if zr, err := zlib.NewReader(f); err == nil {
					defer zr.Close()
					r = zr
				}
			}
		} else {
			f.Seek(0, io.SeekStart)
		}
	}

	scanner := bufio.NewScanner(r)

	var fastqHits, fastaHits, rawHits int
	lines := make([]string, 0, maxLines)
	for i := 0; i < maxLines && scanner.Scan(); i++ {
		lines = append(lines, scanner.Text())
	}

	for i, line := range lines {
		pos := i % 4
		if pos == 0 && strings.HasPrefix(line, "@") {
			// Look for a '+' line two lines later: with 1-indexed line
			// numbers '@' sits at n%4==1 and '+' at n%4==3; with the
			// 0-indexed i used here, that's i%4==0 and i+2.
			if i+2 < len(lines) && strings.HasPrefix(lines[i+2], "+") {
				fastqHits++
			}
		}
		if strings.HasPrefix(line, ">") || strings.HasPrefix(line, ";") {
			fastaHits++
		}
		if rawLine(line) {
			rawHits++
		}
	}

	switch {
	case fastqHits >= 2:
		return Fastq, nil
	case fastaHits > 0:
		return Fasta, nil
	case rawHits == maxLines && len(lines) == maxLines:
		return Raw, nil
	default:
		return Unsupported, nil
	}
}
