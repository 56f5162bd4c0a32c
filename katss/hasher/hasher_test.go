package hasher

import (
	"testing"

	"github.com/rnalab/katss/stream"
)

func TestHashUnhashRoundTrip(t *testing.T) {
	k := 4
	for h := uint32(0); h < 1<<uint(2*k); h++ {
		s := Unhash(h, k, true)
		got, ok := Hash(s, k)
		if !ok {
			t.Fatalf("Hash(%q) failed", s)
		}
		if got != h {
			t.Errorf("hash(unhash(%d))=%d, want %d", h, got, h)
		}
	}
}

func TestUnhashKnownValue(t *testing.T) {
	// hash("ACGT") = 0*64+1*16+2*4+3 = 27
	h, ok := Hash("ACGT", 4)
	if !ok || h != 27 {
		t.Fatalf("Hash(ACGT)=%d,%v want 27,true", h, ok)
	}
	if got := Unhash(27, 4, true); got != "ACGT" {
		t.Errorf("Unhash(27,4,true)=%q want ACGT", got)
	}
}

func TestHashRejectsLowercase(t *testing.T) {
	if _, ok := Hash("acgt", 4); ok {
		t.Error("Hash(\"acgt\") should fail: key lookup is case-sensitive, uppercase-only")
	}
}

func TestBaseHashRaw(t *testing.T) {
	h := New(2, stream.Raw)
	c := NewCursor([]byte("AACG\nGGTT\n"))
	h.SetSeq(c)

	var hashes []uint32
	for {
		hv, ok := h.NextHash(c)
		if !ok {
			break
		}
		hashes = append(hashes, hv)
	}

	want := []string{"AA", "AC", "CG", "GG", "GT", "TT"}
	if len(hashes) != len(want) {
		t.Fatalf("got %d hashes, want %d: %v", len(hashes), len(want), hashes)
	}
	for i, w := range want {
		wh, _ := Hash(w, 2)
		if hashes[i] != wh {
			t.Errorf("hash %d: got %d (%s), want %d (%s)", i, hashes[i], Unhash(hashes[i], 2, true), wh, w)
		}
	}
}

func TestBaseHashFastaMultiline(t *testing.T) {
	h := New(3, stream.Fasta)
	c := NewCursor([]byte(">r1\nAAAA\nAAAC\n>r2\nGGGG\n"))
	h.SetSeq(c)

	counts := map[string]int{}
	for {
		hv, ok := h.NextHash(c)
		if !ok {
			break
		}
		counts[Unhash(hv, 3, true)]++
	}

	want := map[string]int{"AAA": 5, "AAC": 1, "GGG": 2}
	for kmer, n := range want {
		if counts[kmer] != n {
			t.Errorf("count[%s]=%d, want %d", kmer, counts[kmer], n)
		}
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 8 {
		t.Errorf("total=%d want 8", total)
	}
}

func TestBaseHashFastqSkipsQualitySigils(t *testing.T) {
	// Quality line intentionally contains '@' and '+' to confirm they
	// are not mistaken for structural sigils there.
	data := "@r1\nAC\n+\n@+\n@r2\nGT\n+\n+@\n"
	h := New(2, stream.Fastq)
	c := NewCursor([]byte(data))
	h.SetSeq(c)

	var got []string
	for {
		hv, ok := h.NextHash(c)
		if !ok {
			break
		}
		got = append(got, Unhash(hv, 2, true))
	}
	if len(got) != 2 || got[0] != "AC" || got[1] != "GT" {
		t.Errorf("got %v, want [AC GT]", got)
	}
}
