package recount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rnalab/katss/counter"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "in")
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// Scenario 5: knockout "CGT" at k=3 eliminates every window in a file
// built entirely from repeats of "ACGTACGT", since every window either
// is CGT or overlaps one of its two occurrences per line.
func TestRecountKnockoutEliminatesAllWindows(t *testing.T) {
	lines := ""
	for i := 0; i < 10; i++ {
		lines += "ACGTACGT\n"
	}
	p := writeTemp(t, lines)

	tb, err := counter.Count(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	if tb.Total() == 0 {
		t.Fatal("precondition failed: initial count should be nonzero")
	}

	if err := Recount(tb, p, "CGT"); err != nil {
		t.Fatal(err)
	}
	if tb.Total() != 0 {
		t.Errorf("total after knockout=%d, want 0", tb.Total())
	}
}

// Recounting with an empty removal list is a no-op on the table's
// contents: it should reproduce the original count exactly.
func TestRecountEmptyRemovalIsIdempotent(t *testing.T) {
	lines := ""
	for i := 0; i < 10; i++ {
		lines += "AACGGGTT\n"
	}
	p := writeTemp(t, lines)

	before, err := counter.Count(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	beforeTotal := before.Total()

	if err := Recount(before, p, ""); err != nil {
		t.Fatal(err)
	}
	if before.Total() != beforeTotal {
		t.Errorf("total after empty-removal recount=%d, want unchanged %d", before.Total(), beforeTotal)
	}
}

// Each successive knockout can only remove windows, never add them:
// the running total is non-increasing as more kmers are knocked out.
func TestRecountKnockoutMonotonicity(t *testing.T) {
	lines := ""
	for i := 0; i < 10; i++ {
		lines += "ACGTTGCAACGTTGCA\n"
	}
	p := writeTemp(t, lines)

	tb, err := counter.Count(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	prev := tb.Total()

	for _, kmer := range []string{"ACG", "TGC", "GCA"} {
		if err := Recount(tb, p, kmer); err != nil {
			t.Fatal(err)
		}
		cur := tb.Total()
		if cur > prev {
			t.Errorf("total increased after knocking out %s: %d > %d", kmer, cur, prev)
		}
		prev = cur
	}
}

// RecountMT must agree with the single-threaded Recount on the
// resulting total, for the same removal history.
func TestRecountMTMatchesRecount(t *testing.T) {
	lines := ""
	for i := 0; i < 10; i++ {
		lines += "ACGTACGTACGTACGT\n"
	}
	p := writeTemp(t, lines)

	single, err := counter.Count(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := Recount(single, p, "CGT"); err != nil {
		t.Fatal(err)
	}

	mt, err := counter.Count(p, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := RecountMT(mt, p, "CGT", 4); err != nil {
		t.Fatal(err)
	}

	if single.Total() != mt.Total() {
		t.Errorf("RecountMT total=%d, want %d", mt.Total(), single.Total())
	}
}
