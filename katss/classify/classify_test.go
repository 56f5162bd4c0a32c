package classify

import (
	"os"
	"path/filepath"
	"testing"
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

func TestClassifyRaw(t *testing.T) {
	lines := ""
	for i := 0; i < 10; i++ {
		lines += "ACGTACGTAC\n"
	}
	p := writeTemp(t, lines)
	f, err := Classify(p)
	if err != nil {
		t.Fatal(err)
	}
	if f != Raw {
		t.Errorf("got %c want raw", f)
	}
}

func TestClassifyFasta(t *testing.T) {
	p := writeTemp(t, ">r1\nACGT\n>r2\nGGCC\n")
	f, err := Classify(p)
	if err != nil {
		t.Fatal(err)
	}
	if f != Fasta {
		t.Errorf("got %c want fasta", f)
	}
}

func TestClassifyFastq(t *testing.T) {
	p := writeTemp(t, "@r1\nACGT\n+\nIIII\n@r2\nGGCC\n+\nIIII\n")
	f, err := Classify(p)
	if err != nil {
		t.Fatal(err)
	}
	if f != Fastq {
		t.Errorf("got %c want fastq", f)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	p := writeTemp(t, "not a sequence file at all, mostly punctuation!!\n")
	f, err := Classify(p)
	if err != nil {
		t.Fatal(err)
	}
	if f != Unsupported {
		t.Errorf("got %c want unsupported", f)
	}
}
