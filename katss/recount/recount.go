// Package recount implements Recounter/Knockout: zero-and-recount a
// table against a file while masking every occurrence of every
// previously-removed kmer, so a window overlapping any removed kmer by
// at least one base is excluded from the recount.
//
// Grounded on original_source's recounter.c: katss_recount_kmer (zero,
// push, reopen, cross_out replay over the full removed list, rehash),
// katss_recount_kmer_mt (shared-stream worker pool, same batch-flush
// convention as the counting pipeline), and katss_recount_kmer_shuffle.
package recount

import (
	"math/rand"
	"sync"

	"github.com/rnalab/katss"
	"github.com/rnalab/katss/classify"
	"github.com/rnalab/katss/hasher"
	"github.com/rnalab/katss/seqsearch"
	"github.com/rnalab/katss/shuffle"
	"github.com/rnalab/katss/stream"
	"github.com/rnalab/katss/table"
)

const (
	batchSize   = 250000
	readBufSize = 64 * 1024
)

// crossOut replaces every nucleotide-equivalent occurrence of needle in
// buf with 'X' sentinels, in place, using a fasta-header-skipping
// search when fasta is true and a plain search otherwise.
func crossOut(buf []byte, needle string, fasta bool) {
	if needle == "" || len(buf) < len(needle) {
		return
	}
	mode := seqsearch.Plain
	if fasta {
		mode = seqsearch.Fasta
	}
	search := seqsearch.New([]byte(needle), mode)
	for _, off := range search.FindAll(buf) {
		for j := 0; j < len(needle); j++ {
			buf[off+j] = 'X'
		}
	}
}

func maskAll(buf []byte, removed []string, fasta bool) {
	for _, kmer := range removed {
		crossOut(buf, kmer, fasta)
	}
}

// Recount zeroes t, pushes removeKmer onto its Removed list (a no-op
// push is skipped when removeKmer is empty, matching the "empty
// removal list" idempotence property), reopens path, and re-tallies
// while masking every occurrence of every kmer ever pushed to
// t.Removed, in order, with 'X' sentinels that the hasher treats as a
// window-breaking separator.
func Recount(t *table.Table, path, removeKmer string) error {
	if removeKmer != "" {
		t.PushRemoved(removeKmer)
	}
	t.Zero()

	format, err := classify.Classify(path)
	if err != nil {
		return err
	}
	if format == classify.Unsupported {
		return katss.NewError("recount.Recount", katss.UnknownFormat, nil)
	}
	s, err := stream.Open(path, byte(format))
	if err != nil {
		return err
	}
	defer s.Close()

	fasta := format == classify.Fasta
	h := hasher.New(t.K, stream.Kind(format))
	buf := make([]byte, readBufSize)

	for {
		n, err := s.ReadUnlocked(buf)
		if n == 0 && err != nil {
			break
		}
		if n == 0 {
			continue
		}
		chunk := append([]byte(nil), buf[:n]...)
		maskAll(chunk, t.Removed, fasta)
		c := hasher.NewCursor(chunk)
		h.SetSeq(c)
		for {
			hv, ok := h.NextHash(c)
			if !ok {
				break
			}
			t.Increment(hv)
		}
	}
	if s.Err() != nil {
		return katss.NewError("recount.Recount", katss.IoError, s.Err())
	}
	return nil
}

// RecountMT is the threaded form of Recount, sharing one stream and one
// table across a worker pool with the same batch-flush convention as
// the counting pipeline.
func RecountMT(t *table.Table, path, removeKmer string, threads int) error {
	threads = katss.ResolveThreads(threads)
	if threads == 1 {
		return Recount(t, path, removeKmer)
	}

	if removeKmer != "" {
		t.PushRemoved(removeKmer)
	}
	t.Zero()

	format, err := classify.Classify(path)
	if err != nil {
		return err
	}
	if format == classify.Unsupported {
		return katss.NewError("recount.RecountMT", katss.UnknownFormat, nil)
	}
	s, err := stream.Open(path, byte(format))
	if err != nil {
		return err
	}
	defer s.Close()

	fasta := format == classify.Fasta
	removed := append([]string(nil), t.Removed...)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := hasher.New(t.K, stream.Kind(format))
			buf := make([]byte, readBufSize)
			batch := make([]uint32, 0, batchSize)
			flush := func() {
				if len(batch) > 0 {
					t.IncrementBatch(batch)
					batch = batch[:0]
				}
			}
			for {
				n, err := s.Read(buf)
				if n == 0 && err != nil {
					break
				}
				if n == 0 {
					continue
				}
				chunk := append([]byte(nil), buf[:n]...)
				maskAll(chunk, removed, fasta)
				c := hasher.NewCursor(chunk)
				h.SetSeq(c)
				for {
					hv, ok := h.NextHash(c)
					if !ok {
						break
					}
					batch = append(batch, hv)
					if len(batch) == batchSize {
						flush()
					}
				}
			}
			flush()
		}()
	}
	wg.Wait()
	if s.Err() != nil {
		return katss.NewError("recount.RecountMT", katss.IoError, s.Err())
	}
	return nil
}

// RecountShuffle shuffles each record (preserving klet-mers), masks
// with the removed list, then counts -- the ushuffle analogue of
// Recount.
func RecountShuffle(t *table.Table, path, removeKmer string, klet int) error {
	if removeKmer != "" {
		t.PushRemoved(removeKmer)
	}
	t.Zero()

	format, err := classify.Classify(path)
	if err != nil {
		return err
	}
	if format == classify.Unsupported {
		return katss.NewError("recount.RecountShuffle", katss.UnknownFormat, nil)
	}
	s, err := stream.Open(path, byte(format))
	if err != nil {
		return err
	}
	defer s.Close()

	fasta := format == classify.Fasta
	h := hasher.New(t.K, stream.Kind(format))
	rng := rand.New(rand.NewSource(1))

	for {
		rec, ok := s.Gets()
		if !ok {
			break
		}
		shuffled := shuffle.Shuffle(rec, klet, rng)
		maskAll(shuffled, t.Removed, fasta)
		c := hasher.NewCursor(append(shuffled, 0))
		h.Reset()
		for {
			hv, ok := h.NextHash(c)
			if !ok {
				break
			}
			t.Increment(hv)
		}
	}
	return nil
}
