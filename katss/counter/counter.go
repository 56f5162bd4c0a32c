// Package counter implements the counting pipeline: single- and
// multi-threaded drivers that feed a classified, hashed stream into a
// CountTable, with random-sub-sample (bootstrap) and shuffled-sequence
// (ushuffle) variants.
//
// Grounded on original_source's counter.c: thread clamping, the shared
// SeqFile across worker goroutines, the 250,000-hash batch-flush
// convention, the per-record bootstrap skip test, and the srand(1)
// determinism baseline for ushuffle. Worker-pool shape grounded on
// muscato_screen.go's goroutine pool, simplified to a fixed
// sync.WaitGroup pool with no job channel or harvester goroutine.
package counter

import (
	"math/rand"
	"sync"

	"github.com/rnalab/katss"
	"github.com/rnalab/katss/classify"
	"github.com/rnalab/katss/hasher"
	"github.com/rnalab/katss/shuffle"
	"github.com/rnalab/katss/stream"
	"github.com/rnalab/katss/table"
)

// batchSize is the per-worker flush threshold, matching the original's
// 250,000-hash batches.
const batchSize = 250000

// readBufSize is the chunk size fed to SetSeq between stream reads.
const readBufSize = 64 * 1024

// openClassified opens path, classifying it first, and returns the
// stream together with its detected stream.Kind.
func openClassified(path string) (*stream.Stream, stream.Kind, error) {
	format, err := classify.Classify(path)
	if err != nil {
		return nil, 0, err
	}
	if format == classify.Unsupported {
		return nil, 0, katss.NewError("counter.openClassified", katss.UnknownFormat, nil)
	}
	s, err := stream.Open(path, byte(format))
	if err != nil {
		return nil, 0, err
	}
	return s, stream.Kind(format), nil
}

// Count implements single-threaded count_kmers: classify, open, drain
// every hash into the table via the unsynchronized Increment path.
func Count(path string, k int) (*table.Table, error) {
	s, kind, err := openClassified(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	t, err := table.New(k)
	if err != nil {
		return nil, err
	}
	h := hasher.New(k, kind)

	buf := make([]byte, readBufSize)
	for {
		n, err := s.ReadUnlocked(buf)
		if n == 0 && err != nil {
			break
		}
		if n == 0 {
			continue
		}
		c := hasher.NewCursor(buf[:n])
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
		return nil, katss.NewError("counter.Count", katss.IoError, s.Err())
	}
	return t, nil
}

// CountMT implements count_kmers_mt: clamp threads to [1,128]; if 1,
// delegate to Count. Otherwise open the stream once and spawn `threads`
// workers sharing it, each with a private hasher and a private
// 250,000-hash batch buffer flushed via table.IncrementBatch.
func CountMT(path string, k, threads int) (*table.Table, error) {
	threads = katss.ResolveThreads(threads)
	if threads == 1 {
		return Count(path, k)
	}

	s, kind, err := openClassified(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	t, err := table.New(k)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(s, t, k, kind)
		}()
	}
	wg.Wait()

	if s.Err() != nil {
		return nil, katss.NewError("counter.CountMT", katss.IoError, s.Err())
	}
	return t, nil
}

func worker(s *stream.Stream, t *table.Table, k int, kind stream.Kind) {
	h := hasher.New(k, kind)
	buf := make([]byte, readBufSize)
	batch := make([]uint32, 0, batchSize)

	flush := func() {
		if len(batch) > 0 {
			t.IncrementBatch(batch)
			batch = batch[:0]
		}
	}

	for {
		n, err := s.Read(buf) // locked: stream is shared across workers
		if n == 0 && err != nil {
			break
		}
		if n == 0 {
			continue
		}
		c := hasher.NewCursor(buf[:n])
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
}

// sampler is a thread-safe wrapper around a linear-congruential PRNG,
// mirroring the original's mutex-guarded rand_r-equivalent shared seed.
type sampler struct {
	mu   sync.Mutex
	seed uint64
}

func newSampler(seed int64) *sampler {
	return &sampler{seed: uint64(seed)}
}

// draw returns a value in [0,100000), matching rand_r(seed)%100000.
func (s *sampler) draw() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A 64-bit LCG (Knuth's MMIX constants) stands in for rand_r;
	// any PRNG suffices since only the sub-sampling *rate* matters.
	s.seed = s.seed*6364136223846793005 + 1442695040888963407
	return int((s.seed >> 33) % 100000)
}

// CountBootstrap implements count_kmers_bootstrap: iterate records via
// Gets; for each, draw from [0,100000) and skip the record if the draw
// is >= sample. sample is interpreted as thousandths of a percent
// (50000 == 50%).
func CountBootstrap(path string, k, sample int, seed int64) (*table.Table, error) {
	s, kind, err := openClassified(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	t, err := table.New(k)
	if err != nil {
		return nil, err
	}
	h := hasher.New(k, kind)
	rng := newSampler(seed)

	for {
		rec, ok := s.Gets()
		if !ok {
			break
		}
		if rng.draw() >= sample {
			continue
		}
		c := hasher.NewCursor(append(rec, 0))
		h.Reset()
		for {
			hv, ok := h.NextHash(c)
			if !ok {
				break
			}
			t.Increment(hv)
		}
	}
	return t, nil
}

// CountBootstrapMT is the parallel form of CountBootstrap, clamped and
// batch-flushed the same way CountMT is.
func CountBootstrapMT(path string, k, sample, threads int, seed int64) (*table.Table, error) {
	threads = katss.ResolveThreads(threads)
	if threads == 1 {
		return CountBootstrap(path, k, sample, seed)
	}

	s, kind, err := openClassified(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	t, err := table.New(k)
	if err != nil {
		return nil, err
	}
	rng := newSampler(seed)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := hasher.New(k, kind)
			batch := make([]uint32, 0, batchSize)
			flush := func() {
				if len(batch) > 0 {
					t.IncrementBatch(batch)
					batch = batch[:0]
				}
			}
			for {
				rec, ok := s.Gets()
				if !ok {
					break
				}
				if rng.draw() >= sample {
					continue
				}
				c := hasher.NewCursor(append(rec, 0))
				h.Reset()
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
	return t, nil
}

// CountUshuffle implements count_kmers_ushuffle: for each record,
// produce a klet-preserving shuffled copy, then hash that copy. A fixed
// seed of 1 is used immediately before the shuffle-driving loop so
// identical inputs produce identical shuffles, matching the original's
// srand(1) convention.
func CountUshuffle(path string, k, klet int) (*table.Table, error) {
	s, kind, err := openClassified(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	t, err := table.New(k)
	if err != nil {
		return nil, err
	}
	h := hasher.New(k, kind)
	rng := rand.New(rand.NewSource(1))

	for {
		rec, ok := s.Gets()
		if !ok {
			break
		}
		shuffled := shuffle.Shuffle(rec, klet, rng)
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
	return t, nil
}

// CountUshuffleBootstrap combines sub-sampling with shuffle-based
// counting; when sample==100000 this degenerates to plain
// CountUshuffle since there is nothing left to sub-sample.
func CountUshuffleBootstrap(path string, k, klet, sample int, seed int64) (*table.Table, error) {
	if sample == 100000 {
		return CountUshuffle(path, k, klet)
	}

	s, kind, err := openClassified(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	t, err := table.New(k)
	if err != nil {
		return nil, err
	}
	h := hasher.New(k, kind)
	sampleRng := newSampler(seed)
	shuffleRng := rand.New(rand.NewSource(1))

	for {
		rec, ok := s.Gets()
		if !ok {
			break
		}
		if sampleRng.draw() >= sample {
			continue
		}
		shuffled := shuffle.Shuffle(rec, klet, shuffleRng)
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
	return t, nil
}
