// Package table implements CountTable: a dense 4^k array of k-mer
// counts, with saturating typed reads, mutex-protected batch increment
// and decrement, and an append-only ordered "removed" list used by
// knockout.
//
// Grounded on original_source's tables.c (katss_init_counter,
// katss_increment(s), katss_decrement, katss_get(_from_hash)).
package table

import (
	"math"
	"sync"

	"github.com/rnalab/katss"
	"github.com/rnalab/katss/hasher"
)

// Numeric is the set of destination types read supports with
// saturating casts, matching the original's ten-way KATSS_TYPE switch.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Table is a CountTable for a fixed k. Cells are 64-bit for k<=12
// ("small") and 32-bit for k in [13,16] ("medium"), bounding memory the
// way the original's dual storage union does.
type Table struct {
	K        int
	Capacity uint32 // 4^K - 1, the maximum valid hash

	mu sync.Mutex

	small  []uint64 // len Capacity+1, used when K<=12
	medium []uint32 // len Capacity+1, used when K>12

	total uint64

	Removed []string // append-only, order preserved for masking replay
}

// New allocates a Table for k in [1,16], returning a BadArgs error
// outside that range.
func New(k int) (*Table, error) {
	if k < 1 || k > 16 {
		return nil, katss.NewError("table.New", katss.BadArgs, nil)
	}
	capacity := uint32(1)<<uint(2*k) - 1
	t := &Table{K: k, Capacity: capacity}
	if k <= 12 {
		t.small = make([]uint64, uint64(capacity)+1)
	} else {
		t.medium = make([]uint32, uint64(capacity)+1)
	}
	return t, nil
}

func (t *Table) cell(hash uint32) uint64 {
	if t.K <= 12 {
		return t.small[hash]
	}
	return uint64(t.medium[hash])
}

func (t *Table) setCell(hash uint32, v uint64) {
	if t.K <= 12 {
		t.small[hash] = v
	} else {
		t.medium[hash] = uint32(v)
	}
}

// Increment bumps a single cell, unsynchronized. Only safe from
// single-threaded counting paths -- see the concurrency model's
// "forbid mixing within one pipeline" rule; multi-threaded paths must
// use IncrementBatch instead.
func (t *Table) Increment(hash uint32) {
	if t.K <= 12 {
		t.small[hash]++
	} else {
		t.medium[hash]++
	}
	t.total++
}

// IncrementBatch mutex-protects a bulk increment of every hash in
// batch, then advances total by len(batch).
//
// Deliberate deviation from the original: katss/tables.c's
// katss_increments bumps total once per *call* rather than once per
// element, which conflicts with this package's own sum invariant and
// with the English specification's explicit "advances total by
// |batch|" contract. This implementation follows the specification.
func (t *Table) IncrementBatch(batch []uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.K <= 12 {
		for _, h := range batch {
			t.small[h]++
		}
	} else {
		for _, h := range batch {
			t.medium[h]++
		}
	}
	t.total += uint64(len(batch))
}

// Decrement mutex-protects a single cell decrement and total--.
func (t *Table) Decrement(hash uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.K <= 12 {
		t.small[hash]--
	} else {
		t.medium[hash]--
	}
	t.total--
}

// Zero clears every cell and resets total to 0, without touching
// Removed -- used by recount, which pushes to Removed separately.
func (t *Table) Zero() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.K <= 12 {
		for i := range t.small {
			t.small[i] = 0
		}
	} else {
		for i := range t.medium {
			t.medium[i] = 0
		}
	}
	t.total = 0
}

// Total returns the running total, the sum invariant holder.
func (t *Table) Total() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Sum recomputes the sum of every cell directly, for verifying the
// Sigma table[i] == total invariant at quiescent moments.
func (t *Table) Sum() uint64 {
	var s uint64
	if t.K <= 12 {
		for _, v := range t.small {
			s += v
		}
	} else {
		for _, v := range t.medium {
			s += uint64(v)
		}
	}
	return s
}

// Read reads a cell as one of the supported numeric types, saturating
// to the destination's max on overflow, never wrapping. Fails
// OutOfRange if hash exceeds Capacity.
func Read[T Numeric](t *Table, hash uint32) (T, error) {
	if hash > t.Capacity {
		var zero T
		return zero, katss.NewError("table.Read", katss.OutOfRange, nil)
	}
	count := t.cell(hash)
	return saturate[T](count), nil
}

func saturate[T Numeric](count uint64) T {
	var probe any = *new(T)
	switch probe.(type) {
	case int8:
		if count > math.MaxInt8 {
			return T(int8(math.MaxInt8))
		}
	case int16:
		if count > math.MaxInt16 {
			count = math.MaxInt16
		}
	case int32:
		if count > math.MaxInt32 {
			count = math.MaxInt32
		}
	case int64:
		if count > math.MaxInt64 {
			count = math.MaxInt64
		}
	case uint8:
		if count > math.MaxUint8 {
			count = math.MaxUint8
		}
	case uint16:
		if count > math.MaxUint16 {
			count = math.MaxUint16
		}
	case uint32:
		if count > math.MaxUint32 {
			count = math.MaxUint32
		}
	case uint64:
	case float32, float64:
	}
	return T(count)
}

// ReadByKey rehashes kmer from text (A/C/G/T/U, case-sensitive
// uppercase) and reads its cell. Fails BadChar on an unknown letter,
// WrongLength if len(kmer) != K.
func ReadByKey[T Numeric](t *Table, kmer string) (T, error) {
	if len(kmer) != t.K {
		var zero T
		return zero, katss.NewError("table.ReadByKey", katss.WrongLength, nil)
	}
	h, ok := hasher.Hash(kmer, t.K)
	if !ok {
		var zero T
		return zero, katss.NewError("table.ReadByKey", katss.BadChar, nil)
	}
	return Read[T](t, h)
}

// PushRemoved appends kmer to the removed list. Append-only; duplicates
// allowed, matching the original's kctr_push.
func (t *Table) PushRemoved(kmer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Removed = append(t.Removed, kmer)
}

// PredictFreq returns the expected per-position probability of the
// kmer at hash under a first-order Markov model built from mono
// (length-1 table) and dint (length-2 table): the standard
// overlapping-dinucleotide correction,
// prod(dint[b_i,b_i+1]/|dint|) / prod(mono[b_i]/|mono|) over internal
// positions 1..k-2.
func (t *Table) PredictFreq(hash uint32, mono, dint *Table) (float64, error) {
	if mono.K != 1 || dint.K != 2 {
		return 0, katss.NewError("table.PredictFreq", katss.BadArgs, nil)
	}
	k := t.K
	codes := make([]uint32, k)
	h := hash
	for i := k - 1; i >= 0; i-- {
		codes[i] = h & 3
		h >>= 2
	}

	monoTotal := float64(mono.Total())
	dintTotal := float64(dint.Total())
	if monoTotal == 0 || dintTotal == 0 {
		return 0, nil
	}

	num := 1.0
	den := 1.0
	for i := 0; i+1 < k; i++ {
		dh := codes[i]<<2 | codes[i+1]
		num *= float64(dint.cell(dh)) / dintTotal
	}
	for i := 1; i < k-1; i++ {
		den *= float64(mono.cell(codes[i])) / monoTotal
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}

// PredictCount returns predict_freq * total(test), rounded to the
// nearest integer.
func (t *Table) PredictCount(hash uint32, mono, dint *Table) (uint64, error) {
	f, err := t.PredictFreq(hash, mono, dint)
	if err != nil {
		return 0, err
	}
	return uint64(math.Round(f * float64(t.Total()))), nil
}
