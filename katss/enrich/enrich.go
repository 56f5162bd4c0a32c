// Package enrich implements Enrichment & IKKE: per-kmer enrichment
// ratios against a control table or a probabilistic null model, the
// single-pass maximum-enrichment lookup, and the iterative knockout
// (IKKE) driver that repeatedly identifies and neutralizes the current
// top-ranked kmer.
//
// Grounded on original_source's katss_enrichment.c (the
// {none,regular,ushuffle,both} x {bootstrap,no-bootstrap} dispatch and
// the NaN-last descending sort) and katss_ikke.c (the iterative
// knockout driver).
package enrich

import (
	"math"
	"sort"

	"github.com/rnalab/katss"
	"github.com/rnalab/katss/counter"
	"github.com/rnalab/katss/hasher"
	"github.com/rnalab/katss/recount"
	"github.com/rnalab/katss/stats"
	"github.com/rnalab/katss/table"
)

// Enrichment is one kmer's enrichment score: the ratio of normalized
// test frequency to normalized control (or predicted) frequency,
// optionally log2-transformed.
type Enrichment struct {
	Hash uint32
	Rval float64
}

// Enrichments computes enrichments(test, ctrl, normalize): for each
// hash i, ti=test[i], ci=ctrl[i]; NaN if either is 0, else
// (ti/Ttotal)/(ci/Ctotal), optionally log2. Requires equal k. Returns
// every capacity entry, sorted descending with NaN last.
func Enrichments(test, ctrl *table.Table, normalize bool) ([]Enrichment, error) {
	if test.K != ctrl.K {
		return nil, katss.NewError("enrich.Enrichments", katss.BadArgs, nil)
	}
	ttotal := float64(test.Total())
	ctotal := float64(ctrl.Total())

	out := make([]Enrichment, 0, int(test.Capacity)+1)
	for h := uint32(0); ; h++ {
		ti, _ := table.Read[uint64](test, h)
		ci, _ := table.Read[uint64](ctrl, h)
		var rval float64
		if ti == 0 || ci == 0 || ttotal == 0 || ctotal == 0 {
			rval = math.NaN()
		} else {
			rval = (float64(ti) / ttotal) / (float64(ci) / ctotal)
			if normalize {
				rval = math.Log2(rval)
			}
		}
		out = append(out, Enrichment{Hash: h, Rval: rval})
		if h == test.Capacity {
			break
		}
	}
	SortDescending(out)
	return out, nil
}

// ProbEnrichments computes prob_enrichments(test, mono, dint,
// normalize): same shape as Enrichments, but the denominator is
// predict_freq(i, k, mono, dint). mono must be a length-1 table, dint
// a length-2 table, else BadArgs.
func ProbEnrichments(test, mono, dint *table.Table, normalize bool) ([]Enrichment, error) {
	if mono.K != 1 || dint.K != 2 {
		return nil, katss.NewError("enrich.ProbEnrichments", katss.BadArgs, nil)
	}
	ttotal := float64(test.Total())

	out := make([]Enrichment, 0, int(test.Capacity)+1)
	for h := uint32(0); ; h++ {
		ti, _ := table.Read[uint64](test, h)
		freq, err := test.PredictFreq(h, mono, dint)
		if err != nil {
			return nil, err
		}
		var rval float64
		if ti == 0 || freq == 0 || ttotal == 0 {
			rval = math.NaN()
		} else {
			rval = (float64(ti) / ttotal) / freq
			if normalize {
				rval = math.Log2(rval)
			}
		}
		out = append(out, Enrichment{Hash: h, Rval: rval})
		if h == test.Capacity {
			break
		}
	}
	SortDescending(out)
	return out, nil
}

// TopEnrichment is a single-pass maximum-enrichment lookup over test
// vs ctrl. Returns a sentinel {Rval: -Inf} if either table is empty
// (total()==0).
func TopEnrichment(test, ctrl *table.Table, normalize bool) Enrichment {
	ttotal := float64(test.Total())
	ctotal := float64(ctrl.Total())
	if ttotal == 0 || ctotal == 0 {
		return Enrichment{Rval: math.Inf(-1)}
	}

	best := Enrichment{Rval: math.Inf(-1)}
	for h := uint32(0); ; h++ {
		ti, _ := table.Read[uint64](test, h)
		ci, _ := table.Read[uint64](ctrl, h)
		if ti > 0 && ci > 0 {
			rval := (float64(ti) / ttotal) / (float64(ci) / ctotal)
			if normalize {
				rval = math.Log2(rval)
			}
			if rval > best.Rval {
				best = Enrichment{Hash: h, Rval: rval}
			}
		}
		if h == test.Capacity {
			break
		}
	}
	return best
}

// SortDescending sorts enrichments by Rval descending, with NaN last,
// matching the original's qsort comparator.
func SortDescending(e []Enrichment) {
	sort.SliceStable(e, func(i, j int) bool {
		a, b := e[i].Rval, e[j].Rval
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a > b
	})
}

// IKKE counts testPath and ctrlPath into k-length tables, then for
// iters iterations (capped to table capacity) emits the current
// top_enrichment, recounting both tables against the emitted kmer
// (and every previously emitted kmer) before the next iteration.
func IKKE(testPath, ctrlPath string, k int, iters uint64, normalize bool) ([]Enrichment, error) {
	test, err := counter.Count(testPath, k)
	if err != nil {
		return nil, err
	}
	ctrl, err := counter.Count(ctrlPath, k)
	if err != nil {
		return nil, err
	}
	return ikkeLoop(test, ctrl, testPath, ctrlPath, iters, normalize, 1)
}

// IKKEMT is the threaded counting + threaded recount form of IKKE.
func IKKEMT(testPath, ctrlPath string, k int, iters uint64, normalize bool, threads int) ([]Enrichment, error) {
	test, err := counter.CountMT(testPath, k, threads)
	if err != nil {
		return nil, err
	}
	ctrl, err := counter.CountMT(ctrlPath, k, threads)
	if err != nil {
		return nil, err
	}
	return ikkeLoop(test, ctrl, testPath, ctrlPath, iters, normalize, threads)
}

func ikkeLoop(test, ctrl *table.Table, testPath, ctrlPath string, iters uint64, normalize bool, threads int) ([]Enrichment, error) {
	n := iters
	if cap64 := uint64(test.Capacity) + 1; n > cap64 {
		n = cap64
	}
	result := make([]Enrichment, 0, n)

	top := TopEnrichment(test, ctrl, normalize)
	result = append(result, top)

	for i := uint64(1); i < n; i++ {
		prev := result[i-1]
		kmer := hasher.Unhash(prev.Hash, test.K, true)
		if err := recount.RecountMT(test, testPath, kmer, threads); err != nil {
			return nil, err
		}
		if err := recount.RecountMT(ctrl, ctrlPath, kmer, threads); err != nil {
			return nil, err
		}
		result = append(result, TopEnrichment(test, ctrl, normalize))
	}
	return result, nil
}

// ProbIKKE is IKKE's probabilistic-null-model form: it recounts all
// three of {test, mono, dint} against testPath each iteration.
func ProbIKKE(testPath string, k int, iters uint64, normalize bool, threads int) ([]Enrichment, error) {
	test, err := counter.CountMT(testPath, k, threads)
	if err != nil {
		return nil, err
	}
	mono, err := counter.CountMT(testPath, 1, threads)
	if err != nil {
		return nil, err
	}
	dint, err := counter.CountMT(testPath, 2, threads)
	if err != nil {
		return nil, err
	}

	n := iters
	if cap64 := uint64(test.Capacity) + 1; n > cap64 {
		n = cap64
	}
	result := make([]Enrichment, 0, n)

	top := topProbEnrichment(test, mono, dint, normalize)
	result = append(result, top)

	for i := uint64(1); i < n; i++ {
		prev := result[i-1]
		kmer := hasher.Unhash(prev.Hash, test.K, true)
		if err := recount.RecountMT(test, testPath, kmer, threads); err != nil {
			return nil, err
		}
		if err := recount.RecountMT(mono, testPath, kmer, threads); err != nil {
			return nil, err
		}
		if err := recount.RecountMT(dint, testPath, kmer, threads); err != nil {
			return nil, err
		}
		result = append(result, topProbEnrichment(test, mono, dint, normalize))
	}
	return result, nil
}

func topProbEnrichment(test, mono, dint *table.Table, normalize bool) Enrichment {
	ttotal := float64(test.Total())
	if ttotal == 0 {
		return Enrichment{Rval: math.Inf(-1)}
	}
	best := Enrichment{Rval: math.Inf(-1)}
	for h := uint32(0); ; h++ {
		ti, _ := table.Read[uint64](test, h)
		if ti > 0 {
			freq, err := test.PredictFreq(h, mono, dint)
			if err == nil && freq > 0 {
				rval := (float64(ti) / ttotal) / freq
				if normalize {
					rval = math.Log2(rval)
				}
				if rval > best.Rval {
					best = Enrichment{Hash: h, Rval: rval}
				}
			}
		}
		if h == test.Capacity {
			break
		}
	}
	return best
}

// BootstrapEnrichments runs iters independent sub-sampled recounts of
// testPath/ctrlPath (each at bootstrapSample thousandths of a percent),
// folding each iteration's (test,ctrl) pair into a stats.TwoSample per
// kmer, and finalizes to a Welch t-test + ratio-stdev result per kmer.
func BootstrapEnrichments(testPath, ctrlPath string, k, iters, sample int, seed int64, normalize bool) (map[uint32]stats.Result, error) {
	capacity := uint32(1)<<uint(2*k) - 1
	agg := make([]stats.TwoSample, int(capacity)+1)

	for i := 0; i < iters; i++ {
		test, err := counter.CountBootstrap(testPath, k, sample, seed+int64(i))
		if err != nil {
			return nil, err
		}
		ctrl, err := counter.CountBootstrap(ctrlPath, k, sample, seed+int64(i)+1)
		if err != nil {
			return nil, err
		}
		for h := uint32(0); ; h++ {
			ti, _ := table.Read[float64](test, h)
			ci, _ := table.Read[float64](ctrl, h)
			if ti > 0 && ci > 0 {
				agg[h].Update(ti, ci)
				agg[h].UpdateRatio(ti, ci)
			}
			if h == capacity {
				break
			}
		}
	}

	out := make(map[uint32]stats.Result, len(agg))
	for h := range agg {
		out[uint32(h)] = agg[h].Finalize(normalize)
	}
	return out, nil
}
