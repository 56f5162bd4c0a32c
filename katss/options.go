package katss

import (
	"encoding/json"
	"math"
	"os"
	"time"
)

// ProbsAlgo selects the probabilistic null model used in place of a
// control file.
type ProbsAlgo int

const (
	ProbsNone ProbsAlgo = iota
	ProbsRegular
	ProbsUshuffle
	ProbsBoth
)

// Options holds every tunable recognized by the counting, enrichment,
// IKKE, and bootstrap pipelines. It is unmarshaled from a JSON config
// file the way utils.Config is, with defaults filled in by Default.
type Options struct {
	// K is the k-mer length, 1..16.
	K int `json:"k"`

	// Iters is the IKKE iteration count, >=1, <=4^K.
	Iters uint64 `json:"iters"`

	// Threads is the worker count for counting/recounting, 1..128.
	Threads int `json:"threads"`

	// Normalize reports log2(rval) instead of rval when true.
	Normalize bool `json:"normalize"`

	// SortEnrichments sorts results descending by rval when true.
	SortEnrichments bool `json:"sort_enrichments"`

	// BootstrapIters is 0 to disable bootstrap, >=1 to enable it.
	BootstrapIters int `json:"bootstrap_iters"`

	// BootstrapSample is 1..100000, thousandths of a percent.
	BootstrapSample int `json:"bootstrap_sample"`

	// ProbsAlgo selects the probabilistic null model.
	ProbsAlgo ProbsAlgo `json:"probs_algo"`

	// ProbsNtPrec is the k-let length used for shuffle-based null
	// modeling. Zero means round(sqrt(K)).
	ProbsNtPrec int `json:"probs_ntprec"`

	// Seed is the PRNG seed. Negative means time-based.
	Seed int64 `json:"seed"`
}

// Default returns an Options with every field set to the documented
// default, the way cmd/muscato/main.go's checkArgs fills unset fields
// before warning the user on stderr.
func Default() *Options {
	return &Options{
		K:               4,
		Iters:           1,
		Threads:         1,
		Normalize:       false,
		SortEnrichments: true,
		BootstrapIters:  0,
		BootstrapSample: 100000,
		ProbsAlgo:       ProbsNone,
		ProbsNtPrec:     0,
		Seed:            -1,
	}
}

// ReadOptions reads a JSON options file, panicking on failure the way
// utils.ReadConfig does -- this mirrors the teacher's batch-CLI error
// convention for a top-level, unrecoverable configuration failure.
func ReadOptions(filename string) *Options {
	fid, err := os.Open(filename)
	if err != nil {
		panic(err)
	}
	defer fid.Close()
	dec := json.NewDecoder(fid)
	opts := Default()
	if err := dec.Decode(opts); err != nil {
		panic(err)
	}
	return opts
}

// Validate checks option ranges and fills in derived defaults,
// returning a BadArgs error describing the first violation found.
func (o *Options) Validate() error {
	if o.K < 1 || o.K > 16 {
		return NewError("Options.Validate", BadArgs, nil)
	}
	capacity := uint64(1) << uint(2*o.K)
	if o.Iters < 1 || o.Iters > capacity {
		return NewError("Options.Validate", BadArgs, nil)
	}
	if o.Threads < 1 || o.Threads > 128 {
		return NewError("Options.Validate", BadArgs, nil)
	}
	if o.BootstrapIters < 0 {
		return NewError("Options.Validate", BadArgs, nil)
	}
	if o.BootstrapSample < 1 || o.BootstrapSample > 100000 {
		return NewError("Options.Validate", BadArgs, nil)
	}
	if o.ProbsNtPrec == 0 {
		o.ProbsNtPrec = int(math.Round(math.Sqrt(float64(o.K))))
		if o.ProbsNtPrec < 1 {
			o.ProbsNtPrec = 1
		}
	}
	if o.Seed < 0 {
		o.Seed = time.Now().UnixNano()
	}
	return nil
}

// ResolveThreads clamps n to the [1,128] range the same way
// count_kmers_mt does in the original counting pipeline.
func ResolveThreads(n int) int {
	if n < 1 {
		return 1
	}
	if n > 128 {
		return 128
	}
	return n
}
