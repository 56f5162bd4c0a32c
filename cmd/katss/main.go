// katss is a thin driver over the counting, enrichment, IKKE, and
// bootstrap packages: a subcommand, a JSON options file (overridable by
// flags), a per-run log file, and an optional CPU profile.
//
// Grounded on cmd/muscato/main.go's handleArgs/checkArgs/setupLog/
// makeTemp shape, trimmed to the subcommands this module exposes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/pkg/profile"

	"github.com/rnalab/katss"
	"github.com/rnalab/katss/counter"
	"github.com/rnalab/katss/enrich"
)

var logger *log.Logger

func setupLog(dir string) {
	fid, err := os.Create(path.Join(dir, "katss.log"))
	if err != nil {
		panic(err)
	}
	logger = log.New(fid, "", log.Ltime)
}

func makeTemp() string {
	dir := path.Join("katss_logs", uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic(err)
	}
	return dir
}

func saveConfig(dir string, opts *katss.Options) {
	fid, err := os.Create(path.Join(dir, "options.json"))
	if err != nil {
		panic(err)
	}
	defer fid.Close()
	enc := json.NewEncoder(fid)
	enc.SetIndent("", "  ")
	if err := enc.Encode(opts); err != nil {
		panic(err)
	}
}

func handleArgs() (cmd string, opts *katss.Options, args []string, doProfile bool) {
	if len(os.Args) < 2 {
		os.Stderr.WriteString("usage: katss <count|enrich|ikke|bootstrap> [-config FILE] [-k K] [-threads N] FILES...\n")
		os.Exit(1)
	}
	cmd = os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "JSON options file")
	k := fs.Int("k", 0, "kmer length")
	threads := fs.Int("threads", 1, "worker threads")
	iters := fs.Uint64("iters", 1, "IKKE iterations")
	normalize := fs.Bool("normalize", false, "report log2(rval)")
	bootIters := fs.Int("bootstrap-iters", 0, "bootstrap iterations, 0 disables")
	bootSample := fs.Int("bootstrap-sample", 100000, "bootstrap sample rate, thousandths of a percent")
	seed := fs.Int64("seed", -1, "PRNG seed, negative for time-based")
	doProfileF := fs.Bool("profile", false, "write a CPU profile to the current directory")
	fs.Parse(os.Args[2:])

	if *configPath != "" {
		opts = katss.ReadOptions(*configPath)
	} else {
		opts = katss.Default()
	}
	if *k != 0 {
		opts.K = *k
	}
	if *threads != 1 {
		opts.Threads = *threads
	}
	if *iters != 1 {
		opts.Iters = *iters
	}
	if *normalize {
		opts.Normalize = true
	}
	if *bootIters != 0 {
		opts.BootstrapIters = *bootIters
	}
	if *bootSample != 100000 {
		opts.BootstrapSample = *bootSample
	}
	if *seed != -1 {
		opts.Seed = *seed
	}

	if err := opts.Validate(); err != nil {
		os.Stderr.WriteString(fmt.Sprintf("katss: invalid options: %v\n", err))
		os.Exit(1)
	}

	return cmd, opts, fs.Args(), *doProfileF
}

func main() {
	cmd, opts, args, doProfile := handleArgs()

	dir := makeTemp()
	setupLog(dir)
	saveConfig(dir, opts)

	if doProfile {
		p := profile.Start(profile.ProfilePath(dir))
		defer p.Stop()
	}

	switch cmd {
	case "count":
		if len(args) != 1 {
			panic("count requires exactly one input file")
		}
		logger.Printf("counting %s with k=%d threads=%d", args[0], opts.K, opts.Threads)
		t, err := counter.CountMT(args[0], opts.K, opts.Threads)
		if err != nil {
			logger.Print(err)
			panic(err)
		}
		fmt.Printf("total=%d\n", t.Total())

	case "enrich":
		if len(args) != 2 {
			panic("enrich requires a test file and a control file")
		}
		logger.Printf("enriching %s against %s, k=%d", args[0], args[1], opts.K)
		test, err := counter.CountMT(args[0], opts.K, opts.Threads)
		if err != nil {
			logger.Print(err)
			panic(err)
		}
		ctrl, err := counter.CountMT(args[1], opts.K, opts.Threads)
		if err != nil {
			logger.Print(err)
			panic(err)
		}
		res, err := enrich.Enrichments(test, ctrl, opts.Normalize)
		if err != nil {
			logger.Print(err)
			panic(err)
		}
		for i, e := range res {
			if i >= 20 {
				break
			}
			fmt.Printf("%d\t%g\n", e.Hash, e.Rval)
		}

	case "ikke":
		if len(args) != 2 {
			panic("ikke requires a test file and a control file")
		}
		logger.Printf("running IKKE on %s vs %s, k=%d iters=%d", args[0], args[1], opts.K, opts.Iters)
		res, err := enrich.IKKEMT(args[0], args[1], opts.K, opts.Iters, opts.Normalize, opts.Threads)
		if err != nil {
			logger.Print(err)
			panic(err)
		}
		for _, e := range res {
			fmt.Printf("%d\t%g\n", e.Hash, e.Rval)
		}

	case "bootstrap":
		if len(args) != 2 {
			panic("bootstrap requires a test file and a control file")
		}
		logger.Printf("bootstrapping %s vs %s, k=%d iters=%d sample=%d",
			args[0], args[1], opts.K, opts.BootstrapIters, opts.BootstrapSample)
		res, err := enrich.BootstrapEnrichments(args[0], args[1], opts.K, opts.BootstrapIters,
			opts.BootstrapSample, opts.Seed, opts.Normalize)
		if err != nil {
			logger.Print(err)
			panic(err)
		}
		for h, r := range res {
			fmt.Printf("%d\t%g\t%g\t%g\n", h, r.Rval, r.Stdev, r.Pval)
		}

	default:
		os.Stderr.WriteString(fmt.Sprintf("katss: unknown subcommand %q\n", cmd))
		os.Exit(1)
	}

	logger.Print("done")
}
