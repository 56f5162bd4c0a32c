package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestWelfordMeanAndVariance(t *testing.T) {
	var w Welford
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		w.Update(x)
	}
	if w.Count != 8 {
		t.Fatalf("count=%d, want 8", w.Count)
	}
	if !almostEqual(w.Mean, 5.0, 1e-9) {
		t.Errorf("mean=%v, want 5.0", w.Mean)
	}
	// Known population: variance (sample, n-1) = 32/7.
	if !almostEqual(w.Variance(), 32.0/7.0, 1e-9) {
		t.Errorf("variance=%v, want %v", w.Variance(), 32.0/7.0)
	}
}

func TestWelfordSingleSampleHasZeroVariance(t *testing.T) {
	var w Welford
	w.Update(3.14)
	if w.Variance() != 0 {
		t.Errorf("variance=%v, want 0 for count<2", w.Variance())
	}
}

// A single bootstrap iteration can compute a ratio mean but no spread:
// stdev collapses to 0 and the p-value is undefined.
func TestFinalizeSingleIterationHasZeroStdevAndNaNPval(t *testing.T) {
	var ts TwoSample
	ts.Update(10, 5)
	ts.UpdateRatio(10, 5)
	r := ts.Finalize(false)
	if r.Rval != 2 {
		t.Errorf("rval=%v, want 2", r.Rval)
	}
	if r.Stdev != 0 {
		t.Errorf("stdev=%v, want 0", r.Stdev)
	}
	if !math.IsNaN(r.Pval) {
		t.Errorf("pval=%v, want NaN", r.Pval)
	}
}

// With at least two bootstrap iterations, stdev and pval become proper
// finite/bounded values.
func TestFinalizeMultiIterationProducesBoundedPval(t *testing.T) {
	var ts TwoSample
	pairs := [][2]float64{{10, 5}, {12, 4}, {9, 6}, {11, 5}}
	for _, p := range pairs {
		ts.Update(p[0], p[1])
		ts.UpdateRatio(p[0], p[1])
	}
	r := ts.Finalize(false)
	if r.Stdev < 0 {
		t.Errorf("stdev=%v, want >=0", r.Stdev)
	}
	if math.IsNaN(r.Pval) {
		t.Fatal("pval is NaN, want a bounded value with >=2 samples per side")
	}
	if r.Pval < 0 || r.Pval > 1 {
		t.Errorf("pval=%v, want in [0,1]", r.Pval)
	}
}

func TestFinalizeNormalizeAppliesLog2(t *testing.T) {
	var ts TwoSample
	ts.Update(4, 1)
	ts.UpdateRatio(4, 1)
	r := ts.Finalize(true)
	if !almostEqual(r.Rval, 2.0, 1e-9) { // log2(4) = 2
		t.Errorf("rval=%v, want 2.0 (log2(4))", r.Rval)
	}
}

func TestFinalizeNoSamplesIsAllNaN(t *testing.T) {
	var ts TwoSample
	r := ts.Finalize(false)
	if !math.IsNaN(r.Rval) || !math.IsNaN(r.Stdev) || !math.IsNaN(r.Pval) {
		t.Errorf("got %+v, want all NaN", r)
	}
}

func TestUpdateRatioSkipsZeroDenominator(t *testing.T) {
	var ts TwoSample
	ts.UpdateRatio(5, 0)
	if ts.Ratio.Count != 0 {
		t.Errorf("Ratio.Count=%d, want 0 (zero-denominator pair skipped)", ts.Ratio.Count)
	}
}

func TestTCDFSymmetryAroundZero(t *testing.T) {
	df := 10.0
	a := tCDF(1.5, df)
	b := tCDF(-1.5, df)
	if !almostEqual(a+b, 1.0, 1e-9) {
		t.Errorf("tCDF(1.5)+tCDF(-1.5)=%v, want 1.0", a+b)
	}
	if !almostEqual(tCDF(0, df), 0.5, 1e-9) {
		t.Errorf("tCDF(0)=%v, want 0.5", tCDF(0, df))
	}
}

// TestTCDFHighTStatRegime exercises the df<=t*t branch of tCDF (e.g.
// t=-5, df=3, where t*t=25 >= df=3), which TestTCDFSymmetryAroundZero's
// df=10/t=1.5 case never reaches since there t*t=2.25 < df.
func TestTCDFHighTStatRegime(t *testing.T) {
	got := tCDF(-5, 3)
	want := 0.0076988
	if !almostEqual(got, want, 1e-5) {
		t.Errorf("tCDF(-5, 3)=%v, want ~%v", got, want)
	}
	other := tCDF(5, 3)
	if !almostEqual(got+other, 1.0, 1e-9) {
		t.Errorf("tCDF(-5,3)+tCDF(5,3)=%v, want 1.0", got+other)
	}
}
