package table

import "testing"

func TestSumInvariant(t *testing.T) {
	tb, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range []uint32{0, 1, 1, 5, 63, 63, 63} {
		tb.Increment(h)
	}
	if tb.Total() != tb.Sum() {
		t.Errorf("total=%d sum=%d, want equal", tb.Total(), tb.Sum())
	}
	if tb.Total() != 7 {
		t.Errorf("total=%d want 7", tb.Total())
	}
}

func TestIncrementBatchAdvancesTotalByLen(t *testing.T) {
	tb, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	tb.IncrementBatch([]uint32{0, 1, 2, 3, 3})
	if tb.Total() != 5 {
		t.Errorf("total=%d want 5 (deliberate deviation from original's per-call total++)", tb.Total())
	}
	if tb.Total() != tb.Sum() {
		t.Errorf("total=%d sum=%d, want equal", tb.Total(), tb.Sum())
	}
}

func TestNewRejectsOutOfRangeK(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) should fail")
	}
	if _, err := New(17); err == nil {
		t.Error("New(17) should fail")
	}
}

func TestReadSaturates(t *testing.T) {
	tb, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 300; i++ {
		tb.Increment(0)
	}
	v, err := Read[uint8](tb, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 255 {
		t.Errorf("saturating uint8 read=%d want 255", v)
	}
	v64, _ := Read[uint64](tb, 0)
	if v64 != 300 {
		t.Errorf("uint64 read=%d want 300", v64)
	}
}

func TestReadOutOfRange(t *testing.T) {
	tb, _ := New(1)
	if _, err := Read[uint64](tb, tb.Capacity+1); err == nil {
		t.Error("expected OutOfRange error")
	}
}

func TestReadByKeyWrongLengthAndBadChar(t *testing.T) {
	tb, _ := New(2)
	if _, err := ReadByKey[uint64](tb, "A"); err == nil {
		t.Error("expected WrongLength error")
	}
	if _, err := ReadByKey[uint64](tb, "AX"); err == nil {
		t.Error("expected BadChar error")
	}
}

func TestReadByKeyRejectsLowercase(t *testing.T) {
	tb, _ := New(2)
	tb.Increment(0) // "AA"
	if _, err := ReadByKey[uint64](tb, "aa"); err == nil {
		t.Error("expected BadChar error for lowercase key lookup (case-sensitive, uppercase-only)")
	}
}

func TestZeroResetsCountsAndTotal(t *testing.T) {
	tb, _ := New(2)
	tb.Increment(0)
	tb.Increment(1)
	tb.Zero()
	if tb.Total() != 0 || tb.Sum() != 0 {
		t.Errorf("after Zero: total=%d sum=%d, want 0,0", tb.Total(), tb.Sum())
	}
}
