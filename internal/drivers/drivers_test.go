package drivers

import "testing"

func TestCompare_PicksClosest(t *testing.T) {
	c := Compare(181)
	if c.Driver.ID != "verstappen" {
		t.Errorf("Compare(181) driver = %q, want verstappen", c.Driver.ID)
	}
	if c.DeltaMs != 1 {
		t.Errorf("DeltaMs = %d, want 1", c.DeltaMs)
	}
	if c.Beat {
		t.Error("181ms should not beat a 180ms benchmark")
	}
}

func TestCompare_Beat(t *testing.T) {
	c := Compare(175)
	if !c.Beat {
		t.Error("175ms should beat the closest driver")
	}
	if c.DeltaMs >= 0 {
		t.Errorf("DeltaMs = %d, want negative", c.DeltaMs)
	}
}

func TestCompare_SlowTime(t *testing.T) {
	c := Compare(400)
	if c.Driver.ID != "stroll" {
		t.Errorf("Compare(400) driver = %q, want slowest benchmark", c.Driver.ID)
	}
	if c.Beat {
		t.Error("400ms should not beat any benchmark")
	}
}

func TestFastest(t *testing.T) {
	f := Fastest()
	for _, d := range All {
		if d.BenchMs < f.BenchMs {
			t.Errorf("Fastest() = %s (%dms), but %s is quicker (%dms)", f.ID, f.BenchMs, d.ID, d.BenchMs)
		}
	}
}

func TestAll_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range All {
		if seen[d.ID] {
			t.Errorf("duplicate driver id %q", d.ID)
		}
		seen[d.ID] = true
		if d.BenchMs <= 0 {
			t.Errorf("driver %q has non-positive benchmark %d", d.ID, d.BenchMs)
		}
	}
}
