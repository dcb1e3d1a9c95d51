package sequence

import (
	"regexp"
	"testing"
)

func TestNewSeed_Format(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{32}$`)
	for i := 0; i < 50; i++ {
		seed, err := NewSeed()
		if err != nil {
			t.Fatalf("NewSeed() error: %v", err)
		}
		if !hexPattern.MatchString(seed) {
			t.Errorf("NewSeed() = %q, want 32 lowercase hex chars", seed)
		}
	}
}

func TestNewSeed_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seed, err := NewSeed()
		if err != nil {
			t.Fatalf("NewSeed() error: %v", err)
		}
		if seen[seed] {
			t.Fatalf("duplicate seed generated: %s", seed)
		}
		seen[seed] = true
	}
}

func TestHashSeed_Stable(t *testing.T) {
	a := HashSeed("abc123")
	b := HashSeed("abc123")
	if a != b {
		t.Errorf("HashSeed not deterministic: %q != %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("HashSeed length = %d, want 64", len(a))
	}
	if a == "abc123" {
		t.Error("HashSeed should not return the seed itself")
	}
}

func TestFloats_Deterministic(t *testing.T) {
	a := Floats("seed-one", 7, 10)
	b := Floats("seed-one", 7, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("float %d differs: %v != %v", i, a[i], b[i])
		}
	}
}

func TestFloats_Range(t *testing.T) {
	for _, f := range Floats("range-check", 1, 1000) {
		if f < 0 || f >= 1 {
			t.Fatalf("float out of range [0,1): %v", f)
		}
	}
}

func TestFloats_NonceIndependence(t *testing.T) {
	a := Floats("shared-seed", 1, 5)
	b := Floats("shared-seed", 2, 5)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different nonces produced identical streams")
	}
}

func TestStream_CrossesRoundBoundary(t *testing.T) {
	// 32 bytes per HMAC round; 10 floats consume 40 bytes.
	st := NewStream("boundary", 0)
	for i := 0; i < 10; i++ {
		f := st.NextFloat()
		if f < 0 || f >= 1 {
			t.Fatalf("float %d out of range: %v", i, f)
		}
	}

	// Resuming from scratch must match a straight run.
	want := Floats("boundary", 0, 10)
	st2 := NewStream("boundary", 0)
	for i := 0; i < 10; i++ {
		if got := st2.NextFloat(); got != want[i] {
			t.Fatalf("float %d = %v, want %v", i, got, want[i])
		}
	}
}
