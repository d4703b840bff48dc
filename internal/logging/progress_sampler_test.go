package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "a.db") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "first.db") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "first.db") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "  second.db ") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "second.db" {
		t.Errorf("lastPhase = %q, want trimmed second.db", s.lastPhase)
	}
}

func TestProgressSamplerPercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{5, true},
		{7, false},
		{10, true},
		{100, true},
		{105, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "cat.db"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerBucketResetOnPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "a.db")
	s.ShouldLog(0, "b.db")
	if !s.ShouldLog(10, "b.db") {
		t.Error("10% should log after phase change reset bucket")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "a.db")
	s.Reset()
	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if !s.ShouldLog(50, "a.db") {
		t.Error("should log after reset")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1, 4); got != 25 {
		t.Fatalf("Percent(1,4) = %v", got)
	}
	if got := Percent(3, 0); got != -1 {
		t.Fatalf("Percent with unknown total = %v", got)
	}
}
