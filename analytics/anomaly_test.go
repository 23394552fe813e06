package analytics

import "testing"

func TestDetectShortSeries(t *testing.T) {
	flags := Detect([]float64{1, 100, 1, 100}, 3.0)
	for i, f := range flags {
		if f {
			t.Errorf("point %d flagged in a series too short to judge", i)
		}
	}
}

func TestDetectConstantSeries(t *testing.T) {
	series := []float64{50, 50, 50, 50, 50, 50, 50}
	for i, f := range Detect(series, 3.0) {
		if f {
			t.Errorf("point %d flagged in a constant series", i)
		}
	}
}

func TestDetectFlagsOutlier(t *testing.T) {
	// steady around 100 with one extreme spike
	series := []float64{100, 101, 99, 100, 102, 98, 100, 101, 99, 100, 1000}
	flags := Detect(series, 3.0)
	if !flags[len(flags)-1] {
		t.Error("spike not flagged")
	}
	for i := 0; i < len(flags)-1; i++ {
		if flags[i] {
			t.Errorf("normal point %d flagged", i)
		}
	}
}

func TestDetectThresholdControlsSensitivity(t *testing.T) {
	series := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 130}
	strict := Detect(series, 3.0)
	loose := Detect(series, 1.5)
	if strict[len(strict)-1] {
		t.Error("mild bump flagged at threshold 3.0")
	}
	if !loose[len(loose)-1] {
		t.Error("mild bump not flagged at threshold 1.5")
	}
}

func TestDetectZeroThresholdUsesDefault(t *testing.T) {
	series := []float64{100, 101, 99, 100, 102, 98, 100, 101, 99, 100, 1000}
	got := Detect(series, 0)
	want := Detect(series, DefaultAnomalyThreshold)
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("threshold 0 differs from default at %d", i)
		}
	}
}
