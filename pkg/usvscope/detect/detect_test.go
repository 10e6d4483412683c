package detect

import (
	"math"
	"reflect"
	"testing"

	"github.com/mousetube/usvscope/pkg/usvscope/spectral"
)

func TestMaxFilterReplicatesEdges(t *testing.T) {
	got := MaxFilter(spectral.Curve{1, 5, 2, 0, 0}, 3)
	want := spectral.Curve{5, 5, 5, 2, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MaxFilter = %v, want %v", got, want)
	}

	// Even window: two frames left of centre, one right.
	got = MaxFilter(spectral.Curve{0, 0, 7, 0, 0}, 4)
	want = spectral.Curve{0, 7, 7, 7, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MaxFilter(size 4) = %v, want %v", got, want)
	}
}

func TestMeanFilter(t *testing.T) {
	got := MeanFilter(spectral.Curve{3, 0, 0, 3}, 3)
	want := spectral.Curve{2, 1, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MeanFilter = %v, want %v", got, want)
	}
	if got := MeanFilter(spectral.Curve{4}, 5); got[0] != 4 {
		t.Errorf("single-sample MeanFilter = %v, want 4", got[0])
	}
}

func TestThresholdFlatCurve(t *testing.T) {
	c := make(spectral.Curve, 200)
	smoothed, thr, err := Threshold(c)
	if err != nil {
		t.Fatalf("Threshold: %v", err)
	}
	if thr != 0 {
		t.Errorf("flat curve threshold = %v, want 0", thr)
	}
	if len(smoothed) != len(c) {
		t.Errorf("smoothed length = %d, want %d", len(smoothed), len(c))
	}
	if runs := FindRuns(smoothed, thr, 1); len(runs) != 0 {
		t.Errorf("flat curve produced runs: %v", runs)
	}
}

func TestThresholdStatistics(t *testing.T) {
	c := make(spectral.Curve, 100)
	for i := 40; i < 60; i++ {
		c[i] = 10
	}
	smoothed, thr, err := Threshold(c)
	if err != nil {
		t.Fatal(err)
	}

	var mean float64
	for _, v := range smoothed {
		mean += v
	}
	mean /= float64(len(smoothed))
	var variance float64
	for _, v := range smoothed {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(smoothed))
	want := mean + 2*math.Sqrt(variance)
	if math.Abs(thr-want) > 1e-9 {
		t.Errorf("threshold = %v, want %v", thr, want)
	}
	// The max filter widens the block by seven frames each side.
	if smoothed[35] != 10 || smoothed[64] != 10 {
		t.Errorf("expected widened plateau, got %v and %v", smoothed[35], smoothed[64])
	}
}

func TestThresholdEmpty(t *testing.T) {
	if _, _, err := Threshold(nil); err == nil {
		t.Error("expected error for empty curve")
	}
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		p    PeakParams
		want []int
	}{
		{"single", []float64{0, 1, 0}, PeakParams{}, []int{1}},
		{"odd plateau", []float64{0, 2, 2, 2, 0}, PeakParams{}, []int{2}},
		{"even plateau", []float64{0, 2, 2, 0}, PeakParams{}, []int{1}},
		{"ends excluded", []float64{3, 1, 2}, PeakParams{}, nil},
		{"rising to end", []float64{1, 2, 3}, PeakParams{}, nil},
		{"plateau at end", []float64{0, 2, 2}, PeakParams{}, nil},
		{"height", []float64{0, 1, 0, 3, 0}, PeakParams{Height: 2}, []int{3}},
		{"distance", []float64{0, 5, 0, 4, 0, 6, 0}, PeakParams{Distance: 3}, []int{1, 5}},
		{"narrow", []float64{0, 5, 0}, PeakParams{MinWidth: 2}, nil},
		{"wide", []float64{0, 1, 2, 3, 4, 3, 2, 1, 0}, PeakParams{MinWidth: 2}, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.x, tt.p)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindPeaks = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindPeaksDetailedWidth(t *testing.T) {
	peaks := FindPeaksDetailed([]float64{0, 1, 2, 3, 4, 3, 2, 1, 0}, PeakParams{})
	if len(peaks) != 1 {
		t.Fatalf("expected one peak, got %d", len(peaks))
	}
	pk := peaks[0]
	if pk.Prominence != 4 {
		t.Errorf("prominence = %v, want 4", pk.Prominence)
	}
	if pk.Width != 4 {
		t.Errorf("width = %v, want 4", pk.Width)
	}
	if pk.LeftBase != 0 || pk.RightBase != 8 {
		t.Errorf("bases = (%d, %d), want (0, 8)", pk.LeftBase, pk.RightBase)
	}
}

func TestFindRuns(t *testing.T) {
	c := spectral.Curve{0, 2, 2, 0, 2, 2, 2, 0, 2}
	tests := []struct {
		minLen int
		want   []Segment
	}{
		{1, []Segment{{Start: 1, End: 2}, {Start: 4, End: 6}, {Start: 8, End: 8}}},
		{2, []Segment{{Start: 1, End: 2}, {Start: 4, End: 6}}},
		{3, []Segment{{Start: 4, End: 6}}},
		{4, nil},
	}
	for _, tt := range tests {
		got := FindRuns(c, 1, tt.minLen)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FindRuns(minLen=%d) = %v, want %v", tt.minLen, got, tt.want)
		}
	}

	// Values equal to the threshold are not above it.
	if got := FindRuns(spectral.Curve{1, 1, 1}, 1, 1); len(got) != 0 {
		t.Errorf("expected no runs at threshold, got %v", got)
	}
	got := FindRuns(spectral.Curve{0, 3, 3}, 1, 2)
	if len(got) != 1 || got[0].End != 2 {
		t.Errorf("run touching the end: got %v", got)
	}
}

func TestMinFrames(t *testing.T) {
	tests := []struct {
		sr, hop, want int
	}{
		{300000, 256, 35},
		{300000, 512, 18},
		{44100, 512, 3},
		{1000, 1000, 1},
		{0, 256, 1},
	}
	for _, tt := range tests {
		if got := MinFrames(tt.sr, tt.hop); got != tt.want {
			t.Errorf("MinFrames(%d, %d) = %d, want %d", tt.sr, tt.hop, got, tt.want)
		}
	}
}

// bump writes a five-frame peak of the given height starting at start.
func bump(c spectral.Curve, start int, height float64) {
	shape := []float64{0.4, 0.8, 1, 0.8, 0.4}
	for i, s := range shape {
		c[start+i] = s * height
	}
}

func TestDetectPicksHighestValidatedRun(t *testing.T) {
	// sr 1000, hop 10: three frames minimum.
	c := make(spectral.Curve, 40)
	bump(c, 5, 10)
	bump(c, 20, 12)
	// A rising edge into the end of the curve has no local maximum.
	for i := 34; i < 40; i++ {
		c[i] = float64(i - 14)
	}

	res := Detect(c, 3, 1000, 10)
	if !res.Found {
		t.Fatal("expected a detection")
	}
	if res.Segment.Start != 20 || res.Segment.End != 24 {
		t.Errorf("segment = [%d, %d], want [20, 24]", res.Segment.Start, res.Segment.End)
	}
	if res.Candidates != 3 || res.Validated != 2 {
		t.Errorf("candidates/validated = %d/%d, want 3/2", res.Candidates, res.Validated)
	}
	if math.Abs(res.StartTime-0.2) > 1e-12 || math.Abs(res.EndTime-0.24) > 1e-12 {
		t.Errorf("times = (%v, %v), want (0.2, 0.24)", res.StartTime, res.EndTime)
	}
	wantMean := (4.8 + 9.6 + 12 + 9.6 + 4.8) / 5
	if math.Abs(res.MeanPowerDB-wantMean) > 1e-9 {
		t.Errorf("mean power = %v, want %v", res.MeanPowerDB, wantMean)
	}
}

func TestDetectTieGoesToEarliest(t *testing.T) {
	c := make(spectral.Curve, 40)
	bump(c, 5, 10)
	bump(c, 25, 10)

	res := Detect(c, 3, 1000, 10)
	if !res.Found {
		t.Fatal("expected a detection")
	}
	if res.Segment.Start != 5 {
		t.Errorf("tie should resolve to the earliest run, got start %d", res.Segment.Start)
	}
}

func TestDetectNoSignal(t *testing.T) {
	res := Detect(make(spectral.Curve, 50), 0, 300000, 256)
	if res.Found {
		t.Errorf("flat curve should not yield a detection: %+v", res)
	}
	if res.StartTime != 0 || res.EndTime != 0 {
		t.Errorf("NoSignal should carry zero timing, got %v..%v", res.StartTime, res.EndTime)
	}

	// A short blip is below the minimum duration.
	c := make(spectral.Curve, 100)
	bump(c, 40, 10)
	if res := Detect(c, 3, 300000, 256); res.Found {
		t.Errorf("five-frame blip should be shorter than %d frames", MinFrames(300000, 256))
	}
}
