package eventsearch

import (
	"math"
	"testing"
)

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"", MetricL2, false},
		{"l2", MetricL2, false},
		{"Euclidean", MetricL2, false},
		{"inner_product", MetricInnerProduct, false},
		{"dot", MetricInnerProduct, false},
		{" cosine ", MetricCosine, false},
		{"manhattan", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetric(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMetric(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMetric(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetricDistance(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	same := []float32{1, 0}

	tests := []struct {
		metric Metric
		x, y   []float32
		want   float64
	}{
		{MetricL2, a, b, math.Sqrt2},
		{MetricL2, a, same, 0},
		{MetricInnerProduct, a, b, 1},
		{MetricInnerProduct, a, same, 0},
		{MetricCosine, a, b, 1},
		{MetricCosine, []float32{2, 0}, same, 0},
		{MetricCosine, []float32{0, 0}, same, 1},
	}
	for _, tt := range tests {
		got := tt.metric.Distance(tt.x, tt.y)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s.Distance(%v, %v) = %v, want %v", tt.metric, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestMetricsRankDifferently(t *testing.T) {
	// Under L2 the short vector is closer; under cosine the long one points the same way.
	q := []float32{1, 0}
	short := []float32{0.5, 0.5}
	long := []float32{3, 0.1}

	if MetricL2.Distance(q, short) >= MetricL2.Distance(q, long) {
		t.Error("l2 should rank short first")
	}
	if MetricCosine.Distance(q, long) >= MetricCosine.Distance(q, short) {
		t.Error("cosine should rank long first")
	}
}

func TestInnerProductNeverNegative(t *testing.T) {
	q := []float32{1, 0}
	long := []float32{3, 0}
	longer := []float32{5, 0}

	if d := MetricInnerProduct.Distance(q, long); d != 0 {
		t.Errorf("Distance = %v, want 0", d)
	}
	// Ranking still separates vectors that both clamp to zero.
	if MetricInnerProduct.score(q, longer) >= MetricInnerProduct.score(q, long) {
		t.Error("score should rank the longer vector first")
	}
}
