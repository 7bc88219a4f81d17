package eventsearch

import (
	"fmt"
	"math"
	"strings"
)

// Metric is the distance function used to rank embeddings. It is fixed per deployment:
// different metrics produce different rankings for the same vectors, so changing it
// requires re-indexing.
type Metric string

const (
	// MetricL2 is Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricInnerProduct is 1 - <a,b>. It ranks exactly like pgvector's <#> operator.
	// Embeddings should be unit-normalized; longer vectors that score past 1 are
	// reported at distance 0 but keep their relative order.
	MetricInnerProduct Metric = "inner_product"
	// MetricCosine is 1 - cos(a,b).
	MetricCosine Metric = "cosine"
)

// DefaultMetric is used when no metric is configured.
const DefaultMetric = MetricL2

// ParseMetric parses a metric name. An empty string yields DefaultMetric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultMetric, nil
	case MetricL2, "euclidean":
		return MetricL2, nil
	case MetricInnerProduct, "dot":
		return MetricInnerProduct, nil
	case MetricCosine:
		return MetricCosine, nil
	}
	return "", fmt.Errorf("unknown distance metric %q (expected l2, inner_product or cosine)", s)
}

// Distance computes the metric between two vectors of equal length. The result is
// never negative.
func (m Metric) Distance(a, b []float32) float64 {
	return math.Max(0, m.score(a, b))
}

// score is the unclamped distance, used for ranking. Components are accumulated in
// float64 to avoid losing precision.
func (m Metric) score(a, b []float32) float64 {
	switch m {
	case MetricInnerProduct:
		return 1 - dot(a, b)
	case MetricCosine:
		na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot(a, b)/(na*nb)
	default:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
