// Package stats implements the statistical primitives used by the risk and
// anomaly stages: moments, percentiles, and the robust and standard scalers.
// All scaling is population-relative, so callers must pass the complete run.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopulationStd returns the population standard deviation (divisor n).
func PopulationStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// SampleStd returns the sample standard deviation (divisor n-1).
// Slices with fewer than two elements have no spread and return 0.
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// Median returns the 50th percentile of xs.
func Median(xs []float64) float64 {
	return Percentile(xs, 50)
}

// Percentile returns the p-th percentile (p in [0,100]) of xs using linear
// interpolation between closest ranks. Returns 0 for an empty slice.
func Percentile(xs []float64, p float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Min returns the smallest value in xs, or 0 for an empty slice.
func Min(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// Max returns the largest value in xs, or 0 for an empty slice.
func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Column extracts feature j from a row-major matrix.
func Column(matrix [][]float64, j int) []float64 {
	col := make([]float64, len(matrix))
	for i, row := range matrix {
		col[i] = row[j]
	}
	return col
}

// RobustScale centers each feature on its median and scales by the
// interquartile range (25th to 75th percentile). Features with zero IQR are
// passed through with scale 1 so constant columns do not blow up. The input
// is row-major (one row per facility) and is not modified.
func RobustScale(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	nFeatures := len(matrix[0])
	centers := make([]float64, nFeatures)
	scales := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		col := Column(matrix, j)
		centers[j] = Median(col)
		iqr := Percentile(col, 75) - Percentile(col, 25)
		if iqr == 0 {
			iqr = 1
		}
		scales[j] = iqr
	}
	return applyScale(matrix, centers, scales)
}

// StandardScale centers each feature on its mean and scales to unit population
// variance. Zero-variance features are passed through with scale 1.
func StandardScale(matrix [][]float64) [][]float64 {
	if len(matrix) == 0 {
		return nil
	}
	nFeatures := len(matrix[0])
	centers := make([]float64, nFeatures)
	scales := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		col := Column(matrix, j)
		centers[j] = Mean(col)
		std := PopulationStd(col)
		if std == 0 {
			std = 1
		}
		scales[j] = std
	}
	return applyScale(matrix, centers, scales)
}

func applyScale(matrix [][]float64, centers, scales []float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled := make([]float64, len(row))
		for j, x := range row {
			scaled[j] = (x - centers[j]) / scales[j]
		}
		out[i] = scaled
	}
	return out
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Round1 rounds to one decimal place, half away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Round3 rounds to three decimal places, half away from zero.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
