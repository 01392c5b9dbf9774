package sampler

import "sort"

// Build the row marginal CDF for a row-major cols x rows variance grid. The
// returned table has rows+1 entries, starts at 0 and ends at exactly 1. A
// grid with zero total variance yields a uniform distribution over rows.
func BuildMarginal(variance []float32, cols, rows int) []float32 {
	cdf := make([]float32, rows+1)

	var total float64
	rowSums := make([]float64, rows)
	for row := 0; row < rows; row++ {
		for _, v := range variance[row*cols : (row+1)*cols] {
			rowSums[row] += float64(v)
		}
		total += rowSums[row]
	}

	if total <= 0 {
		for row := 1; row < rows; row++ {
			cdf[row] = float32(row) / float32(rows)
		}
	} else {
		var sum float64
		for row := 0; row < rows; row++ {
			sum += rowSums[row]
			cdf[row+1] = float32(sum / total)
		}
	}
	cdf[rows] = 1.0
	return cdf
}

// Select the row for a uniform sample y in [0, 1) by inverting the marginal CDF.
func sampleRow(cdf []float32, y float32) int {
	rows := len(cdf) - 1
	row := sort.Search(rows, func(i int) bool {
		return cdf[i+1] > y
	})
	if row == rows {
		row = rows - 1
	}
	return row
}

// Select the column within a row for a uniform sample x in [0, 1) using the
// distribution conditioned on that row. A row with zero variance falls back
// to a uniform pick derived from x.
func sampleColumn(rowVariance []float32, x float32) int {
	cols := len(rowVariance)

	var total float64
	for _, v := range rowVariance {
		total += float64(v)
	}
	if total <= 0 {
		return int(x*float32(cols)) % cols
	}

	var sum float64
	last := 0
	for col, v := range rowVariance {
		if v <= 0 {
			continue
		}
		sum += float64(v)
		last = col
		if float32(sum/total) > x {
			return col
		}
	}
	return last
}
