package survey

import "sort"

// SegmentSpec is an unpersisted segment plan emitted by GenerateSegments,
// ready to be inserted against a concrete survey_id.
type SegmentSpec struct {
	Name        string
	StartHz     float64
	EndHz       float64
	Priority    int
	StepHz      float64
	DwellTimeMs float64
}

// GenerateSegments decomposes [startHz, endHz] into one segment per
// catalogued priority band intersecting the range, clipped to it, plus
// (if fullCoverage) priority-5 gap segments covering the set-difference
// between the requested range and the union of priority bands, stepped at
// coarseStepHz (spec.md §4.3).
func GenerateSegments(startHz, endHz float64, fullCoverage bool, coarseStepHz float64) []SegmentSpec {
	var specs []SegmentSpec
	var covered [][2]float64

	for _, band := range Catalogue {
		s, e, ok := overlap(startHz, endHz, band.StartHz, band.EndHz)
		if !ok {
			continue
		}
		specs = append(specs, SegmentSpec{
			Name:        band.Name,
			StartHz:     s,
			EndHz:       e,
			Priority:    band.Priority,
			StepHz:      band.RecommendedStepHz,
			DwellTimeMs: band.RecommendedDwellMs,
		})
		covered = append(covered, [2]float64{s, e})
	}

	if fullCoverage {
		for _, gap := range gaps(startHz, endHz, covered) {
			specs = append(specs, SegmentSpec{
				Name:        "gap_fill",
				StartHz:     gap[0],
				EndHz:       gap[1],
				Priority:    5,
				StepHz:      coarseStepHz,
				DwellTimeMs: 50,
			})
		}
	}

	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Priority != specs[j].Priority {
			return specs[i].Priority < specs[j].Priority
		}
		return specs[i].StartHz < specs[j].StartHz
	})
	return specs
}

// gaps computes the set-difference between [startHz, endHz] and the union
// of the given covered intervals, returning the remaining sub-intervals in
// ascending order.
func gaps(startHz, endHz float64, covered [][2]float64) [][2]float64 {
	if len(covered) == 0 {
		return [][2]float64{{startHz, endHz}}
	}

	sort.Slice(covered, func(i, j int) bool { return covered[i][0] < covered[j][0] })

	merged := [][2]float64{covered[0]}
	for _, iv := range covered[1:] {
		last := &merged[len(merged)-1]
		if iv[0] <= last[1] {
			if iv[1] > last[1] {
				last[1] = iv[1]
			}
			continue
		}
		merged = append(merged, iv)
	}

	var result [][2]float64
	cursor := startHz
	for _, iv := range merged {
		s, e, ok := overlap(startHz, endHz, iv[0], iv[1])
		if !ok {
			continue
		}
		if s > cursor {
			result = append(result, [2]float64{cursor, s})
		}
		if e > cursor {
			cursor = e
		}
	}
	if cursor < endHz {
		result = append(result, [2]float64{cursor, endHz})
	}
	return result
}

// EstimateDurationSeconds approximates how long a segment will take to
// scan: roughly one dwell per step across the segment's span.
func (s SegmentSpec) EstimateDurationSeconds() float64 {
	if s.StepHz <= 0 {
		return 0
	}
	steps := (s.EndHz - s.StartHz) / s.StepHz
	if steps < 1 {
		steps = 1
	}
	return steps * s.DwellTimeMs / 1000
}
