package tools

// Weights of the query-style confidence factor set. Data quality dominates:
// a structurally complete result section is worth more than a well-formed
// envelope around a thin one.
const (
	dataQualityWeight      = 0.6
	responseQualityWeight  = 0.4
	nonNilSectionBonusPart = 0.25
)

// QueryConfidence scores a query-style output: 0.6 for data quality (the
// expected top-level sections are present, with a bonus when none is nil)
// and 0.4 for response quality (a non-empty data object exists at all).
// Pure and panic-free for any output shape, including nil.
func QueryConfidence(output *Output, sections ...string) float64 {
	if output == nil || len(output.Data) == 0 {
		return 0
	}

	score := responseQualityWeight

	if len(sections) == 0 {
		return score + dataQualityWeight
	}

	present := 0
	nonNil := 0
	for _, section := range sections {
		v, ok := output.Data[section]
		if !ok {
			continue
		}
		present++
		if v != nil {
			nonNil++
		}
	}

	structural := dataQualityWeight * (1 - nonNilSectionBonusPart)
	bonus := dataQualityWeight * nonNilSectionBonusPart

	score += structural * float64(present) / float64(len(sections))
	if present == len(sections) && nonNil == present {
		score += bonus
	}
	return score
}

// Factor is one independently checkable confidence contribution
type Factor struct {
	Weight float64
	Holds  bool
}

// FactorSum adds up the weights of the factors that hold. Used by
// mutation-style tools whose factor sets are explicit per tool.
func FactorSum(factors ...Factor) float64 {
	var score float64
	for _, f := range factors {
		if f.Holds {
			score += f.Weight
		}
	}
	return score
}
