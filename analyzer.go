package lottery

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Randomness assessments
const (
	AssessmentLikelyRandom   = "likely random"
	AssessmentPossiblyBiased = "possibly biased"
)

// FrequencyTable counts occurrences of every value of the domain [1, max]
type FrequencyTable struct {
	counts []int
	total  int
}

// NewFrequencyTable creates a zero-filled table over [1, max]
func NewFrequencyTable(max int) *FrequencyTable {
	return &FrequencyTable{counts: make([]int, max)}
}

// Add counts one occurrence of v
func (t *FrequencyTable) Add(v int) error {
	if v < 1 || v > len(t.counts) {
		return ErrInvalidParameters.WithDetails(fmt.Sprintf("value %d outside [1, %d]", v, len(t.counts)))
	}
	t.counts[v-1]++
	t.total++
	return nil
}

// Count returns the occurrences of v
func (t *FrequencyTable) Count(v int) int {
	if v < 1 || v > len(t.counts) {
		return 0
	}
	return t.counts[v-1]
}

// Size returns the domain size
func (t *FrequencyTable) Size() int { return len(t.counts) }

// Total returns the sum of all counts
func (t *FrequencyTable) Total() int { return t.total }

// Values returns the domain in ascending order
func (t *FrequencyTable) Values() []int {
	values := make([]int, len(t.counts))
	for i := range values {
		values[i] = i + 1
	}
	return values
}

// Counts returns the counts in domain order
func (t *FrequencyTable) Counts() []int { return slices.Clone(t.counts) }

// Map returns value -> count for the whole domain
func (t *FrequencyTable) Map() map[int]int {
	m := make(map[int]int, len(t.counts))
	for i, c := range t.counts {
		m[i+1] = c
	}
	return m
}

// DomainAnalysis holds the statistics of one domain (numbers or stars)
type DomainAnalysis struct {
	Frequencies      map[int]int     `json:"frequencies"`
	Expected         float64         `json:"expected"`
	ChiSquare        float64         `json:"chi_square"`
	PValue           float64         `json:"p_value"`
	DegreesOfFreedom int             `json:"degrees_of_freedom"`
	StdDev           float64         `json:"std_dev"`
	VariationPct     float64         `json:"variation_pct"`
	Deviations       map[int]float64 `json:"deviations"`
	MinValues        []int           `json:"min_values"`
	MinCount         int             `json:"min_count"`
	MaxValues        []int           `json:"max_values"`
	MaxCount         int             `json:"max_count"`
	Assessment       string          `json:"assessment"`
}

// IsLikelyRandom reports whether the p-value exceeds the significance level
func (d *DomainAnalysis) IsLikelyRandom() bool { return d.PValue > SignificanceLevel }

// AnalysisReport is the result of analyzing a batch
type AnalysisReport struct {
	SampleSize int            `json:"sample_size"`
	Numbers    DomainAnalysis `json:"numbers"`
	Stars      DomainAnalysis `json:"stars"`
}

// NumberFrequencies returns the main number counts
func (r *AnalysisReport) NumberFrequencies() map[int]int { return r.Numbers.Frequencies }

// StarFrequencies returns the star counts
func (r *AnalysisReport) StarFrequencies() map[int]int { return r.Stars.Frequencies }

// ChiSquareNumbers returns the chi-square statistic of the main numbers
func (r *AnalysisReport) ChiSquareNumbers() float64 { return r.Numbers.ChiSquare }

// PValueNumbers returns the p-value of the main numbers
func (r *AnalysisReport) PValueNumbers() float64 { return r.Numbers.PValue }

// ChiSquareStars returns the chi-square statistic of the stars
func (r *AnalysisReport) ChiSquareStars() float64 { return r.Stars.ChiSquare }

// PValueStars returns the p-value of the stars
func (r *AnalysisReport) PValueStars() float64 { return r.Stars.PValue }

// StdDevNumbers returns the standard deviation of the main number counts
func (r *AnalysisReport) StdDevNumbers() float64 { return r.Numbers.StdDev }

// StdDevStars returns the standard deviation of the star counts
func (r *AnalysisReport) StdDevStars() float64 { return r.Stars.StdDev }

// VariationPctNumbers returns the per-number deviation from the expected count, in percent
func (r *AnalysisReport) VariationPctNumbers() map[int]float64 { return r.Numbers.Deviations }

// VariationPctStars returns the per-star deviation from the expected count, in percent
func (r *AnalysisReport) VariationPctStars() map[int]float64 { return r.Stars.Deviations }

// RandomnessAnalyzer computes frequency statistics and goodness-of-fit tests
// over a batch. It never mutates its input.
type RandomnessAnalyzer struct {
	config DrawConfig
}

// NewRandomnessAnalyzer creates an analyzer for draws of the given shape
func NewRandomnessAnalyzer(cfg *DrawConfig) (*RandomnessAnalyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RandomnessAnalyzer{config: *cfg}, nil
}

// Analyze builds frequency tables over the full domains and tests them
// against the uniform distribution
func (a *RandomnessAnalyzer) Analyze(batch DrawBatch) (*AnalysisReport, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	numbers := NewFrequencyTable(a.config.MaxNumber)
	stars := NewFrequencyTable(a.config.MaxStar)

	for i, d := range batch {
		if d == nil {
			return nil, ErrInvalidParameters.WithDetails(fmt.Sprintf("draw %d is nil", i))
		}
		if err := d.Validate(&a.config); err != nil {
			return nil, ErrInvalidParameters.WithDetails(fmt.Sprintf("draw %d", i)).WithCause(err)
		}
		for _, n := range d.numbers {
			if err := numbers.Add(n); err != nil {
				return nil, err
			}
		}
		for _, s := range d.stars {
			if err := stars.Add(s); err != nil {
				return nil, err
			}
		}
	}

	return &AnalysisReport{
		SampleSize: len(batch),
		Numbers:    analyzeDomain(numbers),
		Stars:      analyzeDomain(stars),
	}, nil
}

// analyzeDomain computes the statistics of one frequency table
func analyzeDomain(t *FrequencyTable) DomainAnalysis {
	size := t.Size()
	expected := float64(t.Total()) / float64(size)

	observed := make([]float64, size)
	deviations := make(map[int]float64, size)
	var chi float64
	for i, c := range t.counts {
		o := float64(c)
		observed[i] = o
		chi += (o - expected) * (o - expected) / expected
		deviations[i+1] = (o - expected) / expected * 100
	}

	df := size - 1
	pValue := 1.0
	if df > 0 {
		pValue = distuv.ChiSquared{K: float64(df)}.Survival(chi)
	}

	_, stdDev := stat.PopMeanStdDev(observed, nil)

	minCount, maxCount := slices.Min(t.counts), slices.Max(t.counts)
	var minValues, maxValues []int
	for i, c := range t.counts {
		if c == minCount {
			minValues = append(minValues, i+1)
		}
		if c == maxCount {
			maxValues = append(maxValues, i+1)
		}
	}

	assessment := AssessmentPossiblyBiased
	if pValue > SignificanceLevel {
		assessment = AssessmentLikelyRandom
	}

	return DomainAnalysis{
		Frequencies:      t.Map(),
		Expected:         expected,
		ChiSquare:        chi,
		PValue:           pValue,
		DegreesOfFreedom: df,
		StdDev:           stdDev,
		VariationPct:     float64(maxCount-minCount) / expected * 100,
		Deviations:       deviations,
		MinValues:        minValues,
		MinCount:         minCount,
		MaxValues:        maxValues,
		MaxCount:         maxCount,
		Assessment:       assessment,
	}
}
