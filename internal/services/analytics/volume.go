package analytics

import (
	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
	"IdxLens/internal/services/features"
)

// VolumeAnalyzer aggregates traded volume and turnover.
type VolumeAnalyzer struct{}

func NewVolumeAnalyzer() *VolumeAnalyzer { return &VolumeAnalyzer{} }

// Summarize computes volume and turnover aggregates. Records with zero volume
// count toward the volume statistics but contribute no turnover/volume ratio.
func (a *VolumeAnalyzer) Summarize(s models.Series) (*models.VolumeSummary, error) {
	n := s.Len()
	if n == 0 {
		return nil, &models.InsufficientDataError{Operation: "volume summary", Required: 1, Actual: 0}
	}

	vols := make([]float64, n)
	ratios := make([]models.DatedValue, 0, n)
	ratioValues := make([]float64, 0, n)
	sum := models.VolumeSummary{Days: n, MaxVolume: s.At(0).Volume, MinVolume: s.At(0).Volume}
	for i := 0; i < n; i++ {
		r := s.At(i)
		vols[i] = float64(r.Volume)
		sum.TotalVolume += r.Volume
		sum.TotalTurnover += r.Turnover
		if r.Volume > sum.MaxVolume {
			sum.MaxVolume = r.Volume
		}
		if r.Volume < sum.MinVolume {
			sum.MinVolume = r.Volume
		}
		if r.Volume == 0 {
			sum.ZeroVolumeDays++
			continue
		}
		ratio := r.Turnover / float64(r.Volume)
		ratios = append(ratios, models.DatedValue{Date: r.Date, Value: ratio})
		ratioValues = append(ratioValues, ratio)
	}

	sum.MeanVolume, _ = features.MeanStdDev(vols)
	sum.MedianVolume = features.Median(features.SortedCopy(vols))
	sum.MeanTurnover = sum.TotalTurnover / float64(n)
	sum.Ratios = ratios
	if len(ratioValues) > 0 {
		sorted := features.SortedCopy(ratioValues)
		mean, sd := features.MeanStdDev(ratioValues)
		sum.Ratio = models.RatioStats{
			Samples: len(ratioValues),
			Mean:    mean,
			Median:  features.Median(sorted),
			Min:     sorted[0],
			Max:     sorted[len(sorted)-1],
			StdDev:  sd,
		}
	}
	return &sum, nil
}

var _ domsvc.VolumeAnalyzer = (*VolumeAnalyzer)(nil)
