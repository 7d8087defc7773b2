package analysis

import (
	"fmt"

	"github.com/cotlens/cotlens/pkg/models"
)

// MomentumOptions parameterizes the momentum transformer.
type MomentumOptions struct {
	Category models.TraderCategory // default: non-commercial
	// Weeks is the lookback window for the change and z-score. Default 13
	// (one quarter of weekly reports).
	Weeks int
}

// Momentum computes the net-position change over the lookback window and
// the z-score of the latest net against the window's distribution. Points
// before the window has filled are nil; a series shorter than the window
// is flagged insufficient.
func Momentum(reports []models.Report, opts MomentumOptions) models.AnalysisResult {
	if opts.Category == "" {
		opts.Category = models.CategoryNonCommercial
	}
	if opts.Weeks <= 0 {
		opts.Weeks = 13
	}

	result := models.AnalysisResult{
		Kind:         KindMomentum,
		ContractCode: contractCode(reports),
	}
	if len(reports) == 0 {
		result.Insufficient = true
		result.Reason = "no reports in range"
		return result
	}
	if len(reports) <= opts.Weeks {
		result.Insufficient = true
		result.Reason = fmt.Sprintf("%d reports, momentum window needs %d", len(reports), opts.Weeks+1)
	}

	nets := netValues(reports, opts.Category)
	label := DisplayName(opts.Category)

	change := models.Series{Name: fmt.Sprintf("%s Net Change (%dw)", label, opts.Weeks)}
	zscore := models.Series{Name: fmt.Sprintf("%s Net Z-Score (%dw)", label, opts.Weeks)}

	for i, r := range reports {
		cp := models.Point{Date: r.Date}
		zp := models.Point{Date: r.Date}
		if i >= opts.Weeks {
			cp.Value = models.Float(nets[i] - nets[i-opts.Weeks])

			window := nets[i-opts.Weeks : i+1]
			if sd := stddev(window); sd > 0 {
				zp.Value = models.Float(round2((nets[i] - mean(window)) / sd))
			} else {
				zp.Value = models.Float(0)
			}
		}
		change.Points = append(change.Points, cp)
		zscore.Points = append(zscore.Points, zp)
	}

	result.Series = append(result.Series, change, zscore)
	return result
}
