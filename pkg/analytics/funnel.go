package analytics

import "github.com/urbansense/canopysim/pkg/sim"

// FunnelTotals sums engagement stages across sites with stage-to-stage
// conversion ratios.
type FunnelTotals struct {
	Passers     int `json:"passers"`
	Notified    int `json:"notified"`
	Opened      int `json:"opened"`
	Engaged     int `json:"engaged"`
	DeepEngaged int `json:"deepEngaged"`

	NotifyRate float64 `json:"notifyRate"`
	OpenRate   float64 `json:"openRate"`
	EngageRate float64 `json:"engageRate"`
	DeepRate   float64 `json:"deepRate"`
	// Overall is deep engagements per passer.
	Overall float64 `json:"overall"`
}

// Funnel totals the engagement sites.
func Funnel(sites []sim.EngagementSite) FunnelTotals {
	var f FunnelTotals
	for _, s := range sites {
		f.Passers += s.Passers
		f.Notified += s.Notified
		f.Opened += s.Opened
		f.Engaged += s.Engaged
		f.DeepEngaged += s.DeepEngaged
	}
	f.NotifyRate = ratio(f.Notified, f.Passers)
	f.OpenRate = ratio(f.Opened, f.Notified)
	f.EngageRate = ratio(f.Engaged, f.Opened)
	f.DeepRate = ratio(f.DeepEngaged, f.Engaged)
	f.Overall = ratio(f.DeepEngaged, f.Passers)
	return f
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
