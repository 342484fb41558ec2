package sim

import (
	"fmt"

	"github.com/urbansense/canopysim/pkg/site"
)

// engagement samples a funnel per site. Every stage is a fraction of the
// previous one, so the counts never increase along the funnel.
func engagement(rng Source, sites []site.EngagementSite) []EngagementSite {
	out := make([]EngagementSite, len(sites))
	for i, s := range sites {
		notified := round(float64(s.Passers) * uniform(rng, 0.6, 0.8))
		opened := round(float64(notified) * uniform(rng, 0.45, 0.6))
		engaged := round(float64(opened) * uniform(rng, 0.6, 0.75))
		deep := round(float64(engaged) * uniform(rng, 0.3, 0.4))
		out[i] = EngagementSite{
			ID:          s.ID,
			Name:        s.Name,
			Passers:     s.Passers,
			Notified:    notified,
			Opened:      opened,
			Engaged:     engaged,
			DeepEngaged: deep,
		}
	}
	return out
}

var sankeyStages = []SankeyNode{
	{Name: "Notification"},
	{Name: "View"},
	{Name: "Click"},
	{Name: "Redeem"},
}

// sankey folds the per-site funnels into one flow:
// Notification -> View (opened), View -> Click (engaged), Click -> Redeem (deep).
func sankey(sites []EngagementSite) Sankey {
	var opened, engaged, deep int
	for _, s := range sites {
		opened += s.Opened
		engaged += s.Engaged
		deep += s.DeepEngaged
	}
	return Sankey{
		Nodes: append([]SankeyNode(nil), sankeyStages...),
		Links: []SankeyLink{
			{Source: 0, Target: 1, Value: opened},
			{Source: 1, Target: 2, Value: engaged},
			{Source: 2, Target: 3, Value: deep},
		},
	}
}

// network builds the gateway plus one sensor per canopy, capped at
// maxNetworkSensors.
func network(rng Source, canopies []Canopy) Network {
	n := min(len(canopies), maxNetworkSensors)
	nodes := make([]NetworkNode, 0, n+1)
	links := make([]NetworkLink, 0, n)

	nodes = append(nodes, NetworkNode{ID: "GW", Type: "gateway", Status: "online"})
	for i, c := range canopies[:n] {
		status := "online"
		if c.Status == StatusAlert {
			status = "warning"
		}
		id := fmt.Sprintf("S%d", i+1)
		nodes = append(nodes, NetworkNode{ID: id, Type: "sensor", Status: status, CanopyID: c.ID})
		links = append(links, NetworkLink{Source: "GW", Target: id, Strength: 0.7 + rng.Float64()*0.3})
	}
	return Network{Nodes: nodes, Links: links}
}
