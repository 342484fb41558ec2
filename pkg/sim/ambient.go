package sim

import (
	"math"
	"time"
)

// Weather is a static condition label attached to the public reading.
type Weather struct {
	TempC     float64 `json:"temp"`
	Condition string  `json:"condition"`
}

// Ambient is the single public-facing reading shown on the visitor view.
type Ambient struct {
	SunHeatIndex    float64   `json:"sunHeatIndex"`
	AirQualityIndex int       `json:"airQualityIndex"`
	Humidity        int       `json:"humidity"`
	PollutionPM25   float64   `json:"pollutionPM25"`
	Weather         Weather   `json:"weather"`
	FootTraffic     int       `json:"footTraffic"`
	Timestamp       time.Time `json:"timestamp"`
}

// GenerateAmbient samples one public reading.
func GenerateAmbient(rng Source, now time.Time) Ambient {
	return Ambient{
		SunHeatIndex:    roundTo(uniform(rng, 35, 45), 1),
		AirQualityIndex: round(uniform(rng, 40, 90)),
		Humidity:        round(uniform(rng, 70, 95)),
		PollutionPM25:   roundTo(uniform(rng, 15, 35), 2),
		Weather:         Weather{TempC: 32, Condition: "Partly Cloudy"},
		FootTraffic:     round(uniform(rng, 150, 250)),
		Timestamp:       now,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
