package generator

import (
	"strings"
	"time"
)

// Features are the inputs of the parametric volume model.
type Features struct {
	Hour          int
	Weekday       time.Weekday
	Temperature   float64
	Weather       string
	SpecialEvents bool
	RoadType      string
}

// Prediction is the model output for one interval.
type Prediction struct {
	Volume     int
	Confidence float64
}

// Predictor is a multiplicative traffic-volume model. It is not trained; each
// factor is a fixed table lookup applied to a base volume.
type Predictor struct {
	BaseVolume float64
	MinVolume  int
	Variation  float64 // relative standard deviation of the noise term
	Weather    map[string]float64
	RoadTypes  map[string]float64
	EventBoost float64
}

// DefaultPredictor returns the model tuned for the monitored road network.
func DefaultPredictor() Predictor {
	return Predictor{
		BaseVolume: 200,
		MinVolume:  50,
		Variation:  0.1,
		Weather: map[string]float64{
			"clear":  1.0,
			"cloudy": 0.95,
			"rainy":  0.75,
			"snowy":  0.5,
			"foggy":  0.65,
		},
		RoadTypes: map[string]float64{
			"highway":  1.5,
			"urban":    1.2,
			"suburban": 1.0,
			"rural":    0.7,
		},
		EventBoost: 1.3,
	}
}

// PredictVolume applies the model to f. z is a standard normal sample used for
// the variation term; pass 0 for the noiseless estimate.
func (p Predictor) PredictVolume(f Features, z float64) Prediction {
	weather := strings.ToLower(f.Weather)

	volume := p.BaseVolume *
		hourMultiplier(f.Hour) *
		dayMultiplier(f.Weekday) *
		lookup(p.Weather, weather) *
		temperatureMultiplier(f.Temperature) *
		lookup(p.RoadTypes, strings.ToLower(f.RoadType))
	if f.SpecialEvents {
		volume *= p.EventBoost
	}

	estimate := int(volume)
	adjusted := int(float64(estimate) + z*float64(estimate)*p.Variation)
	if adjusted < p.MinVolume {
		adjusted = p.MinVolume
	}

	return Prediction{
		Volume:     adjusted,
		Confidence: confidence(f.Hour, f.Weekday, weather),
	}
}

func hourMultiplier(hour int) float64 {
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19):
		return 1.8
	case hour >= 10 && hour <= 16:
		return 1.2
	case hour >= 20 && hour <= 22:
		return 1.1
	default:
		return 0.6
	}
}

func dayMultiplier(day time.Weekday) float64 {
	switch day {
	case time.Friday:
		return 1.5
	case time.Saturday, time.Sunday:
		return 0.8
	default:
		return 1.3
	}
}

// temperatureMultiplier is flat between -10 and 30 °C and falls off outside it.
func temperatureMultiplier(t float64) float64 {
	switch {
	case t >= -10 && t <= 30:
		return 1.0
	case t > 30:
		return 0.9 - (t-30)*0.01
	default:
		return 0.9 - (-10-t)*0.02
	}
}

func confidence(hour int, day time.Weekday, weather string) float64 {
	timeScore := 0.7
	if hour >= 6 && hour <= 22 {
		timeScore = 0.9
	}
	dayScore := 0.75
	if day >= time.Monday && day <= time.Friday {
		dayScore = 0.85
	}
	weatherScore := 0.6
	if weather == "clear" || weather == "cloudy" {
		weatherScore = 0.8
	}
	return (timeScore + dayScore + weatherScore) / 3
}

func lookup(table map[string]float64, key string) float64 {
	if v, ok := table[key]; ok {
		return v
	}
	return 1.0
}
