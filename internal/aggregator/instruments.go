package aggregator

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Setpoint is a nominal instrument value with Gaussian spread
type Setpoint struct {
	Mean   float64
	StdDev float64
	Digits int // rounding precision
}

// InstrumentConfig holds the setpoints of the synthetic line instruments
type InstrumentConfig struct {
	Temperature Setpoint // °C
	Pressure    Setpoint // hPa
	Humidity    Setpoint // %
	Vibration   Setpoint
	Voltage     Setpoint // V
	Current     Setpoint // A

	// Extended adds vibration, voltage and current to every reading
	Extended bool
}

// DefaultInstrumentConfig returns the nominal setpoints of the inspection line
func DefaultInstrumentConfig() InstrumentConfig {
	return InstrumentConfig{
		Temperature: Setpoint{Mean: 20, StdDev: 5, Digits: 1},
		Pressure:    Setpoint{Mean: 1000, StdDev: 50, Digits: 0},
		Humidity:    Setpoint{Mean: 50, StdDev: 15, Digits: 1},
		Vibration:   Setpoint{Mean: 0, StdDev: 0.5, Digits: 3},
		Voltage:     Setpoint{Mean: 220, StdDev: 10, Digits: 1},
		Current:     Setpoint{Mean: 5, StdDev: 1, Digits: 2},
	}
}

// Readings is one set of synthetic instrument values.
// The optional readings are nil unless the config is Extended.
type Readings struct {
	Temperature float64
	Pressure    float64
	Humidity    float64
	Vibration   *float64
	Voltage     *float64
	Current     *float64
}

// Instruments draws display-only readings. They never depend on the model or the sample.
type Instruments struct {
	config InstrumentConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInstruments creates a generator seeded from the clock
func NewInstruments(config InstrumentConfig) *Instruments {
	return NewInstrumentsWithSource(config, rand.NewSource(time.Now().UnixNano()))
}

// NewInstrumentsWithSource creates a generator with an explicit random source
func NewInstrumentsWithSource(config InstrumentConfig, src rand.Source) *Instruments {
	return &Instruments{config: config, rng: rand.New(src)}
}

// Read draws a new set of readings
func (in *Instruments) Read() Readings {
	in.mu.Lock()
	defer in.mu.Unlock()

	r := Readings{
		Temperature: in.draw(in.config.Temperature),
		Pressure:    in.draw(in.config.Pressure),
		Humidity:    in.draw(in.config.Humidity),
	}
	if in.config.Extended {
		vibration := in.draw(in.config.Vibration)
		voltage := in.draw(in.config.Voltage)
		current := in.draw(in.config.Current)
		r.Vibration = &vibration
		r.Voltage = &voltage
		r.Current = &current
	}
	return r
}

func (in *Instruments) draw(sp Setpoint) float64 {
	return round(sp.Mean+in.rng.NormFloat64()*sp.StdDev, sp.Digits)
}

func round(x float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(x*scale) / scale
}
