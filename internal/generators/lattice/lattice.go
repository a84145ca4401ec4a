// Package lattice runs a two-lattice kinetic Monte Carlo model of surface
// discoloration under low- and high-energy formation mechanisms.
package lattice

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"gobayes/internal/errors"
)

// Cell states
const (
	Untouched   uint8 = 0
	Chromophore uint8 = 1
	Scorched    uint8 = 2
)

// checkEvery is the step interval between context checks
const checkEvery = 1 << 16

// Grid is a square lattice of cell states owned by one simulation run
type Grid struct {
	size  int
	cells []uint8
}

// NewGrid allocates an untouched size×size grid
func NewGrid(size int) *Grid {
	return &Grid{size: size, cells: make([]uint8, size*size)}
}

func (g *Grid) Size() int { return g.size }

func (g *Grid) At(i, j int) uint8 { return g.cells[i*g.size+j] }

// Fraction returns the share of cells in state
func (g *Grid) Fraction(state uint8) float64 {
	if len(g.cells) == 0 {
		return 0
	}
	n := 0
	for _, c := range g.cells {
		if c == state {
			n++
		}
	}
	return float64(n) / float64(len(g.cells))
}

// Arrhenius holds the constants of k = A·exp(−Ea/RT)
type Arrhenius struct {
	A      float64 `json:"a" yaml:"a"`
	R      float64 `json:"r" yaml:"r"`
	T      float64 `json:"t" yaml:"t"`
	EaLow  float64 `json:"ea_low_kj" yaml:"ea_low_kj"`
	EaHigh float64 `json:"ea_high_kj" yaml:"ea_high_kj"`
}

// Rate returns the Arrhenius rate for an activation energy in kJ/mol
func (a Arrhenius) Rate(eaKJ float64) float64 {
	return a.A * math.Exp(-eaKJ*1000/(a.R*a.T))
}

// Config parameterises one simulation
type Config struct {
	Size      int       `json:"size" yaml:"size"`
	Steps     int       `json:"steps" yaml:"steps"`
	PLow      float64   `json:"p_low" yaml:"p_low"`
	PHigh     float64   `json:"p_high" yaml:"p_high"`
	CoefLow   float64   `json:"coef_low" yaml:"coef_low"`
	CoefHigh  float64   `json:"coef_high" yaml:"coef_high"`
	Arrhenius Arrhenius `json:"arrhenius" yaml:"arrhenius"`
}

// DefaultConfig is the 500×500, 10⁶-step setup at 300 K
func DefaultConfig() Config {
	return Config{
		Size:     500,
		Steps:    1_000_000,
		PLow:     0.004,
		PHigh:    1e-6,
		CoefLow:  0.8,
		CoefHigh: 0.2,
		Arrhenius: Arrhenius{
			A:      1e13,
			R:      8.314,
			T:      300,
			EaLow:  65,
			EaHigh: 175,
		},
	}
}

// Validate rejects configurations that cannot be simulated
func (c Config) Validate() error {
	switch {
	case c.Size <= 0:
		return errors.InvalidInput(fmt.Sprintf("lattice size must be positive, got %d", c.Size))
	case c.Steps < 0:
		return errors.InvalidInput(fmt.Sprintf("step count must be non-negative, got %d", c.Steps))
	case c.PLow < 0 || c.PLow > 1 || c.PHigh < 0 || c.PHigh > 1:
		return errors.InvalidInput(fmt.Sprintf("flip probabilities must be in [0,1], got %v and %v", c.PLow, c.PHigh))
	}
	return nil
}

// Result summarises a finished run; the grids themselves are discarded
type Result struct {
	Steps           int     `json:"steps"`
	FractionLow     float64 `json:"fraction_chromophore_low"`
	FractionHigh    float64 `json:"fraction_scorched_high"`
	ReflectanceLow  float64 `json:"reflectance_low"`
	ReflectanceHigh float64 `json:"reflectance_high"`
	RateLow         float64 `json:"rate_low"`
	RateHigh        float64 `json:"rate_high"`
}

// Simulate advances both lattices in lockstep: every step draws one cell
// shared by the two lattices, then each lattice draws its own uniform to
// decide whether an untouched cell flips. A fixed-seed rng gives identical
// results; the context is checked every 65536 steps.
func Simulate(ctx context.Context, cfg Config, rng *rand.Rand) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	low, high := NewGrid(cfg.Size), NewGrid(cfg.Size)

	for step := 0; step < cfg.Steps; step++ {
		if step%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		idx := rng.Intn(cfg.Size)*cfg.Size + rng.Intn(cfg.Size)
		if low.cells[idx] == Untouched && rng.Float64() < cfg.PLow {
			low.cells[idx] = Chromophore
		}
		if high.cells[idx] == Untouched && rng.Float64() < cfg.PHigh {
			high.cells[idx] = Scorched
		}
	}

	fLow := low.Fraction(Chromophore)
	fHigh := high.Fraction(Scorched)

	return Result{
		Steps:           cfg.Steps,
		FractionLow:     fLow,
		FractionHigh:    fHigh,
		ReflectanceLow:  Reflectance(fLow, cfg.CoefLow),
		ReflectanceHigh: Reflectance(fHigh, cfg.CoefHigh),
		RateLow:         cfg.Arrhenius.Rate(cfg.Arrhenius.EaLow),
		RateHigh:        cfg.Arrhenius.Rate(cfg.Arrhenius.EaHigh),
	}, nil
}

// Reflectance mixes pristine cells (reflectance 1) with active cells
func Reflectance(activeFraction, coef float64) float64 {
	return (1-activeFraction)*1.0 + activeFraction*coef
}
