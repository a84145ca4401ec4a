package ports

import (
	"math/rand"

	"gobayes/domain/core"
)

// SeedSource hands every study its own reproducible seed so that studies run
// concurrently never share a random stream
type SeedSource interface {
	StudySeed(study string) int64
}

// DerivedSeeds derives study seeds from one base seed and the study name
type DerivedSeeds struct {
	Base int64
}

func (d DerivedSeeds) StudySeed(study string) int64 {
	return core.DeriveSeed(d.Base, study)
}

// Stream returns a private generator for the study
func Stream(src SeedSource, study string) *rand.Rand {
	return rand.New(rand.NewSource(src.StudySeed(study)))
}
