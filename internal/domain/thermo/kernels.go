package thermo

import (
	"fmt"
	"math"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

// DebyeHuckel returns the extended Debye-Hückel term 2.91482·√I / (1 + 1.6·√I)
// in kJ/mol at ionic strength I.
func DebyeHuckel(I float64) float64 {
	sqrtI := math.Sqrt(I)
	return 2.91482 * sqrtI / (1 + 1.6*sqrtI)
}

// ProtonPotential is the Legendre term per bound proton: R·T·ln10·pH + DH(I).
func ProtonPotential(c Conditions) float64 {
	return RTLn10(c.T)*c.PH + DebyeHuckel(c.I)
}

// MagnesiumPotential is the Legendre term per bound Mg²⁺: R·T·ln10·pMg − ΔGf(Mg²⁺).
func MagnesiumPotential(c Conditions) float64 {
	return RTLn10(c.T)*c.PMg - MgFormationEnergy
}

// LegendreTransform returns the transformed energy of a single microstate:
//
//	dG0' = dG0 + nMg·(R·T·ln10·pMg − ΔGf(Mg)) + nH·(R·T·ln10·pH + DH) − z²·DH
func LegendreTransform(dG0 float64, nH, z, nMg int, c Conditions) float64 {
	dh := DebyeHuckel(c.I)
	return dG0 +
		float64(nMg)*MagnesiumPotential(c) +
		float64(nH)*(RTLn10(c.T)*c.PH+dh) -
		float64(z*z)*dh
}

// LogSumExp returns log(Σ exp(x_i)) without overflow. An empty input yields -Inf.
func LogSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, 0) {
		return max
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}

// EnsembleEnergy aggregates microstate energies into the Boltzmann-weighted
// ensemble energy −R·T·log Σ exp(dG0'_i / (−R·T)).
func EnsembleEnergy(dG0s []float64, T float64) float64 {
	scaled := make([]float64, len(dG0s))
	for i, g := range dG0s {
		scaled[i] = g / (-R * T)
	}
	return -R * T * LogSumExp(scaled)
}

// PKaFromEdge inverts a stored proton-binding energy back to a pKa.
func PKaFromEdge(ddG0, T float64) float64 {
	return -ddG0 / RTLn10(T)
}

// PKMgFromEdge inverts a stored Mg-binding energy back to a pKMg.
func PKMgFromEdge(ddG0, T float64) float64 {
	return (-ddG0 + MgFormationEnergy) / RTLn10(T)
}

func errInvalidCondition(msg string, c Conditions) error {
	return errors.New(errors.ErrCodeValidation, msg).
		WithDetail(fmt.Sprintf("pH=%g I=%g pMg=%g T=%g", c.PH, c.I, c.PMg, c.T))
}

//Personal.AI order the ending
