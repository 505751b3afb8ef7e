// Package thermo holds the physical constants and the small numerical kernels
// shared by the dissociation engine: the Debye-Hückel activity term, the
// Legendre-transform potentials and a stable log-sum-exp.
//
// Units: energies in kJ/mol, temperature in K, ionic strength in M.
package thermo

import "math"

const (
	// R is the gas constant in kJ/(K·mol).
	R = 8.31e-3

	// MgFormationEnergy is ΔGf of Mg²⁺ in kJ/mol.
	MgFormationEnergy = -455.3

	// DefaultT is the reference temperature in K.
	DefaultT = 298.15

	// DefaultPH, DefaultI and DefaultPMg describe the reference aqueous condition.
	DefaultPH  = 7.0
	DefaultI   = 0.1
	DefaultPMg = 14.0
)

// Ln10 is ln(10).
var Ln10 = math.Ln10

// RTLn10 returns R·T·ln(10), the energy of one pK unit at temperature T.
func RTLn10(T float64) float64 {
	return R * T * Ln10
}

// Conditions is an aqueous condition at which transformed energies are evaluated.
type Conditions struct {
	PH  float64 `json:"pH" mapstructure:"ph"`
	I   float64 `json:"I" mapstructure:"ionic_strength"`
	PMg float64 `json:"pMg" mapstructure:"pmg"`
	T   float64 `json:"T" mapstructure:"temperature"`
}

// DefaultConditions returns pH 7, I 0.1 M, pMg 14 at 298.15 K.
func DefaultConditions() Conditions {
	return Conditions{PH: DefaultPH, I: DefaultI, PMg: DefaultPMg, T: DefaultT}
}

// Validate reports whether the condition is physically meaningful.
func (c Conditions) Validate() error {
	switch {
	case c.T <= 0 || math.IsNaN(c.T) || math.IsInf(c.T, 0):
		return errInvalidCondition("temperature must be positive", c)
	case c.I < 0 || math.IsNaN(c.I) || math.IsInf(c.I, 0):
		return errInvalidCondition("ionic strength must be non-negative", c)
	case math.IsNaN(c.PH) || math.IsInf(c.PH, 0):
		return errInvalidCondition("pH must be finite", c)
	case math.IsNaN(c.PMg) || math.IsInf(c.PMg, 0):
		return errInvalidCondition("pMg must be finite", c)
	}
	return nil
}

//Personal.AI order the ending
