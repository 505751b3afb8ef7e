// Package molecule provides the structure model used to seed pseudoisomer
// tables: a SMILES string reduced to the two quantities the dissociation
// engine needs, the number of hydrogen atoms and the net charge.
package molecule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Molecule
// ─────────────────────────────────────────────────────────────────────────────

// Atom is one heavy or explicit-hydrogen atom of a parsed structure.
type Atom struct {
	Symbol   string `json:"symbol"`
	Aromatic bool   `json:"aromatic,omitempty"`
	Charge   int    `json:"charge,omitempty"`

	// Hydrogens is the number of hydrogens attached to this atom, explicit
	// for bracket atoms and implied by valence for the organic subset.
	Hydrogens int `json:"hydrogens"`

	bracket bool
	bonds   int
}

// Molecule is a parsed structure of one pseudoisomer.
type Molecule struct {
	SMILES string `json:"smiles"`
	Atoms  []Atom `json:"atoms"`
}

var (
	// validSMILESChars is a cheap prefilter before the parser runs.
	validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#$:/\\%.*]+$`)
)

// FromSMILES parses smiles into a Molecule.
// Errors carry ErrCodeInvalidSMILES or ErrCodeUnknownAtom and the offending input.
func FromSMILES(smiles string) (*Molecule, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "SMILES string cannot be empty")
	}
	if !validSMILESChars.MatchString(smiles) {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "SMILES contains invalid characters").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}
	if err := validateBrackets(smiles); err != nil {
		return nil, err
	}

	atoms, err := parse(smiles)
	if err != nil {
		return nil, err
	}
	return &Molecule{SMILES: smiles, Atoms: atoms}, nil
}

// NumHydrogens returns the total number of hydrogen atoms, counting explicit
// [H] atoms, bracket hydrogen counts and implicit hydrogens.
func (m *Molecule) NumHydrogens() int {
	n := 0
	for _, a := range m.Atoms {
		if a.Symbol == "H" {
			n++
		}
		n += a.Hydrogens
	}
	return n
}

// NetCharge returns the sum of formal charges.
func (m *Molecule) NetCharge() int {
	z := 0
	for _, a := range m.Atoms {
		z += a.Charge
	}
	return z
}

// HydrogensAndCharge returns NumHydrogens and NetCharge together.
func (m *Molecule) HydrogensAndCharge() (nH, z int) {
	return m.NumHydrogens(), m.NetCharge()
}

// NumMagnesiums counts Mg atoms.
func (m *Molecule) NumMagnesiums() int {
	n := 0
	for _, a := range m.Atoms {
		if a.Symbol == "Mg" {
			n++
		}
	}
	return n
}

// String returns the SMILES the molecule was parsed from.
func (m *Molecule) String() string {
	return m.SMILES
}

// validateBrackets checks that () and [] are balanced and properly nested.
func validateBrackets(smiles string) error {
	var stack []rune
	closers := map[rune]rune{')': '(', ']': '['}

	for _, ch := range smiles {
		switch ch {
		case '(', '[':
			stack = append(stack, ch)
		case ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != closers[ch] {
				return errors.New(errors.ErrCodeInvalidSMILES, "unmatched brackets in SMILES").
					WithDetail(fmt.Sprintf("smiles=%s", smiles))
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return errors.New(errors.ErrCodeInvalidSMILES, "unclosed brackets in SMILES").
			WithDetail(fmt.Sprintf("smiles=%s", smiles))
	}
	return nil
}

//Personal.AI order the ending
