// Package dissociation implements the pseudoisomer dissociation network of a
// compound and the Legendre transform built on it.
//
// A DissociationTable records the acid-base (pKa) and magnesium-binding (pKMg)
// equilibria of one compound as unit edges between microstates, together with
// the reference ("minimal") microstate: the lowest hydrogen count without
// magnesium, its charge and its formation energy. From these the table
// converts formation energies between any two microstates and computes
// transformed energies at a given pH, ionic strength, pMg and temperature.
//
// A Registry owns the tables of many compounds and transforms whole reactions.
package dissociation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

// CID is a compound identifier in the KEGG numbering (C00002 is ATP).
type CID int

// String renders the identifier as C%05d.
func (c CID) String() string {
	return fmt.Sprintf("C%05d", int(c))
}

// ParseCID accepts "C00002", "c2" or "2".
func ParseCID(s string) (CID, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimLeft(s, "Cc")
	if digits == "" || len(s)-len(digits) > 1 {
		return 0, errors.InvalidParam("invalid compound id").WithDetail("cid=" + s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, errors.InvalidParam("invalid compound id").WithDetail("cid=" + s)
	}
	return CID(n), nil
}

// Microstate identifies a pseudoisomer within one compound.
type Microstate struct {
	NH  int `json:"nH"`
	NMg int `json:"nMg"`
}

func (m Microstate) String() string {
	return fmt.Sprintf("nH=%d nMg=%d", m.NH, m.NMg)
}

// PseudoisomerEntry is one microstate of a compound with its chemical
// formation energy. Entries derived from another entry are always clones.
type PseudoisomerEntry struct {
	CID        CID     `json:"cid"`
	Name       string  `json:"name,omitempty"`
	NetCharge  int     `json:"z"`
	Hydrogens  int     `json:"nH"`
	Magnesiums int     `json:"nMg"`
	SMILES     string  `json:"smiles,omitempty"`
	DG0        float64 `json:"dG0"`
	Ref        string  `json:"ref,omitempty"`
}

// Clone returns an independent copy of e.
func (e *PseudoisomerEntry) Clone() *PseudoisomerEntry {
	c := *e
	return &c
}

// Microstate returns the (nH, nMg) pair of e.
func (e *PseudoisomerEntry) Microstate() Microstate {
	return Microstate{NH: e.Hydrogens, NMg: e.Magnesiums}
}

func (e *PseudoisomerEntry) String() string {
	return fmt.Sprintf("%s nH=%d z=%d nMg=%d dG0=%.1f", e.CID, e.Hydrogens, e.NetCharge, e.Magnesiums, e.DG0)
}

//Personal.AI order the ending
