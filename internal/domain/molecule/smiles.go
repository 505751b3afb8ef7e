package molecule

import (
	"fmt"
	"strconv"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

// organicValences lists the allowed valences of organic-subset atoms in the
// order used to derive implicit hydrogens.
var organicValences = map[string][]int{
	"B": {3}, "C": {4}, "N": {3, 5}, "O": {2}, "P": {3, 5}, "S": {2, 4, 6},
	"F": {1}, "Cl": {1}, "Br": {1}, "I": {1},
}

var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S", "se": "Se", "as": "As",
}

// elements accepted inside bracket atoms.
var elements = map[string]bool{
	"H": true, "He": true, "Li": true, "Be": true, "B": true, "C": true, "N": true, "O": true,
	"F": true, "Ne": true, "Na": true, "Mg": true, "Al": true, "Si": true, "P": true, "S": true,
	"Cl": true, "Ar": true, "K": true, "Ca": true, "Sc": true, "Ti": true, "V": true, "Cr": true,
	"Mn": true, "Fe": true, "Co": true, "Ni": true, "Cu": true, "Zn": true, "Ga": true, "Ge": true,
	"As": true, "Se": true, "Br": true, "Kr": true, "Rb": true, "Sr": true, "Mo": true, "Ag": true,
	"Cd": true, "Sn": true, "Sb": true, "Te": true, "I": true, "Xe": true, "Cs": true, "Ba": true,
	"W": true, "Pt": true, "Au": true, "Hg": true, "Pb": true, "Bi": true,
}

var bondOrders = map[byte]int{'-': 1, '=': 2, '#': 3, '$': 4, ':': 1, '/': 1, '\\': 1}

type ringBond struct {
	atom  int
	order int
}

// parser walks a SMILES string once, building atoms and accumulating the
// bond-order sum of each atom.
type parser struct {
	s        string
	pos      int
	atoms    []Atom
	prev     int
	branches []int
	pending  int
	rings    map[int]ringBond
}

func parse(s string) ([]Atom, error) {
	p := &parser{s: s, prev: -1, rings: make(map[int]ringBond)}

	for p.pos < len(p.s) {
		ch := p.s[p.pos]
		var err error
		switch {
		case ch == '(':
			if p.prev < 0 {
				return nil, p.errorf("branch without a preceding atom")
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case ch == ')':
			if len(p.branches) == 0 {
				return nil, p.errorf("unmatched ')'")
			}
			if p.pending != 0 {
				return nil, p.errorf("bond before ')'")
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case ch == '.':
			if p.pending != 0 {
				return nil, p.errorf("bond before '.'")
			}
			p.prev = -1
			p.pos++
		case bondOrders[ch] != 0:
			if p.pending != 0 {
				return nil, p.errorf("consecutive bond symbols")
			}
			if p.prev < 0 {
				return nil, p.errorf("bond without a preceding atom")
			}
			p.pending = bondOrders[ch]
			p.pos++
		case ch == '%' || (ch >= '0' && ch <= '9'):
			err = p.ringClosure()
		case ch == '[':
			err = p.bracketAtom()
		default:
			err = p.organicAtom()
		}
		if err != nil {
			return nil, err
		}
	}

	switch {
	case p.pending != 0:
		return nil, p.errorf("dangling bond at end of SMILES")
	case len(p.rings) > 0:
		return nil, p.errorf("unclosed ring bond")
	case len(p.branches) > 0:
		return nil, p.errorf("unclosed branch")
	case len(p.atoms) == 0:
		return nil, p.errorf("no atoms")
	}

	for i := range p.atoms {
		a := &p.atoms[i]
		if !a.bracket {
			a.Hydrogens = implicitHydrogens(a)
		}
	}
	return p.atoms, nil
}

func implicitHydrogens(a *Atom) int {
	valences, ok := organicValences[a.Symbol]
	if !ok {
		return 0
	}
	used := a.bonds
	if a.Aromatic {
		used++
	}
	for _, v := range valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}

func (p *parser) addAtom(a Atom) {
	idx := len(p.atoms)
	if p.prev >= 0 {
		order := p.pending
		if order == 0 {
			order = 1
		}
		p.atoms[p.prev].bonds += order
		a.bonds += order
	}
	p.atoms = append(p.atoms, a)
	p.pending = 0
	p.prev = idx
}

func (p *parser) organicAtom() error {
	rest := p.s[p.pos:]
	if len(rest) >= 2 && (rest[:2] == "Cl" || rest[:2] == "Br") {
		p.addAtom(Atom{Symbol: rest[:2]})
		p.pos += 2
		return nil
	}
	sym := rest[:1]
	switch {
	case sym == "*":
		p.addAtom(Atom{Symbol: "*", bracket: true})
	case organicValences[sym] != nil:
		p.addAtom(Atom{Symbol: sym})
	case aromaticSymbols[sym] != "" && len(sym) == 1:
		p.addAtom(Atom{Symbol: aromaticSymbols[sym], Aromatic: true})
	default:
		return errors.New(errors.ErrCodeUnknownAtom, "atom outside the organic subset must be bracketed").
			WithDetail(fmt.Sprintf("smiles=%s pos=%d symbol=%s", p.s, p.pos, sym))
	}
	p.pos++
	return nil
}

func (p *parser) ringClosure() error {
	if p.prev < 0 {
		return p.errorf("ring bond without a preceding atom")
	}
	var num int
	if p.s[p.pos] == '%' {
		if p.pos+2 >= len(p.s) || !isDigit(p.s[p.pos+1]) || !isDigit(p.s[p.pos+2]) {
			return p.errorf("'%' must be followed by two digits")
		}
		num, _ = strconv.Atoi(p.s[p.pos+1 : p.pos+3])
		p.pos += 3
	} else {
		num = int(p.s[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringBond{atom: p.prev, order: p.pending}
		p.pending = 0
		return nil
	}
	if open.atom == p.prev {
		return p.errorf("ring bond to the same atom")
	}
	order := p.pending
	if order == 0 {
		order = open.order
	}
	if order == 0 {
		order = 1
	}
	p.atoms[open.atom].bonds += order
	p.atoms[p.prev].bonds += order
	delete(p.rings, num)
	p.pending = 0
	return nil
}

// bracketAtom parses [isotope? symbol chiral? hcount? charge? class?].
func (p *parser) bracketAtom() error {
	start := p.pos
	p.pos++ // '['

	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		p.pos++
	}

	a := Atom{bracket: true}
	switch {
	case p.pos+1 < len(p.s) && aromaticSymbols[p.s[p.pos:p.pos+2]] != "":
		a.Symbol, a.Aromatic = aromaticSymbols[p.s[p.pos:p.pos+2]], true
		p.pos += 2
	case p.pos < len(p.s) && isUpper(p.s[p.pos]):
		if p.pos+1 < len(p.s) && isLower(p.s[p.pos+1]) && elements[p.s[p.pos:p.pos+2]] {
			a.Symbol = p.s[p.pos : p.pos+2]
			p.pos += 2
		} else {
			a.Symbol = p.s[p.pos : p.pos+1]
			p.pos++
		}
		if !elements[a.Symbol] {
			return errors.New(errors.ErrCodeUnknownAtom, "unknown element").
				WithDetail(fmt.Sprintf("smiles=%s symbol=%s", p.s, a.Symbol))
		}
	case p.pos < len(p.s) && aromaticSymbols[p.s[p.pos:p.pos+1]] != "":
		a.Symbol, a.Aromatic = aromaticSymbols[p.s[p.pos:p.pos+1]], true
		p.pos++
	case p.pos < len(p.s) && p.s[p.pos] == '*':
		a.Symbol = "*"
		p.pos++
	default:
		return p.errorf("bracket atom without an element symbol")
	}

	p.skipChirality()

	if p.pos < len(p.s) && p.s[p.pos] == 'H' {
		p.pos++
		a.Hydrogens = 1
		if n, ok := p.readInt(); ok {
			a.Hydrogens = n
		}
	}

	if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
		sign := 1
		if p.s[p.pos] == '-' {
			sign = -1
		}
		sym := p.s[p.pos]
		p.pos++
		if n, ok := p.readInt(); ok {
			a.Charge = sign * n
		} else {
			a.Charge = sign
			for p.pos < len(p.s) && p.s[p.pos] == sym {
				a.Charge += sign
				p.pos++
			}
		}
	}

	if p.pos < len(p.s) && p.s[p.pos] == ':' {
		p.pos++
		if _, ok := p.readInt(); !ok {
			return p.errorf("atom class must be numeric")
		}
	}

	if p.pos >= len(p.s) || p.s[p.pos] != ']' {
		p.pos = start
		return p.errorf("malformed bracket atom")
	}
	p.pos++
	p.addAtom(a)
	return nil
}

func (p *parser) skipChirality() {
	if p.pos >= len(p.s) || p.s[p.pos] != '@' {
		return
	}
	p.pos++
	if p.pos < len(p.s) && p.s[p.pos] == '@' {
		p.pos++
		return
	}
	if p.pos+1 < len(p.s) {
		switch p.s[p.pos : p.pos+2] {
		case "TH", "AL", "SP", "TB", "OH":
			p.pos += 2
			p.readInt()
		}
	}
}

func (p *parser) readInt() (int, bool) {
	start := p.pos
	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return 0, false
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	return n, err == nil
}

func (p *parser) errorf(msg string) error {
	return errors.New(errors.ErrCodeInvalidSMILES, msg).
		WithDetail(fmt.Sprintf("smiles=%s pos=%d", p.s, p.pos))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

//Personal.AI order the ending
