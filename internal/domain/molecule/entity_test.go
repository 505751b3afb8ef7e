package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasmincar/milo-lab/pkg/errors"
)

func TestFromSMILES_HydrogensAndCharge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		smiles string
		nH     int
		z      int
	}{
		{"water", "O", 2, 0},
		{"methane", "C", 4, 0},
		{"ammonia", "N", 3, 0},
		{"ammonium", "[NH4+]", 4, 1},
		{"acetic acid", "CC(=O)O", 4, 0},
		{"acetate", "CC(=O)[O-]", 3, -1},
		{"hydrogen phosphate", "OP(=O)([O-])[O-]", 1, -2},
		{"phosphoric acid", "OP(O)(O)=O", 3, 0},
		{"benzene", "c1ccccc1", 6, 0},
		{"pyridine", "c1ccncc1", 5, 0},
		{"pyrrole", "c1cc[nH]c1", 5, 0},
		{"naphthalene", "c1ccc2ccccc2c1", 8, 0},
		{"cyclopropane", "C1CC1", 6, 0},
		{"ethene ring bond order", "C=1CCCCC1", 10, 0},
		{"magnesium ion", "[Mg+2]", 0, 2},
		{"double plus", "[Fe++]", 0, 2},
		{"explicit hydrogens", "[H][H]", 2, 0},
		{"proton", "[H+]", 1, 1},
		{"chiral centre", "N[C@@H](C)C(=O)O", 7, 0},
		{"isotope", "[13CH4]", 4, 0},
		{"salt", "[Na+].[Cl-]", 0, 0},
		{"chloromethane", "CCl", 3, 0},
		{"nitro group", "C[N+](=O)[O-]", 3, 0},
		{"percent ring", "C%10CC%10", 6, 0},
		{"glycine zwitterion", "[NH3+]CC([O-])=O", 5, 0},
		{"pyruvate", "CC(=O)C([O-])=O", 3, -1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mol, err := FromSMILES(tc.smiles)
			require.NoError(t, err)
			nH, z := mol.HydrogensAndCharge()
			assert.Equal(t, tc.nH, nH, "hydrogens")
			assert.Equal(t, tc.z, z, "charge")
			assert.Equal(t, tc.smiles, mol.String())
		})
	}
}

func TestFromSMILES_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		smiles string
		code   errors.ErrorCode
	}{
		{"empty", "  ", errors.ErrCodeInvalidSMILES},
		{"bad chars", "C C", errors.ErrCodeInvalidSMILES},
		{"unclosed branch", "CC(C", errors.ErrCodeInvalidSMILES},
		{"unmatched paren", "CC)C", errors.ErrCodeInvalidSMILES},
		{"unclosed bracket", "C[NH4+", errors.ErrCodeInvalidSMILES},
		{"unclosed ring", "C1CC", errors.ErrCodeInvalidSMILES},
		{"dangling bond", "CC=", errors.ErrCodeInvalidSMILES},
		{"leading bond", "=CC", errors.ErrCodeInvalidSMILES},
		{"double bond symbols", "C=#C", errors.ErrCodeInvalidSMILES},
		{"branch first", "(C)C", errors.ErrCodeInvalidSMILES},
		{"unbracketed metal", "CMg", errors.ErrCodeUnknownAtom},
		{"unknown element", "[Xx]", errors.ErrCodeUnknownAtom},
		{"empty bracket", "[]", errors.ErrCodeInvalidSMILES},
		{"bad percent", "C%1", errors.ErrCodeInvalidSMILES},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mol, err := FromSMILES(tc.smiles)
			assert.Nil(t, mol)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "got %v", err)
			assert.True(t, errors.IsClientError(errors.GetCode(err)))
		})
	}
}

func TestMolecule_NumMagnesiums(t *testing.T) {
	t.Parallel()

	mol, err := FromSMILES("[Mg+2].OP(=O)([O-])[O-]")
	require.NoError(t, err)
	assert.Equal(t, 1, mol.NumMagnesiums())
	assert.Equal(t, 0, mol.NetCharge())
}

func TestValidateBrackets(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateBrackets("C(C)[O-]"))
	assert.Error(t, validateBrackets("C(]"))
	assert.Error(t, validateBrackets("C(("))
}

//Personal.AI order the ending
