package compat

import (
	"testing"

	"github.com/lifelink/donor-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canDonateGrid is the full 8x8 donation matrix, donor rows x recipient
// columns, in model.AllBloodGroups order (O-, O+, A-, A+, B-, B+, AB-, AB+).
var canDonateGrid = map[model.BloodGroup][8]bool{
	model.BloodGroupONeg:  {true, true, true, true, true, true, true, true},
	model.BloodGroupOPos:  {false, true, false, true, false, true, false, true},
	model.BloodGroupANeg:  {false, false, true, true, false, false, true, true},
	model.BloodGroupAPos:  {false, false, false, true, false, false, false, true},
	model.BloodGroupBNeg:  {false, false, false, false, true, true, true, true},
	model.BloodGroupBPos:  {false, false, false, false, false, true, false, true},
	model.BloodGroupABNeg: {false, false, false, false, false, false, true, true},
	model.BloodGroupABPos: {false, false, false, false, false, false, false, true},
}

func TestCanDonate_FullGrid(t *testing.T) {
	for donor, row := range canDonateGrid {
		for i, recipient := range model.AllBloodGroups {
			got := CanDonate(donor, recipient)
			assert.Equalf(t, row[i], got, "donor %s -> recipient %s", donor, recipient)
		}
	}
}

func TestCompatibleRecipients(t *testing.T) {
	t.Run("O- is universal donor", func(t *testing.T) {
		assert.ElementsMatch(t, model.AllBloodGroups, CompatibleRecipients(model.BloodGroupONeg))
	})

	t.Run("AB+ may only give to AB+", func(t *testing.T) {
		assert.Equal(t, []model.BloodGroup{model.BloodGroupABPos}, CompatibleRecipients(model.BloodGroupABPos))
	})

	t.Run("Rh positive never reaches Rh negative", func(t *testing.T) {
		for _, donor := range []model.BloodGroup{model.BloodGroupOPos, model.BloodGroupAPos, model.BloodGroupBPos, model.BloodGroupABPos} {
			for _, r := range CompatibleRecipients(donor) {
				_, rhPos := split(r)
				assert.Truef(t, rhPos, "donor %s must not reach %s", donor, r)
			}
		}
	})
}

func TestCompatibleDonors(t *testing.T) {
	t.Run("AB+ is universal recipient", func(t *testing.T) {
		assert.ElementsMatch(t, model.AllBloodGroups, CompatibleDonors(model.BloodGroupABPos))
	})

	t.Run("O- accepts only O-", func(t *testing.T) {
		assert.Equal(t, []model.BloodGroup{model.BloodGroupONeg}, CompatibleDonors(model.BloodGroupONeg))
	})

	t.Run("O- donor is compatible with every recipient", func(t *testing.T) {
		for _, g := range model.AllBloodGroups {
			donors := CompatibleDonors(g)
			require.NotEmpty(t, donors)
			assert.Containsf(t, donors, model.BloodGroupONeg, "recipient %s", g)
		}
	})

	t.Run("inverse of CompatibleRecipients", func(t *testing.T) {
		for _, d := range model.AllBloodGroups {
			for _, r := range model.AllBloodGroups {
				forward := CanDonate(d, r)
				assert.Equal(t, forward, contains(CompatibleDonors(r), d))
				assert.Equal(t, forward, contains(CompatibleRecipients(d), r))
			}
		}
	})
}

func contains(groups []model.BloodGroup, g model.BloodGroup) bool {
	for _, v := range groups {
		if v == g {
			return true
		}
	}
	return false
}
