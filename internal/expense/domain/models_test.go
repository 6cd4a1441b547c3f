package domain

import "testing"

func TestCategoryValid(t *testing.T) {
	valid := []Category{
		CategoryTravel, CategoryFood, CategoryAccommodation, CategoryTransportation,
		CategoryOfficeSupplies, CategorySoftware, CategoryMarketing, CategoryOther,
	}
	for _, c := range valid {
		if !c.Valid() {
			t.Errorf("%s should be accepted", c)
		}
	}

	for _, c := range []Category{"", "GROCERIES", "travel", "MEALS"} {
		if c.Valid() {
			t.Errorf("%q should be rejected", c)
		}
	}
}
