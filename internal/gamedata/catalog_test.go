package gamedata

import "testing"

const sampleJSON = `{
	"units": {
		"1": {"name": "Barbarian", "type": "Troop", "housingSpace": 1},
		"58": {"name": "Super Wizard", "type": "Troop", "housingSpace": 10, "isSuper": true}
	},
	"equipment": {
		"5": {"name": "Rage Vial", "hero": "Barbarian King"}
	},
	"pets": {
		"9": {"name": "L.A.S.S.I", "hero": "Barbarian King"}
	}
}`

func TestLoadAndLookup(t *testing.T) {
	c, err := Load([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	unit, ok := c.Unit(58)
	if !ok || unit.Name != "Super Wizard" || !unit.IsSuper {
		t.Fatalf("unit = %+v, ok = %v", unit, ok)
	}
	if _, ok := c.Unit(999); ok {
		t.Fatal("unknown unit must miss")
	}

	eq, ok := c.EquipmentByID(5)
	if !ok || eq.Hero != "Barbarian King" {
		t.Fatalf("equipment = %+v", eq)
	}
	pet, ok := c.Pet(9)
	if !ok || pet.Name != "L.A.S.S.I" {
		t.Fatalf("pet = %+v", pet)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	if _, err := Load([]byte(`{"units": [`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNilCatalogLookupsMiss(t *testing.T) {
	var c *Catalog
	if _, ok := c.Unit(1); ok {
		t.Fatal("nil catalog must miss")
	}
	if _, ok := c.EquipmentByID(1); ok {
		t.Fatal("nil catalog must miss")
	}
	if _, ok := c.Pet(1); ok {
		t.Fatal("nil catalog must miss")
	}
}
