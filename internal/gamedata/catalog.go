// Package gamedata holds the reference catalog used to enrich army DTOs with
// display metadata. The catalog is loaded once at startup; a nil catalog is
// valid and simply yields placeholder names downstream.
package gamedata

import "encoding/json"

// UnitKind classifies a unit slot.
type UnitKind string

const (
	KindTroop UnitKind = "Troop"
	KindSiege UnitKind = "Siege"
	KindSpell UnitKind = "Spell"
)

// UnitInfo is display metadata for a troop, siege machine or spell.
type UnitInfo struct {
	Name         string   `json:"name"`
	Type         UnitKind `json:"type"`
	HousingSpace int      `json:"housingSpace"`
	IsSuper      bool     `json:"isSuper"`
}

// EquipmentInfo is display metadata for a hero equipment piece.
type EquipmentInfo struct {
	Name string `json:"name"`
	Hero string `json:"hero"`
	Epic bool   `json:"epic"`
}

// PetInfo is display metadata for a hero pet.
type PetInfo struct {
	Name string `json:"name"`
	Hero string `json:"hero"`
}

// Catalog maps game-data ids to display metadata.
type Catalog struct {
	Units     map[int64]UnitInfo      `json:"units"`
	Equipment map[int64]EquipmentInfo `json:"equipment"`
	Pets      map[int64]PetInfo       `json:"pets"`
}

// Load parses a catalog from its JSON representation.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Unit looks up unit metadata. ok is false when the catalog is nil or the id
// is unknown.
func (c *Catalog) Unit(id int64) (UnitInfo, bool) {
	if c == nil {
		return UnitInfo{}, false
	}
	info, ok := c.Units[id]
	return info, ok
}

// EquipmentByID looks up equipment metadata.
func (c *Catalog) EquipmentByID(id int64) (EquipmentInfo, bool) {
	if c == nil {
		return EquipmentInfo{}, false
	}
	info, ok := c.Equipment[id]
	return info, ok
}

// Pet looks up pet metadata.
func (c *Catalog) Pet(id int64) (PetInfo, bool) {
	if c == nil {
		return PetInfo{}, false
	}
	info, ok := c.Pets[id]
	return info, ok
}
