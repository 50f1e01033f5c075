package httpapi

import (
	"net/http"
	"sort"
)

type gameUnit struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	HousingSpace int    `json:"housingSpace"`
	IsSuper      bool   `json:"isSuper"`
}

type gameEquipment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hero string `json:"hero"`
	Epic bool   `json:"epic"`
}

type gamePet struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hero string `json:"hero"`
}

// gameUnits serves the reference catalog so the client can render army
// builders without its own copy of the game data. Output is id-sorted for a
// stable payload.
func (a *API) gameUnits(w http.ResponseWriter, r *http.Request) error {
	units := []gameUnit{}
	equipment := []gameEquipment{}
	pets := []gamePet{}

	if c := a.transform.Catalog; c != nil {
		for id, info := range c.Units {
			units = append(units, gameUnit{
				ID:           id,
				Name:         info.Name,
				Type:         string(info.Type),
				HousingSpace: info.HousingSpace,
				IsSuper:      info.IsSuper,
			})
		}
		for id, info := range c.Equipment {
			equipment = append(equipment, gameEquipment{
				ID:   id,
				Name: info.Name,
				Hero: info.Hero,
				Epic: info.Epic,
			})
		}
		for id, info := range c.Pets {
			pets = append(pets, gamePet{ID: id, Name: info.Name, Hero: info.Hero})
		}
		sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
		sort.Slice(equipment, func(i, j int) bool { return equipment[i].ID < equipment[j].ID })
		sort.Slice(pets, func(i, j int) bool { return pets[i].ID < pets[j].ID })
	}

	respond(w, r, http.StatusOK, map[string]any{
		"units":     units,
		"equipment": equipment,
		"pets":      pets,
	}, "")
	return nil
}
