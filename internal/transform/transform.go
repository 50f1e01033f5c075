// Package transform maps internal entities onto the app-facing DTOs. The
// mapping is pure: it renames fields, rounds scores, normalizes vote markers
// into booleans and enriches nested ids from the game-data catalog. DTOs are
// recomputed on every request and never persisted.
package transform

import (
	"fmt"
	"math"
	"time"

	"clasharmies.app/internal/domain"
	"clasharmies.app/internal/gamedata"
)

// AppArmy is the stable army shape the mobile client consumes.
type AppArmy struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	TownHall     int            `json:"townHall"`
	Banner       string         `json:"banner"`
	Score        float64        `json:"score"`
	Votes        int            `json:"votes"`
	PageViews    int            `json:"pageViews"`
	IsLiked      bool           `json:"isLiked"`
	IsBookmarked bool           `json:"isBookmarked"`
	Units        []AppArmyUnit  `json:"units"`
	Equipment    []AppArmyEquip `json:"equipment"`
	Pets         []AppArmyPet   `json:"pets"`
	Tags         []string       `json:"tags"`
	Guide        *AppGuide      `json:"guide"`
	Creator      AppCreator     `json:"creator"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt"`
}

// AppArmyUnit is a unit slot enriched with catalog metadata.
type AppArmyUnit struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Amount       int    `json:"amount"`
	Home         string `json:"home"`
	Type         string `json:"type"`
	HousingSpace int    `json:"housingSpace"`
	IsSuper      bool   `json:"isSuper"`
}

// AppArmyEquip is an equipment slot enriched with catalog metadata.
type AppArmyEquip struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hero string `json:"hero"`
	Epic bool   `json:"epic"`
}

// AppArmyPet is a pet slot enriched with catalog metadata.
type AppArmyPet struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Hero string `json:"hero"`
}

// AppGuide is optional long-form content attached to an army.
type AppGuide struct {
	TextContent string `json:"textContent"`
	YoutubeURL  string `json:"youtubeUrl"`
}

// AppCreator identifies the army author.
type AppCreator struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// AppUser is the app-facing profile shape.
type AppUser struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	PlayerTag string   `json:"playerTag,omitempty"`
	Level     int      `json:"level,omitempty"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"createdAt"`
}

// AppComment is the app-facing comment shape.
type AppComment struct {
	ID        int64  `json:"id"`
	ArmyID    int64  `json:"armyId"`
	Username  string `json:"username"`
	Comment   string `json:"comment"`
	ReplyTo   *int64 `json:"replyTo"`
	CreatedAt string `json:"createdAt"`
}

// Transformer enriches DTOs from an optional catalog. A zero Transformer is
// usable; lookups then fall back to placeholder names.
type Transformer struct {
	Catalog *gamedata.Catalog
}

// Army maps one entity. Collection order is preserved.
func (t Transformer) Army(a domain.Army) AppArmy {
	units := make([]AppArmyUnit, 0, len(a.Units))
	for _, u := range a.Units {
		units = append(units, t.unit(u))
	}
	equipment := make([]AppArmyEquip, 0, len(a.Equipment))
	for _, e := range a.Equipment {
		equipment = append(equipment, t.equip(e))
	}
	pets := make([]AppArmyPet, 0, len(a.Pets))
	for _, p := range a.Pets {
		pets = append(pets, t.pet(p))
	}
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	var guide *AppGuide
	if a.Guide != nil {
		guide = &AppGuide{TextContent: a.Guide.TextContent, YoutubeURL: a.Guide.YoutubeURL}
	}
	return AppArmy{
		ID:           a.ID,
		Name:         a.Name,
		TownHall:     a.TownHall,
		Banner:       a.Banner,
		Score:        round2(a.Score),
		Votes:        a.Votes,
		PageViews:    a.PageViews,
		IsLiked:      a.UserVote == domain.VoteUp,
		IsBookmarked: a.UserBookmarked,
		Units:        units,
		Equipment:    equipment,
		Pets:         pets,
		Tags:         tags,
		Guide:        guide,
		Creator:      AppCreator{ID: a.CreatedBy, Username: a.Username},
		CreatedAt:    formatTime(a.CreatedTime),
		UpdatedAt:    formatTime(a.UpdatedTime),
	}
}

// Armies maps a list, preserving order.
func (t Transformer) Armies(armies []domain.Army) []AppArmy {
	out := make([]AppArmy, 0, len(armies))
	for _, a := range armies {
		out = append(out, t.Army(a))
	}
	return out
}

// User maps a profile.
func (t Transformer) User(u domain.User) AppUser {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return AppUser{
		ID:        u.ID,
		Username:  u.Username,
		PlayerTag: u.PlayerTag,
		Level:     u.Level,
		Roles:     roles,
		CreatedAt: formatTime(u.CreatedTime),
	}
}

// Comment maps a comment.
func (t Transformer) Comment(c domain.Comment) AppComment {
	return AppComment{
		ID:        c.ID,
		ArmyID:    c.ArmyID,
		Username:  c.Username,
		Comment:   c.Comment,
		ReplyTo:   c.ReplyTo,
		CreatedAt: formatTime(c.CreatedTime),
	}
}

// Comments maps a list, preserving order.
func (t Transformer) Comments(comments []domain.Comment) []AppComment {
	out := make([]AppComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, t.Comment(c))
	}
	return out
}

func (t Transformer) unit(u domain.ArmyUnit) AppArmyUnit {
	out := AppArmyUnit{
		ID:           u.ID,
		Name:         fmt.Sprintf("Unit %d", u.UnitID),
		Amount:       u.Amount,
		Home:         string(u.Home),
		Type:         string(gamedata.KindTroop),
		HousingSpace: 1,
	}
	if info, ok := t.Catalog.Unit(u.UnitID); ok {
		out.Name = info.Name
		out.Type = string(info.Type)
		out.HousingSpace = info.HousingSpace
		out.IsSuper = info.IsSuper
	}
	return out
}

func (t Transformer) equip(e domain.ArmyEquipment) AppArmyEquip {
	out := AppArmyEquip{
		ID:   e.ID,
		Name: fmt.Sprintf("Equipment %d", e.EquipmentID),
		Hero: "Barbarian King",
	}
	if info, ok := t.Catalog.EquipmentByID(e.EquipmentID); ok {
		out.Name = info.Name
		out.Hero = info.Hero
		out.Epic = info.Epic
	}
	return out
}

func (t Transformer) pet(p domain.ArmyPet) AppArmyPet {
	out := AppArmyPet{
		ID:   p.ID,
		Name: fmt.Sprintf("Pet %d", p.PetID),
		Hero: p.Hero,
	}
	if info, ok := t.Catalog.Pet(p.PetID); ok {
		out.Name = info.Name
		if info.Hero != "" {
			out.Hero = info.Hero
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
