package transform

import (
	"testing"
	"time"

	"clasharmies.app/internal/domain"
	"clasharmies.app/internal/gamedata"
)

func testCatalog() *gamedata.Catalog {
	return &gamedata.Catalog{
		Units: map[int64]gamedata.UnitInfo{
			1: {Name: "Barbarian", Type: gamedata.KindTroop, HousingSpace: 1},
			2: {Name: "Super Wizard", Type: gamedata.KindTroop, HousingSpace: 10, IsSuper: true},
		},
		Equipment: map[int64]gamedata.EquipmentInfo{
			5: {Name: "Rage Vial", Hero: "Barbarian King", Epic: false},
		},
		Pets: map[int64]gamedata.PetInfo{
			9: {Name: "L.A.S.S.I", Hero: "Barbarian King"},
		},
	}
}

func sampleArmy() domain.Army {
	created := time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC)
	return domain.Army{
		ID:        3,
		Name:      "TH16 Hybrid",
		TownHall:  16,
		Score:     4.666666,
		Votes:     12,
		PageViews: 340,
		UserVote:  domain.VoteUp,
		Units: []domain.ArmyUnit{
			{ID: 1, UnitID: 1, Amount: 20, Home: domain.HomeArmyCamp},
			{ID: 2, UnitID: 999, Amount: 1, Home: domain.HomeClanCastle},
		},
		Equipment:   []domain.ArmyEquipment{{ID: 1, EquipmentID: 5}, {ID: 2, EquipmentID: 404}},
		Pets:        []domain.ArmyPet{{ID: 1, PetID: 9, Hero: "Archer Queen"}},
		CreatedBy:   7,
		Username:    "Warrior-7",
		CreatedTime: created,
		UpdatedTime: created,
	}
}

func TestArmyEnrichesFromCatalog(t *testing.T) {
	tr := Transformer{Catalog: testCatalog()}
	dto := tr.Army(sampleArmy())

	if dto.Units[0].Name != "Barbarian" || dto.Units[0].HousingSpace != 1 {
		t.Fatalf("unit[0] = %+v", dto.Units[0])
	}
	if dto.Equipment[0].Name != "Rage Vial" || dto.Equipment[0].Hero != "Barbarian King" {
		t.Fatalf("equipment[0] = %+v", dto.Equipment[0])
	}
	if dto.Pets[0].Name != "L.A.S.S.I" {
		t.Fatalf("pet[0] = %+v", dto.Pets[0])
	}
	if dto.Pets[0].Hero != "Barbarian King" {
		t.Fatalf("catalog hero should win: %+v", dto.Pets[0])
	}
}

func TestArmyFallsBackToPlaceholders(t *testing.T) {
	tr := Transformer{Catalog: testCatalog()}
	dto := tr.Army(sampleArmy())

	if dto.Units[1].Name != "Unit 999" {
		t.Fatalf("unit[1].Name = %q, want placeholder", dto.Units[1].Name)
	}
	if dto.Units[1].Type != "Troop" || dto.Units[1].HousingSpace != 1 {
		t.Fatalf("unit[1] defaults = %+v", dto.Units[1])
	}
	if dto.Equipment[1].Name != "Equipment 404" {
		t.Fatalf("equipment[1].Name = %q, want placeholder", dto.Equipment[1].Name)
	}
}

func TestNilCatalogIsUsable(t *testing.T) {
	tr := Transformer{}
	dto := tr.Army(sampleArmy())
	if dto.Units[0].Name != "Unit 1" {
		t.Fatalf("unit[0].Name = %q, want placeholder", dto.Units[0].Name)
	}
}

func TestScoreRoundedToTwoDecimals(t *testing.T) {
	tr := Transformer{}
	dto := tr.Army(sampleArmy())
	if dto.Score != 4.67 {
		t.Fatalf("score = %v, want 4.67", dto.Score)
	}
}

func TestVoteMarkerBecomesIsLiked(t *testing.T) {
	tr := Transformer{}
	army := sampleArmy()

	army.UserVote = domain.VoteUp
	if !tr.Army(army).IsLiked {
		t.Fatal("vote 1 should mark liked")
	}
	army.UserVote = domain.VoteDown
	if tr.Army(army).IsLiked {
		t.Fatal("vote -1 must not mark liked")
	}
	army.UserVote = domain.VoteNone
	if tr.Army(army).IsLiked {
		t.Fatal("vote 0 must not mark liked")
	}
}

func TestEmptyCollectionsSerializeAsArrays(t *testing.T) {
	tr := Transformer{}
	dto := tr.Army(domain.Army{ID: 1})

	if dto.Units == nil || dto.Equipment == nil || dto.Pets == nil || dto.Tags == nil {
		t.Fatal("collections must be non-nil so JSON renders [] not null")
	}
}

func TestTimesFormattedRFC3339UTC(t *testing.T) {
	tr := Transformer{}
	dto := tr.Army(sampleArmy())
	if dto.CreatedAt != "2025-05-01T12:30:00Z" {
		t.Fatalf("createdAt = %q", dto.CreatedAt)
	}
}

func TestCommentMapping(t *testing.T) {
	tr := Transformer{}
	parent := int64(4)
	dto := tr.Comment(domain.Comment{
		ID: 10, ArmyID: 3, Username: "Warrior-7", Comment: "nice", ReplyTo: &parent,
		CreatedTime: time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC),
	})
	if dto.ReplyTo == nil || *dto.ReplyTo != 4 {
		t.Fatalf("replyTo = %v", dto.ReplyTo)
	}
}
