// Package domain holds the catalog entities and the repository capabilities
// the app API layer depends on. The web application owns the actual storage;
// this layer only consumes it through the interfaces in repository.go.
package domain

import (
	"errors"
	"time"
)

// UnitHome is where a unit slot lives in an army composition.
type UnitHome string

const (
	HomeArmyCamp   UnitHome = "armyCamp"
	HomeClanCastle UnitHome = "clanCastle"
)

// Vote markers as stored by the web application.
const (
	VoteUp   = 1
	VoteNone = 0
	VoteDown = -1
)

// Army is the internal entity as the web application exposes it. UserVote and
// UserBookmarked are viewer-relative and populated when a viewer id is known.
type Army struct {
	ID             int64
	Name           string
	TownHall       int
	Banner         string
	Score          float64
	Votes          int
	PageViews      int
	UserVote       int
	UserBookmarked bool
	Units          []ArmyUnit
	Equipment      []ArmyEquipment
	Pets           []ArmyPet
	Tags           []string
	Guide          *Guide
	Comments       []Comment
	CreatedBy      int64
	Username       string
	CreatedTime    time.Time
	UpdatedTime    time.Time
}

// ArmyUnit is a unit slot inside an army.
type ArmyUnit struct {
	ID     int64
	UnitID int64
	Amount int
	Home   UnitHome
}

// ArmyEquipment is a hero equipment slot.
type ArmyEquipment struct {
	ID          int64
	EquipmentID int64
}

// ArmyPet is a hero pet slot.
type ArmyPet struct {
	ID    int64
	PetID int64
	Hero  string
}

// Guide is optional long-form content attached to an army.
type Guide struct {
	TextContent string
	YoutubeURL  string
}

// Comment on an army. ReplyTo is nil for top-level comments.
type Comment struct {
	ID          int64
	ArmyID      int64
	UserID      int64
	Username    string
	Comment     string
	ReplyTo     *int64
	CreatedTime time.Time
}

// User is the local account record. GoogleID links it to the identity
// provider; TokenVersion invalidates outstanding refresh tokens when bumped.
type User struct {
	ID           int64
	Username     string
	GoogleID     string
	GoogleEmail  string
	PlayerTag    string
	Level        int
	Roles        []string
	TokenVersion int
	CreatedTime  time.Time
}

// SortOption orders army listings.
type SortOption string

const (
	SortNew      SortOption = "new"
	SortScore    SortOption = "score"
	SortPopular  SortOption = "popular"
	SortViews    SortOption = "views"
	SortLikes    SortOption = "likes"
	SortComments SortOption = "comments"
)

// ValidSort reports whether s is one of the supported sort options.
func ValidSort(s string) bool {
	switch SortOption(s) {
	case SortNew, SortScore, SortPopular, SortViews, SortLikes, SortComments:
		return true
	}
	return false
}

// ArmyFilter narrows and orders a listing. The repositories return the full
// matching set; pagination is applied by the caller.
type ArmyFilter struct {
	TownHall int
	Sort     SortOption
	Tags     []string
	Search   string
	Creator  string
	ViewerID int64
}

var (
	ErrNotFound        = errors.New("army not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrUserNotFound    = errors.New("user not found")
)
