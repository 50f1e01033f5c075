package domain

import "context"

// ArmyRepository is the capability surface the app API needs from the army
// catalog. Implementations: InMemory (tests, DSN-less runs) and store/pg.
type ArmyRepository interface {
	List(ctx context.Context, filter ArmyFilter) ([]Army, error)
	Get(ctx context.Context, id, viewerID int64) (*Army, error)
	Save(ctx context.Context, army *Army) (int64, error)
	Delete(ctx context.Context, id int64) error

	SaveVote(ctx context.Context, armyID, userID int64, vote int) error
	Bookmark(ctx context.Context, armyID, userID int64) error
	RemoveBookmark(ctx context.Context, armyID, userID int64) error
	SavedArmies(ctx context.Context, userID int64) ([]Army, error)

	SaveComment(ctx context.Context, comment *Comment) (int64, error)
	DeleteComment(ctx context.Context, commentID int64) error
	GetComment(ctx context.Context, commentID int64) (*Comment, error)
}

// UserRepository manages local account records and refresh-token versioning.
// Create persists the user and its initial role assignment as one unit.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	Create(ctx context.Context, user *User) (int64, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdateGoogleEmail(ctx context.Context, id int64, email string) error

	TokenVersion(ctx context.Context, id int64) (int, error)
	BumpTokenVersion(ctx context.Context, id int64) (int, error)
}
