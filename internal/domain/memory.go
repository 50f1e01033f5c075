package domain

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemory keeps the whole catalog in process memory with in-process
// concurrency safety. It backs tests and DSN-less deployments.
type InMemory struct {
	mu        sync.RWMutex
	armies    map[int64]*Army
	users     map[int64]*User
	bookmarks map[int64]map[int64]struct{} // userID -> armyID set
	votes     map[int64]map[int64]int      // armyID -> userID -> vote
	nextArmy  int64
	nextUser  int64
	nextMisc  int64
}

var (
	_ ArmyRepository = (*InMemory)(nil)
	_ UserRepository = (*InMemory)(nil)
)

// NewInMemory creates an empty catalog.
func NewInMemory() *InMemory {
	return &InMemory{
		armies:    make(map[int64]*Army),
		users:     make(map[int64]*User),
		bookmarks: make(map[int64]map[int64]struct{}),
		votes:     make(map[int64]map[int64]int),
	}
}

func (s *InMemory) List(ctx context.Context, filter ArmyFilter) ([]Army, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Army, 0, len(s.armies))
	for _, a := range s.armies {
		if !matchesFilter(a, filter) {
			continue
		}
		out = append(out, s.viewCopy(a, filter.ViewerID))
	}
	sortArmies(out, filter.Sort)
	return out, nil
}

func (s *InMemory) Get(ctx context.Context, id, viewerID int64) (*Army, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.armies[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s.viewCopy(a, viewerID)
	return &out, nil
}

func (s *InMemory) Save(ctx context.Context, army *Army) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if army.ID == 0 {
		s.nextArmy++
		army.ID = s.nextArmy
		army.CreatedTime = now
	} else if _, ok := s.armies[army.ID]; !ok {
		return 0, ErrNotFound
	} else {
		army.CreatedTime = s.armies[army.ID].CreatedTime
		army.Comments = s.armies[army.ID].Comments
	}
	army.UpdatedTime = now
	for i := range army.Units {
		if army.Units[i].ID == 0 {
			s.nextMisc++
			army.Units[i].ID = s.nextMisc
		}
	}
	for i := range army.Equipment {
		if army.Equipment[i].ID == 0 {
			s.nextMisc++
			army.Equipment[i].ID = s.nextMisc
		}
	}
	for i := range army.Pets {
		if army.Pets[i].ID == 0 {
			s.nextMisc++
			army.Pets[i].ID = s.nextMisc
		}
	}
	stored := *army
	s.armies[army.ID] = &stored
	return army.ID, nil
}

func (s *InMemory) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.armies[id]; !ok {
		return ErrNotFound
	}
	delete(s.armies, id)
	delete(s.votes, id)
	for _, set := range s.bookmarks {
		delete(set, id)
	}
	return nil
}

func (s *InMemory) SaveVote(ctx context.Context, armyID, userID int64, vote int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.armies[armyID]
	if !ok {
		return ErrNotFound
	}
	if s.votes[armyID] == nil {
		s.votes[armyID] = make(map[int64]int)
	}
	prev := s.votes[armyID][userID]
	s.votes[armyID][userID] = vote
	a.Votes += vote - prev
	return nil
}

func (s *InMemory) Bookmark(ctx context.Context, armyID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.armies[armyID]; !ok {
		return ErrNotFound
	}
	if s.bookmarks[userID] == nil {
		s.bookmarks[userID] = make(map[int64]struct{})
	}
	s.bookmarks[userID][armyID] = struct{}{}
	return nil
}

func (s *InMemory) RemoveBookmark(ctx context.Context, armyID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.armies[armyID]; !ok {
		return ErrNotFound
	}
	delete(s.bookmarks[userID], armyID)
	return nil
}

func (s *InMemory) SavedArmies(ctx context.Context, userID int64) ([]Army, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Army
	for armyID := range s.bookmarks[userID] {
		if a, ok := s.armies[armyID]; ok {
			out = append(out, s.viewCopy(a, userID))
		}
	}
	sortArmies(out, SortNew)
	return out, nil
}

func (s *InMemory) SaveComment(ctx context.Context, comment *Comment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.armies[comment.ArmyID]
	if !ok {
		return 0, ErrNotFound
	}
	s.nextMisc++
	comment.ID = s.nextMisc
	comment.CreatedTime = time.Now().UTC()
	a.Comments = append(a.Comments, *comment)
	return comment.ID, nil
}

func (s *InMemory) DeleteComment(ctx context.Context, commentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.armies {
		for i, c := range a.Comments {
			if c.ID == commentID {
				a.Comments = append(a.Comments[:i], a.Comments[i+1:]...)
				return nil
			}
		}
	}
	return ErrCommentNotFound
}

func (s *InMemory) GetComment(ctx context.Context, commentID int64) (*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.armies {
		for _, c := range a.Comments {
			if c.ID == commentID {
				out := c
				return &out, nil
			}
		}
	}
	return nil, ErrCommentNotFound
}

func (s *InMemory) FindByID(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	out.Roles = append([]string(nil), u.Roles...)
	return &out, nil
}

func (s *InMemory) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.GoogleID == googleID {
			out := *u
			out.Roles = append([]string(nil), u.Roles...)
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// Create assigns the id and, when Username is empty, the default
// "Warrior-{id}" handle. User record and role assignment are one unit.
func (s *InMemory) Create(ctx context.Context, user *User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	user.ID = s.nextUser
	if user.Username == "" {
		user.Username = fmt.Sprintf("Warrior-%d", user.ID)
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{"user"}
	}
	if user.TokenVersion == 0 {
		user.TokenVersion = 1
	}
	user.CreatedTime = time.Now().UTC()
	stored := *user
	stored.Roles = append([]string(nil), user.Roles...)
	s.users[user.ID] = &stored
	return user.ID, nil
}

func (s *InMemory) UpdateUsername(ctx context.Context, id int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Username = username
	return nil
}

func (s *InMemory) UpdateGoogleEmail(ctx context.Context, id int64, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.GoogleEmail = email
	return nil
}

func (s *InMemory) TokenVersion(ctx context.Context, id int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.TokenVersion, nil
}

func (s *InMemory) BumpTokenVersion(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

// viewCopy returns a deep-enough copy with viewer-relative fields filled in.
func (s *InMemory) viewCopy(a *Army, viewerID int64) Army {
	out := *a
	out.Units = append([]ArmyUnit(nil), a.Units...)
	out.Equipment = append([]ArmyEquipment(nil), a.Equipment...)
	out.Pets = append([]ArmyPet(nil), a.Pets...)
	out.Tags = append([]string(nil), a.Tags...)
	out.Comments = append([]Comment(nil), a.Comments...)
	out.UserVote = 0
	out.UserBookmarked = false
	if viewerID != 0 {
		if votes, ok := s.votes[a.ID]; ok {
			out.UserVote = votes[viewerID]
		}
		if set, ok := s.bookmarks[viewerID]; ok {
			_, out.UserBookmarked = set[a.ID]
		}
	}
	return out
}

func matchesFilter(a *Army, f ArmyFilter) bool {
	if f.TownHall != 0 && a.TownHall != f.TownHall {
		return false
	}
	if f.Creator != "" && !strings.EqualFold(a.Username, f.Creator) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Search)) {
		return false
	}
	for _, tag := range f.Tags {
		found := false
		for _, have := range a.Tags {
			if strings.EqualFold(have, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortArmies(armies []Army, by SortOption) {
	less := func(i, j int) bool { return armies[i].CreatedTime.After(armies[j].CreatedTime) }
	switch by {
	case SortScore:
		less = func(i, j int) bool { return armies[i].Score > armies[j].Score }
	case SortPopular, SortLikes:
		less = func(i, j int) bool { return armies[i].Votes > armies[j].Votes }
	case SortViews:
		less = func(i, j int) bool { return armies[i].PageViews > armies[j].PageViews }
	case SortComments:
		less = func(i, j int) bool { return len(armies[i].Comments) > len(armies[j].Comments) }
	}
	sort.SliceStable(armies, less)
}
