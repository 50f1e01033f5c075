package httpapi

import (
	"errors"
	"net/http"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/auth"
	"clasharmies.app/internal/domain"
)

func (a *API) likeArmy(w http.ResponseWriter, r *http.Request) error {
	return a.voteArmy(w, r, domain.VoteUp, "army.like", "Army liked")
}

func (a *API) unlikeArmy(w http.ResponseWriter, r *http.Request) error {
	return a.voteArmy(w, r, domain.VoteNone, "army.unlike", "Like removed")
}

func (a *API) dislikeArmy(w http.ResponseWriter, r *http.Request) error {
	return a.voteArmy(w, r, domain.VoteDown, "army.dislike", "Army disliked")
}

func (a *API) undislikeArmy(w http.ResponseWriter, r *http.Request) error {
	return a.voteArmy(w, r, domain.VoteNone, "army.undislike", "Dislike removed")
}

// voteArmy records the caller's vote marker; the repositories keep one marker
// per (army, user) pair, so re-voting overwrites rather than accumulates.
func (a *API) voteArmy(w http.ResponseWriter, r *http.Request, vote int, event, message string) error {
	id, claims, err := a.resolveArmyAction(r)
	if err != nil {
		return err
	}
	if err := a.armies.SaveVote(r.Context(), id, claims.UserID, vote); err != nil {
		return err
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{"army_id": id})

	army, err := a.armies.Get(r.Context(), id, claims.UserID)
	if err != nil {
		return err
	}
	respond(w, r, http.StatusOK, map[string]any{
		"votes":        army.Votes,
		"isLiked":      army.UserVote == domain.VoteUp,
		"isBookmarked": army.UserBookmarked,
	}, message)
	return nil
}

func (a *API) bookmarkArmy(w http.ResponseWriter, r *http.Request) error {
	id, claims, err := a.resolveArmyAction(r)
	if err != nil {
		return err
	}
	if err := a.armies.Bookmark(r.Context(), id, claims.UserID); err != nil {
		return err
	}
	_ = audit.LogEvent(r.Context(), "army.bookmark", map[string]any{"army_id": id})
	respond(w, r, http.StatusOK, map[string]any{"isBookmarked": true}, "Army bookmarked")
	return nil
}

func (a *API) unbookmarkArmy(w http.ResponseWriter, r *http.Request) error {
	id, claims, err := a.resolveArmyAction(r)
	if err != nil {
		return err
	}
	if err := a.armies.RemoveBookmark(r.Context(), id, claims.UserID); err != nil {
		return err
	}
	_ = audit.LogEvent(r.Context(), "army.unbookmark", map[string]any{"army_id": id})
	respond(w, r, http.StatusOK, map[string]any{"isBookmarked": false}, "Bookmark removed")
	return nil
}

func (a *API) bookmarkedArmies(w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}
	page, limit, err := parsePageLimit(r)
	if err != nil {
		return err
	}

	armies, err := a.armies.SavedArmies(r.Context(), claims.UserID)
	if err != nil {
		return err
	}
	pageItems, pagination := pageSlice(armies, page, limit)
	respondPage(w, r, a.transform.Armies(pageItems), pagination)
	return nil
}

// resolveArmyAction is the shared prologue of every per-army mutation: parse
// the id, require a caller, confirm the army exists.
func (a *API) resolveArmyAction(r *http.Request) (int64, *auth.AccessClaims, error) {
	id, err := pathID(r, "id", "INVALID_ARMY_ID")
	if err != nil {
		return 0, nil, err
	}
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return 0, nil, err
	}
	if _, err := a.armies.Get(r.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return 0, nil, err
	}
	return id, claims, nil
}
