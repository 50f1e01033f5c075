package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/domain"
)

type commentPayload struct {
	Comment string `json:"comment" validate:"required,min=1,max=1000"`
	ReplyTo *int64 `json:"replyTo" validate:"omitempty,gt=0"`
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "INVALID_ARMY_ID")
	if err != nil {
		return err
	}
	page, limit, err := parsePageLimit(r)
	if err != nil {
		return err
	}

	army, err := a.armies.Get(r.Context(), id, 0)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return err
	}
	pageItems, pagination := pageSlice(army.Comments, page, limit)
	respondPage(w, r, a.transform.Comments(pageItems), pagination)
	return nil
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) error {
	id, claims, err := a.resolveArmyAction(r)
	if err != nil {
		return err
	}

	var req commentPayload
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.ReplyTo != nil {
		parent, err := a.armies.GetComment(r.Context(), *req.ReplyTo)
		if err != nil {
			if errors.Is(err, domain.ErrCommentNotFound) {
				return apperr.Validation("INVALID_REPLY_TARGET", "Reply target does not exist", nil)
			}
			return err
		}
		if parent.ArmyID != id {
			return apperr.Validation("INVALID_REPLY_TARGET", "Reply target belongs to another army", nil)
		}
	}

	comment := &domain.Comment{
		ArmyID:   id,
		UserID:   claims.UserID,
		Username: claims.Username,
		Comment:  req.Comment,
		ReplyTo:  req.ReplyTo,
	}
	if _, err := a.armies.SaveComment(r.Context(), comment); err != nil {
		return err
	}
	_ = audit.LogEvent(r.Context(), "comment.create", map[string]any{
		"army_id":    id,
		"comment_id": comment.ID,
	})
	respond(w, r, http.StatusCreated, a.transform.Comment(*comment), "Comment added")
	return nil
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) error {
	armyID, err := pathID(r, "id", "INVALID_ARMY_ID")
	if err != nil {
		return err
	}
	raw := strings.TrimSpace(r.URL.Query().Get("commentId"))
	commentID, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil || commentID <= 0 {
		return apperr.BadRequest("INVALID_COMMENT_ID", "Invalid comment id")
	}

	comment, err := a.armies.GetComment(r.Context(), commentID)
	if err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return apperr.NotFound("COMMENT_NOT_FOUND", "Comment not found")
		}
		return err
	}
	if comment.ArmyID != armyID {
		return apperr.NotFound("COMMENT_NOT_FOUND", "Comment not found")
	}
	if err := requireOwnerOrAdmin(r, comment.UserID); err != nil {
		return err
	}

	if err := a.armies.DeleteComment(r.Context(), commentID); err != nil {
		if errors.Is(err, domain.ErrCommentNotFound) {
			return apperr.NotFound("COMMENT_NOT_FOUND", "Comment not found")
		}
		return err
	}
	_ = audit.LogEvent(r.Context(), "comment.delete", map[string]any{
		"army_id":    armyID,
		"comment_id": commentID,
	})
	respond(w, r, http.StatusOK, nil, "Comment deleted")
	return nil
}
