package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clasharmies.app/internal/apperr"
	"clasharmies.app/internal/audit"
	"clasharmies.app/internal/auth"
	"clasharmies.app/internal/domain"
)

type armyPayload struct {
	Name      string         `json:"name" validate:"required,min=1,max=100"`
	TownHall  int            `json:"townHall" validate:"required,min=1,max=17"`
	Banner    string         `json:"banner" validate:"max=200"`
	Units     []unitPayload  `json:"units" validate:"required,min=1,max=50,dive"`
	Equipment []equipPayload `json:"equipment" validate:"max=8,dive"`
	Pets      []petPayload   `json:"pets" validate:"max=8,dive"`
	Tags      []string       `json:"tags" validate:"max=10,dive,min=1,max=30"`
	Guide     *guidePayload  `json:"guide"`
}

type unitPayload struct {
	UnitID int64  `json:"unitId" validate:"required,gt=0"`
	Amount int    `json:"amount" validate:"required,gt=0,lte=320"`
	Home   string `json:"home" validate:"required,oneof=armyCamp clanCastle"`
}

type equipPayload struct {
	EquipmentID int64 `json:"equipmentId" validate:"required,gt=0"`
}

type petPayload struct {
	PetID int64  `json:"petId" validate:"required,gt=0"`
	Hero  string `json:"hero" validate:"required,max=50"`
}

type guidePayload struct {
	TextContent string `json:"textContent" validate:"max=10000"`
	YoutubeURL  string `json:"youtubeUrl" validate:"omitempty,url,max=200"`
}

func (a *API) listArmies(w http.ResponseWriter, r *http.Request) error {
	page, limit, err := parsePageLimit(r)
	if err != nil {
		return err
	}

	filter := domain.ArmyFilter{Sort: domain.SortNew}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("townHall")); raw != "" {
		th, err := strconv.Atoi(raw)
		if err != nil || th < 1 || th > 17 {
			return apperr.Validation(apperr.CodeValidation, "townHall must be between 1 and 17", nil)
		}
		filter.TownHall = th
	}
	if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
		if !domain.ValidSort(raw) {
			return apperr.Validation(apperr.CodeValidation, "Unsupported sort option", map[string]any{
				"sort": raw,
			})
		}
		filter.Sort = domain.SortOption(raw)
	}
	if raw := strings.TrimSpace(q.Get("tags")); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}
	filter.Search = strings.TrimSpace(q.Get("search"))
	filter.Creator = strings.TrimSpace(q.Get("creator"))
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		filter.ViewerID = claims.UserID
	}

	armies, err := a.armies.List(r.Context(), filter)
	if err != nil {
		return err
	}
	pageItems, pagination := pageSlice(armies, page, limit)
	respondPage(w, r, a.transform.Armies(pageItems), pagination)
	return nil
}

func (a *API) getArmy(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "INVALID_ARMY_ID")
	if err != nil {
		return err
	}
	var viewerID int64
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		viewerID = claims.UserID
	}

	army, err := a.armies.Get(r.Context(), id, viewerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return err
	}
	respond(w, r, http.StatusOK, a.transform.Army(*army), "")
	return nil
}

func (a *API) createArmy(w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}
	var req armyPayload
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	army := req.toEntity()
	army.CreatedBy = claims.UserID
	army.Username = claims.Username

	id, err := a.armies.Save(r.Context(), army)
	if err != nil {
		return err
	}
	_ = audit.LogEvent(r.Context(), "army.create", map[string]any{
		"army_id": id,
		"name":    army.Name,
	})

	saved, err := a.armies.Get(r.Context(), id, claims.UserID)
	if err != nil {
		return err
	}
	respond(w, r, http.StatusCreated, a.transform.Army(*saved), "Army created")
	return nil
}

func (a *API) updateArmy(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "INVALID_ARMY_ID")
	if err != nil {
		return err
	}
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}

	existing, err := a.armies.Get(r.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return err
	}
	if err := requireOwnerOrAdmin(r, existing.CreatedBy); err != nil {
		return err
	}

	var req armyPayload
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	army := req.toEntity()
	army.ID = existing.ID
	army.CreatedBy = existing.CreatedBy
	army.Username = existing.Username
	if _, err := a.armies.Save(r.Context(), army); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return err
	}
	_ = audit.LogEvent(r.Context(), "army.update", map[string]any{"army_id": id})

	saved, err := a.armies.Get(r.Context(), id, claims.UserID)
	if err != nil {
		return err
	}
	respond(w, r, http.StatusOK, a.transform.Army(*saved), "Army updated")
	return nil
}

func (a *API) deleteArmy(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id", "INVALID_ARMY_ID")
	if err != nil {
		return err
	}
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}

	existing, err := a.armies.Get(r.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return err
	}
	if err := requireOwnerOrAdmin(r, existing.CreatedBy); err != nil {
		return err
	}

	if err := a.armies.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("ARMY_NOT_FOUND", "Army not found")
		}
		return err
	}
	_ = audit.LogEvent(r.Context(), "army.delete", map[string]any{"army_id": id})
	respond(w, r, http.StatusOK, nil, "Army deleted")
	return nil
}

// requireOwnerOrAdmin gates mutations on another user's resource. Admins may
// moderate any army or comment.
func requireOwnerOrAdmin(r *http.Request, ownerID int64) error {
	claims, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		return err
	}
	if claims.UserID == ownerID || claims.HasRole("admin") {
		return nil
	}
	return apperr.Forbidden(apperr.CodeForbidden, "Access denied")
}

func (p armyPayload) toEntity() *domain.Army {
	army := &domain.Army{
		Name:     strings.TrimSpace(p.Name),
		TownHall: p.TownHall,
		Banner:   strings.TrimSpace(p.Banner),
		Tags:     p.Tags,
	}
	for _, u := range p.Units {
		army.Units = append(army.Units, domain.ArmyUnit{
			UnitID: u.UnitID,
			Amount: u.Amount,
			Home:   domain.UnitHome(u.Home),
		})
	}
	for _, e := range p.Equipment {
		army.Equipment = append(army.Equipment, domain.ArmyEquipment{EquipmentID: e.EquipmentID})
	}
	for _, pt := range p.Pets {
		army.Pets = append(army.Pets, domain.ArmyPet{PetID: pt.PetID, Hero: pt.Hero})
	}
	if p.Guide != nil && (p.Guide.TextContent != "" || p.Guide.YoutubeURL != "") {
		army.Guide = &domain.Guide{
			TextContent: p.Guide.TextContent,
			YoutubeURL:  p.Guide.YoutubeURL,
		}
	}
	return army
}
