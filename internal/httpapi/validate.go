package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"clasharmies.app/internal/apperr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate

	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// validateStruct runs struct-tag validation; "handle" is the username charset
// rule shared by profile updates.
func validateStruct(v any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
			return usernameRe.MatchString(fl.Field().String())
		})
	})
	return validate.Struct(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(apperr.CodeValidation, "Request body is required", nil)
		}
		return apperr.Validation(apperr.CodeValidation, "Malformed request body", map[string]any{
			"error": err.Error(),
		})
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation(apperr.CodeValidation, "Unexpected data after JSON body", nil)
	}
	return nil
}

// parsePageLimit reads the shared pagination query parameters. Out-of-range
// values are a validation failure, not a silent clamp.
func parsePageLimit(r *http.Request) (page, limit int, err error) {
	page, err = queryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return 0, 0, err
	}
	limit, err = queryInt(r, "limit", 20, 1, 100)
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(apperr.CodeValidation, name+" must be an integer", nil)
	}
	if val < min || val > max {
		return 0, apperr.Validation(apperr.CodeValidation,
			name+" must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max), nil)
	}
	return val, nil
}

// pathID parses a positive integer path segment; code names the endpoint's
// identifier so clients can tell which segment was bad.
func pathID(r *http.Request, segment, code string) (int64, error) {
	raw := r.PathValue(segment)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest(code, "Invalid "+segment)
	}
	return id, nil
}

// pageSlice cuts one page out of items and returns the pagination block.
func pageSlice[T any](items []T, page, limit int) ([]T, *Pagination) {
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := items[start:end]
	if out == nil {
		out = []T{}
	}
	return out, NewPagination(page, limit, total)
}
