package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iho/rewardgraph/internal/adapter/http/dto"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

const dateLayout = "2006-01-02"

var errInvalidQuery = errors.New("invalid query parameter")

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status it maps to. Missing column
// errors also list the unresolved fields.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := dto.ErrorResponse{
		Error:   message,
		Message: err.Error(),
	}

	var missing *domain.MissingColumnError
	if errors.As(err, &missing) {
		resp.Fields = missing.Fields
	}

	writeJSON(w, mapDomainError(err), resp)
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidDatasetName):
		return http.StatusBadRequest
	case errors.Is(err, errInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissingColumns):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrGraphSyncDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// queryList returns every value of key, splitting comma separated values.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseTimeQuery accepts RFC 3339 or a plain date. A plain end date covers
// the whole day.
func parseTimeQuery(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	val := strings.TrimSpace(r.URL.Query().Get(key))
	if val == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, val); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD, got %q", errInvalidQuery, key, val)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// parseCriteria reads actor, kind, start and end from the query string.
func parseCriteria(r *http.Request) (domain.FilterCriteria, error) {
	kinds, err := dto.ParseKinds(queryList(r, "kind"))
	if err != nil {
		return domain.FilterCriteria{}, err
	}

	start, err := parseTimeQuery(r, "start", false)
	if err != nil {
		return domain.FilterCriteria{}, err
	}
	end, err := parseTimeQuery(r, "end", true)
	if err != nil {
		return domain.FilterCriteria{}, err
	}

	c := domain.FilterCriteria{
		Start: start,
		End:   end,
		Actor: strings.TrimSpace(r.URL.Query().Get("actor")),
		Kinds: kinds,
	}
	return c, c.Validate()
}

// parseGraphRequest reads the filter criteria plus highlight and connect.
// The highlighted actor defaults to the actor filter. Every connect value
// is linked to the highlighted actor.
func parseGraphRequest(r *http.Request) (usecase.GraphRequest, error) {
	criteria, err := parseCriteria(r)
	if err != nil {
		return usecase.GraphRequest{}, err
	}

	highlight := strings.TrimSpace(r.URL.Query().Get("highlight"))
	if highlight == "" && !strings.EqualFold(criteria.Actor, domain.AllActors) {
		highlight = criteria.Actor
	}

	req := usecase.GraphRequest{
		Criteria:  criteria,
		Highlight: highlight,
	}

	connect := queryList(r, "connect")
	if len(connect) > 0 && highlight == "" {
		return usecase.GraphRequest{}, fmt.Errorf("%w: connect requires highlight", errInvalidQuery)
	}
	for _, id := range connect {
		req.Links = append(req.Links, domain.Link{
			From: domain.NewEntityKey(id, ""),
			To:   domain.NewEntityKey(highlight, ""),
		})
	}

	return req, nil
}
