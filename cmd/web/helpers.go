package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/burnplan/internal/errors"
	"github.com/myrjola/burnplan/internal/workout"
)

const (
	dateLayout       = "2006-01-02"
	maxRequestBytes  = 1 << 16
	defaultJobsLimit = 20
	maxJobsLimit     = 500
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON responds with status and v encoded as JSON. Encoding failures are logged because the header has already
// been sent.
func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to encode response", errors.SlogError(err))
	}
}

// readJSON decodes a single JSON object from the request body into dst and rejects unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "client error",
		slog.Int("status_code", status), slog.String("reason", message))
	app.writeJSON(w, r, status, errorResponse{Error: message})
}

// serviceError maps a workout service error to the matching HTTP status.
func (app *application) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workout.ErrNotFound):
		app.clientError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, workout.ErrExerciseCompleted):
		app.clientError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, workout.ErrInvalidProfile), errors.Is(err, workout.ErrInvalidExercise):
		app.clientError(w, r, http.StatusBadRequest, err.Error())
	default:
		app.serverError(w, r, err)
	}
}

// pathError responds to an unparsable path parameter. Unknown session kinds are missing resources, the rest are bad
// requests.
func (app *application) pathError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, workout.ErrNotFound) {
		app.clientError(w, r, http.StatusNotFound, err.Error())
		return
	}
	app.clientError(w, r, http.StatusBadRequest, err.Error())
}

// parseToday reads the "today" query parameter and falls back to the current UTC date of the server clock.
func (app *application) parseToday(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("today")
	if raw == "" {
		now := app.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	today, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("today must be formatted as %s", dateLayout)
	}
	return today, nil
}

// parseExercisePath reads the day number, session kind and exercise instance id of an exercise route.
func parseExercisePath(r *http.Request) (int, workout.SessionKind, string, error) {
	dayNumber, err := strconv.Atoi(r.PathValue("dayNumber"))
	if err != nil || dayNumber <= 0 {
		return 0, "", "", errors.New("day number must be a positive integer")
	}
	kind, err := workout.ParseSessionKind(r.PathValue("session"))
	if err != nil {
		return 0, "", "", fmt.Errorf("parse session: %w", err)
	}
	return dayNumber, kind, r.PathValue("instanceID"), nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultJobsLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxJobsLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxJobsLimit)
	}
	return limit, nil
}
