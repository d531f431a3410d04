package main

import (
	"net/http"
	"strings"

	"github.com/myrjola/burnplan/internal/workout"
)

type substituteRequest struct {
	Name string `json:"name"`
}

func (app *application) exerciseCompletionPOST(w http.ResponseWriter, r *http.Request) {
	dayNumber, kind, instanceID, err := parseExercisePath(r)
	if err != nil {
		app.pathError(w, r, err)
		return
	}
	var update workout.CompletionUpdate
	if err = readJSON(w, r, &update); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := app.workoutService.RecordCompletion(r.Context(), dayNumber, kind, instanceID, update)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, plan)
}

// exerciseSubstitutePOST swaps an exercise for a catalog exercise of the same session kind, looked up by name.
func (app *application) exerciseSubstitutePOST(w http.ResponseWriter, r *http.Request) {
	dayNumber, kind, instanceID, err := parseExercisePath(r)
	if err != nil {
		app.pathError(w, r, err)
		return
	}
	var req substituteRequest
	if err = readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		app.clientError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	replacement, err := app.workoutService.FindExercise(r.Context(), kind, name)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	plan, err := app.workoutService.SubstituteExercise(r.Context(), dayNumber, kind, instanceID, replacement)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, plan)
}
