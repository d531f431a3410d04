package main

import (
	"net/http"

	"github.com/myrjola/burnplan/internal/workout"
)

type horizonResponse struct {
	Days []workout.DayPlan `json:"days"`
}

// horizonGET returns the active horizon after archiving elapsed days and topping it up when it runs short.
func (app *application) horizonGET(w http.ResponseWriter, r *http.Request) {
	today, err := app.parseToday(r)
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	plans, err := app.workoutService.ManageHorizon(r.Context(), today)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, horizonResponse{Days: plans})
}

func (app *application) horizonRegeneratePOST(w http.ResponseWriter, r *http.Request) {
	today, err := app.parseToday(r)
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	plans, err := app.workoutService.RegenerateFullHorizon(r.Context(), today)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, horizonResponse{Days: plans})
}
