package main

import (
	"net/http"

	"github.com/myrjola/burnplan/internal/workout"
)

func (app *application) profileGET(w http.ResponseWriter, r *http.Request) {
	profile, err := app.workoutService.GetProfile(r.Context())
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, profile)
}

func (app *application) profilePUT(w http.ResponseWriter, r *http.Request) {
	var profile workout.UserProfile
	if err := readJSON(w, r, &profile); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := app.workoutService.SaveProfile(r.Context(), profile); err != nil {
		app.serviceError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, profile)
}
