package main

import (
	"net/http"

	"github.com/myrjola/burnplan/internal/workout"
)

type historyResponse struct {
	Days []workout.HistoryRecord `json:"days"`
}

type jobsResponse struct {
	Jobs []workout.JobLogEntry `json:"jobs"`
}

func (app *application) historyGET(w http.ResponseWriter, r *http.Request) {
	records, err := app.workoutService.History(r.Context())
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	if records == nil {
		records = []workout.HistoryRecord{}
	}
	app.writeJSON(w, r, http.StatusOK, historyResponse{Days: records})
}

func (app *application) jobsGET(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := app.workoutService.JobLog(r.Context(), limit)
	if err != nil {
		app.serviceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []workout.JobLogEntry{}
	}
	app.writeJSON(w, r, http.StatusOK, jobsResponse{Jobs: entries})
}
