package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		shared = func(next http.Handler) http.Handler {
			return app.recoverPanic(app.logAndTraceRequest(secureHeaders(app.timeout(next))))
		}
		user = func(next http.HandlerFunc) http.Handler {
			return shared(app.withUser(next))
		}
	)

	mux.Handle("GET /api/healthy", shared(http.HandlerFunc(app.healthy)))

	mux.Handle("GET /api/users/{userID}/profile", user(app.profileGET))
	mux.Handle("PUT /api/users/{userID}/profile", user(app.profilePUT))

	mux.Handle("GET /api/users/{userID}/horizon", user(app.horizonGET))
	mux.Handle("POST /api/users/{userID}/horizon/regenerate", user(app.horizonRegeneratePOST))

	mux.Handle("POST /api/users/{userID}/days/{dayNumber}/{session}/exercises/{instanceID}/completion",
		user(app.exerciseCompletionPOST))
	mux.Handle("POST /api/users/{userID}/days/{dayNumber}/{session}/exercises/{instanceID}/substitute",
		user(app.exerciseSubstitutePOST))

	mux.Handle("GET /api/users/{userID}/history", user(app.historyGET))
	mux.Handle("GET /api/users/{userID}/jobs", user(app.jobsGET))

	mux.Handle("/", shared(http.HandlerFunc(app.notFound)))

	return mux
}
