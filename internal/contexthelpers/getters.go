package contexthelpers

import (
	"context"
)

// UserID returns the user the request or background job is acting on behalf of. Zero means no user.
func UserID(ctx context.Context) int {
	userID, ok := ctx.Value(UserIDContextKey).(int)
	if !ok {
		return 0
	}

	return userID
}

func TraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDContextKey).(string)
	if !ok {
		return ""
	}

	return traceID
}
