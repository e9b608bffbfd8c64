package authz

import (
	"context"
	"net/http"
)

type contextKey string

const (
	subjectKey  contextKey = "subject"
	propertyKey contextKey = "property_id"
)

// WithIdentity stores the token subject and, when present, the farm property
// the token is scoped to.
func WithIdentity(ctx context.Context, subject, propertyID string) context.Context {
	if subject != "" {
		ctx = context.WithValue(ctx, subjectKey, subject)
	}
	if propertyID != "" {
		ctx = context.WithValue(ctx, propertyKey, propertyID)
	}
	return ctx
}

func SubjectFromRequest(r *http.Request) (string, bool) {
	sub, ok := r.Context().Value(subjectKey).(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}

func PropertyIDFromRequest(r *http.Request) (string, bool) {
	pid, ok := r.Context().Value(propertyKey).(string)
	if !ok || pid == "" {
		return "", false
	}
	return pid, true
}
