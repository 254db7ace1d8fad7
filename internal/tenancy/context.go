package tenancy

import "context"

type ctxKey string

const clinicKey ctxKey = "agenda.clinic_id"

// WithClinicID stores the authenticated clinic id in context.
func WithClinicID(ctx context.Context, clinicID string) context.Context {
	return context.WithValue(ctx, clinicKey, clinicID)
}

// ClinicIDFromContext extracts the clinic id if present.
func ClinicIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(clinicKey)
	if val == nil {
		return "", false
	}
	clinicID, ok := val.(string)
	return clinicID, ok && clinicID != ""
}

// Matches reports whether the authenticated clinic in ctx equals the clinic a
// request claims to operate on. Missing session tenancy never matches.
func Matches(ctx context.Context, clinicID string) bool {
	current, ok := ClinicIDFromContext(ctx)
	return ok && current == clinicID
}
