package domain

// CallerRole identifies the kind of authenticated caller presented by the
// external identity collaborator.
type CallerRole string

const (
	CallerRoleInstructor CallerRole = "INSTRUCTOR"
	CallerRoleStudent    CallerRole = "STUDENT"
)
