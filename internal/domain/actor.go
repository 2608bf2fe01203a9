package domain

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ActorIdentity is the authenticated caller of a mutation. It is built from token
// claims by the HTTP layer and passed into every service call.
type ActorIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// SystemActor is used by scheduled jobs and the ops CLI.
var SystemActor = ActorIdentity{ID: "system", Name: "system", Role: RoleAdmin}

func (a ActorIdentity) IsAdmin() bool { return a.Role == RoleAdmin }

func (a ActorIdentity) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return a.ID
}
