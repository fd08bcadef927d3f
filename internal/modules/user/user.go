package user

// Profile is the record kept at users/<uid>. The role field is what auth.RequireRole
// checks.
type Profile struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// RegisterRequest is sent once by a newly signed-up user.
type RegisterRequest struct {
	Name string `json:"name"`
}

// RoleRequest is an admin's role assignment.
type RoleRequest struct {
	Role string `json:"role"`
}
