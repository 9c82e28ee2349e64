package domain

const RoleSuperadmin = "superadmin"
const RoleAdmin = "admin"
const RoleUser = "user"

// User carries the slice of the community user document this service touches.
// The full profile lives in the main application; here only the key, the
// lookup attribute and the role matter.
type User struct {
	UserID string `json:"id" dynamodbav:"user_id"`
	Email  string `json:"email" dynamodbav:"email"`
	Role   string `json:"role" dynamodbav:"role"`
}
