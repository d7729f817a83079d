package audit

import "strings"

// Role is the auditor's position. The JSON value is the label shown to users.
type Role string

const (
	RoleAuditorSenior Role = "Auditor Senior"
	RoleAuditManager  Role = "Gerente de Auditoría"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAuditorSenior, RoleAuditManager:
		return true
	}
	return false
}

// User is a locally registered auditor.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultName derives a display name from the local part of an address.
func DefaultName(email string) string {
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	return local
}
