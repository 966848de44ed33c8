package models

type UserRole string

// Roles mirror the RBAC matrix the frontend ships with. Superadmin skips
// permission resolution entirely.
const (
	UserRoleSuperAdmin      UserRole = "superadmin"
	UserRoleDepartmentAdmin UserRole = "department-admin"
	UserRoleMember          UserRole = "member"
	UserRoleMemberBank      UserRole = "member-bank"
	UserRolePublic          UserRole = "public"
)

func IsValidUserRole(value string) bool {
	switch UserRole(value) {
	case UserRoleSuperAdmin, UserRoleDepartmentAdmin, UserRoleMember, UserRoleMemberBank, UserRolePublic:
		return true
	default:
		return false
	}
}

type User struct {
	BaseModel
	Email        string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	FirstName    string   `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string   `json:"lastName" gorm:"type:varchar(100);not null"`
	Role         UserRole `json:"role" gorm:"type:varchar(30);not null;default:'member'"`
}
