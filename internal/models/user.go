package models

// UserRole names the permissions profile of a panel operator.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSupervisor UserRole = "supervisor"
	RoleReception  UserRole = "recepcion"
	RoleConsultant UserRole = "consultor"
	RoleFollowUp   UserRole = "seguimiento"
	RoleAuditor    UserRole = "auditor"
	RoleBasic      UserRole = "basico"
)

// Roles lists every assignable role.
func Roles() []UserRole {
	return []UserRole{RoleAdmin, RoleSupervisor, RoleReception, RoleConsultant, RoleFollowUp, RoleAuditor, RoleBasic}
}

// Role groups used by the panel routes.
var (
	WriterRoles    = []UserRole{RoleAdmin, RoleSupervisor, RoleReception, RoleFollowUp}
	CloserRoles    = []UserRole{RoleAdmin, RoleSupervisor}
	ReporterRoles  = []UserRole{RoleAdmin, RoleSupervisor, RoleConsultant, RoleFollowUp, RoleAuditor}
	ReferenceRoles = []UserRole{RoleAdmin, RoleSupervisor}
	UserAdminRoles = []UserRole{RoleAdmin}
)

// User is an operator account managed on the remote API.
type User struct {
	Cedula   string   `json:"cedula" validate:"required"`
	Nombre   string   `json:"nombre" validate:"required"`
	Username string   `json:"username" validate:"required"`
	Rol      UserRole `json:"rol" validate:"required,oneof=admin supervisor recepcion consultor seguimiento auditor basico"`
	Activo   bool     `json:"activo"`
	Password string   `json:"password,omitempty"`
}

// HasRole reports whether the user holds any of roles.
func (u User) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if u.Rol == r {
			return true
		}
	}
	return false
}
