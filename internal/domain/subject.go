package domain

// Role определяет роль субъекта в системе. Набор ролей закрытый:
// гранты на неизвестную роль отклоняются при записи.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Valid проверяет, что роль входит в закрытый набор ролей.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	default:
		return false
	}
}

// Privileged возвращает true для ролей, которые получают уровень owner
// на любой ресурс независимо от грантов.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Subject представляет субъекта доступа: пользователя с ролью и
// членством в группах.
type Subject struct {
	ID       string   `json:"id" db:"id"`
	Role     Role     `json:"role" db:"role"`
	Active   bool     `json:"active" db:"active"`
	GroupIDs []string `json:"group_ids"`
}
