package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tripdeskhq/tripdesk-backend/pkg/enums"
)

// UserRole grants one role to one user. The schema permits multiple rows per
// user; lookups resolve to the highest-precedence role.
type UserRole struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_roles_user_role"`
	Role      enums.Role `gorm:"column:role;type:user_role;not null;uniqueIndex:ux_user_roles_user_role"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
