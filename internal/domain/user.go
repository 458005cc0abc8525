package domain

import "time"

const (
	RoleBuyer   = "buyer"
	RoleArtisan = "artisan"
	RoleAdmin   = "admin"
)

// PublicRoles are the roles a visitor may pick when registering
var PublicRoles = []string{RoleBuyer, RoleArtisan}

// User is a marketplace account; artisans own product listings
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name      string    `gorm:"size:100" json:"name"`
	Email     string    `gorm:"size:191;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:191" json:"-"`
	Role      string    `gorm:"size:16;index;default:buyer" json:"role"`
	Verified  bool      `gorm:"default:false" json:"verified"`
	Bio       string    `gorm:"size:1000" json:"bio"`
	Location  string    `gorm:"size:200" json:"location"`
	Avatar    string    `gorm:"size:1024" json:"avatar"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "users"
}

// CanSell reports whether the user may create product listings
func (u *User) CanSell() bool {
	return u.Role == RoleArtisan || u.Role == RoleAdmin
}
