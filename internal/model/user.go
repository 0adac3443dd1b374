package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 定义了 users 表的 ORM 模型。
type User struct {
	Base
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(255);not null" json:"-"`
	Name     string `gorm:"type:varchar(100)" json:"name"`
	Role     string `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin 判断用户是否为管理员。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
