package model

import (
	"time"
)

type UserRole string

const (
	Student  UserRole = "student"
	Examiner UserRole = "examiner"
	Admin    UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Code     string   `gorm:"size:20;unique;not null" json:"code"` // 用户识别码，成绩分析按此查询
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Disabled bool     `gorm:"default:false" json:"disabled"`

	LastLogin time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}
