package user

import "github.com/Anvoria/scanly/internal/database"

type User struct {
	database.BaseModel
	Username    string `gorm:"column:username;unique;not null"`
	DisplayName string `gorm:"column:display_name;not null"`
	Email       string `gorm:"column:email;unique;not null"`
	Password    string `gorm:"column:password;not null"`
	IsActive    bool   `gorm:"column:is_active;default:true"`
}

func (User) TableName() string {
	return "users"
}

// Info is the client-visible slice of a user attached to login responses.
type Info struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// PublicInfo maps a user record to its client-visible form.
func (u *User) PublicInfo() *Info {
	return &Info{
		ID:          u.ID.String(),
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}
