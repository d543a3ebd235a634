package entities

import (
	"time"

	"github.com/google/uuid"
)

type Timestamp struct {
	CreatedAt time.Time `gorm:"type:timestamp" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp" json:"updated_at"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:254" json:"email"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	PasswordHash string    `json:"-"`
	Role         string    `gorm:"size:20;default:user" json:"role"`
	AvatarURL    string    `json:"avatar_url,omitempty"`

	Recipes []Recipe `gorm:"foreignKey:AuthorID" json:"-"`
	Timestamp
}

type Follow struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID `gorm:"uniqueIndex:idx_follows_user_following" json:"user_id"`
	FollowingID uuid.UUID `gorm:"uniqueIndex:idx_follows_user_following" json:"following_id"`

	User      *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Following *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp
}
