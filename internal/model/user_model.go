package model

import (
	"time"
)

type User struct {
	Id        string    `gorm:"type:varchar(64);primaryKey"`
	Email     string    `gorm:"type:varchar(255);index"`
	Role      string    `gorm:"type:varchar(50);not null;default:'user'"`
	Credits   int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
