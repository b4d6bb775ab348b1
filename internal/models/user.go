package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	StudentNumber string         `json:"student_number,omitempty" gorm:"uniqueIndex"`
	FullName      string         `json:"full_name" gorm:"not null"`
	Email         string         `json:"email" gorm:"uniqueIndex;not null"`
	Role          UserRole       `json:"role" gorm:"not null;default:'student'"`
	PasswordHash  string         `json:"-" gorm:"not null"`
	IsActive      bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStudent UserRole = "student"
)
