package model

import "gorm.io/gorm"

const (
	AnalysisQueued    = "queued"
	AnalysisCompleted = "completed"
)

// Resume is an uploaded résumé pending or holding analysis feedback.
type Resume struct {
	gorm.Model
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
	Provider string `json:"provider"`
	Status   string `json:"status" gorm:"default:'queued'"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// GeneratedCV is a CV built from one of the in-app templates.
type GeneratedCV struct {
	gorm.Model
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	Title    string `json:"title" gorm:"not null"`
	Template string `json:"template" gorm:"default:'basic'"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}
