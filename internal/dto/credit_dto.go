package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreditBalanceResponse struct {
	Credits int `json:"credits"`
}

type AdminSetCreditsRequest struct {
	UserId  string `json:"user_id" validate:"required,max=64"`
	Credits *int   `json:"credits" validate:"required,gte=0"`
}

type AdminSetCreditsResponse struct {
	UserId     string `json:"user_id"`
	OldCredits int    `json:"old_credits"`
	NewCredits int    `json:"new_credits"`
	Amount     int    `json:"amount"`
}

type CreditLogResponse struct {
	Id            uuid.UUID `json:"id"`
	UserId        string    `json:"user_id"`
	Amount        int       `json:"amount"`
	Reason        string    `json:"reason"`
	TransactionId string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type BackfillResponse struct {
	TotalProcessed         int    `json:"totalProcessed"`
	ExtractionSessions     int    `json:"extractionSessions"`
	UpgradedToDigitalHuman int64  `json:"upgradedToDigitalHuman"`
	Duration               string `json:"duration"`
	Message                string `json:"message"`
}
