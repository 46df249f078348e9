package http

import (
	"time"

	"moneypall/internal/core"
)

type userResponse struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone"`
	DateJoined time.Time `json:"date_joined"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		DateJoined: u.DateJoined,
	}
}

type categoryResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Image: c.Image}
}

type recordResponse struct {
	ID          int64      `json:"id"`
	User        int64      `json:"user"`
	Amount      core.Money `json:"amount"`
	Category    int64      `json:"category"`
	Currency    string     `json:"currency"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

func toRecordResponse(r core.Record) recordResponse {
	return recordResponse{
		ID:          r.ID,
		User:        r.UserID,
		Amount:      r.Amount,
		Category:    r.CategoryID,
		Currency:    r.Currency,
		Description: r.Description,
		Date:        r.Date,
	}
}
