package persistence

import "github.com/orbitapp/backend/internal/domain/models"

func newTestUser(id, email, role string) *models.User {
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      "New User",
		FirstName: "New",
		LastName:  "User",
		Role:      role,
		IsActive:  true,
		R:         0.5,
		RMin:      0.0,
		RMax:      1.0,
	}
}
