package auth

import "time"

// User is the stored account. An empty RefreshToken means the user has no active session.
type User struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	RefreshToken          string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (u User) Profile() Profile {
	return Profile{Name: u.Name, Email: u.Email, ID: u.ID}
}

// Identity is what a verified access token asserts about the caller.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	ID    string `json:"id"`
}

// Session is the login payload: the profile plus both issued tokens.
type Session struct {
	Profile
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}
