package domain

import "strings"

type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

type UserSummary struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

func (u UserSummary) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Session struct {
	User      *UserSummary
	IsLoading bool
}

func (s Session) Authenticated() bool {
	return s.User != nil
}
