package api

import (
	"context"

	"github.com/axora/taskdeck/internal/model"
)

// LoginRequest carries the credentials for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and the signed-in user.
type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for a bearer token. On success the
// token is installed on the client for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.post(ctx, "/auth/login", LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	c.SetToken(resp.Token)
	return &resp, nil
}

// Profile fetches the current user's account record. Used at startup
// to validate a stored token before opening the push connection.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.get(ctx, "/api/users/profile", &user); err != nil {
		return nil, err
	}
	return &user, nil
}
