// Package session holds the signed-in user's identity and bearer
// credential. A Session value is created at login and passed
// explicitly to every component that needs it; nothing in the program
// reads session state from a global.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/axora/taskdeck/internal/credential"
	"github.com/axora/taskdeck/internal/model"
)

// keyringKey is where the serialized session lives in the system
// keyring between runs.
const keyringKey = "session"

// Session identifies the signed-in user and carries the bearer token
// attached to REST calls and the push connection handshake.
type Session struct {
	UserID int64          `json:"userId"`
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Role   model.UserRole `json:"role"`
	Token  string         `json:"token"`
}

// New builds a Session from a login response.
func New(user model.User, token string) Session {
	return Session{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Token:  token,
	}
}

// Save persists the session to the system keyring so the next run can
// resume without a fresh login.
func Save(creds credential.Store, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing session: %w", err)
	}
	return creds.Set(keyringKey, string(data))
}

// Load restores a previously saved session. A missing or unreadable
// entry returns an error; callers fall back to the login screen.
func Load(creds credential.Store) (Session, error) {
	data, err := creds.Get(keyringKey)
	if err != nil {
		return Session{}, fmt.Errorf("loading session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Session{}, fmt.Errorf("parsing stored session: %w", err)
	}
	if s.UserID == 0 || s.Token == "" {
		return Session{}, fmt.Errorf("stored session is incomplete")
	}
	return s, nil
}

// Clear removes the persisted session. Called on logout and when the
// server rejects the stored token.
func Clear(creds credential.Store) error {
	return creds.Delete(keyringKey)
}
