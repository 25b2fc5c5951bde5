package authclient

import (
	"math"
	"net/http"
)

// CreateAccountResult is the outcome of an account creation request.
// Message is the response body, verbatim.
type CreateAccountResult struct {
	OK         bool
	StatusCode int
	Message    string
}

// Err returns nil for a successful result and a *StatusError otherwise.
func (r *CreateAccountResult) Err() error {
	return statusErr(ActionCreateAccount, r.OK, r.StatusCode, r.Message)
}

// LoginResult is the outcome of a login request. Similarity is only set when
// OK is true; Message only when it is false.
type LoginResult struct {
	OK         bool
	StatusCode int
	Similarity float64
	Message    string
}

// SimilarityPercent rounds the similarity score to a whole percentage.
func (r *LoginResult) SimilarityPercent() int {
	return int(math.Round(r.Similarity * 100))
}

// Err returns nil for a successful result and a *StatusError otherwise.
func (r *LoginResult) Err() error {
	return statusErr(ActionLogin, r.OK, r.StatusCode, r.Message)
}

// LogoutResult is the outcome of either logout pathway.
type LogoutResult struct {
	OK         bool
	StatusCode int
	Message    string
	action     Action
}

// Err returns nil for a successful result and a *StatusError otherwise.
func (r *LogoutResult) Err() error {
	action := r.action
	if action == "" {
		action = ActionLogout
	}
	return statusErr(action, r.OK, r.StatusCode, r.Message)
}

type loginResponse struct {
	Similarity *float64 `json:"similarity"`
}

const defaultLogoutMessage = "logout failed"

func statusErr(action Action, ok bool, code int, msg string) error {
	if ok {
		return nil
	}
	if code == 0 {
		code = http.StatusInternalServerError
	}
	return &StatusError{Action: action, StatusCode: code, Message: msg}
}
