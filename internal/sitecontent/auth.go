package sitecontent

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidCredentials is returned by Login when the backend rejects the username or password.
var ErrInvalidCredentials = errors.New("incorrect username or password")

// LoginResult is the token payload returned by /login/access-token.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Role         string `json:"role"`
	FullName     string `json:"full_name"`
	AdminID      string `json:"admin_id"`
	ProfileImage string `json:"profile_image"`
}

// Login exchanges admin credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	form := url.Values{}
	form.Set("username", strings.TrimSpace(username))
	form.Set("password", password)

	var result LoginResult
	err := c.do(ctx, request{method: http.MethodPost, path: "/login/access-token", form: form}, &result)
	if errors.Is(err, ErrUnauthorized) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(result.AccessToken) == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	return result, nil
}
