package cafe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Login exchanges credentials for a session body. The body is returned
// verbatim in Raw alongside the parsed admin flag and token. The request never
// carries the current session token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var raw json.RawMessage
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := c.do(withoutToken(ctx), http.MethodPost, "/user/login/", req, &raw); err != nil {
		return LoginResponse{}, err
	}

	var resp LoginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return LoginResponse{}, fmt.Errorf("%w: login: %v", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(resp.Token.Access) == "" {
		return LoginResponse{}, fmt.Errorf("%w: login response has no access token", ErrInvalidResponse)
	}
	resp.Raw = raw
	return resp, nil
}
