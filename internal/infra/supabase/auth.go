package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/easyscalepro/easyscale-api/internal/domain"
)

// ============================================================
// GoTrue — session issuance and privileged user management
// ============================================================

type gotrueTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type gotrueUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *gotrueErrorResponse) text() string {
	switch {
	case e.ErrorDescription != "":
		return e.ErrorDescription
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

// SignIn exchanges credentials for a GoTrue session. Bad credentials come
// back as ErrUnauthorized with the product's Portuguese message.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	payload := map[string]string{"email": email, "password": password}
	var token gotrueTokenResponse

	err := c.execute(ctx, func() error {
		status, body, err := c.authRequest(ctx, http.MethodPost, "token?grant_type=password", c.apiKey, payload)
		if err != nil {
			return err
		}
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return &domain.ErrUnauthorized{Message: "Email ou senha incorretos"}
		}
		if status < 200 || status >= 300 {
			return c.authError("SignIn", status, body)
		}
		return json.Unmarshal(body, &token)
	})
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		UserID:       token.User.ID,
		Email:        token.User.Email,
	}, nil
}

// SignOut revokes the session server-side. GoTrue answers 204 on success.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	return c.execute(ctx, func() error {
		status, body, err := c.authRequest(ctx, http.MethodPost, "logout", accessToken, nil)
		if err != nil {
			return err
		}
		if status < 200 || status >= 300 {
			return c.authError("SignOut", status, body)
		}
		return nil
	})
}

// AdminCreateUser creates an auth identity with the email pre-confirmed.
// Requires the service role key. A duplicate email surfaces as ErrConflict.
func (c *Client) AdminCreateUser(ctx context.Context, email, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AdminCreateUser")
	defer span.End()

	payload := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
	}
	var user gotrueUserResponse

	err := c.execute(ctx, func() error {
		status, body, err := c.authRequest(ctx, http.MethodPost, "admin/users", c.serviceRoleKey, payload)
		if err != nil {
			return err
		}
		if status == http.StatusUnprocessableEntity || status == http.StatusConflict {
			return &domain.ErrConflict{Message: "Já existe um usuário com este email"}
		}
		if status < 200 || status >= 300 {
			return c.authError("AdminCreateUser", status, body)
		}
		return json.Unmarshal(body, &user)
	})
	if err != nil {
		return "", err
	}

	return user.ID, nil
}

// AdminSetPassword overwrites the user's password. Requires the service
// role key.
func (c *Client) AdminSetPassword(ctx context.Context, userID, password string) error {
	ctx, span := tracer.Start(ctx, "Supabase.AdminSetPassword")
	defer span.End()

	path := fmt.Sprintf("admin/users/%s", url.PathEscape(userID))
	payload := map[string]any{"password": password}

	return c.execute(ctx, func() error {
		status, body, err := c.authRequest(ctx, http.MethodPut, path, c.serviceRoleKey, payload)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return &domain.ErrNotFound{Resource: "user", ID: userID}
		}
		if status < 200 || status >= 300 {
			return c.authError("AdminSetPassword", status, body)
		}
		return nil
	})
}

// authRequest performs a single GoTrue call. The bearer differs per
// operation: anon key for sign-in, the user's token for logout, the service
// role key for admin endpoints.
func (c *Client) authRequest(ctx context.Context, method, path, bearer string, payload any) (int, []byte, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("gotrue: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) authError(op string, status int, body []byte) error {
	var gerr gotrueErrorResponse
	_ = json.Unmarshal(body, &gerr)

	c.logger.Warn("gotrue: non-2xx response",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("message", gerr.text()),
	)
	return &domain.ErrExternalService{
		Service: "gotrue",
		Err:     fmt.Errorf("%s returned %d: %s", op, status, gerr.text()),
	}
}
