package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Birthday string `json:"birthday,omitempty"`
}

type updateRequest struct {
	Password *string `json:"password,omitempty"`
	Email    *string `json:"email,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
}

type account struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Birthday       string   `json:"birthday,omitempty"`
	FavoriteMovies []string `json:"favoriteMovies"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      account   `json:"user"`
}

// apiError is a non-2xx response decoded from {"error": ..., "fields": ...}.
type apiError struct {
	Status  int
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("http %d: %s", e.Status, e.Message)
	if len(e.Fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg += "\n  " + k + ": " + e.Fields[k]
	}
	return msg
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func newClient(base, token string) *client {
	return &client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		ae := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(data, ae) != nil || ae.Message == "" {
			ae.Message = strings.TrimSpace(string(data))
		}
		return ae
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func userPath(username string) string { return "/users/" + url.PathEscape(username) }

func (c *client) register(ctx context.Context, r registerRequest) (*account, error) {
	var a account
	if err := c.do(ctx, http.MethodPost, "/users", r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) login(ctx context.Context, username, password string) (*loginResponse, error) {
	var lr loginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

func (c *client) account(ctx context.Context, username string) (*account, error) {
	var a account
	if err := c.do(ctx, http.MethodGet, userPath(username), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) update(ctx context.Context, username string, r updateRequest) (*account, error) {
	var a account
	if err := c.do(ctx, http.MethodPut, userPath(username), r, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) addFavorite(ctx context.Context, username, movieID string) (*account, error) {
	var a account
	if err := c.do(ctx, http.MethodPost, userPath(username)+"/movies/"+url.PathEscape(movieID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) removeFavorite(ctx context.Context, username, movieID string) (*account, error) {
	var a account
	if err := c.do(ctx, http.MethodDelete, userPath(username)+"/movies/"+url.PathEscape(movieID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *client) deleteAccount(ctx context.Context, username string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, userPath(username), nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *client) movies(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(ctx, http.MethodGet, "/movies", nil, &out)
	return out, err
}

func (c *client) movie(ctx context.Context, title string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/movies/"+url.PathEscape(title), nil, &out)
	return out, err
}

func (c *client) genre(ctx context.Context, name string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/movies/genre/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *client) director(ctx context.Context, name string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/movies/director/"+url.PathEscape(name), nil, &out)
	return out, err
}
