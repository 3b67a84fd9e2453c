package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hyperjump/tally/internal/models"
	"github.com/hyperjump/tally/internal/storage"
)

// userClient manages users either through a running server or directly in storage.
type userClient interface {
	Add(ctx context.Context, in models.UserInput) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type httpUserClient struct {
	baseURL string
}

func (c *httpUserClient) Add(ctx context.Context, in models.UserInput) (*models.User, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/users", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var u models.User
	if err := c.do(req, http.StatusCreated, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *httpUserClient) List(ctx context.Context) ([]*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/users", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Users []*models.User `json:"users"`
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *httpUserClient) Delete(ctx context.Context, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/users/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

func (c *httpUserClient) do(req *http.Request, want int, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type storeUserClient struct {
	store storage.Storage
}

func (c *storeUserClient) Add(ctx context.Context, in models.UserInput) (*models.User, error) {
	u := &models.User{ID: in.ID, Name: in.Name, Email: in.Email}
	if err := c.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *storeUserClient) List(ctx context.Context) ([]*models.User, error) {
	return c.store.FetchAll(ctx)
}

func (c *storeUserClient) Delete(ctx context.Context, id int64) error {
	return c.store.DeleteUser(ctx, id)
}
