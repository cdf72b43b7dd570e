package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/domain"
)

func TestClient_UpsertUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req UpsertUserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(5), req.TelegramID)
		assert.Equal(t, "CODE1234", req.ReferralCode)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"created":true,"user":{"id":1,"telegramId":5,"credits":10,"referralCode":"ABCDEFGH"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "k")
	user, created, err := c.UpsertUser(context.Background(), UpsertUserRequest{TelegramID: 5, ReferralCode: "CODE1234"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(10), user.Credits)
	assert.Equal(t, "ABCDEFGH", user.ReferralCode)
}

func TestClient_InsufficientCredits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"success":false,"error":"insufficient_credits","message":"insufficient credits","required":1,"available":0}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").CreateTask(context.Background(), 5, "t", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Status)
	assert.Equal(t, domain.KindInsufficientCredits, KindOf(err))
	assert.Equal(t, int64(1), apiErr.Required)
	assert.Equal(t, int64(0), apiErr.Available)
}

func TestClient_UserTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/user/5", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"success":true,"tasks":[{"id":2,"title":"b","status":"completed"},{"id":1,"title":"a","status":"completed"}]}`))
	}))
	defer srv.Close()

	tasks, err := New(srv.URL, "").UserTasks(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "b", tasks[0].Title)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))

	_, err := New(srv.URL, "").GetUser(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrUnavailable))

	srv.Close()
	_, err = New(srv.URL, "").GetUser(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, domain.Kind(""), KindOf(err))
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"not_found","message":"user not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Referrals(context.Background(), 9)
	assert.Equal(t, domain.KindNotFound, KindOf(err))
}
