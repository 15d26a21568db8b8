package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transactionsServer(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		check(r)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"signature": "sig1", "sender": "alice", "receiver": "bob", "amount": 1000, "timestamp": 1628510400},
			{"signature": "sig2", "sender": "alice", "receiver": "carol", "amount": 2000, "timestamp": 1628510500},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTransactionsCommand_PassesFlags(t *testing.T) {
	server := transactionsServer(t, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "alice", q.Get("pub_key"))
		assert.Equal(t, "09/08/2021", q.Get("day"))
		assert.Equal(t, "2", q.Get("limit"))
		assert.False(t, q.Has("offset"), "unset offset is not sent")
	})

	out, err := runApp(t, "--server-url", server.URL, "--json", "client", "transactions", "--day", "09/08/2021", "--limit", "2", "alice")
	require.NoError(t, err)

	var txns []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &txns))
	assert.Len(t, txns, 2)
}

func TestTransactionsCommand_DefaultsNotSent(t *testing.T) {
	server := transactionsServer(t, func(r *http.Request) {
		q := r.URL.Query()
		assert.False(t, q.Has("limit"))
		assert.False(t, q.Has("offset"))
		assert.False(t, q.Has("day"))
	})

	out, err := runApp(t, "--server-url", server.URL, "client", "transactions", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "RECEIVER")
	assert.Contains(t, out, "carol")
}

func TestTransactionsCommand_JQ(t *testing.T) {
	server := transactionsServer(t, func(r *http.Request) {})

	out, err := runApp(t, "--server-url", server.URL, "client", "transactions", "--jq", ".[].receiver", "alice")
	require.NoError(t, err)
	assert.Equal(t, "\"bob\"\n\"carol\"\n", out)
}

func TestTransactionsCommand_RequiresKey(t *testing.T) {
	_, err := runApp(t, "client", "transactions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pub key is required")
}

func TestTransactionsCommand_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid date format", "details": "Please use the format dd/mm/yyyy."})
	}))
	defer server.Close()

	_, err := runApp(t, "--server-url", server.URL, "client", "transactions", "--day", "bad", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid date format")
}
