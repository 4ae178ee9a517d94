package memberstack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.MemberstackConfig{SecretKey: "sk_test", BaseURL: server.URL, CacheTTL: time.Minute})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresSecret(t *testing.T) {
	_, err := NewClient(config.MemberstackConfig{})
	require.Error(t, err)
}

func TestVerifyTokenCachesResult(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/members/verify-token", r.URL.Path)
		assert.Equal(t, "sk_test", r.Header.Get("X-API-KEY"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-1", body["token"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": "mem_123", "exp": time.Now().Add(time.Hour).Unix()},
		})
	})

	for i := 0; i < 3; i++ {
		identity, err := client.VerifyToken(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, "mem_123", identity.MemberID)
	}
	assert.Equal(t, 1, calls)
}

func TestVerifyTokenRejectedIsUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"invalid-token"}`, http.StatusUnauthorized)
	})

	_, err := client.VerifyToken(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestVerifyTokenUpstreamFailureIsDependency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.VerifyToken(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.Retryable(err))
}

func TestGetMemberMapsCustomFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/members/mem_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"mem_1","auth":{"email":"ana@example.com"},"customFields":{"first-name":"Ana","last-name":"Ruiz","is-ambassador":true}}}`))
	})

	member, err := client.GetMember(context.Background(), "mem_1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", member.Email)
	assert.Equal(t, "Ana", member.FirstName())
	assert.Equal(t, "Ruiz", member.LastName())
	assert.Equal(t, "true", member.CustomFields[CustomFieldAmbassador])
}

func TestUpdateCustomFieldsSendsPatch(t *testing.T) {
	var got map[string]map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/members/mem_9", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"id":"mem_9"}}`))
	})

	err := client.UpdateCustomFields(context.Background(), "mem_9", map[string]string{CustomFieldAmbassador: "true"})
	require.NoError(t, err)
	assert.Equal(t, "true", got["customFields"][CustomFieldAmbassador])
}

func TestUpdateCustomFieldsMissingMemberIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.UpdateCustomFields(context.Background(), "mem_x", map[string]string{CustomFieldAmbassador: "false"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
