package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

func TestSendBuildsMailRequest(t *testing.T) {
	var got mailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := NewClient(config.SendgridConfig{APIKey: "SG.key", DefaultFrom: "hola@pataamiga.mx", FromName: "Club Pata Amiga"}, WithBaseURL(server.URL))
	require.NoError(t, err)

	id, err := client.Send(context.Background(), Email{To: "ana@example.com", Subject: "Hola", HTML: "<p>Hola Ana</p>"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "ana@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "hola@pataamiga.mx", got.From.Email)
	assert.Equal(t, "Hola", got.Subject)
	assert.Equal(t, "<p>Hola Ana</p>", got.Content[0].Value)
}

func TestSendServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(config.SendgridConfig{APIKey: "SG.key"}, WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Send(context.Background(), Email{To: "ana@example.com"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSendRequiresRecipient(t *testing.T) {
	client, err := NewClient(config.SendgridConfig{APIKey: "SG.key"})
	require.NoError(t, err)

	_, err = client.Send(context.Background(), Email{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
