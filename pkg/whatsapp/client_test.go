package whatsapp

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

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "525512345678", NormalizePhone("55 1234 5678"))
	assert.Equal(t, "525512345678", NormalizePhone("+52 (55) 1234-5678"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}

func TestSendTextPostsCloudAPIMessage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(config.WhatsAppConfig{AccessToken: "wa-token", PhoneNumberID: "12345", BaseURL: server.URL})
	require.NoError(t, err)

	id, err := client.SendText(context.Background(), "5512345678", "Hola")
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
	assert.Equal(t, "525512345678", got["to"])
	assert.Equal(t, "text", got["type"])
}

func TestSendTextUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(config.WhatsAppConfig{AccessToken: "t", PhoneNumberID: "1", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.SendText(context.Background(), "5512345678", "Hola")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.WhatsAppConfig{})
	require.Error(t, err)
}
