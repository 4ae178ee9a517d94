package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
)

func TestSubscriptionNamesSkipsBlank(t *testing.T) {
	names := subscriptionNames(config.PubSubConfig{
		IdentitySubscription:     " identity-sync ",
		NotificationSubscription: "",
	})
	assert.Equal(t, []string{"identity-sync"}, names)
	assert.Empty(t, subscriptionNames(config.PubSubConfig{}))
}

func TestResourceName(t *testing.T) {
	c := &Client{projectID: "pata-amiga"}

	cases := []struct {
		kind, in, want string
	}{
		{kindSubscription, "identity-sync", "projects/pata-amiga/subscriptions/identity-sync"},
		{kindSubscription, "projects/other/subscriptions/x", "projects/other/subscriptions/x"},
		{kindTopic, " domain-events ", "projects/pata-amiga/topics/domain-events"},
		{kindTopic, "projects/other/subscriptions/x", "projects/pata-amiga/topics/projects/other/subscriptions/x"},
		{kindTopic, "  ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.resourceName(tc.kind, tc.in), tc.in)
	}
	assert.Empty(t, (&Client{}).resourceName(kindTopic, "domain-events"))
}

func TestLookupError(t *testing.T) {
	assert.NoError(t, lookupError("topic", "domain-events", nil))
	assert.EqualError(t,
		lookupError("subscription", "identity-sync", status.Error(codes.NotFound, "gone")),
		`pubsub: subscription "identity-sync" does not exist`)

	cause := errors.New("deadline")
	assert.ErrorIs(t, lookupError("topic", "domain-events", cause), cause)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("domain-events"))
	assert.Nil(t, c.Subscription("identity-sync"))
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, c.Close())
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{ProjectID: " "}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}
