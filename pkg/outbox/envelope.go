package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actor roles recorded on envelopes.
const (
	ActorRoleAdmin  = "admin"
	ActorRoleMember = "member"
	ActorRoleSystem = "system"
)

// ActorRef says who caused the event. ActorID is empty for system actors.
type ActorRef struct {
	ActorID uuid.UUID `json:"actorId"`
	Role    string    `json:"role,omitempty"`
}

func AdminActor(id uuid.UUID) *ActorRef  { return &ActorRef{ActorID: id, Role: ActorRoleAdmin} }
func MemberActor(id uuid.UUID) *ActorRef { return &ActorRef{ActorID: id, Role: ActorRoleMember} }
func SystemActor() *ActorRef             { return &ActorRef{Role: ActorRoleSystem} }

// PayloadEnvelope is the JSON stored in outbox_events.payload and delivered
// as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var ErrEmptyData = errors.New("envelope has no data")

// DecodeEnvelope parses raw and checks the fields every consumer relies on.
// The returned id is the parsed EventID.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	id, err := uuid.Parse(env.EventID)
	if err != nil {
		return env, uuid.Nil, fmt.Errorf("envelope event id %q: %w", env.EventID, err)
	}
	if env.Version < 1 {
		return env, id, fmt.Errorf("envelope version %d is not supported", env.Version)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, id, ErrEmptyData
	}
	return env, id, nil
}
