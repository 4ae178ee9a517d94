package enums

import "fmt"

// CommChannel is the delivery channel of a templated message.
type CommChannel string

const (
	CommChannelEmail    CommChannel = "email"
	CommChannelWhatsApp CommChannel = "whatsapp"
)

var validCommChannels = []CommChannel{
	CommChannelEmail,
	CommChannelWhatsApp,
}

// String implements fmt.Stringer.
func (c CommChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommChannel.
func (c CommChannel) IsValid() bool {
	for _, candidate := range validCommChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommChannel converts raw input into CommChannel.
func ParseCommChannel(value string) (CommChannel, error) {
	for _, candidate := range validCommChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid communication channel %q", value)
}

// CommLogStatus records the outcome of a single send.
type CommLogStatus string

const (
	CommLogStatusSent   CommLogStatus = "sent"
	CommLogStatusFailed CommLogStatus = "failed"
)

var validCommLogStatuses = []CommLogStatus{
	CommLogStatusSent,
	CommLogStatusFailed,
}

// String implements fmt.Stringer.
func (c CommLogStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommLogStatus.
func (c CommLogStatus) IsValid() bool {
	for _, candidate := range validCommLogStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommLogStatus converts raw input into CommLogStatus.
func ParseCommLogStatus(value string) (CommLogStatus, error) {
	for _, candidate := range validCommLogStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid communication log status %q", value)
}

// CommTrigger binds a template to a workflow event for automatic sends.
type CommTrigger string

const (
	CommTriggerPetApproved         CommTrigger = "pet_approved"
	CommTriggerPetRejected         CommTrigger = "pet_rejected"
	CommTriggerPetActionRequired   CommTrigger = "pet_action_required"
	CommTriggerAmbassadorApproved  CommTrigger = "ambassador_approved"
	CommTriggerAmbassadorRejected  CommTrigger = "ambassador_rejected"
	CommTriggerAmbassadorSuspended CommTrigger = "ambassador_suspended"
)

var validCommTriggers = []CommTrigger{
	CommTriggerPetApproved,
	CommTriggerPetRejected,
	CommTriggerPetActionRequired,
	CommTriggerAmbassadorApproved,
	CommTriggerAmbassadorRejected,
	CommTriggerAmbassadorSuspended,
}

// String implements fmt.Stringer.
func (c CommTrigger) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommTrigger.
func (c CommTrigger) IsValid() bool {
	for _, candidate := range validCommTriggers {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommTrigger converts raw input into CommTrigger.
func ParseCommTrigger(value string) (CommTrigger, error) {
	for _, candidate := range validCommTriggers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid communication trigger %q", value)
}
