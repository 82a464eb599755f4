package domain

import (
	"fmt"
	"strings"
)

// Capability identifies a channel role a provider instance can fill.
type Capability string

const (
	CapabilityEmailSender Capability = "EMAIL_SENDER"
	CapabilitySMSSender   Capability = "SMS_SENDER"
	CapabilityPushSender  Capability = "PUSH_SENDER"
	CapabilityChatSender  Capability = "CHAT_SENDER"
)

func (c Capability) String() string { return string(c) }

func (c Capability) IsValid() bool {
	switch c {
	case CapabilityEmailSender, CapabilitySMSSender, CapabilityPushSender, CapabilityChatSender:
		return true
	}
	return false
}

func ParseCapabilityFromString(s string) (Capability, error) {
	c := Capability(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid capability %q", ErrValidation, s)
	}
	return c, nil
}
