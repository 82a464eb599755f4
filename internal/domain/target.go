package domain

// DeliveryTarget is the runtime context of one send attempt. It carries
// the test-mode flag plus arbitrary properties consumed by routing
// conditions. Targets are ephemeral and never stored.
type DeliveryTarget struct {
	Test       bool
	Properties map[string]any
}

// ConditionScope returns the property bag a routing condition is evaluated
// against: every target property plus the reserved "test" field.
func (t DeliveryTarget) ConditionScope() map[string]any {
	scope := make(map[string]any, len(t.Properties)+1)
	for name, value := range t.Properties {
		scope[name] = value
	}
	scope["test"] = t.Test
	return scope
}
