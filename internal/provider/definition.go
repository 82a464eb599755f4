package provider

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

// PropertyKind selects the value syntax a property descriptor accepts.
type PropertyKind string

const (
	PropertyText    PropertyKind = "TEXT"
	PropertyNumber  PropertyKind = "NUMBER"
	PropertyBoolean PropertyKind = "BOOLEAN"
	PropertyURL     PropertyKind = "URL"
)

// PropertyDescriptor declares one configurable property of a provider type
// together with its validation rule.
type PropertyDescriptor struct {
	Name          string
	Kind          PropertyKind
	Required      bool
	Secret        bool
	Default       string
	MinLength     int
	MaxLength     int
	Pattern       *regexp.Regexp
	AllowedValues []string
}

// Validate checks one effective property value and returns every violation,
// never just the first. An absent optional value produces no violations.
func (d PropertyDescriptor) Validate(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		if d.Required {
			return []string{"is required"}
		}
		return nil
	}

	var violations []string

	switch d.Kind {
	case PropertyNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			violations = append(violations, "must be a number")
		}
	case PropertyBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			violations = append(violations, "must be a boolean")
		}
	case PropertyURL:
		if parsed, err := url.ParseRequestURI(value); err != nil || parsed.Host == "" {
			violations = append(violations, "must be a valid URL")
		}
	}

	if d.MinLength > 0 && len(value) < d.MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", d.MinLength))
	}
	if d.MaxLength > 0 && len(value) > d.MaxLength {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", d.MaxLength))
	}
	if d.Pattern != nil && !d.Pattern.MatchString(value) {
		violations = append(violations, fmt.Sprintf("must match %s", d.Pattern.String()))
	}
	if len(d.AllowedValues) > 0 && !slices.Contains(d.AllowedValues, value) {
		violations = append(violations, fmt.Sprintf("must be one of: %s", strings.Join(d.AllowedValues, ", ")))
	}

	return violations
}

// Definition is the static descriptor of a provider type: its type key, the
// ordered property descriptors, and the capabilities it can instantiate.
type Definition struct {
	Type         string
	DisplayName  string
	Capabilities []domain.Capability
	Properties   []PropertyDescriptor
}

func (d Definition) HasCapability(capability domain.Capability) bool {
	return slices.Contains(d.Capabilities, capability)
}

// Property returns the descriptor with the given name.
func (d Definition) Property(name string) (PropertyDescriptor, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDescriptor{}, false
}

// ValidateProperty validates a single named value against the matching
// descriptor. Unknown property names produce no violations.
func (d Definition) ValidateProperty(name, value string) []string {
	desc, ok := d.Property(name)
	if !ok {
		return nil
	}
	return desc.Validate(value)
}

// Validate reports whether the definition itself is well formed. Run at
// registration time so a broken builtin fails fast instead of at resolution.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Type) == "" {
		return fmt.Errorf("%w: provider type is required", domain.ErrValidation)
	}
	if len(d.Capabilities) == 0 {
		return fmt.Errorf("%w: provider %q declares no capabilities", domain.ErrValidation, d.Type)
	}
	for _, capability := range d.Capabilities {
		if !capability.IsValid() {
			return fmt.Errorf("%w: provider %q declares unknown capability %q", domain.ErrValidation, d.Type, capability)
		}
	}

	seen := make(map[string]struct{}, len(d.Properties))
	for _, p := range d.Properties {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("%w: provider %q has a property descriptor with no name", domain.ErrValidation, d.Type)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: provider %q declares property %q twice", domain.ErrValidation, d.Type, name)
		}
		seen[name] = struct{}{}
	}

	return nil
}
