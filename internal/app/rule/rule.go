// Package rule provides the rule chain that validates exercises before they are saved.
package rule

import (
	"context"

	"github.com/osa030/breathbox/internal/domain/exercise"
)

// Origin tells where an exercise comes from.
type Origin int

const (
	OriginBuiltin Origin = iota // Shipped default
	OriginCustom                // Created by the user
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginBuiltin:
		return "builtin"
	case OriginCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// OriginOf returns the origin of ex.
func OriginOf(ex exercise.Exercise) Origin {
	if ex.Custom {
		return OriginCustom
	}
	return OriginBuiltin
}

// Result represents the result of a rule check.
type Result struct {
	Accepted bool
	Code     string // e.g., "invalid_duration", "phase_out_of_range"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Rule is the interface for exercise rules.
type Rule interface {
	// Name returns the rule name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this rule can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the rule configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this rule should be applied to exercises of the given origin.
	AppliesTo(origin Origin) bool
	// Check performs the rule check.
	Check(ctx context.Context, ex exercise.Exercise) Result
}

// registry holds registered rule factories.
var registry = make(map[string]func() Rule)

// Register registers a rule factory.
func Register(name string, factory func() Rule) {
	registry[name] = factory
}

// GetRegistered returns all registered rule factories.
func GetRegistered() map[string]func() Rule {
	return registry
}
