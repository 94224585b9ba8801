// Package acl implements the permission collaborator consulted by listings
// and mutations.
package acl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marmos91/dittostore/pkg/keys"
)

// Action is an operation a user wants to perform on a path.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Effect says whether a matching rule grants or refuses access.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Wildcard matches any user.
const Wildcard = "*"

// Checker decides whether user may perform action on path.
//
// Paths are org-qualified ("/acme/docs/a.html"); leading and trailing
// separators are ignored.
type Checker interface {
	HasPermission(user, path string, action Action) bool
}

// Rule grants or denies actions on a path subtree.
type Rule struct {
	// User is a user name or "*" for everyone
	User string `mapstructure:"user" yaml:"user" validate:"required"`

	// Path is the subtree the rule applies to ("/" or "" for everything)
	Path string `mapstructure:"path" yaml:"path"`

	// Actions lists the covered actions; empty covers all of them
	Actions []Action `mapstructure:"actions" yaml:"actions" validate:"dive,oneof=read write"`

	// Effect is "allow" (default) or "deny"
	Effect Effect `mapstructure:"effect" yaml:"effect" validate:"omitempty,oneof=allow deny"`
}

func (r Rule) matches(user, path string, action Action) bool {
	if r.User != Wildcard && r.User != user {
		return false
	}
	if len(r.Actions) > 0 && !slices.Contains(r.Actions, action) {
		return false
	}
	return keys.IsDescendant(path, keys.Sanitize(r.Path))
}

// RuleSet is a Checker evaluating a fixed list of rules.
//
// Evaluation order:
//  1. Any matching deny rule refuses access (deny takes precedence)
//  2. Any matching allow rule grants access
//  3. Otherwise the default decision applies
type RuleSet struct {
	rules        []Rule
	defaultAllow bool
}

// NewRuleSet validates rules and builds a RuleSet.
//
// Returns:
//   - *RuleSet: The rule set
//   - error: If a rule has no user or an unknown effect/action
func NewRuleSet(rules []Rule, defaultAllow bool) (*RuleSet, error) {
	normalized := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.User) == "" {
			return nil, fmt.Errorf("acl rule %d: user is required", i)
		}
		switch r.Effect {
		case "":
			r.Effect = EffectAllow
		case EffectAllow, EffectDeny:
		default:
			return nil, fmt.Errorf("acl rule %d: unknown effect %q", i, r.Effect)
		}
		for _, a := range r.Actions {
			if a != ActionRead && a != ActionWrite {
				return nil, fmt.Errorf("acl rule %d: unknown action %q", i, a)
			}
		}
		normalized = append(normalized, r)
	}

	return &RuleSet{rules: normalized, defaultAllow: defaultAllow}, nil
}

// HasPermission implements Checker.
func (s *RuleSet) HasPermission(user, path string, action Action) bool {
	path = keys.Sanitize(path)

	allowed := false
	for _, r := range s.rules {
		if !r.matches(user, path, action) {
			continue
		}
		if r.Effect == EffectDeny {
			return false
		}
		allowed = true
	}

	if allowed {
		return true
	}
	return s.defaultAllow
}

// AllowAll grants every request. Used when no rules are configured.
type AllowAll struct{}

func (AllowAll) HasPermission(string, string, Action) bool { return true }
