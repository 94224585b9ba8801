package mutation

import (
	"context"
	"strings"

	"github.com/marmos91/dittostore/pkg/enumerate"
	"github.com/marmos91/dittostore/pkg/keys"
)

// Validator turns a request payload into a Plan.
//
// Validation has no side effects: it only reads from the existence check and
// never writes to the object store.
type Validator struct {
	resolver      *Resolver
	exists        ExistsFunc
	allowCrossOrg bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithCrossOrg controls whether the destination may live in a different org
// than the source (default: true).
func WithCrossOrg(allow bool) ValidatorOption {
	return func(v *Validator) {
		v.allowCrossOrg = allow
	}
}

// NewValidator creates a Validator. exists is used by the resolver for move
// operations.
func NewValidator(resolver *Resolver, exists ExistsFunc, opts ...ValidatorOption) *Validator {
	v := &Validator{resolver: resolver, exists: exists, allowCrossOrg: true}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks a move/copy/rename request and computes its plan.
//
// Rules, in order:
//  1. A nil form is the no-op signal: (nil, nil)
//  2. The destination field must be present and non-blank
//  3. The sanitized destination's first segment is its org; a key must
//     follow and every segment must be valid
//  4. The destination must not be the source or beneath it
//  5. Move destinations go through the collision resolver; copy and rename
//     destinations are returned as named
//
// Parameters:
//   - ctx: Context for the existence check
//   - op: Requested operation
//   - form: Request payload, nil when absent
//   - src: Source location (org plus org-relative key)
//
// Returns:
//   - *Plan: The plan, or nil for the no-op signal
//   - error: *Error of kind InvalidRequest, IllegalMove or
//     CollisionExhausted, or an existence check failure
func (v *Validator) Validate(ctx context.Context, op Op, form Form, src Location) (*Plan, error) {
	// ========================================================================
	// Step 1: Absent payload is a no-op
	// ========================================================================

	if form == nil {
		return nil, nil
	}

	if _, err := ParseOp(string(op)); err != nil {
		return nil, newError(ErrInvalidRequest, "%v", err)
	}

	// ========================================================================
	// Step 2: Extract fields
	// ========================================================================

	raw, ok := form.Get(FieldDestination)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, newError(ErrInvalidRequest, "destination is required")
	}

	token, _ := form.Get(FieldContinuationToken)
	if _, err := enumerate.DecodeToken(token); err != nil {
		return nil, wrapError(ErrInvalidRequest, err, "bad continuation token")
	}

	src.Key = strings.Trim(src.Key, keys.Separator)
	if src.Org == "" || src.Key == "" {
		return nil, newError(ErrInvalidRequest, "source must name a key inside an org")
	}

	// ========================================================================
	// Step 3: Sanitize and split the destination
	// ========================================================================

	dest := keys.Sanitize(raw)
	if !keys.ValidSegments(dest) {
		return nil, newError(ErrInvalidRequest, "destination %q is not a valid path", raw)
	}

	org, key := keys.Split(dest)
	if key == "" {
		return nil, newError(ErrInvalidRequest, "destination %q names no key inside org %q", raw, org)
	}
	if keys.IsProps(key) {
		return nil, newError(ErrInvalidRequest, "destination %q uses the reserved %s suffix", raw, keys.PropsSuffix)
	}

	if org != strings.ToLower(src.Org) && !v.allowCrossOrg {
		return nil, newError(ErrInvalidRequest, "destination org %q differs from source org %q", org, src.Org)
	}

	// ========================================================================
	// Step 4: Cycle prevention
	// ========================================================================

	if IsCycle(src, Location{Org: org, Key: key}) {
		return nil, newError(ErrIllegalMove, "cannot %s %s into itself (%s)", op, src, keys.Separator+dest)
	}

	// A folder must stay a folder: a destination with an extension would be
	// read back as a single object and its descendants dropped from listings.
	if !keys.IsConcrete(src.Key) && keys.IsConcrete(key) {
		return nil, newError(ErrInvalidRequest, "cannot %s folder %s to %q: a folder name has no extension", op, src, keys.Separator+dest)
	}

	// ========================================================================
	// Step 5: Collision resolution (move only)
	// ========================================================================

	if op == OpMove {
		resolved, err := v.resolver.Resolve(ctx, dest, v.exists)
		if err != nil {
			return nil, err
		}
		_, key = keys.Split(resolved)
	}

	return &Plan{
		Op:                op,
		Source:            src,
		Destination:       Location{Org: org, Key: key},
		ContinuationToken: token,
	}, nil
}

// IsCycle reports whether dst is src, its ".props" sibling or lies beneath
// src. Comparison ignores case, since destinations are lower-cased.
func IsCycle(src, dst Location) bool {
	if !strings.EqualFold(src.Org, dst.Org) {
		return false
	}
	return keys.Belongs(strings.ToLower(dst.Key), strings.ToLower(src.Key))
}
