package auth

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Decision is the outcome of one policy for one identity.
type Decision struct {
	Allowed bool
	Reason  string // set when !Allowed
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Policy is a named predicate over an identity. Policies are evaluated in
// order and a new one can be appended without touching the machine.
type Policy interface {
	Name() string
	Evaluate(ctx context.Context, id Identity) (Decision, error)
}

// AllowlistPolicy admits subjects found in a fixed set. An empty set admits
// everyone (open registration).
type AllowlistPolicy struct {
	subjects mapset.Set[string]
}

// NewAllowlistPolicy builds the policy from subject ids; blanks are ignored.
func NewAllowlistPolicy(subjects []string) *AllowlistPolicy {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, s := range subjects {
		if s != "" {
			set.Add(s)
		}
	}
	return &AllowlistPolicy{subjects: set}
}

func (p *AllowlistPolicy) Name() string { return "allowlist" }

// Open reports whether the allowlist admits every subject.
func (p *AllowlistPolicy) Open() bool { return p.subjects.Cardinality() == 0 }

func (p *AllowlistPolicy) Evaluate(_ context.Context, id Identity) (Decision, error) {
	if p.Open() || p.subjects.Contains(id.Subject) {
		return allow(), nil
	}
	return deny(fmt.Sprintf("account %s is not on the admin allowlist", displayName(id))), nil
}

// ClaimsRefresher is the part of the provider the claim policy needs.
type ClaimsRefresher interface {
	RefreshClaims(ctx context.Context, id Identity, force bool) (Claims, error)
}

// ClaimPolicy requires a claim with an exact string value on a freshly
// refreshed credential, e.g. role == "admin".
type ClaimPolicy struct {
	refresher ClaimsRefresher
	claim     string
	value     string
}

func NewClaimPolicy(refresher ClaimsRefresher, claim, value string) *ClaimPolicy {
	if claim == "" {
		claim = "role"
	}
	if value == "" {
		value = "admin"
	}
	return &ClaimPolicy{refresher: refresher, claim: claim, value: value}
}

func (p *ClaimPolicy) Name() string { return "claim:" + p.claim }

func (p *ClaimPolicy) Evaluate(ctx context.Context, id Identity) (Decision, error) {
	claims, err := p.refresher.RefreshClaims(ctx, id, true)
	if err != nil {
		return Decision{}, fmt.Errorf("refresh claims: %w", err)
	}
	got, ok := claims[p.claim]
	if !ok {
		return deny(fmt.Sprintf("account %s has no %q claim", displayName(id), p.claim)), nil
	}
	if s, _ := got.(string); s != p.value {
		return deny(fmt.Sprintf("account %s needs %s=%s", displayName(id), p.claim, p.value)), nil
	}
	return allow(), nil
}

// PolicyOptions selects the policies of the fixed allowlist + claim shape.
type PolicyOptions struct {
	Allowlist  []string
	ClaimCheck bool // disabled by default
	ClaimName  string
	ClaimValue string
}

// BuildPolicies returns the ordered policy list. The claim policy is only
// present when enabled, so a disabled claim check always passes.
func BuildPolicies(opts PolicyOptions, refresher ClaimsRefresher) []Policy {
	policies := []Policy{NewAllowlistPolicy(opts.Allowlist)}
	if opts.ClaimCheck {
		policies = append(policies, NewClaimPolicy(refresher, opts.ClaimName, opts.ClaimValue))
	}
	return policies
}

func displayName(id Identity) string {
	if id.Email != "" {
		return id.Email
	}
	return id.Subject
}
