// Package policy decides whether a signer may sign a sealed run. Rules are CEL
// expressions over two variables:
//
//	signer: {id, roles, role, name, title}
//	run:    {id, data_hash, attested}
package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

// DefaultRoles are the signature roles accepted without a profile.
var DefaultRoles = []string{"preparer", "reviewer", "approver"}

// ErrPolicyCompile is returned when a profile rule is not a valid boolean expression.
var ErrPolicyCompile = errors.New("policy: invalid rule")

// Signer is the identity asking to sign.
type Signer struct {
	ID    string
	Roles []string
	// Role is the signature role requested for this signature.
	Role  string
	Name  string
	Title string
}

// Run describes the sealed run being signed.
type Run struct {
	ID       string
	DataHash string
	// Attested reports whether the request carries non-blank attestation text.
	Attested bool
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	// Rule is the expression that denied the request, empty when allowed.
	Rule   string
	Reason string
}

type rule struct {
	expr   string
	reason string
}

// Engine evaluates system rules, then profile rules. All must hold.
type Engine struct {
	env      *cel.Env
	prgCache map[string]cel.Program
	mu       sync.RWMutex
	rules    []rule
	allowed  []string
	profile  string
}

// NewEngine builds an engine. A nil profile applies the system rules only.
func NewEngine(profile *config.SigningProfile) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("signer", cel.DynType),
		cel.Variable("run", cel.DynType),
		cel.Variable("allowed_roles", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{
		env:      env,
		prgCache: make(map[string]cel.Program),
		rules: []rule{
			{`signer.role in allowed_roles`, "signature role is not permitted"},
			{`signer.name.matches("\\S")`, "signer name is required"},
		},
		allowed: DefaultRoles,
		profile: "system",
	}

	if profile != nil {
		e.profile = profile.Name
		if len(profile.AllowedRoles) > 0 {
			e.allowed = profile.AllowedRoles
		}
		if profile.RequireAttestation {
			e.rules = append(e.rules, rule{`run.attested`, "attestation text is required"})
		}
		if profile.Rule != "" {
			e.rules = append(e.rules, rule{profile.Rule, fmt.Sprintf("denied by profile %s", profile.Name)})
		}
	}

	// Compile everything up front so a bad profile fails at startup.
	for _, r := range e.rules {
		if _, err := e.program(r.expr); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrPolicyCompile, r.expr, err)
		}
	}
	return e, nil
}

// Profile names the active signing profile.
func (e *Engine) Profile() string {
	return e.profile
}

// Evaluate runs every rule against the request. The first failing rule denies.
func (e *Engine) Evaluate(ctx context.Context, s Signer, r Run) (Decision, error) {
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	input := map[string]any{
		"signer": map[string]any{
			"id":    s.ID,
			"roles": roles,
			"role":  s.Role,
			"name":  s.Name,
			"title": s.Title,
		},
		"run": map[string]any{
			"id":        r.ID,
			"data_hash": r.DataHash,
			"attested":  r.Attested,
		},
		"allowed_roles": e.allowed,
	}

	for _, rl := range e.rules {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		allowed, err := e.evaluateExpr(rl.expr, input)
		if err != nil {
			return Decision{}, fmt.Errorf("policy rule %q: %w", rl.expr, err)
		}
		if !allowed {
			return Decision{Allowed: false, Rule: rl.expr, Reason: rl.reason}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

func (e *Engine) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.prgCache[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.prgCache[expr]; hit {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule must be boolean, got %s", out)
	}
	p, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.prgCache[expr] = p
	return p, nil
}

func (e *Engine) evaluateExpr(expr string, input map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("result not bool")
	}
	return val, nil
}
