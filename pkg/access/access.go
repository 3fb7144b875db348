// Package access restricts a schema reader to the members a role may see.
//
// Rules are casbin policies over unique names. A rule grants or denies a
// member together with its descendants; the rule on the nearest ancestor
// wins. A hierarchy marked custom hides every member without a rule, except
// the ancestors of granted members. Rollup policies are set per hierarchy.
//
//	p, analyst, [Store], custom
//	p, analyst, [Store].[All Store].[USA].[CA], all
//	p, analyst, [Store], rollup:partial
//	g, alice, analyst
package access

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"

	"github.com/sandrolain/gomdx/pkg/olap"
)

// Access is the action of a policy rule.
type Access string

const (
	All    Access = "all"
	None   Access = "none"
	Custom Access = "custom"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.act == p.act && (keyMatch(r.obj, p.obj) || keyMatch(p.obj, r.obj))
`

func rollupAction(p olap.RollupPolicy) string {
	return "rollup:" + strings.ToLower(p.String())
}

// Policy is a set of access rules.
type Policy struct {
	enforcer *casbin.Enforcer
	logger   *slog.Logger
}

// NewPolicy returns an empty policy.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load access model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	return &Policy{enforcer: e, logger: slog.Default()}, nil
}

// LoadPolicy reads rules in casbin CSV form: "p, role, object, action"
// and "g, subject, role" lines. Blank lines and # comments are skipped.
func LoadPolicy(r io.Reader) (*Policy, error) {
	p, err := NewPolicy()
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return p, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read policy: %w", err)
		}
		switch {
		case rec[0] == "p" && len(rec) == 4:
			err = p.add(rec[1], rec[2], rec[3])
		case rec[0] == "g" && len(rec) == 3:
			err = p.AddRole(rec[1], rec[2])
		default:
			err = fmt.Errorf("invalid policy line %q", strings.Join(rec, ", "))
		}
		if err != nil {
			return nil, err
		}
	}
}

// WithLogger sets the logger used to report enforcement errors.
func (p *Policy) WithLogger(logger *slog.Logger) *Policy {
	p.logger = logger
	return p
}

func (p *Policy) add(sub, obj, act string) error {
	_, err := p.enforcer.AddPolicy(sub, obj, act)
	return err
}

// Grant sets access of role to the member or hierarchy with the given
// unique name.
func (p *Policy) Grant(role, uniqueName string, access Access) error {
	return p.add(role, uniqueName, string(access))
}

// SetRollup sets the rollup policy of role on h.
func (p *Policy) SetRollup(role string, h *olap.Hierarchy, policy olap.RollupPolicy) error {
	return p.add(role, h.UniqueName, rollupAction(policy))
}

// AddRole makes subject a member of role.
func (p *Policy) AddRole(subject, role string) error {
	_, err := p.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func (p *Policy) allows(sub, obj, act string) bool {
	ok, err := p.enforcer.Enforce(sub, obj, act)
	if err != nil {
		p.logger.Warn("access check failed", "subject", sub, "object", obj, "action", act, "error", err)
		return false
	}
	return ok
}

// CanAccess reports whether subject may see m.
func (p *Policy) CanAccess(subject string, m *olap.Member) bool {
	for x := m; x != nil; x = x.Parent {
		obj := escape(x.UniqueName)
		if p.allows(subject, obj, string(None)) {
			return false
		}
		if p.allows(subject, obj, string(All)) {
			return true
		}
	}
	if !p.allows(subject, escape(m.Hierarchy().UniqueName), string(Custom)) {
		return true
	}
	return p.allows(subject, escape(m.UniqueName)+".*", string(All))
}

// Rollup returns the rollup policy of subject on h.
func (p *Policy) Rollup(subject string, h *olap.Hierarchy) olap.RollupPolicy {
	obj := escape(h.UniqueName)
	switch {
	case p.allows(subject, obj, rollupAction(olap.RollupHidden)):
		return olap.RollupHidden
	case p.allows(subject, obj, rollupAction(olap.RollupPartial)):
		return olap.RollupPartial
	}
	return olap.RollupFull
}

// escape keeps a request object free of pattern characters.
func escape(name string) string {
	return strings.ReplaceAll(name, "*", "")
}
