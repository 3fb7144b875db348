package access

import (
	"context"

	"github.com/sandrolain/gomdx/pkg/olap"
)

// Reader wraps a schema reader and hides the members subject may not see.
type Reader struct {
	olap.SchemaReader
	policy  *Policy
	subject string
}

var _ olap.SchemaReader = (*Reader)(nil)

// Reader returns base restricted to what subject may see.
func (p *Policy) Reader(base olap.SchemaReader, subject string) *Reader {
	return &Reader{SchemaReader: base, policy: p, subject: subject}
}

func (r *Reader) filter(members []*olap.Member) []*olap.Member {
	out := make([]*olap.Member, 0, len(members))
	for _, m := range members {
		if r.policy.CanAccess(r.subject, m) {
			out = append(out, m)
		}
	}
	return out
}

func (r *Reader) MemberChildren(ctx context.Context, m *olap.Member) ([]*olap.Member, error) {
	children, err := r.SchemaReader.MemberChildren(ctx, m)
	if err != nil {
		return nil, err
	}
	return r.filter(children), nil
}

func (r *Reader) MembersChildren(ctx context.Context, members []*olap.Member) ([]*olap.Member, error) {
	children, err := r.SchemaReader.MembersChildren(ctx, members)
	if err != nil {
		return nil, err
	}
	return r.filter(children), nil
}

// ChildrenCountFromCache is unknown on restricted hierarchies.
func (r *Reader) ChildrenCountFromCache(m *olap.Member) int {
	if r.restricted(m.Hierarchy()) {
		return -1
	}
	return r.SchemaReader.ChildrenCountFromCache(m)
}

func (r *Reader) HierarchyRootMembers(ctx context.Context, h *olap.Hierarchy) ([]*olap.Member, error) {
	roots, err := r.SchemaReader.HierarchyRootMembers(ctx, h)
	if err != nil {
		return nil, err
	}
	return r.filter(roots), nil
}

func (r *Reader) LevelMembers(ctx context.Context, l *olap.Level) ([]*olap.Member, error) {
	members, err := r.SchemaReader.LevelMembers(ctx, l)
	if err != nil {
		return nil, err
	}
	return r.filter(members), nil
}

// LeadMember counts only visible members.
func (r *Reader) LeadMember(ctx context.Context, m *olap.Member, offset int) (*olap.Member, error) {
	if !r.restricted(m.Hierarchy()) {
		return r.SchemaReader.LeadMember(ctx, m, offset)
	}
	level, err := r.LevelMembers(ctx, m.Level)
	if err != nil {
		return nil, err
	}
	for i, x := range level {
		if x == m {
			if j := i + offset; j >= 0 && j < len(level) {
				return level[j], nil
			}
			break
		}
	}
	return nil, nil
}

// IsDrillable reports whether m has a visible child.
func (r *Reader) IsDrillable(m *olap.Member) bool {
	if !r.SchemaReader.IsDrillable(m) {
		return false
	}
	if !r.restricted(m.Hierarchy()) {
		return true
	}
	children, err := r.MemberChildren(context.Background(), m)
	return err == nil && len(children) > 0
}

func (r *Reader) AccessDetails(h *olap.Hierarchy) olap.HierarchyAccess {
	return hierarchyAccess{reader: r, hierarchy: h}
}

// restricted reports whether any rule of subject may hide members of h.
func (r *Reader) restricted(h *olap.Hierarchy) bool {
	obj := escape(h.UniqueName)
	return r.policy.allows(r.subject, obj, string(Custom)) ||
		r.policy.allows(r.subject, obj+".*", string(None))
}

type hierarchyAccess struct {
	reader    *Reader
	hierarchy *olap.Hierarchy
}

func (a hierarchyAccess) RollupPolicy() olap.RollupPolicy {
	return a.reader.policy.Rollup(a.reader.subject, a.hierarchy)
}

func (a hierarchyAccess) CanAccess(m *olap.Member) bool {
	return a.reader.policy.CanAccess(a.reader.subject, m)
}
