package memcube

import (
	"context"

	"github.com/sandrolain/gomdx/pkg/olap"
)

// Reader is an olap.SchemaReader over the in-memory member tree. Every
// member is visible.
type Reader struct {
	tree *tree
}

var _ olap.SchemaReader = (*Reader)(nil)

func (r *Reader) MemberChildren(ctx context.Context, m *olap.Member) ([]*olap.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.tree.children[m], nil
}

func (r *Reader) MembersChildren(ctx context.Context, members []*olap.Member) ([]*olap.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*olap.Member
	for _, m := range members {
		out = append(out, r.tree.children[m]...)
	}
	return out, nil
}

func (r *Reader) ChildrenCountFromCache(m *olap.Member) int {
	return len(r.tree.children[m])
}

// MemberAncestors returns the parent of m first and the top-level ancestor
// last.
func (r *Reader) MemberAncestors(ctx context.Context, m *olap.Member) ([]*olap.Member, error) {
	var out []*olap.Member
	for p := m.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out, nil
}

func (r *Reader) HierarchyRootMembers(ctx context.Context, h *olap.Hierarchy) ([]*olap.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.tree.roots[h], nil
}

// LevelMembers returns the members of l in hierarchical order.
func (r *Reader) LevelMembers(ctx context.Context, l *olap.Level) ([]*olap.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := append([]*olap.Member(nil), r.tree.levels[l]...)
	olap.Hierarchize(out, false)
	return out, nil
}

func (r *Reader) LeadMember(ctx context.Context, m *olap.Member, offset int) (*olap.Member, error) {
	if offset == 0 {
		return m, nil
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
			return nil, nil
		}
	}
	return nil, nil
}

func (r *Reader) IsDrillable(m *olap.Member) bool {
	return len(r.tree.children[m]) > 0
}

func (r *Reader) AccessDetails(*olap.Hierarchy) olap.HierarchyAccess {
	return olap.FullAccess{}
}
