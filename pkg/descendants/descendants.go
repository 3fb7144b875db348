// Package descendants enumerates the descendants of a member.
//
// The traversal is breadth first and only fetches the children of members
// whose descendants can still contribute to the result. Results come out
// level by level; callers hierarchize them when order matters.
package descendants

import (
	"context"
	"strings"

	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

// Flag selects which descendants are returned relative to the target level
// or depth.
type Flag int

const (
	Self Flag = 1 << iota
	Before
	After
	Leaves

	BeforeAndAfter  = Before | After
	SelfAndAfter    = Self | After
	SelfAndBefore   = Self | Before
	SelfBeforeAfter = Self | Before | After
)

var flagNames = map[string]Flag{
	"SELF":              Self,
	"AFTER":             After,
	"BEFORE":            Before,
	"BEFORE_AND_AFTER":  BeforeAndAfter,
	"SELF_AND_AFTER":    SelfAndAfter,
	"SELF_AND_BEFORE":   SelfAndBefore,
	"SELF_BEFORE_AFTER": SelfBeforeAfter,
	"LEAVES":            Leaves,
}

// FlagNames lists the flag symbols.
func FlagNames() []string {
	return []string{"SELF", "AFTER", "BEFORE", "BEFORE_AND_AFTER", "SELF_AND_AFTER",
		"SELF_AND_BEFORE", "SELF_BEFORE_AFTER", "LEAVES"}
}

// ParseFlag parses a flag symbol.
func ParseFlag(s string) (Flag, bool) {
	f, ok := flagNames[strings.ToUpper(s)]
	return f, ok
}

func (f Flag) has(g Flag) bool { return f&g != 0 }

// ByLevel returns descendants of ancestor relative to level. The frontier
// starts at ancestor; each pass classifies members against the target
// level depth and expands only those the flags still need.
func ByLevel(ctx context.Context, reader olap.SchemaReader, ancestor *olap.Member, level *olap.Level,
	flag Flag) ([]*olap.Member, error) {
	if level.Hierarchy != ancestor.Hierarchy() {
		return nil, types.Errorf(types.ErrHierarchyMismatch,
			"level %s is not in the hierarchy of member %s", level, ancestor)
	}
	target := level.Depth
	if flag.has(Leaves) {
		return leavesByLevel(ctx, reader, ancestor, target)
	}
	var result []*olap.Member
	frontier := []*olap.Member{ancestor}
	for {
		var fertile []*olap.Member
		for _, m := range frontier {
			switch d := m.Depth(); {
			case d == target:
				if flag.has(Self) {
					result = append(result, m)
				}
				if flag.has(After) {
					fertile = append(fertile, m)
				}
			case d < target:
				if flag.has(Before) {
					result = append(result, m)
				}
				fertile = append(fertile, m)
			default:
				if flag.has(After) {
					result = append(result, m)
					fertile = append(fertile, m)
				}
			}
		}
		if len(fertile) == 0 {
			return result, nil
		}
		next, err := reader.MembersChildren(ctx, fertile)
		if err != nil {
			return nil, err
		}
		frontier = next
	}
}

// leavesByLevel returns the leaves at or above the target depth.
func leavesByLevel(ctx context.Context, reader olap.SchemaReader, ancestor *olap.Member,
	target int) ([]*olap.Member, error) {
	var result []*olap.Member
	frontier := []*olap.Member{ancestor}
	for len(frontier) > 0 {
		var fertile []*olap.Member
		for _, m := range frontier {
			if !reader.IsDrillable(m) {
				if m.Depth() <= target {
					result = append(result, m)
				}
				continue
			}
			if m.Depth() < target {
				fertile = append(fertile, m)
			}
		}
		if len(fertile) == 0 {
			break
		}
		next, err := reader.MembersChildren(ctx, fertile)
		if err != nil {
			return nil, err
		}
		frontier = next
	}
	return result, nil
}

// ByDepth is ByLevel with the target given as a distance from ancestor.
func ByDepth(ctx context.Context, reader olap.SchemaReader, ancestor *olap.Member, depth int,
	flag Flag) ([]*olap.Member, error) {
	if flag.has(Leaves) {
		return LeavesByDepth(ctx, reader, ancestor, depth)
	}
	var result []*olap.Member
	frontier := []*olap.Member{ancestor}
	for d := 0; len(frontier) > 0; d++ {
		switch {
		case d == depth:
			if flag.has(Self) {
				result = append(result, frontier...)
			}
			if !flag.has(After) {
				return result, nil
			}
		case d < depth:
			if flag.has(Before) {
				result = append(result, frontier...)
			}
		default:
			if !flag.has(After) {
				return result, nil
			}
			result = append(result, frontier...)
		}
		next, err := reader.MembersChildren(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = next
	}
	return result, nil
}

// LeavesByDepth returns the leaves within depth steps of ancestor; a
// negative depth means no limit. A non-drillable ancestor is its own only
// leaf.
func LeavesByDepth(ctx context.Context, reader olap.SchemaReader, ancestor *olap.Member,
	depth int) ([]*olap.Member, error) {
	if !reader.IsDrillable(ancestor) {
		return []*olap.Member{ancestor}, nil
	}
	var result []*olap.Member
	frontier := []*olap.Member{ancestor}
	for d := 0; depth < 0 || d <= depth; d++ {
		children, err := reader.MembersChildren(ctx, frontier)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, types.Errorf(types.ErrInternal, "drillable member %s has no children", frontier[0])
		}
		var next []*olap.Member
		for _, c := range children {
			if reader.IsDrillable(c) {
				next = append(next, c)
			} else {
				result = append(result, c)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return result, nil
}
