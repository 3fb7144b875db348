package descendants_test

import (
	"context"
	"sort"
	"testing"

	"github.com/sandrolain/gomdx/pkg/descendants"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
	"github.com/sandrolain/gomdx/pkg/types"
)

func names(members []*olap.Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name
	}
	return out
}

func assertNames(t *testing.T, got []*olap.Member, want ...string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range g {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

var cities = []string{"Los Angeles", "San Francisco", "Portland", "Salem", "Seattle", "Spokane"}

func TestByLevel(t *testing.T) {
	s := memcube.Sales()
	r := s.Reader()
	usa := s.Lookup("[Store].[All Store].[USA]")
	levels := usa.Hierarchy().Levels
	state, city := levels[2], levels[3]

	tests := []struct {
		name  string
		level *olap.Level
		flag  descendants.Flag
		want  []string
	}{
		{"self", state, descendants.Self, []string{"CA", "OR", "WA"}},
		{"before", state, descendants.Before, []string{"USA"}},
		{"after", state, descendants.After, cities},
		{"before and after", state, descendants.BeforeAndAfter, append([]string{"USA"}, cities...)},
		{"self and before", city, descendants.SelfAndBefore, append([]string{"USA", "CA", "OR", "WA"}, cities...)},
		{"leaves", city, descendants.Leaves, cities},
		{"leaves above target", state, descendants.Leaves, nil},
		{"self at own level", levels[1], descendants.Self, []string{"USA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := descendants.ByLevel(context.Background(), r, usa, tt.level, tt.flag)
			if err != nil {
				t.Fatal(err)
			}
			assertNames(t, got, tt.want...)
		})
	}
}

func TestByLevelHierarchyMismatch(t *testing.T) {
	s := memcube.Sales()
	usa := s.Lookup("[Store].[All Store].[USA]")
	gender := s.Cube.LookupHierarchy("[Gender]").Levels[1]
	_, err := descendants.ByLevel(context.Background(), s.Reader(), usa, gender, descendants.Self)
	if types.CodeOf(err) != types.ErrHierarchyMismatch {
		t.Fatalf("expected %s, got %v", types.ErrHierarchyMismatch, err)
	}
}

func TestSelfBeforeAfterIsComplete(t *testing.T) {
	s := memcube.Sales()
	r := s.Reader()
	storeH := s.Cube.LookupHierarchy("[Store]")

	for _, uniqueName := range []string{
		"[Store].[All Store]",
		"[Store].[All Store].[USA]",
		"[Store].[All Store].[USA].[OR]",
		"[Store].[All Store].[Canada].[BC].[Vancouver]",
	} {
		t.Run(uniqueName, func(t *testing.T) {
			ancestor := s.Lookup(uniqueName)
			var want []string
			for _, l := range storeH.Levels {
				members, err := r.LevelMembers(context.Background(), l)
				if err != nil {
					t.Fatal(err)
				}
				for _, m := range members {
					if m.IsChildOrEqualTo(ancestor) {
						want = append(want, m.UniqueName)
					}
				}
			}
			for _, l := range storeH.Levels {
				got, err := descendants.ByLevel(context.Background(), r, ancestor, l, descendants.SelfBeforeAfter)
				if err != nil {
					t.Fatal(err)
				}
				if !sameSet(got, want) {
					t.Fatalf("level %s: got %v, want %v", l.Name, names(got), want)
				}
			}
		})
	}
}

func TestByDepth(t *testing.T) {
	s := memcube.Sales()
	r := s.Reader()
	usa := s.Lookup("[Store].[All Store].[USA]")

	tests := []struct {
		name  string
		depth int
		flag  descendants.Flag
		want  []string
	}{
		{"self", 0, descendants.Self, []string{"USA"}},
		{"children", 1, descendants.Self, []string{"CA", "OR", "WA"}},
		{"self and after", 1, descendants.SelfAndAfter, append([]string{"CA", "OR", "WA"}, cities...)},
		{"before", 2, descendants.Before, []string{"USA", "CA", "OR", "WA"}},
		{"leaves", 5, descendants.Leaves, cities},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := descendants.ByDepth(context.Background(), r, usa, tt.depth, tt.flag)
			if err != nil {
				t.Fatal(err)
			}
			assertNames(t, got, tt.want...)
		})
	}
}

func TestLeavesByDepth(t *testing.T) {
	s := memcube.Sales()
	r := s.Reader()
	all := s.Lookup("[Store].[All Store]")
	la := s.Lookup("[Store].[All Store].[USA].[CA].[Los Angeles]")

	t.Run("non-drillable member is its own leaf", func(t *testing.T) {
		got, err := descendants.LeavesByDepth(context.Background(), r, la, 3)
		if err != nil {
			t.Fatal(err)
		}
		assertNames(t, got, "Los Angeles")
	})
	t.Run("unlimited", func(t *testing.T) {
		got, err := descendants.LeavesByDepth(context.Background(), r, all, -1)
		if err != nil {
			t.Fatal(err)
		}
		assertNames(t, got, append(cities, "Vancouver")...)
	})
	t.Run("depth too shallow", func(t *testing.T) {
		got, err := descendants.LeavesByDepth(context.Background(), r, all, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Fatalf("got %v, want no leaves", names(got))
		}
	})
}

func TestParseFlag(t *testing.T) {
	for _, name := range descendants.FlagNames() {
		if _, ok := descendants.ParseFlag(name); !ok {
			t.Fatalf("ParseFlag(%q) failed", name)
		}
	}
	if f, ok := descendants.ParseFlag("self_and_after"); !ok || f != descendants.SelfAndAfter {
		t.Fatalf("ParseFlag() = %v, %t", f, ok)
	}
	if _, ok := descendants.ParseFlag("SIDEWAYS"); ok {
		t.Fatal("unknown flag accepted")
	}
}

func sameSet(got []*olap.Member, want []string) bool {
	g := make([]string, len(got))
	for i, m := range got {
		g[i] = m.UniqueName
	}
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	if len(g) != len(w) {
		return false
	}
	for i := range g {
		if g[i] != w[i] {
			return false
		}
	}
	return true
}
