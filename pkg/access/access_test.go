package access_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sandrolain/gomdx/pkg/access"
	"github.com/sandrolain/gomdx/pkg/descendants"
	"github.com/sandrolain/gomdx/pkg/memcube"
	"github.com/sandrolain/gomdx/pkg/olap"
)

const rules = `
# analysts see California only
p, analyst, [Store], custom
p, analyst, [Store].[All Store].[USA].[CA], all
p, analyst, [Store], rollup:partial
g, alice, analyst

p, auditor, [Store].[All Store].[Canada], none
g, bob, auditor
`

func loadPolicy(t *testing.T) *access.Policy {
	t.Helper()
	p, err := access.LoadPolicy(strings.NewReader(rules))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

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
	if strings.Join(g, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", g, want)
	}
}

func TestCanAccess(t *testing.T) {
	s := memcube.Sales()
	p := loadPolicy(t)

	tests := []struct {
		subject string
		member  string
		want    bool
	}{
		{"alice", "[Store].[All Store]", true},
		{"alice", "[Store].[All Store].[USA]", true},
		{"alice", "[Store].[All Store].[USA].[CA]", true},
		{"alice", "[Store].[All Store].[USA].[CA].[Los Angeles]", true},
		{"alice", "[Store].[All Store].[USA].[OR]", false},
		{"alice", "[Store].[All Store].[USA].[OR].[Salem]", false},
		{"alice", "[Store].[All Store].[Canada]", false},
		{"alice", "[Gender].[All Gender].[F]", true},
		{"bob", "[Store].[All Store].[USA].[OR]", true},
		{"bob", "[Store].[All Store].[Canada]", false},
		{"bob", "[Store].[All Store].[Canada].[BC].[Vancouver]", false},
		{"carol", "[Store].[All Store].[Canada]", true},
	}
	for _, tt := range tests {
		t.Run(tt.subject+" "+tt.member, func(t *testing.T) {
			if got := p.CanAccess(tt.subject, s.Lookup(tt.member)); got != tt.want {
				t.Fatalf("CanAccess() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestRollup(t *testing.T) {
	s := memcube.Sales()
	p := loadPolicy(t)
	store := s.Cube.LookupHierarchy("[Store]")
	gender := s.Cube.LookupHierarchy("[Gender]")

	if got := p.Rollup("alice", store); got != olap.RollupPartial {
		t.Fatalf("alice on Store = %s", got)
	}
	if got := p.Rollup("alice", gender); got != olap.RollupFull {
		t.Fatalf("alice on Gender = %s", got)
	}
	if err := p.SetRollup("auditor", store, olap.RollupHidden); err != nil {
		t.Fatal(err)
	}
	if got := p.Reader(s.Reader(), "bob").AccessDetails(store).RollupPolicy(); got != olap.RollupHidden {
		t.Fatalf("bob on Store = %s", got)
	}
}

func TestReaderHidesMembers(t *testing.T) {
	s := memcube.Sales()
	p := loadPolicy(t)
	ctx := context.Background()
	store := s.Cube.LookupHierarchy("[Store]")
	usa := s.Lookup("[Store].[All Store].[USA]")
	all := s.Lookup("[Store].[All Store]")

	alice := p.Reader(s.Reader(), "alice")
	children, err := alice.MemberChildren(ctx, usa)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, children, "CA")

	cities, err := alice.LevelMembers(ctx, store.Levels[3])
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, cities, "Los Angeles", "San Francisco")

	if alice.IsDrillable(s.Lookup("[Store].[All Store].[USA].[OR]")) {
		t.Fatal("OR has no visible children")
	}
	if got := alice.ChildrenCountFromCache(usa); got != -1 {
		t.Fatalf("ChildrenCountFromCache() = %d on a restricted hierarchy", got)
	}
	next, err := alice.LeadMember(ctx, s.Lookup("[Store].[All Store].[USA].[CA]"), 1)
	if err != nil || next != nil {
		t.Fatalf("LeadMember() = %v, %v, want no visible successor", next, err)
	}

	found, err := descendants.ByLevel(ctx, alice, usa, store.Levels[3], descendants.Self)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, found, "Los Angeles", "San Francisco")

	bob := p.Reader(s.Reader(), "bob")
	countries, err := bob.MemberChildren(ctx, all)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, countries, "USA")

	carol := p.Reader(s.Reader(), "carol")
	if got := carol.ChildrenCountFromCache(usa); got != 3 {
		t.Fatalf("unrestricted ChildrenCountFromCache() = %d", got)
	}
	if !carol.IsDrillable(usa) {
		t.Fatal("USA must be drillable without rules")
	}
}

func TestLoadPolicyRejectsInvalidLines(t *testing.T) {
	for _, text := range []string{
		"p, analyst, [Store]\n",
		"x, alice, analyst\n",
		"g, alice\n",
	} {
		if _, err := access.LoadPolicy(strings.NewReader(text)); err == nil {
			t.Fatalf("LoadPolicy(%q) succeeded", text)
		}
	}
}

func TestGrant(t *testing.T) {
	s := memcube.Sales()
	p, err := access.NewPolicy()
	if err != nil {
		t.Fatal(err)
	}
	or := s.Lookup("[Store].[All Store].[USA].[OR]")
	if err := p.Grant("viewer", "[Store].[All Store].[USA]", access.None); err != nil {
		t.Fatal(err)
	}
	if err := p.Grant("viewer", or.UniqueName, access.All); err != nil {
		t.Fatal(err)
	}
	if err := p.AddRole("dana", "viewer"); err != nil {
		t.Fatal(err)
	}
	if !p.CanAccess("dana", s.Lookup("[Store].[All Store].[USA].[OR].[Salem]")) {
		t.Fatal("the grant on OR must win over the denial on USA")
	}
	if p.CanAccess("dana", s.Lookup("[Store].[All Store].[USA].[CA]")) {
		t.Fatal("CA is denied through USA")
	}
}
