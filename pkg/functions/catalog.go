package functions

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sandrolain/gomdx/pkg/cache"
	"github.com/sandrolain/gomdx/pkg/types"
)

type key struct {
	name   string
	syntax types.Syntax
}

// Catalog maps (name, syntax) to resolvers. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	resolvers map[key][]Resolver
	names     map[string]bool
	reserved  []string
	cache     *cache.Cache[string, FunDef]
	closeOnce sync.Once
}

// FunctionInfo describes one signature of the catalog.
type FunctionInfo struct {
	Name        string
	Syntax      types.Syntax
	Signature   string
	Description string
}

type catalogOptions struct {
	resolvers []Resolver
	cacheSize int
}

// CatalogOption configures a catalog.
type CatalogOption func(*catalogOptions)

// WithResolvers layers extra resolvers over the built-ins.
func WithResolvers(r ...Resolver) CatalogOption {
	return func(o *catalogOptions) { o.resolvers = append(o.resolvers, r...) }
}

// WithCacheSize sets the capacity of the resolution cache.
func WithCacheSize(n int) CatalogOption {
	return func(o *catalogOptions) { o.cacheSize = n }
}

var (
	builtinOnce      sync.Once
	builtinResolvers []Resolver
	builtinCatalog   *Catalog
)

func initBuiltins() {
	builtinOnce.Do(func() {
		builtinResolvers = builtinTable()
		builtinCatalog = newCatalog(builtinResolvers, 512)
	})
}

// Builtin returns the process-wide catalog of built-in functions.
func Builtin() *Catalog {
	initBuiltins()
	return builtinCatalog
}

// NewCatalog builds a catalog of the built-in functions plus the resolvers
// given as options. Close releases its reserved words.
func NewCatalog(opts ...CatalogOption) *Catalog {
	initBuiltins()
	o := catalogOptions{cacheSize: 512}
	for _, opt := range opts {
		opt(&o)
	}
	all := make([]Resolver, 0, len(builtinResolvers)+len(o.resolvers))
	all = append(all, builtinResolvers...)
	all = append(all, o.resolvers...)
	return newCatalog(all, o.cacheSize)
}

func newCatalog(resolvers []Resolver, cacheSize int) *Catalog {
	c := &Catalog{
		resolvers: make(map[key][]Resolver),
		names:     make(map[string]bool),
		cache:     cache.New[string, FunDef](cacheSize),
	}
	seen := map[string]bool{}
	for _, r := range resolvers {
		k := key{strings.ToUpper(r.Name()), r.Syntax()}
		c.resolvers[k] = append(c.resolvers[k], r)
		c.names[k.name] = true
		for _, w := range r.ReservedWords() {
			if w = strings.ToUpper(w); !seen[w] {
				seen[w] = true
				c.reserved = append(c.reserved, w)
			}
		}
	}
	sort.Strings(c.reserved)
	reserveWords(c.reserved)
	return c
}

// Close releases the catalog's reserved words. The shared built-in catalog
// is never closed.
func (c *Catalog) Close() {
	if c == builtinCatalog {
		return
	}
	c.closeOnce.Do(func() { releaseWords(c.reserved) })
}

// ReservedWords returns the flag tokens of the catalog, sorted.
func (c *Catalog) ReservedWords() []string {
	return append([]string(nil), c.reserved...)
}

// IsReserved reports whether word is a flag token of this catalog.
func (c *Catalog) IsReserved(word string) bool {
	i := sort.SearchStrings(c.reserved, strings.ToUpper(word))
	return i < len(c.reserved) && c.reserved[i] == strings.ToUpper(word)
}

type candidate struct {
	def  FunDef
	cost int
	text string
}

// Resolve returns the one definition of name in the given syntax that
// accepts args. Among matching candidates the cheapest conversion wins;
// ties go to the lexically smallest signature text.
func (c *Catalog) Resolve(name string, syntax types.Syntax, args []types.Exp) (FunDef, error) {
	return c.cache.GetOrCompute(cacheKey(name, syntax, args), func() (FunDef, error) {
		return c.resolve(name, syntax, args)
	})
}

func (c *Catalog) resolve(name string, syntax types.Syntax, args []types.Exp) (FunDef, error) {
	upper := strings.ToUpper(name)
	rs := c.resolvers[key{upper, syntax}]
	if len(rs) == 0 && !c.names[upper] {
		return nil, types.Errorf(types.ErrUnknownFunction, "unknown function %s", name).WithFunction(name)
	}
	var cands []candidate
	for _, r := range rs {
		def, cost, ok := r.Resolve(args)
		if !ok {
			continue
		}
		cands = append(cands, candidate{def: def, cost: cost, text: def.Signature().Format(def.Name())})
	}
	if len(cands) == 0 {
		return nil, types.Errorf(types.ErrNoApplicableSignature,
			"no applicable signature for %s", FormatCall(name, syntax, args)).WithFunction(name)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].cost != cands[j].cost {
			return cands[i].cost < cands[j].cost
		}
		return cands[i].text < cands[j].text
	})
	return cands[0].def, nil
}

func cacheKey(name string, syntax types.Syntax, args []types.Exp) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(name))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(int(syntax)))
	for _, a := range args {
		b.WriteByte('|')
		b.WriteString(a.Type().String())
	}
	return b.String()
}

// Functions lists every signature of the catalog, sorted by name and
// signature text.
func (c *Catalog) Functions() []FunctionInfo {
	var out []FunctionInfo
	for _, rs := range c.resolvers {
		for _, r := range rs {
			for _, s := range r.Signatures() {
				out = append(out, FunctionInfo{
					Name:        r.Name(),
					Syntax:      r.Syntax(),
					Signature:   s,
					Description: r.Description(),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return strings.ToUpper(out[i].Name) < strings.ToUpper(out[j].Name)
		}
		return out[i].Signature < out[j].Signature
	})
	return out
}
