package converter

// Context is the mutable state of one top-level conversion: the names being
// expanded on the current call path, the current depth, inline results for
// declared names and the names that had to be referenced before they were
// part of the generated set.
type Context struct {
	processing map[string]bool
	depth      int
	cache      map[string]cacheEntry

	// Bookkeeping for cache validity: the deepest depth reached, the number
	// of depth cuts and every in-flight lookup, in order.
	peak     int
	cuts     int
	observed []observation

	deferred      map[string]bool
	deferredOrder []string

	root      string
	fallbacks int
}

// NewContext returns an empty Context.
func NewContext() *Context {
	c := &Context{}
	c.Reset()
	return c
}

// Reset clears all state between independent conversions.
func (c *Context) Reset() {
	c.processing = make(map[string]bool)
	c.depth = 0
	c.cache = make(map[string]cacheEntry)
	c.peak = 0
	c.cuts = 0
	c.observed = nil
	c.deferred = make(map[string]bool)
	c.deferredOrder = nil
	c.root = ""
	c.fallbacks = 0
}

// Depth returns the current recursion depth.
func (c *Context) Depth() int { return c.depth }

// InFlight reports whether name is being expanded on the current call path.
func (c *Context) InFlight(name string) bool { return c.processing[name] }

// Deferred returns, in first-seen order, the declared names that were
// emitted as by-name references without being in the generated set.
func (c *Context) Deferred() []string {
	out := make([]string, len(c.deferredOrder))
	copy(out, c.deferredOrder)
	return out
}

// Fallbacks returns how many universal fallbacks were produced.
func (c *Context) Fallbacks() int { return c.fallbacks }

func (c *Context) addDeferred(name string) {
	if c.deferred[name] {
		return
	}
	c.deferred[name] = true
	c.deferredOrder = append(c.deferredOrder, name)
}

// push enters one level and reports whether the depth bound is exceeded.
func (c *Context) push(maxDepth int) (exceeded bool) {
	c.depth++
	c.peak = max(c.peak, c.depth)
	if c.depth > maxDepth {
		c.cuts++
		return true
	}
	return false
}

func (c *Context) pop() { c.depth-- }

// inFlight is the lookup conversions use; unlike InFlight it is recorded,
// since its answer shapes the output.
func (c *Context) inFlight(name string) bool {
	v := c.processing[name]
	c.observed = append(c.observed, observation{name, v})
	return v
}

type observation struct {
	name     string
	inFlight bool
}

// cacheEntry is the expansion of a declared name together with everything
// it depended on besides the declarations themselves. Reusing it is
// equivalent to expanding again when the remaining depth covers height and
// every observed name still has the same in-flight state.
type cacheEntry struct {
	schema    *schema
	height    int
	fallbacks int
	deps      []observation
}

// mark captures the bookkeeping before an expansion.
type mark struct {
	peak, cuts, fallbacks, observed int
}

func (c *Context) mark() mark {
	m := mark{peak: c.peak, cuts: c.cuts, fallbacks: c.fallbacks, observed: len(c.observed)}
	c.peak = c.depth
	return m
}

// settle restores the bookkeeping after an expansion that started at m and
// returns a cache entry for it, unless the depth bound cut it short.
func (c *Context) settle(m mark, s *schema) (cacheEntry, bool) {
	height := c.peak - c.depth
	c.peak = max(c.peak, m.peak)
	if c.cuts != m.cuts {
		return cacheEntry{}, false
	}
	var deps []observation
	seen := make(map[string]bool)
	for _, o := range c.observed[m.observed:] {
		if !seen[o.name] {
			seen[o.name] = true
			deps = append(deps, o)
		}
	}
	return cacheEntry{schema: s, height: height, fallbacks: c.fallbacks - m.fallbacks, deps: deps}, true
}

// reuse returns the cached expansion of name if it is still valid here, and
// replays its dependencies so that enclosing entries inherit them.
func (c *Context) reuse(name string, maxDepth int) (*schema, bool) {
	e, ok := c.cache[name]
	if !ok || c.depth+e.height > maxDepth {
		return nil, false
	}
	for _, d := range e.deps {
		if c.processing[d.name] != d.inFlight {
			return nil, false
		}
	}
	c.peak = max(c.peak, c.depth+e.height)
	c.fallbacks += e.fallbacks
	c.observed = append(c.observed, e.deps...)
	return e.schema, true
}
