package extract

// Collector accumulates unique non-empty strings across a page stream,
// preserving first-seen order. One Collector belongs to exactly one
// extraction run.
type Collector struct {
	seen  map[string]struct{}
	order []string
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add records s if it is non-empty and not seen before. It reports whether s
// was newly added.
func (c *Collector) Add(s string) bool {
	if s == "" {
		return false
	}
	if _, ok := c.seen[s]; ok {
		return false
	}
	c.seen[s] = struct{}{}
	c.order = append(c.order, s)
	return true
}

// Values returns the collected strings in first-seen order. The returned
// slice is a copy.
func (c *Collector) Values() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of distinct values collected.
func (c *Collector) Len() int { return len(c.order) }
