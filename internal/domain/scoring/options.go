package scoring

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithIDGenerator replaces the uuid generator used for new criteria.
func WithIDGenerator(gen func() string) Option {
	return func(c *Catalog) {
		if gen != nil {
			c.newID = gen
		}
	}
}
