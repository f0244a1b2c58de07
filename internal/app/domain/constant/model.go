package constant

// Domain is a named grouping of constants, e.g. a protocol namespace.
type Domain struct {
	Domain      string  `json:"domain" db:"domain"`
	Description string  `json:"description" db:"description"`
	Link        *string `json:"link" db:"link"`
}

// Constant is a single named value belonging to a domain. HexValue is only set
// when the value was written as a number.
type Constant struct {
	Domain      string  `json:"domain" db:"domain"`
	Name        string  `json:"name" db:"name"`
	Value       string  `json:"value" db:"value"`
	HexValue    *string `json:"hex_value" db:"hex_value"`
	Tags        *string `json:"tags" db:"tags"`
	Description string  `json:"description" db:"description"`
	Link        *string `json:"link" db:"link"`
}

// Key identifies a constant within the registry.
type Key struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// Key returns the (domain, name) pair of the constant.
func (c Constant) Key() Key {
	return Key{Domain: c.Domain, Name: c.Name}
}
