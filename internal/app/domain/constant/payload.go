package constant

// DomainInput is the write payload for a domain upsert.
type DomainInput struct {
	Domain      string  `json:"domain" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Link        *string `json:"link,omitempty"`
}

// ConstantInput is the write payload for a constant upsert. The domain comes
// from the request path, not the body.
type ConstantInput struct {
	Name        string  `json:"name" validate:"required"`
	Value       Value   `json:"value"`
	Tags        *string `json:"tags,omitempty"`
	Description string  `json:"description" validate:"required"`
	Link        *string `json:"link,omitempty"`
}

// Record converts the payload into the stored record.
func (in DomainInput) Record() Domain {
	return Domain{
		Domain:      in.Domain,
		Description: in.Description,
		Link:        in.Link,
	}
}

// Record converts the payload into the stored record for the given domain,
// deriving the hexadecimal rendering for numeric values.
func (in ConstantInput) Record(domain string) Constant {
	return Constant{
		Domain:      domain,
		Name:        in.Name,
		Value:       in.Value.String(),
		HexValue:    in.Value.Hex(),
		Tags:        in.Tags,
		Description: in.Description,
		Link:        in.Link,
	}
}
