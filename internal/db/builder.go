package db

// IndexBuilder assembles an IndexDefinition field by field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts a HASH index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix adds key prefixes covered by the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Tag adds a case-sensitive TAG field. Source ids are matched exactly.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:             name,
		Type:             IndexFieldTag,
		TagCaseSensitive: true,
	})
	return b
}

// Text adds a TEXT field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldText})
	return b
}

// VectorHNSW adds an HNSW vector field stored under name and queried as alias.
func (b *IndexBuilder) VectorHNSW(
	name, alias string, dim int, distance DistanceMetric, m, efConstruct int,
) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:              name,
		Alias:             alias,
		Type:              IndexFieldVector,
		VectorAlgo:        VectorHNSW,
		VectorDim:         dim,
		VectorDistance:    distance,
		VectorM:           m,
		VectorEFConstruct: efConstruct,
	})
	return b
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	return &def, nil
}
