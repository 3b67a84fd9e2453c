package export

import (
	"fmt"

	"github.com/hyperjump/tally/internal/models"
)

// FieldTransform rewrites the value of one field, addressed by key.
type FieldTransform struct {
	Key   string
	Apply func(v any) any
}

// AppendSuffix returns a transform that renders the field as text and appends suffix.
func AppendSuffix(key, suffix string) FieldTransform {
	return FieldTransform{
		Key: key,
		Apply: func(v any) any {
			if s, ok := v.(string); ok {
				return s + suffix
			}
			return fmt.Sprint(v) + suffix
		},
	}
}

// Preparer applies field transforms to records before they are mapped to rows.
type Preparer struct {
	transforms []FieldTransform
}

// NewPreparer returns a Preparer running transforms in order. With none it is an identity copy.
func NewPreparer(transforms ...FieldTransform) *Preparer {
	return &Preparer{transforms: transforms}
}

// Prepare returns transformed copies of records. The input slice and its records are not
// modified, so the same record set can be shared by concurrent jobs. Fields a record lacks
// are left absent; the row mapper reports them.
func (p *Preparer) Prepare(records []models.Fields) []models.Fields {
	out := make([]models.Fields, len(records))
	for i, rec := range records {
		c := rec.Clone()
		for _, t := range p.transforms {
			for j := range c {
				if c[j].Key == t.Key {
					c[j].Value = t.Apply(c[j].Value)
				}
			}
		}
		out[i] = c
	}
	return out
}
