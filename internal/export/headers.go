package export

import "github.com/hyperjump/tally/internal/models"

// Header is the derived column layout of a worksheet. Keys name the record fields that feed
// the leading columns; Labels has one entry per column, including trailing derived columns.
type Header struct {
	Keys   []string
	Labels []string
}

// DeriveHeaders builds the header from the first record's field order, looking each key up
// in labels, then appends the trailing labels. All records are assumed to share the first
// record's shape; a mismatch surfaces when the row is mapped.
func DeriveHeaders(records []models.Fields, labels models.LabelTable, trailing ...string) (Header, error) {
	if len(records) == 0 {
		return Header{}, &ConfigurationError{Msg: "cannot derive headers from empty record set"}
	}
	first := records[0]
	h := Header{
		Keys:   make([]string, 0, len(first)),
		Labels: make([]string, 0, len(first)+len(trailing)),
	}
	for _, fld := range first {
		label, ok := labels[fld.Key]
		if !ok {
			return Header{}, &SchemaMismatchError{Key: fld.Key}
		}
		h.Keys = append(h.Keys, fld.Key)
		h.Labels = append(h.Labels, label)
	}
	h.Labels = append(h.Labels, trailing...)
	return h, nil
}
