package chart

import "html/template"

// Text is a static block of trusted HTML with no data dependencies.
type Text struct{ *base }

// NewText wraps content as a chart. content is emitted verbatim, so it must
// come from a trusted source.
func NewText(id string, content template.HTML) (*Text, error) {
	b, err := newBase(id)
	if err != nil {
		return nil, err
	}
	b.appearance = content
	return &Text{b}, nil
}
