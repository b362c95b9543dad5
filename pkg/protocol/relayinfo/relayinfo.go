// Package relayinfo builds the NIP-11 relay information document served
// on a plain GET to the relay's root URL with an
// "Accept: application/nostr+json" header.
package relayinfo

// T is the NIP-11 document shape.
type T struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Pubkey        string         `json:"pubkey,omitempty"`
	Contact       string         `json:"contact,omitempty"`
	SupportedNIPs []int          `json:"supported_nips"`
	Software      string         `json:"software"`
	Version       string         `json:"version"`
	Limitation    map[string]any `json:"limitation,omitempty"`
}

// Builder accumulates the pieces of a relay information document as the
// policy pipeline's modules are walked.
type Builder struct {
	doc T
}

// NewBuilder seeds a Builder with the relay's static identity fields.
func NewBuilder(name, description, software, version, pubkey, contact string) *Builder {
	return &Builder{doc: T{
		Name:        name,
		Description: description,
		Software:    software,
		Version:     version,
		Pubkey:      pubkey,
		Contact:     contact,
		Limitation:  map[string]any{},
	}}
}

// WithNIPs sets the supported-NIPs list.
func (b *Builder) WithNIPs(nips []int) *Builder {
	b.doc.SupportedNIPs = nips
	return b
}

// WithLimitations merges additional limitation entries.
func (b *Builder) WithLimitations(limitations map[string]any) *Builder {
	for k, v := range limitations {
		b.doc.Limitation[k] = v
	}
	return b
}

// Build returns the finished document.
func (b *Builder) Build() T { return b.doc }
