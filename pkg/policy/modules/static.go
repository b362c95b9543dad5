package modules

// Static advertises a NIP implemented outside the policy pipeline — in
// storage, transport, or an HTTP surface — that has no admission policy
// of its own to contribute. It exists only so Pipeline.Info's
// supported_nips union reflects what the relay actually does.
type Static struct {
	NameVal string
	NIPList []int
}

// NewStatic builds a Static module advertising the given NIP numbers
// under name, for the NIP-11 document.
func NewStatic(name string, nips ...int) *Static {
	return &Static{NameVal: name, NIPList: nips}
}

func (s *Static) Name() string { return s.NameVal }
func (s *Static) NIPs() []int  { return s.NIPList }
