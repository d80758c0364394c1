package service

// Layer describes where a service sits in the engagement core.
type Layer string

const (
	// LayerLedger services move value between wallets.
	LayerLedger Layer = "ledger"
	// LayerSocial services own edges and comments.
	LayerSocial Layer = "social"
	// LayerRead services derive read models from the others.
	LayerRead Layer = "read"
)

// Descriptor advertises a service's placement and capabilities. It does not
// change runtime behavior; the status endpoint lists descriptors so operators
// can see what is wired.
type Descriptor struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Layer        Layer    `json:"layer"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}

// Describer is implemented by services that publish a Descriptor.
type Describer interface {
	Descriptor() Descriptor
}
