package ddcci

import "fmt"

// VCPVersion is an MCCS version spec (major.minor). DefaultVCPVersion is
// assumed whenever a display or dumpload record doesn't say otherwise.
type VCPVersion struct {
	Major, Minor uint8
}

func (v VCPVersion) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

var DefaultVCPVersion = VCPVersion{Major: 2, Minor: 0}

// FeatureEntry is the metadata a FeatureRegistry hands back for one VCP
// opcode. Readability/writability/table-ness are queried separately because
// they can depend on the MCCS version in play.
type FeatureEntry struct {
	Code byte
	Name string
}

// SubsetKind names one of the feature subsets the core references.
type SubsetKind int

const (
	SubsetAll SubsetKind = iota
	SubsetSupported
	SubsetScan
	SubsetProfile
	SubsetColorMgmt
	SubsetSingleFeature
)

// Subset identifies a feature subset. Code is only meaningful when Kind is
// SubsetSingleFeature.
type Subset struct {
	Kind SubsetKind
	Code byte
}

func SingleFeatureSubset(code byte) Subset {
	return Subset{Kind: SubsetSingleFeature, Code: code}
}

// FeatureRegistry is the collaborator contract for feature-code metadata.
// The core never hardcodes which opcodes exist, their type, or their human
// names — it always asks a FeatureRegistry.
type FeatureRegistry interface {
	FindByCode(code byte) (FeatureEntry, bool)
	IsReadable(entry FeatureEntry, version VCPVersion) bool
	IsWritable(entry FeatureEntry, version VCPVersion) bool
	IsTable(entry FeatureEntry, version VCPVersion) bool
	SubsetMembers(subset Subset, version VCPVersion) []FeatureEntry
}
