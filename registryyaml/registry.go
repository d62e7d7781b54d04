// Package registryyaml implements ddcci.FeatureRegistry from an embedded
// YAML feature table, keyed by VCP opcode.
package registryyaml

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ddcgo/ddcmccs/ddcci"
)

//go:embed features.yaml
var embeddedFeatures []byte

type yamlFeature struct {
	Code       string   `yaml:"code"`
	Name       string   `yaml:"name"`
	Readable   bool     `yaml:"readable"`
	Writable   bool     `yaml:"writable"`
	Table      bool     `yaml:"table"`
	MinVersion string   `yaml:"min_version"`
	Subsets    []string `yaml:"subsets"`
}

type yamlDocument struct {
	Features []yamlFeature `yaml:"features"`
}

type resolvedFeature struct {
	entry      ddcci.FeatureEntry
	readable   bool
	writable   bool
	table      bool
	minVersion ddcci.VCPVersion
	subsets    map[string]bool
}

// Registry is a ddcci.FeatureRegistry backed by a parsed feature table.
type Registry struct {
	byCode map[byte]resolvedFeature
}

// Load parses a YAML document of the shape embedded in features.yaml into a
// Registry.
func Load(data []byte) (*Registry, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registryyaml: parse: %w", err)
	}

	r := &Registry{byCode: make(map[byte]resolvedFeature, len(doc.Features))}
	for _, f := range doc.Features {
		code, err := strconv.ParseUint(f.Code, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("registryyaml: bad code %q: %w", f.Code, err)
		}
		version, err := parseVersion(f.MinVersion)
		if err != nil {
			return nil, fmt.Errorf("registryyaml: feature %s: %w", f.Code, err)
		}

		subsets := make(map[string]bool, len(f.Subsets))
		for _, s := range f.Subsets {
			subsets[s] = true
		}

		r.byCode[byte(code)] = resolvedFeature{
			entry:      ddcci.FeatureEntry{Code: byte(code), Name: f.Name},
			readable:   f.Readable,
			writable:   f.Writable,
			table:      f.Table,
			minVersion: version,
			subsets:    subsets,
		}
	}
	return r, nil
}

func parseVersion(s string) (ddcci.VCPVersion, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return ddcci.VCPVersion{}, fmt.Errorf("min_version %q must be MAJOR.MINOR", s)
	}
	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return ddcci.VCPVersion{}, fmt.Errorf("min_version %q: %w", s, err)
	}
	minor, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return ddcci.VCPVersion{}, fmt.Errorf("min_version %q: %w", s, err)
	}
	return ddcci.VCPVersion{Major: uint8(major), Minor: uint8(minor)}, nil
}

func versionAtLeast(have, want ddcci.VCPVersion) bool {
	if have.Major != want.Major {
		return have.Major > want.Major
	}
	return have.Minor >= want.Minor
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the Registry built from the table embedded in this
// package, parsed once and cached.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Load(embeddedFeatures)
	})
	return defaultReg, defaultErr
}

func (r *Registry) FindByCode(code byte) (ddcci.FeatureEntry, bool) {
	f, ok := r.byCode[code]
	if !ok {
		return ddcci.FeatureEntry{}, false
	}
	return f.entry, true
}

func (r *Registry) IsReadable(entry ddcci.FeatureEntry, version ddcci.VCPVersion) bool {
	f, ok := r.byCode[entry.Code]
	return ok && f.readable && versionAtLeast(version, f.minVersion)
}

func (r *Registry) IsWritable(entry ddcci.FeatureEntry, version ddcci.VCPVersion) bool {
	f, ok := r.byCode[entry.Code]
	return ok && f.writable && versionAtLeast(version, f.minVersion)
}

func (r *Registry) IsTable(entry ddcci.FeatureEntry, version ddcci.VCPVersion) bool {
	f, ok := r.byCode[entry.Code]
	return ok && f.table
}

func (r *Registry) SubsetMembers(subset ddcci.Subset, version ddcci.VCPVersion) []ddcci.FeatureEntry {
	if subset.Kind == ddcci.SubsetSingleFeature {
		if f, ok := r.byCode[subset.Code]; ok {
			return []ddcci.FeatureEntry{f.entry}
		}
		return nil
	}

	tag := ""
	switch subset.Kind {
	case ddcci.SubsetScan:
		tag = "scan"
	case ddcci.SubsetProfile:
		tag = "profile"
	case ddcci.SubsetColorMgmt:
		tag = "colormgmt"
	}

	var out []ddcci.FeatureEntry
	for code := byte(0); ; code++ {
		if f, ok := r.byCode[code]; ok && versionAtLeast(version, f.minVersion) {
			if subset.Kind == ddcci.SubsetAll || subset.Kind == ddcci.SubsetSupported || f.subsets[tag] {
				out = append(out, f.entry)
			}
		}
		if code == 0xFF {
			break
		}
	}
	return out
}
