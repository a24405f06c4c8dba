// Package assemble builds a VCF header and data records from parsed variant
// specifications.
package assemble

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/inodb/makevcf/internal/varspec"
	"github.com/inodb/makevcf/internal/vcf"
)

// AssemblyKey is the header metadata key holding the reference assembly.
const AssemblyKey = "assembly"

// SupportedAssemblies lists the accepted reference assembly identifiers.
var SupportedAssemblies = []string{"hg38", "hg19", "b37", "b38", "GRCh37", "GRCh38"}

// Header construction errors.
var (
	ErrUnsupportedAssembly = errors.New("invalid assembly")
	ErrNoFormat            = errors.New("at least one FORMAT field is required when samples are declared")
)

// ValidateAssembly checks an assembly identifier against SupportedAssemblies.
func ValidateAssembly(assembly string) error {
	if slices.Contains(SupportedAssemblies, assembly) {
		return nil
	}
	return fmt.Errorf("%w: %s. Must be one of: %s",
		ErrUnsupportedAssembly, assembly, strings.Join(SupportedAssemblies, ", "))
}

// BuildHeader builds the header for a run: the fixed file format, the
// assembly metadata entry, one key-only FORMAT declaration per field in the
// given order, one INFO declaration per key found in infos (sorted,
// deduplicated), and the sample columns in the given order.
//
// INFO declarations are key-only, except that a key which is not reserved
// and only ever appears without a value is declared as a flag.
func BuildHeader(assembly string, format, samples, infos []string) (*vcf.Header, error) {
	if len(samples) > 0 && len(format) == 0 {
		return nil, ErrNoFormat
	}

	h := vcf.NewHeader()

	if err := h.SetMeta(AssemblyKey, assembly); err != nil {
		return nil, err
	}

	for _, field := range format {
		if err := h.AddFormat(field); err != nil {
			return nil, err
		}
	}

	set := NewInfoKeySet()
	for _, info := range infos {
		set.AddInfo(info)
	}
	for _, key := range set.Sorted() {
		def := &vcf.Definition{ID: key}
		if set.FlagOnly(key) && !vcf.ReservedInfo(key) {
			def.Number, def.Type = "0", vcf.TypeFlag
		}
		if err := h.AddInfoDefinition(def); err != nil {
			return nil, err
		}
	}

	for _, sample := range samples {
		if err := h.AddSample(sample); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// CollectInfoKeys returns the unique INFO keys referenced by the given raw
// INFO strings, in lexicographic order.
func CollectInfoKeys(infos []string) []string {
	set := NewInfoKeySet()
	for _, info := range infos {
		set.AddInfo(info)
	}
	return set.Sorted()
}

// infoUse records how a key appeared in raw INFO strings.
type infoUse struct {
	bare   bool // seen without "=value"
	valued bool
}

// InfoKeySet is an ordered set of INFO keys. Insertion order does not
// affect Sorted.
type InfoKeySet struct {
	keys map[string]infoUse
}

// NewInfoKeySet returns an empty set.
func NewInfoKeySet() *InfoKeySet {
	return &InfoKeySet{keys: make(map[string]infoUse)}
}

// Add inserts a single key without recording how it is used.
func (s *InfoKeySet) Add(key string) {
	s.keys[key] = s.keys[key]
}

// AddInfo inserts every key of a raw INFO string such as "DP=10;DB;AF=0.5".
// Empty entries and the missing-value placeholder are skipped.
func (s *InfoKeySet) AddInfo(info string) {
	for _, token := range lo.Compact(strings.Split(info, ";")) {
		key, _, hasValue := strings.Cut(token, "=")
		if key == "" || key == varspec.MissingInfo {
			continue
		}
		use := s.keys[key]
		if hasValue {
			use.valued = true
		} else {
			use.bare = true
		}
		s.keys[key] = use
	}
}

// FlagOnly reports whether key was seen, always without a value.
func (s *InfoKeySet) FlagOnly(key string) bool {
	use, ok := s.keys[key]
	return ok && use.bare && !use.valued
}

// Len returns the number of keys.
func (s *InfoKeySet) Len() int {
	return len(s.keys)
}

// Sorted returns the keys in lexicographic order.
func (s *InfoKeySet) Sorted() []string {
	keys := lo.Keys(s.keys)
	slices.Sort(keys)
	return keys
}
