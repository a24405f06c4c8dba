// Package vcf provides the VCF header and record model, a header-keyed
// record decoder, and plain-text reading and writing.
package vcf

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// The VCF version written by this package.
const (
	FileFormatVersion     = "VCFv4.2"
	FileFormatVersionLine = "##fileformat=VCFv4.2"
)

// DefaultColumns are the fixed columns of the #CHROM header line.
var DefaultColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// Definition types.
const (
	TypeInteger   = "Integer"
	TypeFloat     = "Float"
	TypeFlag      = "Flag"
	TypeCharacter = "Character"
	TypeString    = "String"
)

// Definition describes an INFO or FORMAT key. A key-only declaration leaves
// Number, Type and Description empty; Resolve fills them in.
type Definition struct {
	ID          string
	Number      string // integer, A, R, G or .
	Type        string
	Description string
}

// MetaEntry is a free-form ##key=value header line.
type MetaEntry struct {
	Key   string
	Value string
}

// Header is a VCF header. It is not modified by Decode or the writer, so a
// fully built header can be shared between goroutines.
type Header struct {
	FileFormat string
	Meta       []MetaEntry
	Infos      []*Definition
	Formats    []*Definition
	Samples    []string

	infoIndex   map[string]*Definition
	formatIndex map[string]*Definition
	sampleIndex map[string]struct{}
}

// HeaderError reports an invalid header declaration.
type HeaderError struct {
	Kind string // INFO, FORMAT, sample or meta
	ID   string
	Err  error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid %s declaration %q: %v", e.Kind, e.ID, e.Err)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// Header declaration errors.
var (
	ErrInvalidKey   = errors.New("invalid key")
	ErrDuplicateKey = errors.New("duplicate key")
)

// reKey matches valid INFO and FORMAT keys.
var reKey = regexp.MustCompile(`^([A-Za-z_][0-9A-Za-z_.]*|1000G)$`)

// reMetaKey matches valid ##key=value keys.
var reMetaKey = regexp.MustCompile(`^[A-Za-z_][0-9A-Za-z_.\-]*$`)

// NewHeader returns an empty header with the default file format.
func NewHeader() *Header {
	return &Header{
		FileFormat:  FileFormatVersion,
		infoIndex:   make(map[string]*Definition),
		formatIndex: make(map[string]*Definition),
		sampleIndex: make(map[string]struct{}),
	}
}

// SetMeta sets a free-form metadata entry, replacing an existing one with the same key.
func (h *Header) SetMeta(key, value string) error {
	if !reMetaKey.MatchString(key) || key == "fileformat" || key == "INFO" || key == "FORMAT" {
		return &HeaderError{Kind: "meta", ID: key, Err: ErrInvalidKey}
	}
	if strings.ContainsAny(value, "\n\r") {
		return &HeaderError{Kind: "meta", ID: key, Err: fmt.Errorf("value contains a line break")}
	}
	for i := range h.Meta {
		if h.Meta[i].Key == key {
			h.Meta[i].Value = value
			return nil
		}
	}
	h.Meta = append(h.Meta, MetaEntry{Key: key, Value: value})
	return nil
}

// MetaValue returns the value of a free-form metadata entry.
func (h *Header) MetaValue(key string) (string, bool) {
	for _, m := range h.Meta {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// AddInfo declares a key-only INFO field.
func (h *Header) AddInfo(id string) error {
	return h.AddInfoDefinition(&Definition{ID: id})
}

// AddInfoDefinition declares an INFO field with explicit metadata.
func (h *Header) AddInfoDefinition(def *Definition) error {
	if err := checkKey("INFO", def.ID, h.infoIndex); err != nil {
		return err
	}
	h.Infos = append(h.Infos, def)
	h.infoIndex[def.ID] = def
	return nil
}

// AddFormat declares a key-only FORMAT field.
func (h *Header) AddFormat(id string) error {
	return h.AddFormatDefinition(&Definition{ID: id})
}

// AddFormatDefinition declares a FORMAT field with explicit metadata.
func (h *Header) AddFormatDefinition(def *Definition) error {
	if err := checkKey("FORMAT", def.ID, h.formatIndex); err != nil {
		return err
	}
	h.Formats = append(h.Formats, def)
	h.formatIndex[def.ID] = def
	return nil
}

// AddSample appends a sample column.
func (h *Header) AddSample(name string) error {
	if name == "" || strings.ContainsAny(name, "\t\n\r") {
		return &HeaderError{Kind: "sample", ID: name, Err: ErrInvalidKey}
	}
	if _, ok := h.sampleIndex[name]; ok {
		return &HeaderError{Kind: "sample", ID: name, Err: ErrDuplicateKey}
	}
	h.Samples = append(h.Samples, name)
	h.sampleIndex[name] = struct{}{}
	return nil
}

func checkKey(kind, id string, index map[string]*Definition) error {
	if !reKey.MatchString(id) {
		return &HeaderError{Kind: kind, ID: id, Err: ErrInvalidKey}
	}
	if _, ok := index[id]; ok {
		return &HeaderError{Kind: kind, ID: id, Err: ErrDuplicateKey}
	}
	return nil
}

// Info returns the resolved definition of a declared INFO key.
func (h *Header) Info(id string) (Definition, bool) {
	def, ok := h.infoIndex[id]
	if !ok {
		return Definition{}, false
	}
	return resolve(*def, standardInfos), true
}

// Format returns the resolved definition of a declared FORMAT key.
func (h *Header) Format(id string) (Definition, bool) {
	def, ok := h.formatIndex[id]
	if !ok {
		return Definition{}, false
	}
	return resolve(*def, standardFormats), true
}

// ReservedInfo reports whether id is a reserved INFO key with a standard
// definition.
func ReservedInfo(id string) bool {
	_, ok := standardInfos[id]
	return ok
}

// InfoKeys returns the declared INFO keys in declaration order.
func (h *Header) InfoKeys() []string {
	keys := make([]string, len(h.Infos))
	for i, d := range h.Infos {
		keys[i] = d.ID
	}
	return keys
}

// FormatKeys returns the declared FORMAT keys in declaration order.
func (h *Header) FormatKeys() []string {
	keys := make([]string, len(h.Formats))
	for i, d := range h.Formats {
		keys[i] = d.ID
	}
	return keys
}

// Lines returns the header as text lines, ending with the #CHROM line.
func (h *Header) Lines() []string {
	fileFormat := h.FileFormat
	if fileFormat == "" {
		fileFormat = FileFormatVersion
	}
	lines := make([]string, 0, 2+len(h.Infos)+len(h.Formats)+len(h.Meta))
	lines = append(lines, "##fileformat="+fileFormat)
	for _, d := range h.Infos {
		lines = append(lines, "##INFO="+resolve(*d, standardInfos).structured())
	}
	for _, d := range h.Formats {
		lines = append(lines, "##FORMAT="+resolve(*d, standardFormats).structured())
	}
	for _, m := range h.Meta {
		lines = append(lines, "##"+m.Key+"="+m.Value)
	}

	cols := DefaultColumns
	if len(h.Samples) > 0 {
		cols = append(append(append([]string(nil), DefaultColumns...), "FORMAT"), h.Samples...)
	}
	lines = append(lines, "#"+strings.Join(cols, "\t"))
	return lines
}

// structured formats a definition as <ID=..,Number=..,Type=..,Description="..">.
func (d Definition) structured() string {
	desc := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(d.Description)
	return fmt.Sprintf("<ID=%s,Number=%s,Type=%s,Description=\"%s\">", d.ID, d.Number, d.Type, desc)
}

// resolve fills the empty fields of a definition from the reserved key table,
// or from the permissive default for keys that are not reserved.
func resolve(d Definition, standard map[string]Definition) Definition {
	if d.Number != "" && d.Type != "" {
		return d
	}
	std, ok := standard[d.ID]
	if !ok {
		std = Definition{Number: ".", Type: TypeString}
	}
	if d.Number == "" {
		d.Number = std.Number
	}
	if d.Type == "" {
		d.Type = std.Type
	}
	if d.Description == "" {
		d.Description = std.Description
	}
	return d
}

// Reserved INFO keys (VCF 4.2, section 1.4.2).
var standardInfos = map[string]Definition{
	"AA":        {Number: "1", Type: TypeString, Description: "Ancestral allele"},
	"AC":        {Number: "A", Type: TypeInteger, Description: "Allele count in genotypes, for each ALT allele, in the same order as listed"},
	"AD":        {Number: "R", Type: TypeInteger, Description: "Total read depth for each allele"},
	"ADF":       {Number: "R", Type: TypeInteger, Description: "Read depth for each allele on the forward strand"},
	"ADR":       {Number: "R", Type: TypeInteger, Description: "Read depth for each allele on the reverse strand"},
	"AF":        {Number: "A", Type: TypeFloat, Description: "Allele frequency for each ALT allele in the same order as listed"},
	"AN":        {Number: "1", Type: TypeInteger, Description: "Total number of alleles in called genotypes"},
	"BQ":        {Number: "1", Type: TypeFloat, Description: "RMS base quality"},
	"CIGAR":     {Number: "A", Type: TypeString, Description: "Cigar string describing how to align an alternate allele to the reference allele"},
	"DB":        {Number: "0", Type: TypeFlag, Description: "dbSNP membership"},
	"DP":        {Number: "1", Type: TypeInteger, Description: "Combined depth across samples"},
	"END":       {Number: "1", Type: TypeInteger, Description: "End position on CHROM"},
	"H2":        {Number: "0", Type: TypeFlag, Description: "HapMap2 membership"},
	"H3":        {Number: "0", Type: TypeFlag, Description: "HapMap3 membership"},
	"MQ":        {Number: "1", Type: TypeFloat, Description: "RMS mapping quality"},
	"MQ0":       {Number: "1", Type: TypeInteger, Description: "Number of MAPQ == 0 reads"},
	"NS":        {Number: "1", Type: TypeInteger, Description: "Number of samples with data"},
	"SB":        {Number: "4", Type: TypeInteger, Description: "Strand bias"},
	"SOMATIC":   {Number: "0", Type: TypeFlag, Description: "Somatic mutation"},
	"VALIDATED": {Number: "0", Type: TypeFlag, Description: "Validated by follow-up experiment"},
	"1000G":     {Number: "0", Type: TypeFlag, Description: "1000 Genomes membership"},
}

// Reserved FORMAT keys (VCF 4.2, section 1.4.4).
var standardFormats = map[string]Definition{
	"AD":  {Number: "R", Type: TypeInteger, Description: "Read depth for each allele"},
	"ADF": {Number: "R", Type: TypeInteger, Description: "Read depth for each allele on the forward strand"},
	"ADR": {Number: "R", Type: TypeInteger, Description: "Read depth for each allele on the reverse strand"},
	"DP":  {Number: "1", Type: TypeInteger, Description: "Read depth"},
	"EC":  {Number: "A", Type: TypeInteger, Description: "Expected alternate allele counts"},
	"FT":  {Number: "1", Type: TypeString, Description: "Filter indicating if this genotype was \"called\""},
	"GL":  {Number: "G", Type: TypeFloat, Description: "Genotype likelihoods"},
	"GP":  {Number: "G", Type: TypeFloat, Description: "Genotype posterior probabilities"},
	"GQ":  {Number: "1", Type: TypeInteger, Description: "Conditional genotype quality"},
	"GT":  {Number: "1", Type: TypeString, Description: "Genotype"},
	"HQ":  {Number: "2", Type: TypeInteger, Description: "Haplotype quality"},
	"MQ":  {Number: "1", Type: TypeInteger, Description: "RMS mapping quality"},
	"PL":  {Number: "G", Type: TypeInteger, Description: "Phred-scaled genotype likelihoods rounded to the closest integer"},
	"PQ":  {Number: "1", Type: TypeInteger, Description: "Phasing quality"},
	"PS":  {Number: "1", Type: TypeInteger, Description: "Phase set"},
}
