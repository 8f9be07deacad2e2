// Package config is the typed configuration supplier described in
// spec.md §6: jiwol layout overrides, the AHS tuning knobs, the SCD
// trigger size, and the fixed record/ledger constants, loaded from a
// single YAML document (gopkg.in/yaml.v3).
package config

import (
	"errors"
	"fmt"
	"os"

	"coreledger.dev/engine/internal/jiwol"
	"coreledger.dev/engine/internal/quantum"
	"gopkg.in/yaml.v3"
)

// JiwolSpec overrides the default JiwolId layout. Digits and Fields
// MUST be parallel, length-9 lists summing to jiwol.TotalDigits; any
// other shape falls back to the default layout (spec §4.1, §6).
type JiwolSpec struct {
	Digits []int    `yaml:"digits"`
	Fields []string `yaml:"fields"`
}

// AhsSpec carries the AHS tuning knobs. Metric is informational only —
// the implementation always uses the Euclidean magnitude (spec §9).
type AhsSpec struct {
	Alpha  float32 `yaml:"alpha"`
	Metric string  `yaml:"metric"`
}

// ScdSpec carries the compaction byte trigger.
type ScdSpec struct {
	TriggerBytes uint64 `yaml:"trigger_bytes"`
}

// RecordSpec documents the fixed record shape (asserted by
// Spec.Validate, not by Load), plus the selected hash algorithm name.
type RecordSpec struct {
	SizeBytes      int    `yaml:"size_bytes"`
	IDLen          int    `yaml:"id_len"`
	SemanticVecLen int    `yaml:"semantic_vec_len"`
	Hash           string `yaml:"hash"`
}

// LedgerSpec carries the ledger file's on-disk path and the two
// booleans spec.md §6 requires to always be true.
type LedgerSpec struct {
	Path       string `yaml:"path"`
	AppendOnly bool   `yaml:"append_only"`
	Chain      bool   `yaml:"chain"`
}

// UemSpec groups the record and ledger sub-specs.
type UemSpec struct {
	Record RecordSpec `yaml:"record"`
	Ledger LedgerSpec `yaml:"ledger"`
}

// Spec is the top-level configuration document.
type Spec struct {
	Jiwol JiwolSpec `yaml:"jiwol"`
	Ahs   AhsSpec   `yaml:"ahs"`
	Scd   ScdSpec   `yaml:"scd"`
	Uem   UemSpec   `yaml:"uem"`
}

// DefaultPath is the default on-disk ledger file path.
const DefaultPath = ".core/core.uem"

// DefaultTriggerBytes is the default SCD trigger, 200 MiB.
const DefaultTriggerBytes uint64 = 200 * 1024 * 1024

// DefaultSpec returns the spec's documented defaults (spec §4.1, §4.3,
// §4.6, §6).
func DefaultSpec() Spec {
	return Spec{
		Jiwol: JiwolSpec{
			Digits: []int{6, 4, 4, 1, 1, 1, 1, 1, 1},
			Fields: []string{"t", "x", "j", "a", "w", "k", "p", "m", "c"},
		},
		Ahs: AhsSpec{Alpha: 0.8, Metric: "state delta norm"},
		Scd: ScdSpec{TriggerBytes: DefaultTriggerBytes},
		Uem: UemSpec{
			Record: RecordSpec{
				SizeBytes:      quantum.RecordSize,
				IDLen:          jiwol.TotalDigits,
				SemanticVecLen: quantum.SemLen,
				Hash:           "blake3",
			},
			Ledger: LedgerSpec{Path: DefaultPath, AppendOnly: true, Chain: true},
		},
	}
}

// Load reads and parses a YAML spec document at path.
func Load(path string) (Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	var s Spec
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Spec{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return applyDefaults(s), nil
}

// LoadOrDefault reads path if present, falling back to DefaultSpec on
// os.IsNotExist, mirroring the teacher's manifest-not-found branch.
func LoadOrDefault(path string) (Spec, error) {
	s, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSpec(), nil
		}
		return Spec{}, err
	}
	return s, nil
}

// applyDefaults fills in zero-valued sub-specs not present in a
// partial YAML document.
func applyDefaults(s Spec) Spec {
	d := DefaultSpec()
	if len(s.Jiwol.Digits) == 0 && len(s.Jiwol.Fields) == 0 {
		s.Jiwol = d.Jiwol
	}
	if s.Ahs.Alpha == 0 {
		s.Ahs.Alpha = d.Ahs.Alpha
	}
	if s.Ahs.Metric == "" {
		s.Ahs.Metric = d.Ahs.Metric
	}
	if s.Scd.TriggerBytes == 0 {
		s.Scd.TriggerBytes = d.Scd.TriggerBytes
	}
	if s.Uem.Record.SizeBytes == 0 {
		s.Uem.Record = d.Uem.Record
	}
	if s.Uem.Ledger.Path == "" {
		s.Uem.Ledger = d.Uem.Ledger
	}
	return s
}

// JiwolLayout converts the configured (or default) digits/fields into
// a jiwol.Layout, falling back to jiwol.DefaultLayout when the
// configured layout doesn't sum to jiwol.TotalDigits (spec §4.1, §6).
func (s Spec) JiwolLayout() jiwol.Layout {
	if len(s.Jiwol.Digits) != 9 || len(s.Jiwol.Digits) != len(s.Jiwol.Fields) {
		return jiwol.DefaultLayout()
	}
	layout := make(jiwol.Layout, 0, len(s.Jiwol.Digits))
	for i, name := range s.Jiwol.Fields {
		f, ok := fieldByName(name)
		if !ok {
			return jiwol.DefaultLayout()
		}
		layout = append(layout, jiwol.LayoutEntry{Field: f, Digits: s.Jiwol.Digits[i]})
	}
	if !layout.Valid() {
		return jiwol.DefaultLayout()
	}
	return layout
}

func fieldByName(name string) (jiwol.Field, bool) {
	switch name {
	case "t":
		return jiwol.FieldT, true
	case "x":
		return jiwol.FieldX, true
	case "j":
		return jiwol.FieldJ, true
	case "a":
		return jiwol.FieldA, true
	case "w":
		return jiwol.FieldW, true
	case "k":
		return jiwol.FieldK, true
	case "p":
		return jiwol.FieldP, true
	case "m":
		return jiwol.FieldM, true
	case "c":
		return jiwol.FieldC, true
	default:
		return 0, false
	}
}

// Validate checks the record-shape constants spec.md §6 requires to
// be fixed, and that the ledger invariants (append_only, chain) are
// set — the engine does not support disabling either.
func (s Spec) Validate() error {
	if s.Uem.Record.SizeBytes != quantum.RecordSize {
		return fmt.Errorf("config: uem.record.size_bytes must equal %d, got %d", quantum.RecordSize, s.Uem.Record.SizeBytes)
	}
	if s.Uem.Record.IDLen != jiwol.TotalDigits {
		return fmt.Errorf("config: uem.record.id_len must equal %d, got %d", jiwol.TotalDigits, s.Uem.Record.IDLen)
	}
	if s.Uem.Record.SemanticVecLen != quantum.SemLen {
		return fmt.Errorf("config: uem.record.semantic_vec_len must equal %d, got %d", quantum.SemLen, s.Uem.Record.SemanticVecLen)
	}
	if !s.Uem.Ledger.AppendOnly {
		return errors.New("config: uem.ledger.append_only must be true")
	}
	if !s.Uem.Ledger.Chain {
		return errors.New("config: uem.ledger.chain must be true")
	}
	if s.Uem.Ledger.Path == "" {
		return errors.New("config: uem.ledger.path is required")
	}
	if s.Scd.TriggerBytes == 0 {
		return errors.New("config: scd.trigger_bytes must be > 0")
	}
	return nil
}
