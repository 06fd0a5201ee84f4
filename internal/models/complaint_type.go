package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComplaintType describes a category of complaint and the dynamic form it collects.
type ComplaintType struct {
	ID           string    `gorm:"primaryKey" json:"id" yaml:"id"`
	Name         string    `gorm:"type:text;not null" json:"name" yaml:"name"`
	Instructions string    `gorm:"type:text" json:"instructions" yaml:"instructions"`
	Fields       FieldList `gorm:"type:jsonb" json:"fields" yaml:"fields"`
}

// BeforeCreate генерує UUID для типу скарги, якщо ID ще не встановлено.
func (t *ComplaintType) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}

// FieldKind is the tag of a field definition variant.
type FieldKind string

const (
	KindText       FieldKind = "text"
	KindNumber     FieldKind = "number"
	KindTextarea   FieldKind = "textarea"
	KindDropdown   FieldKind = "dropdown"
	KindDate       FieldKind = "date"
	KindStaticText FieldKind = "static_text"
	KindSystem     FieldKind = "system"
)

func (k FieldKind) valid() bool {
	switch k {
	case KindText, KindNumber, KindTextarea, KindDropdown, KindDate, KindStaticText, KindSystem:
		return true
	}
	return false
}

// Section is the form section a field is rendered in.
type Section string

const (
	SectionBasic   Section = "basic"
	SectionDetails Section = "details"
)

var ErrDuplicateField = errors.New("duplicate field id")

// FieldSpec is the raw, unvalidated shape of a field definition as it appears
// in JSON columns and YAML seed files.
type FieldSpec struct {
	ID       string    `json:"id" yaml:"id"`
	Label    string    `json:"label" yaml:"label"`
	Kind     FieldKind `json:"kind" yaml:"kind"`
	Required bool      `json:"required" yaml:"required"`
	Visible  bool      `json:"visible" yaml:"visible"`
	Section  Section   `json:"section" yaml:"section"`
	Options  string    `json:"options,omitempty" yaml:"options,omitempty"`
}

// FieldDefinition is a validated field of a complaint form.
// The zero value is not usable; build one with NewFieldDefinition.
type FieldDefinition struct {
	spec    FieldSpec
	options []string
}

// NewFieldDefinition validates spec against the rules of its kind.
func NewFieldDefinition(spec FieldSpec) (FieldDefinition, error) {
	spec.ID = strings.TrimSpace(spec.ID)
	if spec.ID == "" {
		return FieldDefinition{}, errors.New("field id is required")
	}
	if strings.TrimSpace(spec.Label) == "" {
		return FieldDefinition{}, fmt.Errorf("field %s: label is required", spec.ID)
	}
	if !spec.Kind.valid() {
		return FieldDefinition{}, fmt.Errorf("field %s: unknown kind %q", spec.ID, spec.Kind)
	}
	switch spec.Section {
	case "":
		spec.Section = SectionBasic
	case SectionBasic, SectionDetails:
	default:
		return FieldDefinition{}, fmt.Errorf("field %s: unknown section %q", spec.ID, spec.Section)
	}

	def := FieldDefinition{spec: spec}
	switch spec.Kind {
	case KindDropdown:
		def.options = splitOptions(spec.Options)
		if len(def.options) == 0 {
			return FieldDefinition{}, fmt.Errorf("field %s: dropdown needs at least one option", spec.ID)
		}
	case KindStaticText, KindSystem:
		if spec.Required {
			return FieldDefinition{}, fmt.Errorf("field %s: %s fields cannot be required", spec.ID, spec.Kind)
		}
		fallthrough
	default:
		if strings.TrimSpace(spec.Options) != "" {
			return FieldDefinition{}, fmt.Errorf("field %s: options are only allowed on dropdown fields", spec.ID)
		}
	}
	return def, nil
}

func splitOptions(raw string) []string {
	var out []string
	for _, opt := range strings.Split(raw, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

func (f FieldDefinition) ID() string        { return f.spec.ID }
func (f FieldDefinition) Label() string     { return f.spec.Label }
func (f FieldDefinition) Kind() FieldKind   { return f.spec.Kind }
func (f FieldDefinition) Required() bool    { return f.spec.Required }
func (f FieldDefinition) Visible() bool     { return f.spec.Visible }
func (f FieldDefinition) Section() Section  { return f.spec.Section }
func (f FieldDefinition) Spec() FieldSpec   { return f.spec }
func (f FieldDefinition) Options() []string { return append([]string(nil), f.options...) }

// CollectsInput reports whether the field takes a value from the submitter.
func (f FieldDefinition) CollectsInput() bool {
	return f.spec.Kind != KindStaticText && f.spec.Kind != KindSystem
}

// Accepts reports whether value is a legal answer for the field.
func (f FieldDefinition) Accepts(value string) bool {
	if f.spec.Kind != KindDropdown {
		return true
	}
	for _, opt := range f.options {
		if opt == value {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (f FieldDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.spec)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var spec FieldSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	def, err := NewFieldDefinition(spec)
	if err != nil {
		return err
	}
	*f = def
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler via a decode callback.
func (f *FieldDefinition) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var spec FieldSpec
	if err := unmarshal(&spec); err != nil {
		return err
	}
	def, err := NewFieldDefinition(spec)
	if err != nil {
		return err
	}
	*f = def
	return nil
}

// FieldList is the ordered set of fields on a complaint type. Ids are unique and
// order is changed only through Move.
type FieldList struct {
	fields []FieldDefinition
}

// NewFieldList builds a list, rejecting duplicate ids.
func NewFieldList(defs ...FieldDefinition) (FieldList, error) {
	var l FieldList
	for _, def := range defs {
		if err := l.Add(def); err != nil {
			return FieldList{}, err
		}
	}
	return l, nil
}

// Add appends def to the end of the list.
func (l *FieldList) Add(def FieldDefinition) error {
	if _, ok := l.Get(def.ID()); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateField, def.ID())
	}
	l.fields = append(l.fields, def)
	return nil
}

// Remove drops the field with the given id. It reports whether anything was removed.
func (l *FieldList) Remove(id string) bool {
	for i, def := range l.fields {
		if def.ID() == id {
			l.fields = append(l.fields[:i], l.fields[i+1:]...)
			return true
		}
	}
	return false
}

// Move relocates the field at index from to index to, shifting the fields in between.
func (l *FieldList) Move(from, to int) error {
	n := len(l.fields)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d -> %d out of range for %d fields", from, to, n)
	}
	if from == to {
		return nil
	}
	def := l.fields[from]
	if from < to {
		copy(l.fields[from:to], l.fields[from+1:to+1])
	} else {
		copy(l.fields[to+1:from+1], l.fields[to:from])
	}
	l.fields[to] = def
	return nil
}

// Get looks up a field by id.
func (l FieldList) Get(id string) (FieldDefinition, bool) {
	for _, def := range l.fields {
		if def.ID() == id {
			return def, true
		}
	}
	return FieldDefinition{}, false
}

// IDs returns the field ids in order.
func (l FieldList) IDs() []string {
	ids := make([]string, len(l.fields))
	for i, def := range l.fields {
		ids[i] = def.ID()
	}
	return ids
}

// All returns a copy of the fields in order.
func (l FieldList) All() []FieldDefinition {
	return append([]FieldDefinition(nil), l.fields...)
}

func (l FieldList) Len() int { return len(l.fields) }

// MarshalJSON implements json.Marshaler.
func (l FieldList) MarshalJSON() ([]byte, error) {
	if l.fields == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *FieldList) UnmarshalJSON(data []byte) error {
	var defs []FieldDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return err
	}
	list, err := NewFieldList(defs...)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler via a decode callback.
func (l *FieldList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var defs []FieldDefinition
	if err := unmarshal(&defs); err != nil {
		return err
	}
	list, err := NewFieldList(defs...)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// Value implements driver.Valuer.
func (l FieldList) Value() (driver.Value, error) {
	b, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *FieldList) Scan(src interface{}) error {
	data, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("field list: %w", err)
	}
	if len(data) == 0 {
		*l = FieldList{}
		return nil
	}
	return l.UnmarshalJSON(data)
}
