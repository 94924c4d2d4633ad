package fsm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table is the serialized form of a Definition.
type Table struct {
	States []TableState `yaml:"states" json:"states"`
}

// TableState is one state entry of a Table.
type TableState struct {
	Name     string         `yaml:"name" json:"name"`
	Initial  bool           `yaml:"initial,omitempty" json:"initial,omitempty"`
	Triggers []TableTrigger `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

// TableTrigger is one trigger entry of a TableState.
type TableTrigger struct {
	Event  string `yaml:"event" json:"event"`
	Target string `yaml:"target" json:"target"`
	Guard  *Guard `yaml:"guard,omitempty" json:"guard,omitempty"`
}

// ParseTable decodes a YAML state table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse state table: %w", err)
	}
	return &t, nil
}

// LoadTable reads and decodes a YAML state table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state table: %w", err)
	}
	return ParseTable(data)
}

// Marshal encodes the table as YAML.
func (t *Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Definition converts the table into a validated Definition.
func (t *Table) Definition() (*Definition, error) {
	d := NewDefinition()
	for _, s := range t.States {
		var opts []StateOption
		if s.Initial {
			opts = append(opts, AsInitial())
		}
		d.State(s.Name, opts...)
	}
	for _, s := range t.States {
		for _, tr := range s.Triggers {
			var opts []TriggerOption
			if tr.Guard != nil {
				opts = append(opts, WithGuard(*tr.Guard))
			}
			d.Transition(s.Name, tr.Event, tr.Target, opts...)
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
