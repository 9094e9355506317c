package store

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type optionsFile struct {
	Options []*Options `yaml:"options"`
}

func (m AverageMethod) MarshalYAML() (interface{}, error) { return m.String(), nil }

func (m *AverageMethod) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	pm, err := ParseAverageMethod(s)
	if err != nil {
		return err
	}
	*m = pm
	return nil
}

// ImportYAML adds every options entry listed in the document, replacing
// entries that describe the same band setup.
func (r *Registry) ImportYAML(rd io.Reader) error {
	var f optionsFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil {
		return fmt.Errorf("parse options: %w", err)
	}
	for i, o := range f.Options {
		if err := o.validate(); err != nil {
			return fmt.Errorf("options[%d]: %w", i, err)
		}
		r.Add(o)
	}
	return nil
}

// ExportYAML writes every entry in a form ImportYAML accepts.
func (r *Registry) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	r.rwmu.RLock()
	defer r.rwmu.RUnlock()
	return enc.Encode(optionsFile{Options: r.entries})
}

func (o *Options) validate() error {
	for _, w := range o.Windows {
		if w.NChannels <= 0 {
			return fmt.Errorf("window %d: no channels", w.Label)
		}
		if w.MinTvChannel < 0 || w.MaxTvChannel > w.NChannels || w.MinTvChannel >= w.MaxTvChannel {
			return fmt.Errorf("window %d: bad tv channel range [%d,%d)", w.Label, w.MinTvChannel, w.MaxTvChannel)
		}
		if w.DelayAveraging < 1 {
			return fmt.Errorf("window %d: delay averaging must be positive", w.Label)
		}
	}
	return nil
}
