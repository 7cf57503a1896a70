/*
	Config reads the run parameters from a YAML file
	only the keys present in the file are applied, the rest keep the values set by the command line
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bandlife/src/universe"
)

var ErrConfig = errors.New("invalid configuration file")

//File is the layout of the run file
type File struct {
	Width       *int    `yaml:"width"`
	Height      *int    `yaml:"height"`
	Generations *int    `yaml:"generations"`
	Processes   *int    `yaml:"processes"`
	Workers     *int    `yaml:"workers"`
	ReportEvery *int    `yaml:"report_every"`
	Interval    *string `yaml:"interval"` //time.ParseDuration format, for example 150ms
	Engine      *string `yaml:"engine"`
	Template    *string `yaml:"template"`
	Random      *bool   `yaml:"random"`
}

//Load reads and decodes the file at path
func Load(path string) (*File, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(body)
}

//Parse decodes the YAML document, unknown keys are rejected, an empty document sets nothing
func Parse(body []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(body))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return &f, nil
}

//Apply overrides the options by the keys present in the file
func (f *File) Apply(o *universe.Options) error {
	setInt(&o.Width, f.Width)
	setInt(&o.Height, f.Height)
	setInt(&o.MaxSteps, f.Generations)
	setInt(&o.Processes, f.Processes)
	setInt(&o.Workers, f.Workers)
	setInt(&o.ReportEvery, f.ReportEvery)
	if f.Interval != nil {
		d, err := time.ParseDuration(*f.Interval)
		if err != nil {
			return fmt.Errorf("%w: interval %q", ErrConfig, *f.Interval)
		}
		o.Interval = d
	}
	return nil
}

//String returns the value of a string key or def when the key is missing
func String(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

//Bool returns the value of a bool key or def when the key is missing
func Bool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
