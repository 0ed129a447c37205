// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Output formats supported by Format.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown format")

// Format is a record output format.
type Format string

// IsValid returns whether the Format is supported, and a list of validation errors if it is not.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatJSON, FormatYAML, FormatTOML:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: json, yaml, toml)", ErrUnknownFormat, string(f))}
	}
}

// Marshal renders the record in format f.
func (r *Record) Marshal(f Format) ([]byte, error) {
	if ok, errs := f.IsValid(); !ok {
		return nil, errs[0]
	}
	switch f {
	case FormatYAML:
		return yaml.Marshal(r)
	case FormatTOML:
		return toml.Marshal(r)
	default:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}
