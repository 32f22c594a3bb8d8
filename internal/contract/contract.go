// Package contract loads the column contract of the sales dataset: the
// human-readable document naming every column, its raw header, its semantic
// type, its permitted values and the long-to-short mappings applied by the
// string normalizer.
//
// The contract is embedded in the binary and may be replaced by a file at
// run time. Either way it is checked against the domain schema on load, so a
// contract that the pipeline cannot honor verbatim is rejected up front.
package contract

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v2"

	apperrors "salesclean/internal/errors"
	"salesclean/pkg/contracts/domain"
)

//go:embed contract.yaml
var defaultDocument []byte

// Column is one entry of the contract document.
type Column struct {
	Name        string            `yaml:"name"`
	Header      string            `yaml:"header,omitempty"`
	Type        domain.Kind       `yaml:"type"`
	Values      []string          `yaml:"values,omitempty"`
	Mappings    map[string]string `yaml:"mappings,omitempty"`
	DerivedFrom []string          `yaml:"derived_from,omitempty"`
	Layout      string            `yaml:"layout,omitempty"`
	Description string            `yaml:"description,omitempty"`
}

// Contract is the parsed column contract.
type Contract struct {
	Version string   `yaml:"version"`
	Dataset string   `yaml:"dataset"`
	Columns []Column `yaml:"columns"`
}

// Default returns the embedded contract.
func Default() (*Contract, error) {
	return Parse(defaultDocument)
}

// Load reads the contract at path. An empty path selects the embedded
// contract.
func Load(path string) (*Contract, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewContractError("failed to read contract", err).WithContext("path", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a contract document.
func Parse(data []byte) (*Contract, error) {
	var c Contract
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, apperrors.NewContractError("failed to decode contract", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the contract describes exactly the domain schema:
// same columns in the same order, same types, and for enum columns the same
// permitted values. Mappings must target a permitted value.
func (c *Contract) Validate() error {
	fields := domain.Fields()
	if len(c.Columns) != len(fields) {
		return apperrors.NewContractError(
			fmt.Sprintf("contract lists %d columns, schema has %d", len(c.Columns), len(fields)), nil)
	}

	for i, f := range fields {
		col := c.Columns[i]
		if col.Name != f.Name {
			return apperrors.NewContractError(
				fmt.Sprintf("column %d is %q, schema expects %q", i, col.Name, f.Name), nil)
		}
		if col.Type != f.Kind {
			return apperrors.NewContractError(
				fmt.Sprintf("column %q has type %q, schema expects %q", col.Name, col.Type, f.Kind), nil)
		}

		switch {
		case f.Derived():
			if len(col.DerivedFrom) != 2 || col.Layout == "" {
				return apperrors.NewContractError(
					fmt.Sprintf("column %q must name two source headers and a layout", col.Name), nil)
			}
		case col.Header == "":
			return apperrors.NewContractError(fmt.Sprintf("column %q has no header", col.Name), nil)
		}

		if f.Kind == domain.KindEnum && !slices.Equal(col.Values, f.Levels) {
			return apperrors.NewContractError(
				fmt.Sprintf("column %q permits %v, schema permits %v", col.Name, col.Values, f.Levels), nil)
		}
		for long, short := range col.Mappings {
			if f.Kind != domain.KindEnum {
				return apperrors.NewContractError(
					fmt.Sprintf("column %q is not an enum and cannot map %q", col.Name, long), nil)
			}
			if !slices.Contains(col.Values, short) {
				return apperrors.NewContractError(
					fmt.Sprintf("column %q maps %q to %q, which is not a permitted value", col.Name, long, short), nil)
			}
		}
	}
	return nil
}

// Column returns the contract entry for an output column name.
func (c *Contract) Column(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// RequiredHeaders returns every raw header the input must carry, including
// the headers consumed by temporal consolidation.
func (c *Contract) RequiredHeaders() []string {
	var headers []string
	for _, col := range c.Columns {
		if col.Header != "" {
			headers = append(headers, col.Header)
		}
		headers = append(headers, col.DerivedFrom...)
	}
	return headers
}

// CategoricalHeaders returns the raw headers of enum columns, the columns
// the string normalizer works on.
func (c *Contract) CategoricalHeaders() []string {
	var headers []string
	for _, col := range c.Columns {
		if col.Type == domain.KindEnum {
			headers = append(headers, col.Header)
		}
	}
	return headers
}

// Timestamp returns the entry of the derived timestamp column.
func (c *Contract) Timestamp() Column {
	for _, col := range c.Columns {
		if col.Type == domain.KindTimestamp {
			return col
		}
	}
	return Column{}
}
