// Package config loads row filter rules from a YAML or TOML file.
//
// A rules file names a dialect and a list of filters:
//
//	dialect: postgres
//	filters:
//	  - table: orders
//	    column: tenant_id
//	    value: acme
//	  - table: public.invoices
//	    column: org_id
//	    op: "="
//	    value: 17
package config

import (
	"bytes"
	"log"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bobg/rowfilter"
	"github.com/bobg/rowfilter/filter"
)

// Rules is the content of a rules file.
type Rules struct {
	Dialect string `yaml:"dialect" toml:"dialect"` // postgres (default), mysql, generic or bigquery
	Filters []Rule `yaml:"filters" toml:"filters"`
}

// Rule is one filter: rows of Table are limited to those where "Column Op Value" holds.
type Rule struct {
	Table  string `yaml:"table" toml:"table"`   // table name or dotted path
	Column string `yaml:"column" toml:"column"` // column name or dotted path
	Op     string `yaml:"op" toml:"op"`         // operator, "=" if empty
	Value  any    `yaml:"value" toml:"value"`   // integer, float or string
}

// Load reads and validates the rules file fname.
// The format follows the extension:
// .yml, .yaml or none for YAML, .toml for TOML.
// YAML is decoded strictly, so unknown fields are errors.
func Load(fname string) (*Rules, error) {
	log.Printf("[DEBUG] load rules %q", fname)
	data, err := os.ReadFile(fname) // nolint
	if err != nil {
		return nil, errors.Wrapf(err, "reading rules %s", fname)
	}

	res := &Rules{}
	switch {
	case strings.HasSuffix(fname, ".yml") || strings.HasSuffix(fname, ".yaml") || !strings.Contains(fname, "."):
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(res); err != nil {
			return nil, errors.Wrapf(err, "can't unmarshal yaml rules %s", fname)
		}
	case strings.HasSuffix(fname, ".toml"):
		if err := toml.Unmarshal(data, res); err != nil {
			return nil, errors.Wrapf(err, "can't unmarshal toml rules %s", fname)
		}
	default:
		return nil, errors.Errorf("unknown rules format %s", fname)
	}

	if err := res.Validate(); err != nil {
		return nil, errors.Wrapf(err, "rules %s are invalid", fname)
	}
	log.Printf("[INFO] rules loaded from %s with %d filters", fname, len(res.Filters))
	return res, nil
}

// Validate checks the dialect and every filter,
// reporting all the problems found rather than only the first.
func (r *Rules) Validate() error {
	errs := new(multierror.Error)

	d, err := r.ParseDialect()
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for i, rule := range r.Filters {
		if err := rule.validate(d); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "filter %d", i+1))
		}
	}
	return errs.ErrorOrNil()
}

func (rule Rule) validate(d rowfilter.Dialect) error {
	if _, err := filter.ParsePath(rule.Table); err != nil {
		return err
	}
	op, err := filter.ParseOperator(rule.Op)
	if err != nil {
		return err
	}
	_, err = filter.Predicate(d, rule.Column, op, rule.Value)
	return err
}

// ParseDialect parses the Dialect field.
// An empty field means Postgres.
func (r *Rules) ParseDialect() (rowfilter.Dialect, error) {
	return rowfilter.ParseDialect(r.Dialect)
}

// RowFilters converts the rules to filters for rowfilter.
func (r *Rules) RowFilters() ([]rowfilter.Filter, error) {
	res := make([]rowfilter.Filter, 0, len(r.Filters))
	for i, rule := range r.Filters {
		op, err := filter.ParseOperator(rule.Op)
		if err != nil {
			return nil, errors.Wrapf(err, "filter %d", i+1)
		}
		res = append(res, rowfilter.Filter{Table: rule.Table, Column: rule.Column, Op: op, Value: rule.Value})
	}
	return res, nil
}
