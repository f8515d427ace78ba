// Package expect defines declarative expectation suites for tabular data and
// evaluates them against frames. Suites use the classic expectation wire
// shape (expectation_suite_name, expectations[].expectation_type/kwargs) and
// may be written as JSON or YAML.
package expect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	expectColumnToExist           = "expect_column_to_exist"
	expectColumnsMatchOrderedList = "expect_table_columns_to_match_ordered_list"
	expectColumnCountToEqual      = "expect_table_column_count_to_equal"
	expectRowCountToBeBetween     = "expect_table_row_count_to_be_between"
	expectRowCountToEqual         = "expect_table_row_count_to_equal"
	expectValuesToNotBeNull       = "expect_column_values_to_not_be_null"
	expectValuesToBeUnique        = "expect_column_values_to_be_unique"
	expectValuesToBeBetween       = "expect_column_values_to_be_between"
	expectValuesToBeInSet         = "expect_column_values_to_be_in_set"
	expectValuesToMatchRegex      = "expect_column_values_to_match_regex"
	expectValuesToBeOfType        = "expect_column_values_to_be_of_type"
	expectValueLengthsToBeBetween = "expect_column_value_lengths_to_be_between"
	expectColumnMeanToBeBetween   = "expect_column_mean_to_be_between"
	expectColumnMinToBeBetween    = "expect_column_min_to_be_between"
	expectColumnMaxToBeBetween    = "expect_column_max_to_be_between"
)

type Suite struct {
	Name         string         `json:"expectation_suite_name" yaml:"expectation_suite_name"`
	Expectations []Expectation  `json:"expectations" yaml:"expectations"`
	Meta         map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

type Expectation struct {
	Type   string `json:"expectation_type" yaml:"expectation_type"`
	Kwargs Kwargs `json:"kwargs" yaml:"kwargs"`
}

// Kwargs carries the union of per-expectation arguments; Validate enforces
// which apply to which expectation type.
type Kwargs struct {
	Column     string   `json:"column,omitempty" yaml:"column,omitempty"`
	ColumnList []string `json:"column_list,omitempty" yaml:"column_list,omitempty"`
	Value      *int64   `json:"value,omitempty" yaml:"value,omitempty"`
	MinValue   *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue   *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	StrictMin  bool     `json:"strict_min,omitempty" yaml:"strict_min,omitempty"`
	StrictMax  bool     `json:"strict_max,omitempty" yaml:"strict_max,omitempty"`
	ValueSet   []any    `json:"value_set,omitempty" yaml:"value_set,omitempty"`
	Regex      string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	TypeName   string   `json:"type_,omitempty" yaml:"type_,omitempty"`
	Mostly     *float64 `json:"mostly,omitempty" yaml:"mostly,omitempty"`
}

// ParseSuite decodes a JSON or YAML suite document and validates it.
func ParseSuite(raw []byte) (Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Suite{}, fmt.Errorf("parse suite: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Suite{}, err
	}
	return s, nil
}

func (s Suite) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("suite.expectation_suite_name is required")
	}
	if len(s.Expectations) == 0 {
		return errors.New("suite.expectations must be non-empty")
	}

	for i, exp := range s.Expectations {
		kind := strings.ToLower(strings.TrimSpace(exp.Type))
		if kind == "" {
			return fmt.Errorf("suite.expectations[%d].expectation_type is required", i)
		}
		kw := exp.Kwargs

		if kw.Mostly != nil {
			if !columnValuesExpectation(kind) {
				return fmt.Errorf("suite.expectations[%d].kwargs.mostly is not supported for %s", i, kind)
			}
			if *kw.Mostly <= 0 || *kw.Mostly > 1 {
				return fmt.Errorf("suite.expectations[%d].kwargs.mostly must be in (0, 1]", i)
			}
		}

		switch kind {
		case expectColumnToExist,
			expectValuesToNotBeNull,
			expectValuesToBeUnique:
			if strings.TrimSpace(kw.Column) == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.column is required", i)
			}

		case expectColumnsMatchOrderedList:
			if len(kw.ColumnList) == 0 {
				return fmt.Errorf("suite.expectations[%d].kwargs.column_list is required", i)
			}

		case expectColumnCountToEqual, expectRowCountToEqual:
			if kw.Value == nil {
				return fmt.Errorf("suite.expectations[%d].kwargs.value is required", i)
			}
			if *kw.Value < 0 {
				return fmt.Errorf("suite.expectations[%d].kwargs.value must be >= 0", i)
			}

		case expectRowCountToBeBetween:
			if err := validateBounds(kw, i); err != nil {
				return err
			}

		case expectValuesToBeBetween, expectValueLengthsToBeBetween:
			if strings.TrimSpace(kw.Column) == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.column is required", i)
			}
			if err := validateBounds(kw, i); err != nil {
				return err
			}

		case expectColumnMeanToBeBetween, expectColumnMinToBeBetween, expectColumnMaxToBeBetween:
			if strings.TrimSpace(kw.Column) == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.column is required", i)
			}
			if err := validateBounds(kw, i); err != nil {
				return err
			}

		case expectValuesToBeInSet:
			if strings.TrimSpace(kw.Column) == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.column is required", i)
			}
			if len(kw.ValueSet) == 0 {
				return fmt.Errorf("suite.expectations[%d].kwargs.value_set is required", i)
			}

		case expectValuesToMatchRegex:
			if strings.TrimSpace(kw.Column) == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.column is required", i)
			}
			if kw.Regex == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.regex is required", i)
			}
			if _, err := regexp.Compile(kw.Regex); err != nil {
				return fmt.Errorf("suite.expectations[%d].kwargs.regex is invalid: %w", i, err)
			}

		case expectValuesToBeOfType:
			if strings.TrimSpace(kw.Column) == "" {
				return fmt.Errorf("suite.expectations[%d].kwargs.column is required", i)
			}
			if _, ok := canonicalTypeName(kw.TypeName); !ok {
				return fmt.Errorf("suite.expectations[%d].kwargs.type_ must be one of string, int, float, bool, datetime", i)
			}

		default:
			return fmt.Errorf("suite.expectations[%d].expectation_type unsupported: %q", i, kind)
		}
	}
	return nil
}

func validateBounds(kw Kwargs, i int) error {
	if kw.MinValue == nil && kw.MaxValue == nil {
		return fmt.Errorf("suite.expectations[%d].kwargs requires min_value or max_value", i)
	}
	if kw.MinValue != nil && kw.MaxValue != nil && *kw.MinValue > *kw.MaxValue {
		return fmt.Errorf("suite.expectations[%d].kwargs.min_value must be <= max_value", i)
	}
	return nil
}

// columnValuesExpectation reports whether the type evaluates row by row, the
// only family where the mostly threshold applies.
func columnValuesExpectation(kind string) bool {
	switch kind {
	case expectValuesToNotBeNull,
		expectValuesToBeUnique,
		expectValuesToBeBetween,
		expectValuesToBeInSet,
		expectValuesToMatchRegex,
		expectValuesToBeOfType,
		expectValueLengthsToBeBetween:
		return true
	default:
		return false
	}
}

func canonicalTypeName(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str":
		return "string", true
	case "int", "integer":
		return "int", true
	case "float", "double":
		return "float", true
	case "bool", "boolean":
		return "bool", true
	case "datetime", "timestamp":
		return "datetime", true
	default:
		return "", false
	}
}
