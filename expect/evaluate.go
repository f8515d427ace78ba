package expect

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/grewanderer/datapact/frame"
)

// partialUnexpectedLimit caps the sample of offending values kept per result.
const partialUnexpectedLimit = 20

type Options struct {
	RunID   string
	RunTime time.Time
}

type Result struct {
	Success    bool                `json:"success"`
	Results    []ExpectationResult `json:"results"`
	Statistics Statistics          `json:"statistics"`
	Meta       Meta                `json:"meta"`
}

type ExpectationResult struct {
	Success           bool           `json:"success"`
	ExpectationConfig Expectation    `json:"expectation_config"`
	Result            map[string]any `json:"result,omitempty"`
	ExceptionInfo     *ExceptionInfo `json:"exception_info,omitempty"`
}

type ExceptionInfo struct {
	Raised  bool   `json:"raised_exception"`
	Message string `json:"exception_message"`
}

type Statistics struct {
	EvaluatedExpectations    int     `json:"evaluated_expectations"`
	SuccessfulExpectations   int     `json:"successful_expectations"`
	UnsuccessfulExpectations int     `json:"unsuccessful_expectations"`
	SuccessPercent           float64 `json:"success_percent"`
}

type Meta struct {
	SuiteName string    `json:"expectation_suite_name"`
	RunID     string    `json:"run_id,omitempty"`
	RunTime   time.Time `json:"run_time"`
}

// Failed returns the configs of unsuccessful expectations, evaluation
// exceptions included.
func (r Result) Failed() []Expectation {
	var out []Expectation
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res.ExpectationConfig)
		}
	}
	return out
}

// Evaluate runs every expectation in the suite against the frame. It is
// total: evaluation problems (missing columns, non-numeric aggregates) are
// recorded as unsuccessful results with exception info, never raised.
func Evaluate(s Suite, f *frame.Frame, opts Options) Result {
	runTime := opts.RunTime
	if runTime.IsZero() {
		runTime = time.Now()
	}

	results := make([]ExpectationResult, 0, len(s.Expectations))
	successCount := 0
	for _, exp := range s.Expectations {
		res := evaluateExpectation(exp, f)
		res.ExpectationConfig = exp
		results = append(results, res)
		if res.Success {
			successCount++
		}
	}

	total := len(results)
	pct := 100.0
	if total > 0 {
		pct = float64(successCount) / float64(total) * 100
	}

	return Result{
		Success: successCount == total,
		Results: results,
		Statistics: Statistics{
			EvaluatedExpectations:    total,
			SuccessfulExpectations:   successCount,
			UnsuccessfulExpectations: total - successCount,
			SuccessPercent:           pct,
		},
		Meta: Meta{
			SuiteName: s.Name,
			RunID:     opts.RunID,
			RunTime:   runTime.UTC(),
		},
	}
}

func evaluateExpectation(exp Expectation, f *frame.Frame) ExpectationResult {
	kind := strings.ToLower(strings.TrimSpace(exp.Type))
	kw := exp.Kwargs

	switch kind {
	case expectColumnToExist:
		return ExpectationResult{Success: f.HasColumn(kw.Column)}

	case expectColumnsMatchOrderedList:
		observed := f.Columns()
		success := len(observed) == len(kw.ColumnList)
		if success {
			for i := range observed {
				if observed[i] != kw.ColumnList[i] {
					success = false
					break
				}
			}
		}
		return ExpectationResult{Success: success, Result: map[string]any{"observed_value": observed}}

	case expectColumnCountToEqual:
		if kw.Value == nil {
			return exceptionResult(fmt.Errorf("kwargs.value is required for %s", kind))
		}
		n := f.NumCols()
		return ExpectationResult{Success: int64(n) == *kw.Value, Result: map[string]any{"observed_value": n}}

	case expectRowCountToEqual:
		if kw.Value == nil {
			return exceptionResult(fmt.Errorf("kwargs.value is required for %s", kind))
		}
		n := f.NumRows()
		return ExpectationResult{Success: int64(n) == *kw.Value, Result: map[string]any{"observed_value": n}}

	case expectRowCountToBeBetween:
		n := f.NumRows()
		return ExpectationResult{Success: withinBounds(float64(n), kw), Result: map[string]any{"observed_value": n}}

	case expectValuesToNotBeNull:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		return evaluateValues(cells, kw.Mostly, false, func(cell any) bool {
			return cell != nil
		})

	case expectValuesToBeUnique:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		counts := make(map[any]int, len(cells))
		for _, cell := range cells {
			if cell == nil {
				continue
			}
			counts[comparableKey(cell)]++
		}
		return evaluateValues(cells, kw.Mostly, true, func(cell any) bool {
			return counts[comparableKey(cell)] == 1
		})

	case expectValuesToBeBetween:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		return evaluateValues(cells, kw.Mostly, true, func(cell any) bool {
			v, ok := toFloat(cell)
			return ok && withinBounds(v, kw)
		})

	case expectValuesToBeInSet:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		return evaluateValues(cells, kw.Mostly, true, func(cell any) bool {
			for _, item := range kw.ValueSet {
				if valueEqual(cell, item) {
					return true
				}
			}
			return false
		})

	case expectValuesToMatchRegex:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		re, err := regexp.Compile(kw.Regex)
		if err != nil {
			return exceptionResult(err)
		}
		return evaluateValues(cells, kw.Mostly, true, func(cell any) bool {
			s, ok := cell.(string)
			return ok && re.MatchString(s)
		})

	case expectValuesToBeOfType:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		want, _ := canonicalTypeName(kw.TypeName)
		return evaluateValues(cells, kw.Mostly, true, func(cell any) bool {
			return cellTypeName(cell) == want
		})

	case expectValueLengthsToBeBetween:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		return evaluateValues(cells, kw.Mostly, true, func(cell any) bool {
			s, ok := cell.(string)
			return ok && withinBounds(float64(len([]rune(s))), kw)
		})

	case expectColumnMeanToBeBetween, expectColumnMinToBeBetween, expectColumnMaxToBeBetween:
		cells, err := f.Column(kw.Column)
		if err != nil {
			return exceptionResult(err)
		}
		nums := make([]float64, 0, len(cells))
		for _, cell := range cells {
			if cell == nil {
				continue
			}
			v, ok := toFloat(cell)
			if !ok {
				return exceptionResult(fmt.Errorf("column %q contains non-numeric values", kw.Column))
			}
			nums = append(nums, v)
		}
		if len(nums) == 0 {
			return exceptionResult(fmt.Errorf("column %q has no numeric values", kw.Column))
		}
		observed := nums[0]
		switch kind {
		case expectColumnMeanToBeBetween:
			sum := 0.0
			for _, v := range nums {
				sum += v
			}
			observed = sum / float64(len(nums))
		case expectColumnMinToBeBetween:
			for _, v := range nums[1:] {
				if v < observed {
					observed = v
				}
			}
		default:
			for _, v := range nums[1:] {
				if v > observed {
					observed = v
				}
			}
		}
		return ExpectationResult{Success: withinBounds(observed, kw), Result: map[string]any{"observed_value": observed}}

	default:
		return exceptionResult(fmt.Errorf("unsupported expectation type %q", kind))
	}
}

// evaluateValues applies a per-cell predicate and folds the outcome into the
// engine's result shape. When skipNulls is set, nil cells count as missing
// and are not evaluated. The success threshold follows the mostly semantics:
// the fraction of passing evaluated cells must be at least mostly (all of
// them when mostly is unset).
func evaluateValues(cells []any, mostly *float64, skipNulls bool, good func(any) bool) ExpectationResult {
	missing := 0
	evaluated := 0
	unexpected := 0
	var sample []any

	for _, cell := range cells {
		if skipNulls && cell == nil {
			missing++
			continue
		}
		evaluated++
		if good(cell) {
			continue
		}
		unexpected++
		if len(sample) < partialUnexpectedLimit {
			sample = append(sample, cell)
		}
	}

	percent := 0.0
	if evaluated > 0 {
		percent = float64(unexpected) / float64(evaluated) * 100
	}

	success := unexpected == 0
	if mostly != nil && evaluated > 0 {
		success = 1-float64(unexpected)/float64(evaluated) >= *mostly
	}

	result := map[string]any{
		"element_count":      len(cells),
		"missing_count":      missing,
		"unexpected_count":   unexpected,
		"unexpected_percent": percent,
	}
	if len(sample) > 0 {
		result["partial_unexpected_list"] = sample
	}
	return ExpectationResult{Success: success, Result: result}
}

func exceptionResult(err error) ExpectationResult {
	return ExpectationResult{
		Success: false,
		ExceptionInfo: &ExceptionInfo{
			Raised:  true,
			Message: err.Error(),
		},
	}
}

func withinBounds(v float64, kw Kwargs) bool {
	if kw.MinValue != nil {
		if kw.StrictMin {
			if v <= *kw.MinValue {
				return false
			}
		} else if v < *kw.MinValue {
			return false
		}
	}
	if kw.MaxValue != nil {
		if kw.StrictMax {
			if v >= *kw.MaxValue {
				return false
			}
		} else if v > *kw.MaxValue {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// comparableKey folds numerically equal cells onto one map key so 2 and 2.0
// count as duplicates, without losing precision on large integers.
func comparableKey(cell any) any {
	switch x := cell.(type) {
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x)
		}
		return x
	case time.Time:
		return timeKey{ns: x.UnixNano()}
	default:
		return cell
	}
}

type timeKey struct {
	ns int64
}

func valueEqual(cell, item any) bool {
	cf, cok := toFloat(cell)
	if iv, iok := toFloat(item); cok && iok {
		return cf == iv
	}
	if tc, ok := cell.(time.Time); ok {
		if s, ok := item.(string); ok {
			if ti, err := time.Parse(time.RFC3339, s); err == nil {
				return tc.Equal(ti)
			}
		}
		return false
	}
	return cell == item
}

func cellTypeName(cell any) string {
	switch cell.(type) {
	case string:
		return "string"
	case int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case time.Time:
		return "datetime"
	default:
		return ""
	}
}
