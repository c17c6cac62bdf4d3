package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/table"
)

type (
	// Plan names a normalize function and its arguments, as sent with a dataset upload.
	Plan struct {
		Func string   `json:"func" validate:"required"`
		Args []string `json:"args,omitempty"`
	}

	// Func normalizes one value, with the plan's arguments already bound.
	Func func(value any) (any, error)

	// Builder binds a plan's arguments once per column. Arguments that can never work, like an
	// unknown location, fail here instead of on every cell.
	Builder func(args []string) (Func, error)
)

var (
	logger = gologger.NewLogger()

	Functions = make(map[string]Builder)
	register  sync.Once

	ErrFuncNotFound      = errors.New("normalize function not found")
	ErrInvalidValueType  = errors.New("invalid value type")
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrUnknownLocation   = errors.New("unknown time location")
)

func RegisterFunctions() {
	register.Do(func() {
		Functions["lower"] = stringFunc(strings.ToLower)
		Functions["upper"] = stringFunc(strings.ToUpper)
		Functions["trim"] = func(args []string) (Func, error) {
			if len(args) > 0 {
				cutset := args[0]
				return stringFunc(func(s string) string { return strings.Trim(s, cutset) })(nil)
			}
			return stringFunc(strings.TrimSpace)(nil)
		}
		Functions["toDay"] = timeFunc(func(t time.Time) any {
			return t.Day()
		})
		Functions["toMonth"] = timeFunc(func(t time.Time) any {
			return int(t.Month())
		})
		Functions["toYear"] = timeFunc(func(t time.Time) any {
			return t.Year()
		})
		Functions["toYearDay"] = timeFunc(func(t time.Time) any {
			return t.YearDay()
		})
		Functions["toYearWeek"] = timeFunc(func(t time.Time) any {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		})
		Functions["toWeekDay"] = timeFunc(func(t time.Time) any {
			return t.Weekday().String()
		})
	})
}

// Resolve turns a plan into a column normalizer. A value the function rejects is kept as is.
func Resolve(plan Plan) (table.NormalizeFunc, error) {
	RegisterFunctions()
	build, ok := Functions[plan.Func]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrFuncNotFound, plan.Func)
	}
	f, err := build(plan.Args)
	if err != nil {
		return nil, fmt.Errorf("error binding '%s': %w", plan.Func, err)
	}

	return func(v any) any {
		out, err := f(table.Indirect(v))
		if err != nil {
			logger.Debug().Err(err).Str("func", plan.Func).Interface("value", v).Msg("normalize function rejected value, keeping it")
			return v
		}
		return out
	}, nil
}

func stringFunc(f func(string) string) Builder {
	return func([]string) (Func, error) {
		return func(value any) (any, error) {
			s, ok := value.(string)
			if !ok {
				return nil, ErrInvalidValueType
			}
			return f(s), nil
		}, nil
	}
}

// timeFunc parses the value as a time in the location named by args[0], UTC when absent.
func timeFunc(f func(time.Time) any) Builder {
	return func(args []string) (Func, error) {
		loc := time.UTC
		if len(args) > 0 && args[0] != "" {
			var err error
			loc, err = time.LoadLocation(args[0])
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, args[0])
			}
		}
		return func(value any) (any, error) {
			t, err := parseTime(value)
			if err != nil {
				return nil, fmt.Errorf("error in parseTime: %w", err)
			}
			return f(t.In(loc)), nil
		}, nil
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime accepts a time.Time, a timestamp string, or unix milliseconds.
func parseTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: '%s'", ErrInvalidTimeFormat, v)
	case float64:
		return time.UnixMilli(int64(v)), nil
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("error in json.Number.Int64: %w", err)
		}
		return time.UnixMilli(n), nil
	}
	return time.Time{}, ErrInvalidValueType
}
