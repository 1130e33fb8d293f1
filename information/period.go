package information

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePeriod converts an ISO-8601 billing period such as "P7D" or "P1M" into a
// FreeTrialPeriod. Mixed week/day periods ("P1W3D") are expressed in days. An
// empty string yields a nil period.
func ParsePeriod(s string) (*FreeTrialPeriod, error) {
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return nil, fmt.Errorf("invalid iso-8601 period: %q", s)
	}

	counts := map[PeriodUnit]int{}
	var order []PeriodUnit

	digits := ""
	for _, r := range s[1:] {
		if r >= '0' && r <= '9' {
			digits += string(r)
			continue
		}

		var unit PeriodUnit
		switch r {
		case 'D':
			unit = PeriodDay
		case 'W':
			unit = PeriodWeek
		case 'M':
			unit = PeriodMonth
		case 'Y':
			unit = PeriodYear
		default:
			return nil, fmt.Errorf("invalid iso-8601 period designator %q in %q", r, s)
		}

		if digits == "" {
			return nil, fmt.Errorf("missing count before %q in %q", r, s)
		}
		if _, ok := counts[unit]; ok {
			return nil, fmt.Errorf("repeated designator %q in %q", r, s)
		}

		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, fmt.Errorf("invalid count in %q: %w", s, err)
		}
		digits = ""

		if n == 0 {
			continue
		}
		counts[unit] = n
		order = append(order, unit)
	}
	if digits != "" {
		return nil, fmt.Errorf("trailing count without designator in %q", s)
	}

	switch len(order) {
	case 0:
		return nil, nil
	case 1:
		return &FreeTrialPeriod{NumberOfUnits: counts[order[0]], Unit: order[0]}, nil
	}

	if counts[PeriodMonth] != 0 || counts[PeriodYear] != 0 {
		return nil, fmt.Errorf("unsupported mixed period: %q", s)
	}
	return &FreeTrialPeriod{
		NumberOfUnits: counts[PeriodWeek]*7 + counts[PeriodDay],
		Unit:          PeriodDay,
	}, nil
}
