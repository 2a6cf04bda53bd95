// File: internal/services/agent/dates.go
package agent

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
    "time"
)

const dateLayout = "2006-01-02"

// placeholderPattern matches {{name(key=value, ...)}} expressions embedded in
// model output. Substitution runs on every reply before classification,
// because a date expression may appear inside tool payloads as well as free
// text.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*\}\}`)

// resolverFunc maps parsed arguments to an ISO-8601 date string.
type resolverFunc func(now time.Time, args map[string]int) (string, error)

// dateResolvers is a closed dispatch table; resolver names outside it are a
// hard error, so model output cannot reach arbitrary functions.
var dateResolvers = map[string]struct {
    fn          resolverFunc
    allowedKeys map[string]bool
}{
    "get_date": {
        fn: resolveDate,
        allowedKeys: map[string]bool{
            "year_diff": true, "month_diff": true, "week_diff": true,
            "day_diff": true, "weekday": true,
        },
    },
    "get_weekday": {
        fn:          resolveDate,
        allowedKeys: map[string]bool{"week_diff": true, "weekday": true},
    },
}

// ResolveDate maps relative-date offsets to an ISO-8601 date string. Offsets
// apply in order years, months, weeks, days; a non-zero weekday (Sun=1..Sat=7)
// then pins the result to that weekday within the same Sunday-based week.
func ResolveDate(now time.Time, yearDiff, monthDiff, weekDiff, dayDiff, weekday int) (string, error) {
    if weekday < 0 || weekday > 7 {
        return "", fmt.Errorf("weekday must be between 0 and 7, got %d", weekday)
    }

    d := now.AddDate(yearDiff, monthDiff, 0)
    d = d.AddDate(0, 0, weekDiff*7+dayDiff)

    if weekday != 0 {
        // time.Weekday is Sunday=0; the expression encoding is Sunday=1.
        delta := (weekday - 1) - int(d.Weekday())
        d = d.AddDate(0, 0, delta)
    }

    return d.Format(dateLayout), nil
}

func resolveDate(now time.Time, args map[string]int) (string, error) {
    return ResolveDate(now,
        args["year_diff"], args["month_diff"], args["week_diff"],
        args["day_diff"], args["weekday"])
}

// SubstituteDates replaces every placeholder expression in text with its
// resolved date. Unknown resolver names or malformed argument lists fail the
// whole reply.
func SubstituteDates(text string, now time.Time) (string, error) {
    matches := placeholderPattern.FindAllStringSubmatch(text, -1)
    if len(matches) == 0 {
        return text, nil
    }

    result := text
    for _, match := range matches {
        name, rawArgs := match[1], match[2]

        resolver, ok := dateResolvers[name]
        if !ok {
            return "", fmt.Errorf("unknown resolver %q", name)
        }

        args, err := parseResolverArgs(rawArgs, resolver.allowedKeys)
        if err != nil {
            return "", fmt.Errorf("resolver %q: %w", name, err)
        }

        resolved, err := resolver.fn(now, args)
        if err != nil {
            return "", fmt.Errorf("resolver %q: %w", name, err)
        }

        result = strings.ReplaceAll(result, match[0], resolved)
    }

    return result, nil
}

// parseResolverArgs parses "key=value, key=value" into ints. Absent keys
// default to zero.
func parseResolverArgs(raw string, allowedKeys map[string]bool) (map[string]int, error) {
    args := make(map[string]int)
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return args, nil
    }

    for _, part := range strings.Split(raw, ",") {
        kv := strings.SplitN(part, "=", 2)
        if len(kv) != 2 {
            return nil, fmt.Errorf("malformed argument %q", strings.TrimSpace(part))
        }
        key := strings.TrimSpace(kv[0])
        if !allowedKeys[key] {
            return nil, fmt.Errorf("unknown argument %q", key)
        }
        value, err := strconv.Atoi(strings.TrimSpace(kv[1]))
        if err != nil {
            return nil, fmt.Errorf("argument %q is not an integer: %q", key, strings.TrimSpace(kv[1]))
        }
        args[key] = value
    }

    return args, nil
}
