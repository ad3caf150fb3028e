package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-forms/pkg/params"
)

// tags checks single values against validator tags.
var tags = validator.New()

// tagged reports whether the trimmed string form of value passes tag.
func tagged(value any, tag string) bool {
	return tags.Var(strings.TrimSpace(params.String(value)), tag) == nil
}

func builtins() map[string]Rule {
	return map[string]Rule{
		"notEmpty":     NotEmpty,
		"equals":       Equals,
		"email":        Email,
		"url":          URL,
		"uuid":         UUID,
		"json":         JSON,
		"regex":        Regex,
		"length":       Length,
		"min":          Min,
		"max":          Max,
		"between":      Between,
		"numericVal":   Numeric,
		"intVal":       IntVal,
		"alpha":        Alpha,
		"alnum":        Alnum,
		"digit":        Digit,
		"in":           In,
		"date":         Date,
		"ip":           IP,
		"boolVal":      BoolVal,
		"contains":     Contains,
		"startsWith":   StartsWith,
		"endsWith":     EndsWith,
		"noWhitespace": NoWhitespace,
		"lowercase":    Lowercase,
		"uppercase":    Uppercase,
		"phone":        Phone,
	}
}

// NotEmpty fails on nil, blank strings and empty collections.
func NotEmpty(value any, _ ...any) bool {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	switch v := value.(type) {
	case nil:
		return false
	case []string:
		for _, item := range v {
			if strings.TrimSpace(item) != "" {
				return true
			}
		}
		return false
	}
	if m := params.Map(value); m != nil {
		return len(m) > 0
	}
	if isList(value) {
		return len(params.List(value)) > 0
	}
	return true
}

// Equals compares the string forms of value and args[0].
func Equals(value any, args ...any) bool {
	if len(args) == 0 {
		return false
	}
	return params.String(value) == params.String(args[0])
}

// Email accepts a bare address with a dotted domain.
func Email(value any, _ ...any) bool {
	return tagged(value, "email")
}

// URL accepts absolute URLs with a scheme.
func URL(value any, _ ...any) bool {
	return tagged(value, "url")
}

// UUID accepts canonical UUID strings.
func UUID(value any, _ ...any) bool {
	s := strings.TrimSpace(params.String(value))
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// JSON accepts well-formed JSON documents.
func JSON(value any, _ ...any) bool {
	s := params.String(value)
	return strings.TrimSpace(s) != "" && gjson.Valid(s)
}

var (
	regexMu    sync.RWMutex
	regexCache = map[string]*regexp.Regexp{}
)

// Regex matches value against the pattern in args[0]. Delimited patterns
// ("/^a+$/i") are accepted.
func Regex(value any, args ...any) bool {
	if len(args) == 0 {
		return false
	}
	re, err := compile(params.String(args[0]))
	if err != nil {
		return false
	}
	return re.MatchString(params.String(value))
}

func compile(pattern string) (*regexp.Regexp, error) {
	regexMu.RLock()
	re, ok := regexCache[pattern]
	regexMu.RUnlock()
	if ok {
		return re, nil
	}

	expr := pattern
	if len(expr) > 2 && expr[0] == '/' {
		if end := strings.LastIndex(expr, "/"); end > 0 {
			flags := expr[end+1:]
			expr = expr[1:end]
			if strings.Contains(flags, "i") {
				expr = "(?i)" + expr
			}
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	regexMu.Lock()
	regexCache[pattern] = re
	regexMu.Unlock()
	return re, nil
}

// Length checks the rune count (or item count for lists) against args[0]
// (min) and args[1] (max). A nil bound is ignored.
func Length(value any, args ...any) bool {
	n := size(value)
	if len(args) > 0 && args[0] != nil && n < params.Int(args[0]) {
		return false
	}
	if len(args) > 1 && args[1] != nil && n > params.Int(args[1]) {
		return false
	}
	return true
}

// Min checks a numeric value is at least args[0].
func Min(value any, args ...any) bool {
	n, ok := number(value)
	if !ok || len(args) == 0 {
		return false
	}
	bound, ok := number(args[0])
	return ok && n >= bound
}

// Max checks a numeric value is at most args[0].
func Max(value any, args ...any) bool {
	n, ok := number(value)
	if !ok || len(args) == 0 {
		return false
	}
	bound, ok := number(args[0])
	return ok && n <= bound
}

// Between checks args[0] <= value <= args[1].
func Between(value any, args ...any) bool {
	if len(args) < 2 {
		return false
	}
	return Min(value, args[0]) && Max(value, args[1])
}

// Numeric accepts numbers and numeric strings.
func Numeric(value any, _ ...any) bool {
	_, ok := number(value)
	return ok
}

// IntVal accepts integers and integer strings.
func IntVal(value any, _ ...any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	_, err := strconv.ParseInt(strings.TrimSpace(params.String(value)), 10, 64)
	return err == nil
}

// Alpha accepts letters plus any runes listed in args[0].
func Alpha(value any, args ...any) bool {
	return runesMatch(value, args, unicode.IsLetter)
}

// Alnum accepts letters and digits plus any runes listed in args[0].
func Alnum(value any, args ...any) bool {
	return runesMatch(value, args, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
}

// Digit accepts digits plus any runes listed in args[0].
func Digit(value any, args ...any) bool {
	return runesMatch(value, args, unicode.IsDigit)
}

// In accepts values present in args; a single list argument is expanded.
func In(value any, args ...any) bool {
	candidates := args
	if len(args) == 1 {
		candidates = params.List(args[0])
	}
	s := params.String(value)
	for _, candidate := range candidates {
		if params.String(candidate) == s {
			return true
		}
	}
	return false
}

// Date parses value with the Go layout in args[0] (default 2006-01-02).
func Date(value any, args ...any) bool {
	layout := "2006-01-02"
	if len(args) > 0 {
		if s := params.String(args[0]); s != "" {
			layout = s
		}
	}
	_, err := time.Parse(layout, strings.TrimSpace(params.String(value)))
	return err == nil
}

// IP accepts IPv4 and IPv6 addresses.
func IP(value any, _ ...any) bool {
	return tagged(value, "ip")
}

// BoolVal accepts boolean-like values.
func BoolVal(value any, _ ...any) bool {
	if _, ok := value.(bool); ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(params.String(value))) {
	case "1", "0", "true", "false", "on", "off", "yes", "no":
		return true
	}
	return false
}

// Contains checks value contains args[0].
func Contains(value any, args ...any) bool {
	if len(args) == 0 {
		return false
	}
	return strings.Contains(params.String(value), params.String(args[0]))
}

// StartsWith checks value starts with args[0].
func StartsWith(value any, args ...any) bool {
	if len(args) == 0 {
		return false
	}
	return strings.HasPrefix(params.String(value), params.String(args[0]))
}

// EndsWith checks value ends with args[0].
func EndsWith(value any, args ...any) bool {
	if len(args) == 0 {
		return false
	}
	return strings.HasSuffix(params.String(value), params.String(args[0]))
}

// NoWhitespace rejects any whitespace rune.
func NoWhitespace(value any, _ ...any) bool {
	return !strings.ContainsFunc(params.String(value), unicode.IsSpace)
}

// Lowercase accepts values equal to their lower-case form.
func Lowercase(value any, _ ...any) bool {
	s := params.String(value)
	return s == strings.ToLower(s)
}

// Uppercase accepts values equal to their upper-case form.
func Uppercase(value any, _ ...any) bool {
	s := params.String(value)
	return s == strings.ToUpper(s)
}

var phonePattern = regexp.MustCompile(`^\+?[0-9 ().-]{6,20}$`)

// Phone accepts loosely formatted phone numbers.
func Phone(value any, _ ...any) bool {
	return phonePattern.MatchString(strings.TrimSpace(params.String(value)))
}

func runesMatch(value any, args []any, accept func(rune) bool) bool {
	s := params.String(value)
	if s == "" {
		return false
	}
	extra := ""
	if len(args) > 0 {
		extra = params.String(args[0])
	}
	for _, r := range s {
		if accept(r) || strings.ContainsRune(extra, r) {
			continue
		}
		return false
	}
	return true
}

func size(value any) int {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v)
	case nil:
		return 0
	}
	if m := params.Map(value); m != nil {
		return len(m)
	}
	if isList(value) {
		return len(params.List(value))
	}
	return utf8.RuneCountInString(params.String(value))
}

func isList(value any) bool {
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(params.String(value)), 64)
	return f, err == nil
}
