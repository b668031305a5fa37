package backend

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"QueryChat/internal/telemetry"
)

// ErrInvalidJSON is returned when the endpoint answers with a body that is
// not a JSON value the widget can read fields from.
var ErrInvalidJSON = errors.New("response body is not valid JSON")

// QueryRequest represents the request body for the query endpoint
type QueryRequest struct {
	NLQuery string `json:"nl_query"`
}

// Response is a decoded reply from the query endpoint. Fields are read
// lazily from the raw body so that member order in results is preserved.
type Response struct {
	StatusCode int
	body       []byte
}

// ParseResponse validates body and wraps it
func ParseResponse(statusCode int, body []byte) (*Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	// Reading a field off a top-level null fails in the browser too.
	if gjson.ParseBytes(body).Type == gjson.Null {
		return nil, fmt.Errorf("%w: top-level null", ErrInvalidJSON)
	}
	return &Response{StatusCode: statusCode, body: body}, nil
}

// Message returns the message field when it is truthy
func (r *Response) Message() (string, bool) {
	msg := gjson.GetBytes(r.body, "message")
	if !truthy(msg) {
		return "", false
	}
	switch msg.Type {
	case gjson.String:
		return msg.Str, true
	case gjson.Number:
		return formatNumber(msg.Num), true
	}
	return msg.Raw, true
}

// Results returns the decoded results field re-encoded as JSON indented by
// two spaces, the way a browser stringifies a parsed value. A missing field
// renders as null.
func (r *Response) Results() string {
	res := gjson.GetBytes(r.body, "results")
	if !res.Exists() {
		return "null"
	}
	var sb strings.Builder
	writeValue(&sb, res, 0)
	return sb.String()
}

// Text is what the widget shows for this reply
func (r *Response) Text() string {
	if msg, ok := r.Message(); ok {
		return msg
	}
	return r.Results()
}

// Outcome classifies the reply for telemetry
func (r *Response) Outcome() string {
	if _, ok := r.Message(); ok {
		return telemetry.OutcomeMessage
	}
	return telemetry.OutcomeResults
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func writeValue(sb *strings.Builder, v gjson.Result, depth int) {
	switch v.Type {
	case gjson.String:
		writeString(sb, v.Str)
	case gjson.Number:
		sb.WriteString(formatNumber(v.Num))
	case gjson.True:
		sb.WriteString("true")
	case gjson.False:
		sb.WriteString("false")
	case gjson.JSON:
		if v.IsArray() {
			writeArray(sb, v.Array(), depth)
		} else {
			writeObject(sb, v, depth)
		}
	default:
		sb.WriteString("null")
	}
}

func writeArray(sb *strings.Builder, items []gjson.Result, depth int) {
	if len(items) == 0 {
		sb.WriteString("[]")
		return
	}
	sb.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		newline(sb, depth+1)
		writeValue(sb, item, depth+1)
	}
	newline(sb, depth)
	sb.WriteByte(']')
}

type member struct {
	key   string
	value gjson.Result
}

// writeObject emits members in JavaScript property order: array-index keys
// ascending, then the rest in first-seen order. A repeated key keeps its
// first position and its last value.
func writeObject(sb *strings.Builder, obj gjson.Result, depth int) {
	var members []member
	seen := map[string]int{}
	obj.ForEach(func(k, v gjson.Result) bool {
		if i, ok := seen[k.Str]; ok {
			members[i].value = v
			return true
		}
		seen[k.Str] = len(members)
		members = append(members, member{key: k.Str, value: v})
		return true
	})

	if len(members) == 0 {
		sb.WriteString("{}")
		return
	}

	sort.SliceStable(members, func(i, j int) bool {
		a, aIdx := arrayIndex(members[i].key)
		b, bIdx := arrayIndex(members[j].key)
		if aIdx && bIdx {
			return a < b
		}
		return aIdx && !bIdx
	})

	sb.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			sb.WriteByte(',')
		}
		newline(sb, depth+1)
		writeString(sb, m.key)
		sb.WriteString(": ")
		writeValue(sb, m.value, depth+1)
	}
	newline(sb, depth)
	sb.WriteByte('}')
}

func newline(sb *strings.Builder, depth int) {
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("  ", depth))
}

// arrayIndex reports whether key is a canonical array index such as "0" or
// "42", which JavaScript objects order ahead of other keys.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// writeString quotes s escaping only what JSON requires.
func writeString(sb *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				sb.WriteString(`\"`)
			case '\\':
				sb.WriteString(`\\`)
			case '\b':
				sb.WriteString(`\b`)
			case '\f':
				sb.WriteString(`\f`)
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			case '\t':
				sb.WriteString(`\t`)
			default:
				if c < 0x20 {
					sb.WriteString(`\u00`)
					sb.WriteByte(hex[c>>4])
					sb.WriteByte(hex[c&0xf])
				} else {
					sb.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		sb.WriteRune(r)
		i += size
	}
	sb.WriteByte('"')
}

// formatNumber prints n the way JavaScript's Number#toString does: plain
// decimal from 1e-6 up to 1e21, exponent form outside that range.
func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n) || math.IsInf(n, 0):
		return "null"
	case n == 0:
		return "0"
	}
	if abs := math.Abs(n); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
	e, _ := strconv.Atoi(exp)
	if e < 0 {
		return mantissa + "e-" + strconv.Itoa(-e)
	}
	return mantissa + "e+" + strconv.Itoa(e)
}
