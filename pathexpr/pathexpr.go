package pathexpr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
)

// Expr is a compiled response path.
type Expr struct {
	source   string
	segments []segment
	code     *gojq.Code
}

type segmentKind int

const (
	segmentKey segmentKind = iota
	segmentIndex
	// segmentAmbiguous is a dotted numeric segment such as items.0, which
	// indexes arrays and keys objects.
	segmentAmbiguous
)

type segment struct {
	kind  segmentKind
	key   string
	index int
}

// Compile parses path into an Expr. Supported forms are dotted identifiers,
// [n] array indexes and ["key"] or ['key'] quoted keys. An empty path and "$"
// select the whole document.
func Compile(path string) (*Expr, error) {
	segments, err := parse(path)
	if err != nil {
		return nil, err
	}
	query, err := gojq.Parse(toJQ(segments))
	if err != nil {
		return nil, fmt.Errorf("pathexpr: %q: %w", path, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("pathexpr: %q: %w", path, err)
	}
	return &Expr{source: path, segments: segments, code: code}, nil
}

// MustCompile is Compile for paths known at build time.
func MustCompile(path string) *Expr {
	expr, err := Compile(path)
	if err != nil {
		panic(err)
	}
	return expr
}

func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

// Root reports whether the expression selects the whole document.
func (e *Expr) Root() bool {
	return e == nil || len(e.segments) == 0
}

// Lookup evaluates the expression against data. Missing keys, type
// mismatches, out of range indexes and null values all report false.
func (e *Expr) Lookup(data any) (any, bool) {
	if e == nil || e.code == nil {
		return nil, false
	}
	if len(e.segments) == 0 {
		return data, data != nil
	}
	iter := e.code.Run(normalize(data))
	value, ok := iter.Next()
	if !ok {
		return nil, false
	}
	if _, isErr := value.(error); isErr {
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}

// Lookup compiles path and evaluates it against data. An invalid path is
// reported as not found.
func Lookup(data any, path string) (any, bool) {
	expr, err := Compile(path)
	if err != nil {
		return nil, false
	}
	return expr.Lookup(data)
}

func parse(path string) ([]segment, error) {
	src := strings.TrimSpace(path)
	switch {
	case src == "", src == "$", src == ".":
		return nil, nil
	case strings.HasPrefix(src, "$."):
		src = src[2:]
	case strings.HasPrefix(src, "$["):
		src = src[1:]
	case strings.HasPrefix(src, "."):
		src = src[1:]
	}

	var segments []segment
	expectSegment := true
	for i := 0; i < len(src); {
		switch src[i] {
		case '.':
			if expectSegment {
				return nil, fmt.Errorf("pathexpr: %q: empty segment at offset %d", path, i)
			}
			expectSegment = true
			i++
		case '[':
			end, seg, err := parseBracket(src, i)
			if err != nil {
				return nil, fmt.Errorf("pathexpr: %q: %w", path, err)
			}
			segments = append(segments, seg)
			expectSegment = false
			i = end
		case ']':
			return nil, fmt.Errorf("pathexpr: %q: unexpected ] at offset %d", path, i)
		default:
			if !expectSegment {
				return nil, fmt.Errorf("pathexpr: %q: missing separator at offset %d", path, i)
			}
			start := i
			for i < len(src) && src[i] != '.' && src[i] != '[' && src[i] != ']' {
				i++
			}
			name := strings.TrimSpace(src[start:i])
			if name == "" {
				return nil, fmt.Errorf("pathexpr: %q: empty segment at offset %d", path, start)
			}
			segments = append(segments, identifierSegment(name))
			expectSegment = false
		}
	}
	if expectSegment && len(segments) > 0 {
		return nil, fmt.Errorf("pathexpr: %q: trailing separator", path)
	}
	return segments, nil
}

func identifierSegment(name string) segment {
	if index, err := strconv.Atoi(name); err == nil && index >= 0 {
		return segment{kind: segmentAmbiguous, key: name, index: index}
	}
	return segment{kind: segmentKey, key: name}
}

func parseBracket(src string, start int) (int, segment, error) {
	i := start + 1
	if i >= len(src) {
		return 0, segment{}, fmt.Errorf("unterminated [ at offset %d", start)
	}
	if quote := src[i]; quote == '"' || quote == '\'' {
		i++
		var key strings.Builder
		for i < len(src) && src[i] != quote {
			if src[i] == '\\' && i+1 < len(src) {
				i++
			}
			key.WriteByte(src[i])
			i++
		}
		if i+1 >= len(src) || src[i+1] != ']' {
			return 0, segment{}, fmt.Errorf("unterminated quoted key at offset %d", start)
		}
		return i + 2, segment{kind: segmentKey, key: key.String()}, nil
	}
	end := strings.IndexByte(src[i:], ']')
	if end < 0 {
		return 0, segment{}, fmt.Errorf("unterminated [ at offset %d", start)
	}
	raw := strings.TrimSpace(src[i : i+end])
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, segment{}, fmt.Errorf("invalid array index %q", raw)
	}
	return i + end + 1, segment{kind: segmentIndex, index: index}, nil
}

func toJQ(segments []segment) string {
	expr := "."
	for _, seg := range segments {
		var suffix string
		switch seg.kind {
		case segmentIndex:
			suffix = fmt.Sprintf("[%d]?", seg.index)
		case segmentAmbiguous:
			expr = fmt.Sprintf("%s | (if type == \"array\" then .[%d]? else .[%s]? end)", expr, seg.index, quoteJQ(seg.key))
			continue
		default:
			suffix = fmt.Sprintf("[%s]?", quoteJQ(seg.key))
		}
		if expr == "." {
			expr = "." + suffix
			continue
		}
		expr += suffix
	}
	return expr
}

func quoteJQ(value string) string {
	encoded, _ := json.Marshal(value)
	return string(encoded)
}

// normalize converts values into the shapes gojq accepts: maps, slices,
// float64, int, string, bool and nil.
func normalize(value any) any {
	switch typed := value.(type) {
	case nil, bool, string, float64, int:
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalize(item)
		}
		return out
	case int64:
		return int(typed)
	case int32:
		return int(typed)
	case float32:
		return float64(typed)
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return int(i)
		}
		f, _ := typed.Float64()
		return f
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return nil
		}
		var decoded any
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			return nil
		}
		return decoded
	}
}
