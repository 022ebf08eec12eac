package script

import (
	"regexp"
	"strings"

	"github.com/dop251/goja"

	"github.com/goliatone/go-integrations/core"
)

type bannedConstruct struct {
	name    string
	pattern *regexp.Regexp
}

var bannedConstructs = []bannedConstruct{
	{name: "eval", pattern: regexp.MustCompile(`\beval\b`)},
	{name: "Function", pattern: regexp.MustCompile(`\bFunction\b`)},
	{name: "constructor", pattern: regexp.MustCompile(`\bconstructor\b`)},
	{name: "__proto__", pattern: regexp.MustCompile(`__proto__`)},
	{name: "import()", pattern: regexp.MustCompile(`\bimport\s*\(`)},
	{name: "require", pattern: regexp.MustCompile(`\brequire\b`)},
	{name: "process", pattern: regexp.MustCompile(`\bprocess\b`)},
	{name: "globalThis", pattern: regexp.MustCompile(`\bglobalThis\b`)},
	{name: "setTimeout", pattern: regexp.MustCompile(`\bsetTimeout\b`)},
	{name: "setInterval", pattern: regexp.MustCompile(`\bsetInterval\b`)},
	{name: "WebAssembly", pattern: regexp.MustCompile(`\bWebAssembly\b`)},
}

var (
	syncDeclaration = regexp.MustCompile(`\b(?:async\s+)?function\s*\*?\s*sync\s*\(`)
	syncBinding     = regexp.MustCompile(`\b(?:const|let|var)\s+sync\s*=`)
	returnStatement = regexp.MustCompile(`\breturn\b`)
	evidenceMention = regexp.MustCompile(`\bevidence\b`)
)

// Validate statically checks an operator script. It is a lint run before
// execution; isolation comes from the interpreter, not from this check.
func Validate(source string) core.CodeValidationResult {
	result := core.CodeValidationResult{Errors: []string{}, Warnings: []string{}}
	if strings.TrimSpace(source) == "" {
		result.Errors = append(result.Errors, "script is empty")
		return result
	}

	if _, err := goja.Compile("sync.js", source, false); err != nil {
		result.Errors = append(result.Errors, "syntax error: "+err.Error())
	}

	code := stripCommentsAndStrings(source)
	if !syncDeclaration.MatchString(code) && !syncBinding.MatchString(code) {
		result.Errors = append(result.Errors, "script must define a sync(context) function")
	}
	for _, banned := range bannedConstructs {
		if banned.pattern.MatchString(code) {
			result.Errors = append(result.Errors, "use of "+banned.name+" is not allowed")
		}
	}

	if !returnStatement.MatchString(code) {
		result.Warnings = append(result.Warnings, "no return statement found; sync should return { evidence: [...] }")
	}
	if !evidenceMention.MatchString(source) {
		result.Warnings = append(result.Warnings, "script never mentions evidence")
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// stripCommentsAndStrings blanks comments and the contents of string and
// template literals so banned words inside them are not reported. Template
// substitutions are kept since they are code.
func stripCommentsAndStrings(source string) string {
	var out strings.Builder
	out.Grow(len(source))
	runes := []rune(source)
	n := len(runes)
	templateDepth := []int{}
	braceDepth := 0

	for i := 0; i < n; i++ {
		ch := runes[i]
		next := rune(0)
		if i+1 < n {
			next = runes[i+1]
		}
		switch {
		case ch == '/' && next == '/':
			for i < n && runes[i] != '\n' {
				i++
			}
			out.WriteRune('\n')
		case ch == '/' && next == '*':
			i += 2
			for i < n && !(runes[i] == '*' && i+1 < n && runes[i+1] == '/') {
				if runes[i] == '\n' {
					out.WriteRune('\n')
				}
				i++
			}
			i++
			out.WriteRune(' ')
		case ch == '"' || ch == '\'':
			i = skipQuoted(runes, i, ch)
			out.WriteString(`""`)
		case ch == '`':
			i = skipTemplateText(runes, i+1, &out, &templateDepth, braceDepth)
		case ch == '{':
			braceDepth++
			out.WriteRune(ch)
		case ch == '}':
			if len(templateDepth) > 0 && templateDepth[len(templateDepth)-1] == braceDepth {
				templateDepth = templateDepth[:len(templateDepth)-1]
				i = skipTemplateText(runes, i+1, &out, &templateDepth, braceDepth)
				continue
			}
			braceDepth--
			out.WriteRune(ch)
		default:
			out.WriteRune(ch)
		}
	}
	return out.String()
}

func skipQuoted(runes []rune, start int, quote rune) int {
	i := start + 1
	for i < len(runes) {
		switch runes[i] {
		case '\\':
			i += 2
			continue
		case quote, '\n':
			return i
		}
		i++
	}
	return i
}

// skipTemplateText consumes template literal text starting at i. It returns
// the index of the closing backtick, or of the $ that opens a substitution
// after recording the brace depth at which that substitution ends.
func skipTemplateText(runes []rune, i int, out *strings.Builder, templateDepth *[]int, braceDepth int) int {
	out.WriteString("``")
	for i < len(runes) {
		switch {
		case runes[i] == '\\':
			i += 2
			continue
		case runes[i] == '`':
			return i
		case runes[i] == '$' && i+1 < len(runes) && runes[i+1] == '{':
			*templateDepth = append(*templateDepth, braceDepth)
			out.WriteRune(' ')
			return i + 1
		}
		i++
	}
	return i
}
