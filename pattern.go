// Copyright the s3-concat authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package s3concat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Matcher decides which listed keys participate in a run and extracts
// their positional capture groups.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
	glob    bool
}

// regexMeta marks a source pattern as full regex syntax. Patterns made
// only of literals and the * / ? wildcards are treated as globs.
var regexMeta = "()[]{}|+^$\\"

// NewMatcher compiles a source pattern. Glob patterns match with no
// captures; regex patterns capture positionally for the target template.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, &ConfigurationError{Pattern: pattern, Reason: "empty source pattern"}
	}
	glob := !strings.ContainsAny(pattern, regexMeta)
	expr := pattern
	if glob {
		expr = globToRegexp(pattern)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigurationError{Pattern: pattern, Reason: err.Error()}
	}
	return &Matcher{pattern: pattern, re: re, glob: glob}, nil
}

// Match evaluates key against the pattern. The returned captures are
// positional: captures[0] is $1 in the target template.
func (m *Matcher) Match(key string) ([]string, bool) {
	sub := m.re.FindStringSubmatch(key)
	if sub == nil {
		return nil, false
	}
	return sub[1:], true
}

// Groups returns how many capture groups the pattern defines.
func (m *Matcher) Groups() int {
	return m.re.NumSubexp()
}

// globToRegexp translates * and ? wildcards into an anchored regexp,
// quoting everything else literally.
func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// TargetTemplate renders target keys by substituting $N capture
// references with the groups extracted by the Matcher.
type TargetTemplate struct {
	template string
	refs     []int
}

var captureRef = regexp.MustCompile(`\$(\d+)`)

// NewTargetTemplate parses the template and verifies every $N it
// references is defined by the source pattern. A dangling reference is
// a configuration error surfaced before any storage call.
func NewTargetTemplate(template string, groups int) (*TargetTemplate, error) {
	if template == "" {
		return nil, &ConfigurationError{Pattern: template, Reason: "empty target pattern"}
	}
	var refs []int
	for _, m := range captureRef.FindAllStringSubmatch(template, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return nil, &ConfigurationError{
				Pattern: template,
				Reason:  fmt.Sprintf("bad capture reference $%s", m[1]),
			}
		}
		if n > groups {
			return nil, &ConfigurationError{
				Pattern: template,
				Reason:  fmt.Sprintf("capture reference $%d exceeds the %d group(s) the source pattern defines", n, groups),
			}
		}
		refs = append(refs, n)
	}
	return &TargetTemplate{template: template, refs: refs}, nil
}

// Render substitutes captures into the template verbatim. Pure and
// deterministic for identical input.
func (t *TargetTemplate) Render(captures []string) string {
	return captureRef.ReplaceAllStringFunc(t.template, func(ref string) string {
		n, _ := strconv.Atoi(ref[1:])
		if n < 1 || n > len(captures) {
			return ref
		}
		return captures[n-1]
	})
}
