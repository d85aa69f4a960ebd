package main

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var DefaultIgnorePatterns = []string{".git", ".svn", ".DS_Store", "*~"}

// IgnoreRuleSet holds gitignore-style glob patterns and regular expressions.
// Both are matched against absolute, slash separated paths.
type IgnoreRuleSet struct {
	Patterns []string
	Regex    []string
}

type PathFilter struct {
	globs   *ignore.GitIgnore
	exclude *regexp.Regexp
}

func NewPathFilter(rules IgnoreRuleSet) (*PathFilter, error) {
	filter := &PathFilter{}
	if len(rules.Patterns) > 0 {
		filter.globs = ignore.CompileIgnoreLines(rules.Patterns...)
	}

	if len(rules.Regex) > 0 {
		for _, expr := range rules.Regex {
			if _, compileErr := regexp.Compile(expr); compileErr != nil {
				return nil, fmt.Errorf("invalid ignore expression %q: %w", expr, compileErr)
			}
		}
		filter.exclude = regexp.MustCompile("(" + strings.Join(rules.Regex, ")|(") + ")")
	}

	return filter, nil
}

// IsIgnored reports whether path matches any ignore rule. It is used for both
// directories and files.
func (f *PathFilter) IsIgnored(path string) bool {
	if f == nil {
		return false
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if f.globs != nil && f.globs.MatchesPath(path) {
		return true
	}
	return f.exclude != nil && f.exclude.MatchString(path)
}
