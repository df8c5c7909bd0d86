// Package taxonomy resolves skill identifiers (slash-delimited paths) to
// filesystem locations, enforces path-traversal security, and loads/lists
// authored skill artifacts (spec §4.1).
package taxonomy

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/soochol/skillsmith/internal/apierr"
)

// segmentPattern is the allowed character set for one taxonomy path
// segment (spec §3: "every path segment matches [A-Za-z0-9_-]+").
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SanitizePath splits raw on "/", rejects empty segments and any segment
// outside the allowed character set, and returns the normalized joined
// form. It never interprets "." or ".." as path operators — a literal
// segment of ".." is rejected by the character-set check, not resolved.
func SanitizePath(raw string) (string, error) {
	if strings.TrimSpace(raw) != raw {
		return "", apierr.New(apierr.InvalidInput, "taxonomy path has leading or trailing whitespace")
	}
	if raw == "" {
		return "", apierr.New(apierr.InvalidInput, "taxonomy path is empty")
	}

	segments := strings.Split(raw, "/")
	for _, seg := range segments {
		if seg == "" {
			return "", apierr.New(apierr.InvalidInput, "taxonomy path contains an empty segment")
		}
		if !segmentPattern.MatchString(seg) {
			return "", apierr.Newf(apierr.InvalidInput, "taxonomy path segment %q contains disallowed characters", seg)
		}
	}
	return strings.Join(segments, "/"), nil
}

// ResolveWithinRoot joins path onto root, fully resolves symlinks, and
// verifies the result lies inside root via a common-prefix check. This is
// the "resolve strictly, then compare" discipline spec §4.1 names: resolve
// first, so a symlink cannot be substituted between the check and the use
// (TOCTOU), then compare the fully-resolved absolute paths.
func ResolveWithinRoot(root, path string) (string, error) {
	clean, err := SanitizePath(path)
	if err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", apierr.Wrap(apierr.PathEscape, "resolve taxonomy root", err)
	}
	resolvedRoot, err := evalSymlinksTolerant(absRoot)
	if err != nil {
		return "", apierr.Wrap(apierr.PathEscape, "resolve taxonomy root symlinks", err)
	}

	joined := filepath.Join(resolvedRoot, clean)
	resolved, err := evalSymlinksTolerant(joined)
	if err != nil {
		return "", apierr.Wrap(apierr.PathEscape, "resolve candidate path symlinks", err)
	}

	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apierr.Newf(apierr.PathEscape, "path %q escapes taxonomy root", path)
	}
	return resolved, nil
}

// NameFromID implements the disambiguated rule spec §9's open question
// fixes: strip leading underscores from every segment, drop segments left
// empty, take the last two that remain (or the only one, if just one
// remains), lowercase, replace underscores with hyphens.
func NameFromID(id string) string {
	segments := strings.Split(id, "/")
	var informative []string
	for _, s := range segments {
		if s = strings.TrimLeft(s, "_"); s != "" {
			informative = append(informative, s)
		}
	}
	if len(informative) == 0 {
		return ""
	}

	last := informative[len(informative)-1]
	if len(informative) == 1 {
		return kebab(last)
	}
	return kebab(informative[len(informative)-2]) + "-" + kebab(last)
}

func kebab(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}
