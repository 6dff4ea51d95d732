package activitypub

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// hashtagPattern matches #tag at the start of the text or after a character
// that cannot be part of a word or URL path, so "page#anchor" is ignored.
var hashtagPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_&/#])#([\p{L}\p{N}_]+)`)

// ExtractHashtags returns the hashtags found in text, without the leading #,
// in order of first appearance. Purely numeric tags are skipped.
func ExtractHashtags(text string) []string {
	var out []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		if isNumeric(m[1]) {
			continue
		}
		out = append(out, m[1])
	}
	return out
}

// normalizeTags merges explicit tags with tags found in content, drops
// empties and duplicates (case-insensitively), keeping first spelling.
func normalizeTags(explicit []string, content string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	for _, t := range explicit {
		add(t)
	}
	for _, t := range ExtractHashtags(content) {
		add(t)
	}
	return out
}

func hashtag(origin, tag string) Tag {
	return Tag{
		Type: "Hashtag",
		Href: origin + "/tags/" + url.PathEscape(strings.ToLower(tag)),
		Name: "#" + tag,
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
