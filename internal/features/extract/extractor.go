package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

type compiledCapability struct {
	feature string
	re      *regexp.Regexp
}

type compiledVerb struct {
	feature string
	stem    string
	forms   map[string]struct{}
}

// Extractor infers feature tags from free text. It is immutable after New and safe for concurrent use.
type Extractor struct {
	capabilities []compiledCapability
	defaults     map[string][]string
	verbs        []compiledVerb
}

// New compiles a lexicon. It panics on an invalid pattern, which is a programming error.
func New(lex Lexicon) *Extractor {
	e := &Extractor{
		capabilities: make([]compiledCapability, 0, len(lex.Capabilities)),
		defaults:     make(map[string][]string, len(lex.CategoryDefaults)),
		verbs:        make([]compiledVerb, 0, len(lex.Verbs)),
	}
	for _, c := range lex.Capabilities {
		if len(c.Patterns) == 0 {
			continue
		}
		e.capabilities = append(e.capabilities, compiledCapability{
			feature: c.Feature,
			re:      regexp.MustCompile(`\b(?:` + strings.Join(c.Patterns, "|") + `)`),
		})
	}
	for category, features := range lex.CategoryDefaults {
		e.defaults[Key(category)] = append([]string(nil), features...)
	}
	for _, v := range lex.Verbs {
		e.verbs = append(e.verbs, compileVerb(v))
	}
	return e
}

func compileVerb(v Verb) compiledVerb {
	word := strings.ToLower(strings.TrimSpace(v.Word))
	base := strings.TrimSuffix(word, "e")
	stem := strings.ToLower(strings.TrimSpace(v.Stem))
	if stem == "" {
		stem = base
	}
	forms := map[string]struct{}{}
	for _, f := range []string{word, word + "s", word + "es", word + "d", word + "ed", base + "ed", base + "ing"} {
		forms[f] = struct{}{}
	}
	for _, f := range v.Extra {
		forms[strings.ToLower(f)] = struct{}{}
	}
	return compiledVerb{feature: titleWord(word), stem: stem, forms: forms}
}

// Extract returns tags for a product, sorted by confidence descending.
// Identical inputs always produce the identical ordered list.
func (e *Extractor) Extract(description, category, name string) []Tag {
	text := strings.ToLower(strings.TrimSpace(description))
	candidates := make([]Tag, 0, 16)
	longEnough := len(text) >= MinDescriptionLength

	if longEnough {
		haystack := text
		if n := strings.ToLower(strings.TrimSpace(name)); n != "" {
			haystack = n + " " + text
		}
		for _, c := range e.capabilities {
			if c.re.MatchString(haystack) {
				candidates = append(candidates, Tag{Name: c.feature, Confidence: ConfidenceDescription, Source: SourceDescription})
			}
		}
	}

	if defaults, ok := e.defaults[Key(category)]; ok {
		present := keySet(candidates)
		for _, f := range defaults {
			if _, dup := present[Key(f)]; dup {
				continue
			}
			candidates = append(candidates, Tag{Name: f, Confidence: ConfidenceCategory, Source: SourceCategory})
			present[Key(f)] = struct{}{}
		}
	}

	if longEnough {
		candidates = append(candidates, e.inferVerbs(text, candidates)...)
	}

	out := dedupe(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func (e *Extractor) inferVerbs(text string, existing []Tag) []Tag {
	keys := make([]string, 0, len(existing))
	for _, t := range existing {
		keys = append(keys, Key(t.Name))
	}
	captured := func(stem string) bool {
		for _, k := range keys {
			if strings.Contains(k, stem) {
				return true
			}
		}
		return false
	}

	out := make([]Tag, 0, MaxInferred)
	used := map[string]struct{}{}
	for _, token := range tokens(text) {
		if len(out) >= MaxInferred {
			break
		}
		for _, v := range e.verbs {
			if _, ok := v.forms[token]; !ok {
				continue
			}
			key := Key(v.feature)
			if len(key) < minFeatureKeyLength {
				break
			}
			if _, seen := used[key]; seen || captured(v.stem) {
				break
			}
			used[key] = struct{}{}
			out = append(out, Tag{Name: v.feature, Confidence: ConfidenceInferred, Source: SourceInferred})
			break
		}
	}
	return out
}

// dedupe keeps one tag per normalized name: the highest confidence wins, the first seen wins ties,
// and the survivor takes the position of the first occurrence.
func dedupe(tags []Tag) []Tag {
	index := make(map[string]int, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		key := Key(t.Name)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if t.Confidence > out[i].Confidence {
				out[i] = t
			}
			continue
		}
		index[key] = len(out)
		out = append(out, t)
	}
	return out
}

func keySet(tags []Tag) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[Key(t.Name)] = struct{}{}
	}
	return set
}

// Key normalizes a feature or category name for comparisons: lowercase,
// punctuation folded to single spaces.
func Key(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}

func tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func titleWord(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(word)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
