package extract

const (
	SourceDescription = "description"
	SourceCategory    = "category"
	SourceInferred    = "inferred"
)

const (
	ConfidenceDescription = 0.8
	ConfidenceCategory    = 0.6
	ConfidenceInferred    = 0.5

	// MaxInferred caps the verb-derived tags added per extraction.
	MaxInferred = 10
	// MinDescriptionLength is the trimmed length below which only category defaults apply.
	MinDescriptionLength = 20
	// minFeatureKeyLength drops inferred tokens of three characters or fewer.
	minFeatureKeyLength = 4
)

// Tag is a scored capability label produced by the extractor.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Capability maps description patterns to a feature name. Patterns are regular
// expression fragments anchored at a word start and matched against lowercased text.
type Capability struct {
	Feature  string
	Patterns []string
}

// Verb is an action word that yields an inferred tag when no captured feature covers it.
// Stem is matched as a substring of existing feature keys; it defaults to Word without a trailing "e".
type Verb struct {
	Word  string
	Stem  string
	Extra []string
}

// Lexicon is the complete, read-only input of an Extractor.
type Lexicon struct {
	Capabilities     []Capability
	CategoryDefaults map[string][]string
	Verbs            []Verb
}
