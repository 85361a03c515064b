package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
)

// fixCandidates maps an issue type to its ordered candidate fixes.
var fixCandidates = map[models.IssueType][]models.RemediationFixType{
	models.IssueTypeGrammar:              {models.FixGrammarError, models.FixTypos, models.CorrectCapitalization},
	models.IssueTypeSpelling:             {models.FixTypos},
	models.IssueTypeStructure:            {models.AddMissingSection, models.AddHeadings, models.ReorganizeContent, models.FixSectionOrder},
	models.IssueTypeReadability:          {models.ImproveReadability, models.FormatText},
	models.IssueTypeCompleteness:         {models.ExpandContent, models.AddExamples, models.AddMissingTopics},
	models.IssueTypeLearningObjectives:   {models.AddLearningObjectives, models.AlignObjectives},
	models.IssueTypePedagogicalAlignment: {models.AlignObjectives, models.StandardizeAssessment},
	models.IssueTypeConsistency:          {models.StandardizeTerminology, models.RemoveDuplicates},
	models.IssueTypeFormatting:           {models.FormatText},
	models.IssueTypeAccessibility:        {models.FormatText},
}

// placement says where a template fix splices its section.
type placement int

const (
	placeEnd placement = iota
	placeTop
	placeAfterTitle
)

// fixSpec describes one fix type. Exactly one of transform, restructure or template placement applies.
type fixSpec struct {
	title       string
	description string
	confidence  models.ConfidenceLevel
	risk        models.RiskLevel
	impact      models.ImpactAssessment
	reversible  bool
	// transform rewrites the whole body; it must be idempotent.
	transform func(text string) string
	// restructure rewrites the body using the content type and issue.
	restructure func(content models.GeneratedContent, issue models.ValidationIssue) string
	templated   bool
	place       placement
}

var fixCatalog = map[models.RemediationFixType]fixSpec{
	models.FixTypos: {
		title:       "Fix common typos",
		description: "Correct frequently misspelled words",
		confidence:  models.ConfidenceVeryHigh,
		risk:        models.RiskSafe,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.2, ReadabilityImprovement: 0.3, ConsistencyImprovement: 0.4, Benefits: []string{"Removes distracting spelling mistakes"}},
		reversible:  true,
		transform:   fixTypos,
	},
	models.CorrectCapitalization: {
		title:       "Capitalise sentence starts",
		description: "Start every sentence with a capital letter",
		confidence:  models.ConfidenceVeryHigh,
		risk:        models.RiskSafe,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.1, ReadabilityImprovement: 0.2, ConsistencyImprovement: 0.4, Benefits: []string{"Consistent sentence casing"}},
		reversible:  true,
		transform:   capitalizeSentences,
	},
	models.RemoveDuplicates: {
		title:       "Remove duplicated text",
		description: "Drop repeated words, lines and paragraphs",
		confidence:  models.ConfidenceHigh,
		risk:        models.RiskSafe,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.2, ReadabilityImprovement: 0.4, ConsistencyImprovement: 0.5, Benefits: []string{"Shorter, cleaner text"}, Drawbacks: []string{"Intentional repetition is also removed"}},
		reversible:  true,
		transform:   removeDuplicates,
	},
	models.FixGrammarError: {
		title:       "Fix repeated words",
		description: "Collapse immediately repeated words, keeping the first occurrence",
		confidence:  models.ConfidenceHigh,
		risk:        models.RiskSafe,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.2, ReadabilityImprovement: 0.4, ConsistencyImprovement: 0.3, Benefits: []string{"Removes grammatical slips"}},
		reversible:  true,
		transform:   collapseRepeatedWords,
	},
	models.FormatText: {
		title:       "Tidy formatting",
		description: "Normalise whitespace and break up very long paragraphs",
		confidence:  models.ConfidenceHigh,
		risk:        models.RiskSafe,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.1, ReadabilityImprovement: 0.3, StructureImprovement: 0.2, ConsistencyImprovement: 0.3, Benefits: []string{"Easier to scan"}},
		reversible:  true,
		transform:   formatText,
	},
	models.ImproveReadability: {
		title:       "Split long sentences",
		description: "Break sentences over the length limit at a natural conjunction",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.4, ReadabilityImprovement: 0.7, ConsistencyImprovement: 0.1, Benefits: []string{"Shorter sentences are easier to follow"}, Drawbacks: []string{"Sentence rhythm changes"}},
		reversible:  true,
		transform:   splitLongSentences,
	},
	models.StandardizeTerminology: {
		title:       "Standardise terminology",
		description: "Use one casing for each repeated term",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.3, ReadabilityImprovement: 0.1, ConsistencyImprovement: 0.7, Benefits: []string{"Consistent vocabulary"}},
		reversible:  true,
		transform:   standardizeTerminology,
	},
	models.StandardizeAssessment: {
		title:       "Standardise question numbering",
		description: "Renumber assessment items sequentially in one style",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.3, StructureImprovement: 0.4, ConsistencyImprovement: 0.6, Benefits: []string{"Predictable assessment layout"}},
		reversible:  true,
		transform:   standardizeAssessment,
	},
	models.FixSectionOrder: {
		title:       "Reorder sections",
		description: "Arrange sections in the expected order for this content type",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskMedium,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.4, StructureImprovement: 0.7, ConsistencyImprovement: 0.3, Benefits: []string{"Logical progression"}, Drawbacks: []string{"Moves large blocks of text"}},
		reversible:  true,
		restructure: fixSectionOrder,
	},
	models.ReorganizeContent: {
		title:       "Organise into sections",
		description: "Place each paragraph under its own heading",
		confidence:  models.ConfidenceLow,
		risk:        models.RiskHigh,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.4, ReadabilityImprovement: 0.3, StructureImprovement: 0.8, Benefits: []string{"Clear navigable structure"}, Drawbacks: []string{"Generated headings need renaming"}},
		reversible:  false,
		restructure: reorganizeContent,
	},
	models.AddMissingSection: {
		title:       "Add missing section",
		description: "Insert a scaffold for a required section",
		confidence:  models.ConfidenceHigh,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.5, StructureImprovement: 0.8, ConsistencyImprovement: 0.2, Benefits: []string{"Meets the expected structure"}, Drawbacks: []string{"Scaffold text must be completed by the author"}},
		reversible:  true,
		templated:   true,
		place:       placeEnd,
	},
	models.AddHeadings: {
		title:       "Add a heading",
		description: "Give unstructured content a top-level heading",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.2, ReadabilityImprovement: 0.2, StructureImprovement: 0.6, Benefits: []string{"Content becomes navigable"}},
		reversible:  true,
		templated:   true,
		place:       placeTop,
	},
	models.AddLearningObjectives: {
		title:       "Add learning objectives",
		description: "Insert a learning objectives section after the title",
		confidence:  models.ConfidenceHigh,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.8, StructureImprovement: 0.5, Benefits: []string{"Learners know what to expect"}, Drawbacks: []string{"Objectives must be tailored by the author"}},
		reversible:  true,
		templated:   true,
		place:       placeAfterTitle,
	},
	models.AlignObjectives: {
		title:       "Align objectives with content",
		description: "Add a section mapping objectives to activities and assessment",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskMedium,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.7, StructureImprovement: 0.3, ConsistencyImprovement: 0.5, Benefits: []string{"Explicit constructive alignment"}},
		reversible:  true,
		templated:   true,
		place:       placeEnd,
	},
	models.ExpandContent: {
		title:       "Expand content",
		description: "Add a section for further explanation",
		confidence:  models.ConfidenceMedium,
		risk:        models.RiskMedium,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.6, StructureImprovement: 0.2, Benefits: []string{"Fuller treatment of the topic"}, Drawbacks: []string{"Longer material"}},
		reversible:  true,
		templated:   true,
		place:       placeEnd,
	},
	models.AddExamples: {
		title:       "Add an example",
		description: "Add a worked example section",
		confidence:  models.ConfidenceHigh,
		risk:        models.RiskLow,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.7, ReadabilityImprovement: 0.2, Benefits: []string{"Concrete illustration of concepts"}},
		reversible:  true,
		templated:   true,
		place:       placeEnd,
	},
	models.AddMissingTopics: {
		title:       "Cover missing topics",
		description: "Add a section for related topics not yet covered",
		confidence:  models.ConfidenceLow,
		risk:        models.RiskMedium,
		impact:      models.ImpactAssessment{EducationalEffectiveness: 0.5, StructureImprovement: 0.2, Benefits: []string{"Broader coverage"}, Drawbacks: []string{"Risk of scope creep"}},
		reversible:  true,
		templated:   true,
		place:       placeEnd,
	},
}

var typoTable = map[string]string{
	"teh":         "the",
	"recieve":     "receive",
	"seperate":    "separate",
	"occured":     "occurred",
	"definately":  "definitely",
	"untill":      "until",
	"wich":        "which",
	"becuase":     "because",
	"accomodate":  "accommodate",
	"enviroment":  "environment",
	"occurence":   "occurrence",
	"begining":    "beginning",
	"beleive":     "believe",
	"goverment":   "government",
	"independant": "independent",
}

func fixTypos(text string) string {
	return wordRE.ReplaceAllStringFunc(text, func(word string) string {
		replacement, ok := typoTable[strings.ToLower(word)]
		if !ok {
			return word
		}
		return matchCase(word, replacement)
	})
}

func matchCase(original, replacement string) string {
	switch {
	case strings.ToUpper(original) == original && len(original) > 1:
		return strings.ToUpper(replacement)
	case unicode.IsUpper(rune(original[0])):
		return strings.ToUpper(replacement[:1]) + replacement[1:]
	default:
		return replacement
	}
}

// removeDuplicates drops consecutive duplicate paragraphs and lines, then repeated words.
func removeDuplicates(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if len(kept) > 0 && strings.TrimSpace(p) != "" && strings.EqualFold(strings.TrimSpace(kept[len(kept)-1]), strings.TrimSpace(p)) {
			continue
		}
		kept = append(kept, dedupeLines(p))
	}
	return collapseRepeatedWords(strings.Join(kept, "\n\n"))
}

func dedupeLines(paragraph string) string {
	lines := strings.Split(paragraph, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(kept) > 0 && strings.TrimSpace(line) != "" && strings.EqualFold(strings.TrimSpace(kept[len(kept)-1]), strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

var (
	innerSpacesRE = regexp.MustCompile(`(\S)[ \t]{2,}`)
	blankRunRE    = regexp.MustCompile(`\n{3,}`)
)

// formatText trims trailing whitespace, collapses inner space runs and blank-line runs,
// and splits paragraphs longer than the readability limit at the middle sentence.
func formatText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		lines[i] = innerSpacesRE.ReplaceAllString(line, "$1 ")
	}
	text = blankRunRE.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	paragraphs := strings.Split(text, "\n\n")
	for i, p := range paragraphs {
		paragraphs[i] = splitLongParagraph(p, defaultMaxParagraphWords)
	}
	return strings.Join(paragraphs, "\n\n")
}

var sentenceEndRE = regexp.MustCompile(`[.!?]+\s+`)

func splitLongParagraph(p string, maxWords int) string {
	if WordCount(p) <= maxWords {
		return p
	}
	ends := sentenceEndRE.FindAllStringIndex(p, -1)
	if len(ends) == 0 {
		return p
	}
	mid := len(p) / 2
	best := ends[0]
	for _, e := range ends[1:] {
		if abs(e[1]-mid) < abs(best[1]-mid) {
			best = e
		}
	}
	if best[1] >= len(p) {
		return p
	}
	head := strings.TrimRight(p[:best[1]], " \t\n")
	tail := p[best[1]:]
	return splitLongParagraph(head, maxWords) + "\n\n" + splitLongParagraph(tail, maxWords)
}

var (
	conjunctionRE = regexp.MustCompile(`(,\s+(?:and|but|so)\s+|;\s+)`)
	sentenceRE    = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// splitLongSentences breaks sentences above the default limit at the conjunction closest
// to the middle of the sentence.
func splitLongSentences(text string) string {
	return sentenceRE.ReplaceAllStringFunc(text, func(sentence string) string {
		return splitSentenceAtConjunction(sentence, defaultMaxSentenceWords)
	})
}

func splitSentenceAtConjunction(sentence string, maxWords int) string {
	if WordCount(sentence) <= maxWords {
		return sentence
	}
	matches := conjunctionRE.FindAllStringSubmatchIndex(sentence, -1)
	if len(matches) == 0 {
		return sentence
	}
	mid := len(sentence) / 2
	best := matches[0]
	for _, m := range matches[1:] {
		if abs(m[0]-mid) < abs(best[0]-mid) {
			best = m
		}
	}
	joiner := strings.TrimSpace(strings.TrimLeft(sentence[best[0]:best[1]], ",;"))
	rest := sentence[best[1]:]
	head := strings.TrimRight(sentence[:best[0]], " ") + ". "
	switch strings.ToLower(joiner) {
	case "but", "so":
		rest = strings.ToUpper(joiner[:1]) + joiner[1:] + " " + rest
	default:
		rest = capitalizeFirst(rest)
	}
	return head + splitSentenceAtConjunction(rest, maxWords)
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			return s[:i] + string(unicode.ToUpper(r)) + s[i+len(string(r)):]
		}
	}
	return s
}

// standardizeTerminology rewrites mid-sentence casing variants of a term to its most
// frequent variant. Sentence-initial words are left alone.
func standardizeTerminology(text string) string {
	starts := map[int]bool{}
	atStart := true
	for i, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if atStart {
				starts[i] = true
			}
			atStart = false
		case r == '.' || r == '!' || r == '?' || r == '\n':
			atStart = true
		}
	}

	type variantCount struct {
		text  string
		count int
		first int
	}
	matches := wordRE.FindAllStringIndex(text, -1)
	variants := map[string]map[string]*variantCount{}
	for _, m := range matches {
		word := text[m[0]:m[1]]
		if len(word) < 4 || starts[m[0]] {
			continue
		}
		key := strings.ToLower(word)
		if variants[key] == nil {
			variants[key] = map[string]*variantCount{}
		}
		if v, ok := variants[key][word]; ok {
			v.count++
		} else {
			variants[key][word] = &variantCount{text: word, count: 1, first: m[0]}
		}
	}

	canonical := map[string]string{}
	for key, forms := range variants {
		if len(forms) < 2 {
			continue
		}
		list := make([]*variantCount, 0, len(forms))
		for _, v := range forms {
			list = append(list, v)
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].count != list[j].count {
				return list[i].count > list[j].count
			}
			return list[i].first < list[j].first
		})
		canonical[key] = list[0].text
	}
	if len(canonical) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		word := text[m[0]:m[1]]
		target, ok := canonical[strings.ToLower(word)]
		if !ok || starts[m[0]] || word == target {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(target)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

var questionLineRE = regexp.MustCompile(`(?im)^([ \t]*)(?:q(?:uestion)?[ \t]*)?(\d+)[.):][ \t]+`)

// standardizeAssessment renumbers question lines sequentially as "N. ".
func standardizeAssessment(text string) string {
	n := 0
	return questionLineRE.ReplaceAllStringFunc(text, func(match string) string {
		n++
		sub := questionLineRE.FindStringSubmatch(match)
		return fmt.Sprintf("%s%d. ", sub[1], n)
	})
}

type sectionBlock struct {
	heading string
	body    string
}

// splitSections cuts text into a preamble and heading-led blocks.
func splitSections(text string) (string, []sectionBlock) {
	lines := strings.Split(text, "\n")
	var preamble []string
	var blocks []sectionBlock
	var current *sectionBlock
	var body []string
	flush := func() {
		if current != nil {
			current.body = strings.Join(body, "\n")
			blocks = append(blocks, *current)
		}
	}
	for _, line := range lines {
		if isHeadingLine(line) {
			flush()
			current = &sectionBlock{heading: line}
			body = nil
			continue
		}
		if current == nil {
			preamble = append(preamble, line)
			continue
		}
		body = append(body, line)
	}
	flush()
	return strings.Join(preamble, "\n"), blocks
}

func joinSections(preamble string, blocks []sectionBlock) string {
	parts := make([]string, 0, len(blocks)+1)
	if preamble != "" {
		parts = append(parts, preamble)
	}
	for _, block := range blocks {
		if block.body == "" {
			parts = append(parts, block.heading)
			continue
		}
		parts = append(parts, block.heading+"\n"+block.body)
	}
	return strings.Join(parts, "\n")
}

// fixSectionOrder stably reorders heading blocks so required sections follow the
// canonical order for the content type. Unrecognised sections keep their relative place after them.
func fixSectionOrder(content models.GeneratedContent, _ models.ValidationIssue) string {
	required := requiredSections[content.ContentType]
	preamble, blocks := splitSections(content.Content)
	if len(blocks) < 2 || len(required) == 0 {
		return content.Content
	}
	rank := func(b sectionBlock) int {
		heading := strings.ToLower(headingText(b.heading))
		for i, section := range required {
			if strings.Contains(heading, section) {
				return i
			}
		}
		return len(required)
	}
	sorted := append([]sectionBlock(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool { return rank(sorted[i]) < rank(sorted[j]) })
	return joinSections(preamble, sorted)
}

// reorganizeContent puts each paragraph of heading-less content under a numbered heading.
func reorganizeContent(content models.GeneratedContent, _ models.ValidationIssue) string {
	if len(headings(content.Content)) > 0 {
		return content.Content
	}
	paragraphs := splitParagraphs(content.Content)
	if len(paragraphs) < 2 {
		return content.Content
	}
	parts := make([]string, 0, len(paragraphs))
	for i, p := range paragraphs {
		parts = append(parts, fmt.Sprintf("## Part %d\n\n%s", i+1, p))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
