package extraction

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/salesvoice/salesvoice/internal/logging"
	"github.com/salesvoice/salesvoice/internal/transcribe"
)

// HeuristicEngine implements Provider using weighted pattern matching.
// There is no hidden randomness: identical input text always produces the
// same candidate set, which keeps pipeline runs reproducible.
type HeuristicEngine struct {
	categories    []*compiledPattern
	activityTypes []*compiledPattern
	priorities    []*compiledPattern

	honorific   *regexp.Regexp
	company     *regexp.Regexp
	phone       *regexp.Regexp
	email       *regexp.Regexp
	amount      *regexp.Regexp
	action      *regexp.Regexp
	dueTomorrow *regexp.Regexp
	dueNextWeek *regexp.Regexp
	clauseSplit *regexp.Regexp

	now    func() time.Time
	logger *logging.Logger
}

type compiledPattern struct {
	Pattern
	regex *regexp.Regexp
}

// Option configures the engine.
type Option func(*HeuristicEngine)

// WithClock overrides the clock used for relative due dates. Tests use
// this to pin "tomorrow" to a known date.
func WithClock(now func() time.Time) Option {
	return func(e *HeuristicEngine) { e.now = now }
}

// NewHeuristicEngine creates the pattern-based extraction engine.
func NewHeuristicEngine(logger *logging.Logger, opts ...Option) *HeuristicEngine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	e := &HeuristicEngine{
		categories:    compilePatterns(categoryPatterns()),
		activityTypes: compilePatterns(activityTypePatterns()),
		priorities:    compilePatterns(priorityPatterns()),
		honorific:     regexp.MustCompile(honorificRegex),
		company:       regexp.MustCompile(companyRegex),
		phone:         regexp.MustCompile(phoneRegex),
		email:         regexp.MustCompile(emailRegex),
		amount:        regexp.MustCompile(amountRegex),
		action:        regexp.MustCompile(actionRegex),
		dueTomorrow:   regexp.MustCompile(dueTomorrowRegex),
		dueNextWeek:   regexp.MustCompile(dueNextWeekRegex),
		clauseSplit:   regexp.MustCompile(`[.!?;\n]+`),
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func compilePatterns(patterns []Pattern) []*compiledPattern {
	compiled := make([]*compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			// Skip invalid patterns
			continue
		}
		compiled = append(compiled, &compiledPattern{Pattern: p, regex: re})
	}
	return compiled
}

// Extract produces a draft seed from transcript text. Empty or garbled
// text yields a zero-confidence seed with no suggestions; that is not an
// error, the caller falls back to fully manual entry.
func (e *HeuristicEngine) Extract(ctx context.Context, text string, hints *transcribe.Hints) (*Seed, error) {
	text = strings.TrimSpace(text)
	if !hasStructure(text) {
		return &Seed{Confidence: 0}, nil
	}

	seed := &Seed{Description: text}
	suggestions := map[string]Suggestion{}

	// Classification fields. Matches become both seed values (applied in
	// bulk when overall confidence clears the bar) and per-field
	// suggestions (when it does not).
	if match := findBestMatch(e.categories, text); match != nil {
		seed.Category = match.Name
		suggestions[FieldCategory] = Suggestion{
			Field:      FieldCategory,
			Value:      match.Name,
			Confidence: match.Weight,
			Reason:     "keywords in the note indicate a " + match.Name + " activity",
			State:      SuggestionUntouched,
		}
	} else {
		seed.Category = defaultCategory
	}

	if match := findBestMatch(e.activityTypes, text); match != nil {
		seed.ActivityType = match.Name
		suggestions[FieldActivityType] = Suggestion{
			Field:      FieldActivityType,
			Value:      match.Name,
			Confidence: match.Weight,
			Reason:     "wording suggests a " + match.Name,
			State:      SuggestionUntouched,
		}
	} else {
		seed.ActivityType = defaultActivityType
	}

	if match := findBestMatch(e.priorities, text); match != nil {
		seed.Priority = match.Name
		suggestions[FieldPriority] = Suggestion{
			Field:      FieldPriority,
			Value:      match.Name,
			Confidence: match.Weight,
			Reason:     "urgency wording maps to " + match.Name + " priority",
			State:      SuggestionUntouched,
		}
	} else {
		seed.Priority = defaultPriority
		suggestions[FieldPriority] = Suggestion{
			Field:      FieldPriority,
			Value:      defaultPriority,
			Confidence: defaultPriorityConf,
			Reason:     "no urgency wording found, defaulting to medium",
			State:      SuggestionUntouched,
		}
	}

	// Identity and numeric fields ride exclusively on suggestions; the
	// merge policy decides whether they reach the draft.
	if m := e.honorific.FindStringSubmatch(text); m != nil {
		suggestions[FieldCustomerName] = Suggestion{
			Field:      FieldCustomerName,
			Value:      strings.TrimSpace(m[0]),
			Confidence: honorificNameConf,
			Reason:     "name follows an honorific in the note",
			State:      SuggestionUntouched,
		}
	} else if m := e.company.FindStringSubmatch(text); m != nil {
		suggestions[FieldCustomerName] = Suggestion{
			Field:      FieldCustomerName,
			Value:      strings.TrimSpace(m[0]),
			Confidence: companyNameConf,
			Reason:     "company reference found in the note",
			State:      SuggestionUntouched,
		}
	}

	if m := e.email.FindString(text); m != "" {
		suggestions[FieldContactInfo] = Suggestion{
			Field:      FieldContactInfo,
			Value:      m,
			Confidence: emailConf,
			Reason:     "email address found in the note",
			State:      SuggestionUntouched,
		}
	} else if m := e.phone.FindString(text); m != "" {
		suggestions[FieldContactInfo] = Suggestion{
			Field:      FieldContactInfo,
			Value:      m,
			Confidence: phoneConf,
			Reason:     "phone number found in the note",
			State:      SuggestionUntouched,
		}
	}

	if m := e.amount.FindStringSubmatch(text); m != nil {
		suggestions[FieldEstimatedValue] = Suggestion{
			Field:      FieldEstimatedValue,
			Value:      m[1],
			Confidence: amountConf,
			Reason:     "amount with a currency marker found in the note",
			State:      SuggestionUntouched,
		}
	}

	if due, ok := e.dueDate(text); ok {
		suggestions[FieldDueDate] = Suggestion{
			Field:      FieldDueDate,
			Value:      due,
			Confidence: dueDateConf,
			Reason:     "relative date mentioned in the note",
			State:      SuggestionUntouched,
		}
	}

	seed.ActionItems = e.actionItems(text)
	seed.Title = makeTitle(text)
	seed.Tags = makeTags(seed)

	e.applyHints(hints, seed, suggestions)

	seed.Confidence = overallConfidence(suggestions, seed, hints)
	seed.Suggestions = orderedSuggestions(suggestions)

	e.logger.Debug(ctx, "extraction complete",
		zap.Float64("confidence", seed.Confidence),
		zap.Int("suggestions", len(seed.Suggestions)),
		zap.String("category", seed.Category))
	return seed, nil
}

// applyHints folds backend-extracted hints into the candidate set. A hint
// outranks a weaker heuristic suggestion for the same field, never a
// stronger one.
func (e *HeuristicEngine) applyHints(hints *transcribe.Hints, seed *Seed, suggestions map[string]Suggestion) {
	if hints == nil {
		return
	}

	if hints.CustomerInfo != "" {
		if prev, ok := suggestions[FieldCustomerName]; !ok || prev.Confidence < hintConf {
			suggestions[FieldCustomerName] = Suggestion{
				Field:      FieldCustomerName,
				Value:      hints.CustomerInfo,
				Confidence: hintConf,
				Reason:     "transcription backend identified the customer",
				State:      SuggestionUntouched,
			}
		}
	}

	if hints.DealInfo != "" {
		if m := e.amount.FindStringSubmatch(hints.DealInfo); m != nil {
			if prev, ok := suggestions[FieldEstimatedValue]; !ok || prev.Confidence < hintConf {
				suggestions[FieldEstimatedValue] = Suggestion{
					Field:      FieldEstimatedValue,
					Value:      m[1],
					Confidence: hintConf,
					Reason:     "transcription backend identified the deal value",
					State:      SuggestionUntouched,
				}
			}
		}
	}

	for _, item := range hints.ActionItems {
		item = strings.TrimSpace(item)
		if item != "" && !containsString(seed.ActionItems, item) {
			seed.ActionItems = append(seed.ActionItems, item)
		}
	}

	if hints.Summary != "" {
		seed.Title = truncateRunes(hints.Summary, maxTitleRunes)
	}
}

func (e *HeuristicEngine) dueDate(text string) (string, bool) {
	now := e.now()
	switch {
	case e.dueTomorrow.MatchString(text):
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	case e.dueNextWeek.MatchString(text):
		return now.AddDate(0, 0, 7).Format("2006-01-02"), true
	}
	return "", false
}

func (e *HeuristicEngine) actionItems(text string) []string {
	var items []string
	for _, clause := range e.clauseSplit.Split(text, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if e.action.MatchString(clause) {
			items = append(items, clause)
		}
	}
	return items
}

// findBestMatch returns the highest-weight pattern matching the content.
func findBestMatch(patterns []*compiledPattern, content string) *compiledPattern {
	var best *compiledPattern
	var bestWeight float64
	for _, p := range patterns {
		if p.regex.MatchString(content) && p.Weight > bestWeight {
			best = p
			bestWeight = p.Weight
		}
	}
	return best
}

const maxTitleRunes = 60

func makeTitle(text string) string {
	// First line, first sentence, truncated.
	line := text
	if idx := strings.IndexAny(line, "\n.!?"); idx > 0 {
		line = line[:idx]
	}
	return truncateRunes(strings.TrimSpace(line), maxTitleRunes)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func makeTags(seed *Seed) []string {
	tags := []string{seed.Category, seed.ActivityType}
	if seed.Priority == "high" {
		tags = append(tags, "urgent")
	}
	return tags
}

// overallConfidence combines independent extraction signals. Each signal
// adds a fixed contribution on top of a base so more structure never
// lowers the overall score. Capped below 1 because heuristics are never
// certain.
func overallConfidence(suggestions map[string]Suggestion, seed *Seed, hints *transcribe.Hints) float64 {
	conf := 0.25
	if _, ok := suggestions[FieldCategory]; ok {
		conf += 0.15
	}
	if _, ok := suggestions[FieldActivityType]; ok {
		conf += 0.10
	}
	if _, ok := suggestions[FieldCustomerName]; ok {
		conf += 0.15
	}
	if _, ok := suggestions[FieldEstimatedValue]; ok {
		conf += 0.10
	}
	if _, ok := suggestions[FieldContactInfo]; ok {
		conf += 0.05
	}
	if _, ok := suggestions[FieldDueDate]; ok {
		conf += 0.05
	}
	if len(seed.ActionItems) > 0 {
		conf += 0.05
	}
	if hints != nil {
		conf += 0.05
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

// suggestionOrder fixes the output ordering so runs are reproducible.
var suggestionOrder = []string{
	FieldCustomerName,
	FieldContactInfo,
	FieldEstimatedValue,
	FieldPriority,
	FieldCategory,
	FieldActivityType,
	FieldDueDate,
}

func orderedSuggestions(suggestions map[string]Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(suggestions))
	for _, field := range suggestionOrder {
		if s, ok := suggestions[field]; ok {
			out = append(out, s)
		}
	}
	return out
}

// hasStructure reports whether the text contains at least one letter or
// digit, i.e. whether extraction has anything to work with.
func hasStructure(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var _ Provider = (*HeuristicEngine)(nil)
