package memento

import (
	"regexp"
	"strings"
	"time"
)

// heuristicExtractor pulls people, topics, commitments, events, and
// sensitivities out of memory text with keyword and pattern heuristics —
// zero-cost, no network call. Mirrors the teacher's HeuristicClassifier
// shape (classify.go): keyword scoring first, LLM only for the cases this
// can't resolve. Implements EntityExtractor.
type heuristicExtractor struct{}

func newHeuristicExtractor() *heuristicExtractor {
	return &heuristicExtractor{}
}

var capitalizedWordRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)?\b`)

var commonCapitalizedWords = map[string]bool{
	"I": true, "The": true, "A": true, "An": true, "Monday": true, "Tuesday": true,
	"Wednesday": true, "Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
	"January": true, "February": true, "March": true, "April": true, "May": true, "June": true,
	"July": true, "August": true, "September": true, "October": true, "November": true, "December": true,
}

var commitmentCues = []string{
	"will ", "promised", "need to", "have to", "going to", "plan to", "owe",
	"said they would", "said he would", "said she would", "agreed to", "by next",
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

var sensitivityLexicon = []string{
	"diagnosed", "therapy", "divorce", "lawsuit", "fired", "laid off", "bankruptcy",
	"medical", "surgery", "affair", "custody", "debt", "addiction", "relapse",
}

var topicCues = []string{"about ", "regarding ", "working on ", "into "}

// Extract implements EntityExtractor.
func (h *heuristicExtractor) Extract(content string) ExtractedFeatures {
	return ExtractedFeatures{
		People:        extractPeople(content),
		Topics:        extractTopics(content),
		Commitments:   extractCommitments(content),
		Events:        extractEvents(content),
		Sensitivities: extractSensitivities(content),
	}
}

func extractPeople(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range capitalizedWordRe.FindAllString(content, -1) {
		if commonCapitalizedWords[m] || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func extractTopics(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, cue := range topicCues {
		idx := strings.Index(lower, cue)
		if idx < 0 {
			continue
		}
		rest := content[idx+len(cue):]
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		topic := strings.Trim(fields[0], ".,!?;:\"'()")
		if topic != "" {
			out = append(out, topic)
		}
	}
	return out
}

func extractCommitments(content string) []Commitment {
	lower := strings.ToLower(content)
	var out []Commitment
	for _, cue := range commitmentCues {
		if !strings.Contains(lower, cue) {
			continue
		}
		owner := OwnerSelf
		if strings.Contains(lower, "they ") || strings.Contains(lower, "he ") || strings.Contains(lower, "she ") {
			owner = OwnerThem
		}
		c := Commitment{
			Text:     strings.TrimSpace(content),
			Owner:    owner,
			LoopType: "commitment",
		}
		if people := extractPeople(content); len(people) > 0 {
			c.OtherParty = people[0]
		}
		c.DueDate = resolveDueDate(content, time.Now())
		out = append(out, c)
		break // one commitment per memory at the heuristic tier
	}
	return out
}

// resolveDueDate reads relative date cues ("by Friday", "next week", "tomorrow")
// out of content and resolves them against now into a concrete deadline.
func resolveDueDate(content string, now time.Time) *time.Time {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "tomorrow"):
		d := now.AddDate(0, 0, 1)
		return &d
	case strings.Contains(lower, "this weekend"):
		d := nextWeekday(now, time.Saturday)
		return &d
	case strings.Contains(lower, "next week"):
		d := now.AddDate(0, 0, 7)
		return &d
	case strings.Contains(lower, "next month"):
		d := now.AddDate(0, 1, 0)
		return &d
	}
	for name, wd := range weekdayNames {
		if strings.Contains(lower, "by "+name) || strings.Contains(lower, "on "+name) || strings.Contains(lower, "next "+name) {
			d := nextWeekday(now, wd)
			return &d
		}
	}
	return nil
}

// nextWeekday returns the next occurrence of target strictly after from.
func nextWeekday(from time.Time, target time.Weekday) time.Time {
	days := (int(target) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return from.AddDate(0, 0, days)
}

var dateCueRe = regexp.MustCompile(`(?i)\b(next week|next month|tomorrow|this weekend|on (monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`)

func extractEvents(content string) []TimelineFact {
	if !dateCueRe.MatchString(content) {
		return nil
	}
	return []TimelineFact{{
		Description: strings.TrimSpace(content),
		EventDate:   time.Now(),
		Category:    "mentioned",
	}}
}

func extractSensitivities(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, s := range sensitivityLexicon {
		if strings.Contains(lower, s) {
			out = append(out, s)
		}
	}
	return out
}
