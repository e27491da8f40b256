package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	_ "embed"

	"github.com/fadilmartias/interview-evaluator/internal/config"
	"github.com/tidwall/gjson"
)

//go:embed prompt.md
var promptTemplate string

func buildPrompt(transcript, candidateName string, rubric []config.RubricCriterion) string {
	var rubricList strings.Builder
	for _, c := range rubric {
		rubricList.WriteString("- ")
		rubricList.WriteString(c.Name)
		if c.Description != "" {
			rubricList.WriteString(": ")
			rubricList.WriteString(c.Description)
		}
		rubricList.WriteString("\n")
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{CANDIDATE_NAME}}", candidateName)
	prompt = strings.ReplaceAll(prompt, "{{RUBRIC}}", strings.TrimSpace(rubricList.String()))
	prompt = strings.ReplaceAll(prompt, "{{TRANSCRIPT}}", transcript)
	return prompt
}

// extractJSON strips markdown code fences the model tends to wrap its JSON
// answer in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

// parseVerdict validates the raw provider text against the verdict schema.
// Any violation returns ErrMalformedVerdict; an unvalidated payload must
// never reach the persistence layer.
func parseVerdict(raw string, rubric []config.RubricCriterion) (*Verdict, error) {
	text := extractJSON(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedVerdict)
	}
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrMalformedVerdict)
	}

	root := gjson.Parse(text)

	summary := strings.TrimSpace(root.Get("summary").String())
	if summary == "" {
		return nil, fmt.Errorf("%w: missing summary", ErrMalformedVerdict)
	}

	allowed := make(map[string]bool, len(rubric))
	for _, c := range rubric {
		allowed[c.Name] = true
	}

	criteriaJSON := root.Get("criteria")
	if !criteriaJSON.IsArray() || len(criteriaJSON.Array()) == 0 {
		return nil, fmt.Errorf("%w: missing criteria", ErrMalformedVerdict)
	}

	var criteria []CriterionScore
	seen := make(map[string]bool)
	for _, item := range criteriaJSON.Array() {
		name := strings.TrimSpace(item.Get("name").String())
		if name == "" {
			return nil, fmt.Errorf("%w: criterion without name", ErrMalformedVerdict)
		}
		if !allowed[name] {
			return nil, fmt.Errorf("%w: criterion %q is not in the rubric", ErrMalformedVerdict, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate criterion %q", ErrMalformedVerdict, name)
		}
		seen[name] = true

		scoreJSON := item.Get("score")
		if scoreJSON.Type != gjson.Number {
			return nil, fmt.Errorf("%w: criterion %q score is not numeric", ErrMalformedVerdict, name)
		}
		score := scoreJSON.Float()
		if score < 0 || score > 10 || math.IsNaN(score) {
			return nil, fmt.Errorf("%w: criterion %q score %v out of range [0,10]", ErrMalformedVerdict, name, score)
		}

		criteria = append(criteria, CriterionScore{
			Name:             name,
			Score:            score,
			Justification:    strings.TrimSpace(item.Get("justification").String()),
			SupportingQuotes: stringList(item.Get("supporting_quotes")),
		})
	}

	overall := overallFromCriteria(criteria)
	if supplied := root.Get("overall_score"); supplied.Type == gjson.Number {
		v := supplied.Float()
		if v < 0 || v > 10 {
			return nil, fmt.Errorf("%w: overall score %v out of range [0,10]", ErrMalformedVerdict, v)
		}
		overall = v
	}

	return &Verdict{
		OverallScore: overall,
		Summary:      summary,
		Strengths:    stringList(root.Get("strengths")),
		Weaknesses:   stringList(root.Get("weaknesses")),
		Criteria:     criteria,
	}, nil
}

// overallFromCriteria is the arithmetic mean of the criterion scores,
// rounded to one decimal place. The mean is independent of criterion order.
func overallFromCriteria(criteria []CriterionScore) float64 {
	if len(criteria) == 0 {
		return 0
	}
	scores := make([]float64, 0, len(criteria))
	for _, c := range criteria {
		scores = append(scores, c.Score)
	}
	// Summing in sorted order keeps the mean bit-identical under
	// reordering of the criteria.
	sort.Float64s(scores)
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return math.Round(sum/float64(len(scores))*10) / 10
}

func stringList(result gjson.Result) []string {
	if !result.IsArray() {
		return nil
	}
	var out []string
	for _, item := range result.Array() {
		s := strings.TrimSpace(item.String())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
