package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wjayesh/mahilo/core"
)

// RuleSet is the closed set of recognized heuristic rules. Policy content
// is validated against it at write time; unknown fields are a validation
// error, not a runtime skip.
type RuleSet struct {
	MaxLength         *int     `json:"maxLength,omitempty"`
	MinLength         *int     `json:"minLength,omitempty"`
	BlockedPatterns   []string `json:"blockedPatterns,omitempty"`
	RequiredPatterns  []string `json:"requiredPatterns,omitempty"`
	RequireContext    bool     `json:"requireContext,omitempty"`
	BlockedRecipients []string `json:"blockedRecipients,omitempty"`
	TrustedRecipients []string `json:"trustedRecipients,omitempty"`
}

type compiledRuleSet struct {
	RuleSet
	blocked  []*regexp.Regexp
	required []*regexp.Regexp
}

func parseRuleSet(content string) (*compiledRuleSet, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(content)))
	decoder.DisallowUnknownFields()

	var rules RuleSet
	if err := decoder.Decode(&rules); err != nil {
		return nil, err
	}

	compiled := &compiledRuleSet{RuleSet: rules}
	for _, pattern := range rules.BlockedPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked pattern %q: %w", pattern, err)
		}
		compiled.blocked = append(compiled.blocked, re)
	}
	for _, pattern := range rules.RequiredPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid required pattern %q: %w", pattern, err)
		}
		compiled.required = append(compiled.required, re)
	}

	return compiled, nil
}

// evaluate checks rules in fixed order and returns the first violation.
func (r *compiledRuleSet) evaluate(request core.EvaluationRequest) (string, bool) {
	if r.MaxLength != nil && len(request.Message) > *r.MaxLength {
		return fmt.Sprintf("message exceeds maximum length of %d", *r.MaxLength), false
	}
	if r.MinLength != nil && len(request.Message) < *r.MinLength {
		return fmt.Sprintf("message shorter than minimum length of %d", *r.MinLength), false
	}
	for _, re := range r.blocked {
		if re.MatchString(request.Message) {
			return fmt.Sprintf("message matches blocked pattern %q", re.String()), false
		}
	}
	for _, re := range r.required {
		if !re.MatchString(request.Message) {
			return fmt.Sprintf("message missing required pattern %q", re.String()), false
		}
	}
	if r.RequireContext && request.Context == "" {
		return "context required but not supplied", false
	}
	for _, blocked := range r.BlockedRecipients {
		if blocked == request.RecipientID {
			return fmt.Sprintf("recipient %s is blocked", request.RecipientID), false
		}
	}
	if len(r.TrustedRecipients) > 0 {
		trusted := false
		for _, t := range r.TrustedRecipients {
			if t == request.RecipientID {
				trusted = true
				break
			}
		}
		if !trusted {
			return fmt.Sprintf("recipient %s is not in trusted list", request.RecipientID), false
		}
	}
	return "", true
}

// ValidateContent checks policy content at write time.
func ValidateContent(policyType, content string) error {
	switch policyType {
	case core.PolicyTypeHeuristic:
		_, err := parseRuleSet(content)
		return err
	case core.PolicyTypeLLM:
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("llm policy content must be a non-empty prompt")
		}
		return nil
	default:
		return fmt.Errorf("unknown policy type %q", policyType)
	}
}
