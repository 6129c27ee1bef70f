// Package policy evaluates outbound messages against the sender's
// configured rules before the broker accepts them.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"golang.org/x/exp/slices"

	"github.com/wjayesh/mahilo/core"
)

var tracer = otel.Tracer("policy")

type service struct {
	repository   Repository
	relationship core.RelationshipService
	judge        core.JudgeClient
}

func NewService(repository Repository, relationship core.RelationshipService, judge core.JudgeClient) core.PolicyService {
	return &service{repository, relationship, judge}
}

// Evaluate gathers every policy applicable to the send and checks them in
// priority order, highest first. The first violation wins. A rule set that
// fails to parse is skipped with a warning rather than blocking the send.
func (s *service) Evaluate(ctx context.Context, request core.EvaluationRequest) error {
	ctx, span := tracer.Start(ctx, "Policy.Service.Evaluate")
	defer span.End()

	policies, err := s.gather(ctx, request)
	if err != nil {
		span.RecordError(err)
		return err
	}

	slices.SortStableFunc(policies, func(a, b core.Policy) int {
		return b.Priority - a.Priority
	})

	for _, policy := range policies {
		if !policy.Enabled {
			continue
		}

		switch policy.PolicyType {
		case core.PolicyTypeHeuristic:
			rules, err := parseRuleSet(policy.Content)
			if err != nil {
				slog.WarnContext(ctx, "skipping malformed policy",
					slog.String("policy", policy.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if reason, ok := rules.evaluate(request); !ok {
				return core.NewErrorPolicyRejected(policy.ID, reason)
			}
		case core.PolicyTypeLLM:
			if err := s.judgeMessage(ctx, policy, request); err != nil {
				return err
			}
		default:
			slog.WarnContext(ctx, "skipping policy with unknown type",
				slog.String("policy", policy.ID),
				slog.String("type", policy.PolicyType),
			)
		}
	}

	return nil
}

// gather collects policies in scope order: the sender's globals, then
// group policies, then user-scoped policies targeting the recipient, then
// role-scoped policies for roles the sender assigned the recipient.
func (s *service) gather(ctx context.Context, request core.EvaluationRequest) ([]core.Policy, error) {
	policies, err := s.repository.ListGlobal(ctx, request.SenderID)
	if err != nil {
		return nil, err
	}

	if request.GroupID != "" {
		groupPolicies, err := s.repository.ListForGroup(ctx, request.GroupID)
		if err != nil {
			return nil, err
		}
		policies = append(policies, groupPolicies...)
	}

	if request.RecipientID != "" {
		userPolicies, err := s.repository.ListForRecipient(ctx, request.SenderID, request.RecipientID)
		if err != nil {
			return nil, err
		}
		policies = append(policies, userPolicies...)

		roles, err := s.relationship.RolesFor(ctx, request.SenderID, request.RecipientID)
		if err != nil {
			return nil, err
		}
		rolePolicies, err := s.repository.ListForRoles(ctx, request.SenderID, roles)
		if err != nil {
			return nil, err
		}
		policies = append(policies, rolePolicies...)
	}

	return policies, nil
}

// judgeMessage asks the llm judge for a verdict. Any failure to obtain or
// parse a verdict passes the message; only an explicit FAIL rejects.
func (s *service) judgeMessage(ctx context.Context, policy core.Policy, request core.EvaluationRequest) error {
	ctx, span := tracer.Start(ctx, "Policy.Service.JudgeMessage")
	defer span.End()

	prompt := buildJudgePrompt(policy.Content, request)

	completion, err := s.judge.Judge(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "judge unavailable, passing message",
			slog.String("policy", policy.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	verdict, reason := parseVerdict(completion)
	switch verdict {
	case "FAIL":
		return core.NewErrorPolicyRejected(policy.ID, reason)
	case "PASS":
		return nil
	default:
		slog.WarnContext(ctx, "judge verdict unparseable, passing message",
			slog.String("policy", policy.ID),
		)
		return nil
	}
}

func buildJudgePrompt(instruction string, request core.EvaluationRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a message policy judge. Apply the following policy to the message below.\n")
	sb.WriteString("Reply with PASS or FAIL on the first line. If FAIL, give a short reason on the second line.\n\n")
	sb.WriteString("Policy:\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nSender: ")
	sb.WriteString(request.SenderID)
	sb.WriteString("\nRecipient: ")
	sb.WriteString(request.RecipientID)
	if request.Context != "" {
		sb.WriteString("\nContext: ")
		sb.WriteString(request.Context)
	}
	sb.WriteString("\n\nMessage:\n")
	sb.WriteString(request.Message)
	return sb.String()
}

func parseVerdict(completion string) (string, string) {
	lines := strings.SplitN(strings.TrimSpace(completion), "\n", 2)
	verdict := strings.ToUpper(strings.TrimSpace(lines[0]))

	reason := "rejected by llm policy"
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		reason = strings.TrimSpace(lines[1])
	}

	return verdict, reason
}

// Upsert validates content before persisting. Heuristic rule sets are
// rejected here if they carry unknown fields or bad patterns, so the
// evaluation path never has to guess.
func (s *service) Upsert(ctx context.Context, policy core.Policy) (core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Service.Upsert")
	defer span.End()

	if err := ValidateContent(policy.PolicyType, policy.Content); err != nil {
		span.RecordError(err)
		return core.Policy{}, err
	}

	switch policy.Scope {
	case core.PolicyScopeGlobal:
	case core.PolicyScopeUser, core.PolicyScopeRole, core.PolicyScopeGroup:
		if policy.TargetID == nil || *policy.TargetID == "" {
			return core.Policy{}, fmt.Errorf("scope %q requires a target", policy.Scope)
		}
	default:
		return core.Policy{}, fmt.Errorf("unknown policy scope %q", policy.Scope)
	}

	if policy.ID == "" {
		policy.ID = xid.New().String()
	} else {
		existing, err := s.repository.Get(ctx, policy.ID)
		if err == nil && existing.Owner != policy.Owner {
			return core.Policy{}, core.NewErrorPermissionDenied()
		}
	}

	return s.repository.Upsert(ctx, policy)
}

func (s *service) ListByOwner(ctx context.Context, owner string) ([]core.Policy, error) {
	ctx, span := tracer.Start(ctx, "Policy.Service.ListByOwner")
	defer span.End()

	return s.repository.ListByOwner(ctx, owner)
}

func (s *service) Delete(ctx context.Context, id, owner string) error {
	ctx, span := tracer.Start(ctx, "Policy.Service.Delete")
	defer span.End()

	policy, err := s.repository.Get(ctx, id)
	if err != nil {
		return err
	}

	if policy.Owner != owner {
		return core.NewErrorPermissionDenied()
	}

	return s.repository.Delete(ctx, id)
}
