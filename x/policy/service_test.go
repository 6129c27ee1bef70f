package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/wjayesh/mahilo/core"
	mock_core "github.com/wjayesh/mahilo/core/mock"
	mock_policy "github.com/wjayesh/mahilo/x/policy/mock"
)

func setupEvaluate(t *testing.T, policies []core.Policy, roles []string) core.PolicyService {
	t.Helper()

	ctrl := gomock.NewController(t)

	var global, group, user, role []core.Policy
	for _, p := range policies {
		switch p.Scope {
		case core.PolicyScopeGlobal:
			global = append(global, p)
		case core.PolicyScopeGroup:
			group = append(group, p)
		case core.PolicyScopeUser:
			user = append(user, p)
		case core.PolicyScopeRole:
			role = append(role, p)
		}
	}

	mockRepo := mock_policy.NewMockRepository(ctrl)
	mockRepo.EXPECT().ListGlobal(gomock.Any(), gomock.Any()).Return(global, nil).AnyTimes()
	mockRepo.EXPECT().ListForGroup(gomock.Any(), gomock.Any()).Return(group, nil).AnyTimes()
	mockRepo.EXPECT().ListForRecipient(gomock.Any(), gomock.Any(), gomock.Any()).Return(user, nil).AnyTimes()
	mockRepo.EXPECT().ListForRoles(gomock.Any(), gomock.Any(), gomock.Any()).Return(role, nil).AnyTimes()

	mockRelationship := mock_core.NewMockRelationshipService(ctrl)
	mockRelationship.EXPECT().RolesFor(gomock.Any(), gomock.Any(), gomock.Any()).Return(roles, nil).AnyTimes()

	return NewService(mockRepo, mockRelationship, &noopJudge{})
}

func TestEvaluateHeuristicRejects(t *testing.T) {
	service := setupEvaluate(t, []core.Policy{
		{
			ID:         "p1",
			Owner:      "alice",
			Scope:      core.PolicyScopeGlobal,
			PolicyType: core.PolicyTypeHeuristic,
			Content:    `{"maxLength": 5}`,
			Enabled:    true,
		},
	}, nil)

	err := service.Evaluate(context.Background(), core.EvaluationRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Message:     "this message is too long",
	})

	var rejected core.ErrorPolicyRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "p1", rejected.PolicyID)
}

func TestEvaluateHigherPriorityWins(t *testing.T) {
	service := setupEvaluate(t, []core.Policy{
		{
			ID:         "low",
			Scope:      core.PolicyScopeGlobal,
			PolicyType: core.PolicyTypeHeuristic,
			Content:    `{"blockedPatterns": ["secret"]}`,
			Priority:   1,
			Enabled:    true,
		},
		{
			ID:         "high",
			Scope:      core.PolicyScopeUser,
			PolicyType: core.PolicyTypeHeuristic,
			Content:    `{"maxLength": 3}`,
			Priority:   10,
			Enabled:    true,
		},
	}, nil)

	err := service.Evaluate(context.Background(), core.EvaluationRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Message:     "secret plans",
	})

	var rejected core.ErrorPolicyRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "high", rejected.PolicyID)
}

func TestEvaluateDisabledPolicySkipped(t *testing.T) {
	service := setupEvaluate(t, []core.Policy{
		{
			ID:         "off",
			Scope:      core.PolicyScopeGlobal,
			PolicyType: core.PolicyTypeHeuristic,
			Content:    `{"maxLength": 1}`,
			Enabled:    false,
		},
	}, nil)

	err := service.Evaluate(context.Background(), core.EvaluationRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Message:     "long enough to trip the disabled rule",
	})
	assert.NoError(t, err)
}

func TestEvaluateMalformedPolicySkipped(t *testing.T) {
	service := setupEvaluate(t, []core.Policy{
		{
			ID:         "broken",
			Scope:      core.PolicyScopeGlobal,
			PolicyType: core.PolicyTypeHeuristic,
			Content:    `not even json`,
			Enabled:    true,
		},
	}, nil)

	err := service.Evaluate(context.Background(), core.EvaluationRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Message:     "hello",
	})
	assert.NoError(t, err)
}

func TestEvaluateRoleScopedPolicy(t *testing.T) {
	service := setupEvaluate(t, []core.Policy{
		{
			ID:         "coworkers-only",
			Scope:      core.PolicyScopeRole,
			PolicyType: core.PolicyTypeHeuristic,
			Content:    `{"blockedPatterns": ["salary"]}`,
			Enabled:    true,
		},
	}, []string{"coworker"})

	err := service.Evaluate(context.Background(), core.EvaluationRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Message:     "what is your salary?",
	})

	var rejected core.ErrorPolicyRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "coworkers-only", rejected.PolicyID)
}

func newLLMService(t *testing.T, judge core.JudgeClient) core.PolicyService {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockRepo := mock_policy.NewMockRepository(ctrl)
	mockRepo.EXPECT().ListGlobal(gomock.Any(), gomock.Any()).Return([]core.Policy{{
		ID:         "llm1",
		Scope:      core.PolicyScopeGlobal,
		PolicyType: core.PolicyTypeLLM,
		Content:    "reject messages about weather",
		Enabled:    true,
	}}, nil)
	mockRepo.EXPECT().ListForRecipient(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	mockRepo.EXPECT().ListForRoles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	mockRelationship := mock_core.NewMockRelationshipService(ctrl)
	mockRelationship.EXPECT().RolesFor(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	return NewService(mockRepo, mockRelationship, judge)
}

func TestEvaluateLLMFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	judge := mock_core.NewMockJudgeClient(ctrl)
	judge.EXPECT().Judge(gomock.Any(), gomock.Any()).Return("FAIL\ntalks about weather", nil)

	service := newLLMService(t, judge)
	err := service.Evaluate(context.Background(), core.EvaluationRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Message:     "nice weather today",
	})

	var rejected core.ErrorPolicyRejected
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "llm1", rejected.PolicyID)
	assert.Equal(t, "talks about weather", rejected.Reason)
}

func TestEvaluateLLMFailsOpen(t *testing.T) {
	tests := []struct {
		name     string
		verdict  string
		judgeErr error
	}{
		{name: "judge error", judgeErr: errors.New("api down")},
		{name: "garbage verdict", verdict: "MAYBE?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			judge := mock_core.NewMockJudgeClient(ctrl)
			judge.EXPECT().Judge(gomock.Any(), gomock.Any()).Return(tt.verdict, tt.judgeErr)

			service := newLLMService(t, judge)
			err := service.Evaluate(context.Background(), core.EvaluationRequest{
				SenderID:    "alice",
				RecipientID: "bob",
				Message:     "hello",
			})
			assert.NoError(t, err)
		})
	}
}

func TestUpsertRejectsUnknownRuleField(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewService(mock_policy.NewMockRepository(ctrl), mock_core.NewMockRelationshipService(ctrl), &noopJudge{})

	_, err := service.Upsert(context.Background(), core.Policy{
		Owner:      "alice",
		Scope:      core.PolicyScopeGlobal,
		PolicyType: core.PolicyTypeHeuristic,
		Content:    `{"maxSize": 10}`,
	})
	assert.Error(t, err)
}

func TestUpsertRequiresTargetForScopedPolicy(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewService(mock_policy.NewMockRepository(ctrl), mock_core.NewMockRelationshipService(ctrl), &noopJudge{})

	_, err := service.Upsert(context.Background(), core.Policy{
		Owner:      "alice",
		Scope:      core.PolicyScopeUser,
		PolicyType: core.PolicyTypeHeuristic,
		Content:    `{"maxLength": 10}`,
	})
	assert.Error(t, err)
}

func TestDeleteRequiresOwnership(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := mock_policy.NewMockRepository(ctrl)
	mockRepo.EXPECT().Get(gomock.Any(), "p1").Return(core.Policy{ID: "p1", Owner: "alice"}, nil)

	service := NewService(mockRepo, mock_core.NewMockRelationshipService(ctrl), &noopJudge{})

	err := service.Delete(context.Background(), "p1", "mallory")
	assert.IsType(t, core.ErrorPermissionDenied{}, err)
}
