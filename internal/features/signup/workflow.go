// Package signup defines the membership signup workflow: a two-step
// sequence that waits for the user's confirmation, then for an account
// name, and persists the membership record on completion.
package signup

import (
	"context"
	"encoding/json"

	"line-membership-bot/internal/features/member/models"
	"line-membership-bot/internal/features/member/repository"
	"line-membership-bot/internal/orchestration"
	"line-membership-bot/internal/platform/line"
)

const (
	// WorkflowName keys signup instances in the orchestration engine.
	WorkflowName = "SignUpOrchestrator"

	// EventStartSignUp confirms the signup and moves the workflow to the
	// account-name step. Carries no payload.
	EventStartSignUp = "StartSignUpEvent"

	// EventAccountName carries the chosen account name and the reply
	// token of the message that carried it.
	EventAccountName = "AccountNameEvent"

	stepAwaitingConfirmation = "awaiting_confirmation"
	stepAwaitingAccountName  = "awaiting_account_name"
)

const replyRegistered = "会員登録が完了しました。"

// AccountNamePayload is the EventAccountName payload.
type AccountNamePayload struct {
	LineUserID  string `json:"lineUserId"`
	AccountName string `json:"accountName"`
	ReplyToken  string `json:"replyToken"`
}

// NewWorkflow builds the signup workflow definition. The completion reply
// is sent from here, not from the event router: the step that writes the
// record owns the feedback for it.
func NewWorkflow(members repository.MemberRepository, replier line.Replier) *orchestration.Definition {
	return orchestration.MustDefinition(WorkflowName,
		orchestration.Step{
			Name:  stepAwaitingConfirmation,
			Event: EventStartSignUp,
			Handler: func(_ context.Context, _ *orchestration.Instance, _ []byte) (string, error) {
				return stepAwaitingAccountName, nil
			},
		},
		orchestration.Step{
			Name:  stepAwaitingAccountName,
			Event: EventAccountName,
			Handler: func(ctx context.Context, _ *orchestration.Instance, data []byte) (string, error) {
				var payload AccountNamePayload
				if err := json.Unmarshal(data, &payload); err != nil {
					return "", err
				}

				record := &models.Member{
					LineUserID:  payload.LineUserID,
					AccountName: payload.AccountName,
				}
				if err := members.Create(ctx, record); err != nil {
					return "", err
				}

				if err := replier.ReplyText(ctx, payload.ReplyToken, replyRegistered); err != nil {
					return "", err
				}
				return "", nil
			},
		},
	)
}
