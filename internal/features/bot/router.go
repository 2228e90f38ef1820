// Package bot routes inbound chat events: for each event it reads the
// user's orchestration status and either starts a signup workflow,
// forwards collected input into it, cancels it, updates membership
// records, or replies conversationally.
package bot

import (
	"context"

	"line-membership-bot/internal/common/logger"
	"line-membership-bot/internal/features/member/repository"
	"line-membership-bot/internal/features/signup"
	"line-membership-bot/internal/orchestration"
	"line-membership-bot/internal/platform/line"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

const (
	keywordSignUp   = "会員登録"
	keywordWithdraw = "退会"

	postbackSignUp           = "signup"
	postbackSignUpCancel     = "signup_cancel"
	postbackRegisteredMember = "registered_member"

	terminateReasonCanceled = "User Canceled"

	replyAlreadyRegistered = "すでに会員登録されています。"
	replyConfirmSignUp     = "会員登録を行います。よろしいですか？"
	replySendAccountName   = "会員名を送信してください。"
	replySignUpCanceled    = "会員登録をキャンセルしました。"
	replyWithdrawn         = "退会しました。"
	replyShowCard          = "会員証を提示してください！"
)

// OrchestrationClient is the subset of the engine the router drives.
type OrchestrationClient interface {
	GetStatus(ctx context.Context, userID string) (*orchestration.Instance, error)
	StartNew(ctx context.Context, workflow, userID string) (*orchestration.Instance, error)
	RaiseEvent(ctx context.Context, userID, eventName string, payload any) error
	Terminate(ctx context.Context, userID, reason string) error
}

// Router applies the event decision policy. It holds no per-user state:
// orchestration status is re-read for every text message.
type Router struct {
	orch    OrchestrationClient
	members repository.MemberRepository
	replier line.Replier
}

func NewRouter(orch OrchestrationClient, members repository.MemberRepository, replier line.Replier) *Router {
	return &Router{
		orch:    orch,
		members: members,
		replier: replier,
	}
}

// Handle processes one inbound event, issuing at most one reply.
// Event types other than message and postback are ignored without
// touching any gateway.
func (r *Router) Handle(ctx context.Context, event *linebot.Event) error {
	if event.Source == nil || event.Source.UserID == "" {
		return nil
	}

	switch event.Type {
	case linebot.EventTypeMessage:
		message, ok := event.Message.(*linebot.TextMessage)
		if !ok {
			return nil
		}
		return r.handleText(ctx, event, message.Text)
	case linebot.EventTypePostback:
		return r.handlePostback(ctx, event)
	default:
		return nil
	}
}

// handleText applies the text rules in order. The mid-signup check comes
// before the withdraw keyword on purpose: a user who types 退会 while the
// workflow waits for an account name is forwarding an (invalid) account
// name, not withdrawing.
func (r *Router) handleText(ctx context.Context, event *linebot.Event, text string) error {
	userID := event.Source.UserID

	status, err := r.orch.GetStatus(ctx, userID)
	if err != nil {
		return err
	}

	switch {
	case text == keywordSignUp:
		return r.startSignUp(ctx, event, userID)

	case status != nil && status.RuntimeStatus.Active():
		// The workflow owns the reply for this step, so none is sent here.
		return r.orch.RaiseEvent(ctx, userID, signup.EventAccountName, signup.AccountNamePayload{
			LineUserID:  userID,
			AccountName: text,
			ReplyToken:  event.ReplyToken,
		})

	case text == keywordWithdraw:
		return r.withdraw(ctx, event, userID)

	default:
		// Echo anything else back verbatim.
		return r.replier.ReplyText(ctx, event.ReplyToken, text)
	}
}

func (r *Router) startSignUp(ctx context.Context, event *linebot.Event, userID string) error {
	records, err := r.members.FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		return r.replier.ReplyText(ctx, event.ReplyToken, replyAlreadyRegistered)
	}

	if _, err := r.orch.StartNew(ctx, signup.WorkflowName, userID); err != nil {
		return err
	}

	items := linebot.NewQuickReplyItems(
		linebot.NewQuickReplyButton("", &linebot.PostbackAction{
			Label:       "Yes",
			Data:        postbackSignUp,
			DisplayText: "はい",
		}),
		linebot.NewQuickReplyButton("", &linebot.PostbackAction{
			Label: "No",
			Data:  postbackSignUpCancel,
			Text:  "いいえ",
		}),
	)
	return r.replier.ReplyTextWithQuickReply(ctx, event.ReplyToken, replyConfirmSignUp, items)
}

// withdraw soft-deletes every record for the user, deleted or not, and
// confirms once regardless of how many there were.
func (r *Router) withdraw(ctx context.Context, event *linebot.Event, userID string) error {
	records, err := r.members.FindAllByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, record := range records {
		if _, err := r.members.SoftDelete(ctx, record); err != nil {
			return err
		}
	}

	logger.Info().
		Str("user_id", userID).
		Int("records", len(records)).
		Msg("Membership withdrawn")
	return r.replier.ReplyText(ctx, event.ReplyToken, replyWithdrawn)
}

func (r *Router) handlePostback(ctx context.Context, event *linebot.Event) error {
	userID := event.Source.UserID

	switch event.Postback.Data {
	case postbackSignUp:
		if err := r.orch.RaiseEvent(ctx, userID, signup.EventStartSignUp, nil); err != nil {
			return err
		}
		return r.replier.ReplyText(ctx, event.ReplyToken, replySendAccountName)

	case postbackSignUpCancel:
		if err := r.orch.Terminate(ctx, userID, terminateReasonCanceled); err != nil {
			return err
		}
		return r.replier.ReplyText(ctx, event.ReplyToken, replySignUpCanceled)

	case postbackRegisteredMember:
		return r.replier.ReplyText(ctx, event.ReplyToken, replyShowCard)

	default:
		return nil
	}
}
