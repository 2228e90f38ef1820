// Package line wraps the LINE Messaging API SDK: one client for webhook
// parsing and for sending replies addressed by single-use reply tokens.
package line

import (
	"context"

	apperrors "line-membership-bot/internal/common/errors"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Replier sends at most one reply per reply token.
type Replier interface {
	// ReplyText sends a plain text reply.
	ReplyText(ctx context.Context, replyToken, text string) error

	// ReplyTextWithQuickReply sends a text reply with quick-reply buttons.
	ReplyTextWithQuickReply(ctx context.Context, replyToken, text string, items *linebot.QuickReplyItems) error
}

type Client struct {
	bot *linebot.Client
}

func NewClient(channelSecret, channelAccessToken string) (*Client, error) {
	bot, err := linebot.New(channelSecret, channelAccessToken)
	if err != nil {
		return nil, err
	}
	return &Client{bot: bot}, nil
}

// Bot exposes the underlying SDK client for webhook request parsing.
func (c *Client) Bot() *linebot.Client {
	return c.bot
}

func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	_, err := c.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTransport, "send reply", err)
	}
	return nil
}

func (c *Client) ReplyTextWithQuickReply(ctx context.Context, replyToken, text string, items *linebot.QuickReplyItems) error {
	msg := linebot.NewTextMessage(text).WithQuickReplies(items)
	_, err := c.bot.ReplyMessage(replyToken, msg).WithContext(ctx).Do()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTransport, "send reply", err)
	}
	return nil
}
