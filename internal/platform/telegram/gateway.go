package telegram

import (
	"fmt"
	"log"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChannelInfo is the subset of chat metadata the marketplace needs.
type ChannelInfo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"member_count"`
}

// Gateway wraps the Bot API for notifications, invoices and channel lookups.
type Gateway struct {
	bot    *tgbotapi.BotAPI
	logger *log.Logger
}

func NewGateway(botToken string) (*Gateway, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	return &Gateway{
		bot:    bot,
		logger: log.New(os.Stdout, "[TelegramGateway] ", log.LstdFlags),
	}, nil
}

// SendText sends an HTML-formatted message and returns the message ID.
func (g *Gateway) SendText(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := g.bot.Send(msg)
	if err != nil {
		g.logger.Printf("Failed to send message to chat %d: %v", chatID, err)
		return 0, err
	}
	return sent.MessageID, nil
}

// SendTextWithButton sends an HTML message with a single inline URL button.
func (g *Gateway) SendTextWithButton(chatID int64, text, buttonText, buttonURL string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(buttonText, buttonURL),
		),
	)

	sent, err := g.bot.Send(msg)
	if err != nil {
		g.logger.Printf("Failed to send message with button to chat %d: %v", chatID, err)
		return 0, err
	}
	return sent.MessageID, nil
}

// SendPhoto sends a photo by URL with an optional caption.
func (g *Gateway) SendPhoto(chatID int64, photoURL, caption string) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML

	sent, err := g.bot.Send(photo)
	if err != nil {
		g.logger.Printf("Failed to send photo to chat %d: %v", chatID, err)
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *Gateway) DeleteMessage(chatID int64, messageID int) error {
	if _, err := g.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		g.logger.Printf("Failed to delete message %d in chat %d: %v", messageID, chatID, err)
		return err
	}
	return nil
}

// SendStarsInvoice sends a Telegram Stars invoice. The payload travels back in
// successful_payment and carries our transaction ID. Stars invoices use the
// XTR currency and an empty provider token.
func (g *Gateway) SendStarsInvoice(chatID int64, title, description, payload string, starsAmount int) (int, error) {
	invoice := tgbotapi.NewInvoice(
		chatID,
		title,
		description,
		payload,
		"", // provider token is empty for Stars
		"",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: title, Amount: starsAmount}},
	)
	invoice.SuggestedTipAmounts = []int{}

	sent, err := g.bot.Send(invoice)
	if err != nil {
		g.logger.Printf("Failed to send invoice to chat %d: %v", chatID, err)
		return 0, err
	}
	return sent.MessageID, nil
}

// AnswerPreCheckout confirms a pre-checkout query so the payment proceeds.
func (g *Gateway) AnswerPreCheckout(queryID string, ok bool, errorMessage string) error {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	}
	if _, err := g.bot.Request(cfg); err != nil {
		g.logger.Printf("Failed to answer pre-checkout query %s: %v", queryID, err)
		return err
	}
	return nil
}

// GetChannelInfo resolves a channel by @username or numeric ID and returns its
// metadata together with the subscriber count.
func (g *Gateway) GetChannelInfo(identifier string) (*ChannelInfo, error) {
	chatConfig := g.chatConfig(identifier)

	chat, err := g.bot.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatConfig})
	if err != nil {
		g.logger.Printf("Failed to get chat %s: %v", identifier, err)
		return nil, fmt.Errorf("failed to get chat info: %w", err)
	}

	count, err := g.bot.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{ChatConfig: chatConfig})
	if err != nil {
		g.logger.Printf("Failed to get member count for %s: %v", identifier, err)
		count = 0
	}

	return &ChannelInfo{
		ID:          chat.ID,
		Title:       chat.Title,
		Username:    chat.UserName,
		Description: chat.Description,
		MemberCount: count,
	}, nil
}

// IsChannelMember reports whether the user currently belongs to the channel.
func (g *Gateway) IsChannelMember(identifier string, userID int64) (bool, error) {
	chatConfig := g.chatConfig(identifier)

	member, err := g.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chatConfig.ChatID,
			SuperGroupUsername: chatConfig.SuperGroupUsername,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}

	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	}
	return false, nil
}

func (g *Gateway) chatConfig(identifier string) tgbotapi.ChatConfig {
	if strings.HasPrefix(identifier, "@") {
		return tgbotapi.ChatConfig{SuperGroupUsername: identifier}
	}
	if strings.HasPrefix(identifier, "-") {
		var id int64
		fmt.Sscanf(identifier, "%d", &id)
		return tgbotapi.ChatConfig{ChatID: id}
	}
	return tgbotapi.ChatConfig{SuperGroupUsername: "@" + identifier}
}
