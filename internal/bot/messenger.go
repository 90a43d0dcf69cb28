package bot

import (
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot 同时充当 service 层的出站信使。
var _ service.Messenger = (*Bot)(nil)

// Reply 发送一条消息并返回消息 ID，供之后编辑。
func (b *Bot) Reply(chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit 将已发送的消息改写为新文本。
func (b *Bot) Edit(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := b.api.Send(edit)
	return err
}

// EditWithActions 改写消息并附带三个固定动作按钮。
func (b *Bot) EditWithActions(chatID int64, messageID int, text, sessionID string) error {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 Чек-лист", "todo:"+sessionID),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Другая идея", "new_idea"),
			tgbotapi.NewInlineKeyboardButtonData("⭐ Оценить", "rate:"+sessionID),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	_, err := b.api.Send(edit)
	return err
}
