// Package bot 实现了 Telegram 长轮询传输层。
// 它只负责路由与收发消息，业务编排全部在 service 层。
package bot

import (
	"context"
	"strings"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/config"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/service"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 固定命令的回复文案。
const (
	msgStart = "👋 <b>Привет!</b>\nОпиши свой бизнес — я подскажу, как адаптировать его под выбранную идею."
	msgHelp  = "ℹ️ Просто отправь краткое описание бизнеса.\nНе выбрал идею? Сделай это на сайте во вкладке «Идеи»."
	// 按「换创意」后的引导：选择在网站上完成，机器人只提示
	msgNewIdea = "🔁 Перейди на сайт и выбери новую идею — я подстроюсь!"
	msgRate    = "Оцени последний ответ:"
)

// Bot 是 Telegram 传输层。每条更新在自己的 goroutine 中处理，
// panic 被全局捕获，轮询错误由底层客户端退避重连，进程不会因此退出。
type Bot struct {
	api       *tgbotapi.BotAPI
	assistant service.AssistantService
}

// New 连接 Telegram 并创建传输层实例。
func New(cfg config.TelegramConfig) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	log.Infof("Telegram 已连接: @%s", api.Self.UserName)
	return &Bot{api: api}, nil
}

// SetAssistant 注入业务服务。
// 传输层与服务互相引用（服务通过 Messenger 发消息），先建传输层再注入。
func (b *Bot) SetAssistant(assistant service.AssistantService) {
	b.assistant = assistant
}

// Run 启动长轮询主循环，直到 ctx 取消。
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	log.Info("Telegram 长轮询已启动")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.safeHandle(ctx, update)
		}
	}
}

// safeHandle 包装单条更新的处理，未捕获的 panic 只记日志。
func (b *Bot) safeHandle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("更新处理发生 panic: %v", r)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.send(msg.Chat.ID, msgStart)
		case "help":
			b.send(msg.Chat.ID, msgHelp)
		}
		return
	}

	from := service.Identity{
		TelegramID: msg.From.ID,
		Handle:     msg.From.UserName,
		ChatID:     msg.Chat.ID,
	}
	b.assistant.Ask(ctx, from, msg.Text)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	// 先应答回调，消除客户端的加载态
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Errorf("应答回调失败: %v", err)
	}
	if cq.Message == nil {
		return
	}

	from := service.Identity{
		TelegramID: cq.From.ID,
		Handle:     cq.From.UserName,
		ChatID:     cq.Message.Chat.ID,
	}

	data := cq.Data
	switch {
	case strings.HasPrefix(data, "todo:"):
		b.assistant.Checklist(ctx, from, strings.TrimPrefix(data, "todo:"))
	case data == "new_idea":
		b.send(from.ChatID, msgNewIdea)
	case strings.HasPrefix(data, "rate:"):
		b.sendRatePrompt(from.ChatID)
	case data == "fb:good":
		b.assistant.RecordFeedback(ctx, from, true)
	case data == "fb:bad":
		b.assistant.RecordFeedback(ctx, from, false)
	}
}

// sendRatePrompt 发送 👍/👎 评价键盘。
func (b *Bot) sendRatePrompt(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, msgRate)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", "fb:good"),
			tgbotapi.NewInlineKeyboardButtonData("👎", "fb:bad"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		log.Errorf("发送评价键盘失败: chatID=%d, err=%v", chatID, err)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Errorf("发送消息失败: chatID=%d, err=%v", chatID, err)
	}
}
