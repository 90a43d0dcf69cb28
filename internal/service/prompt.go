package service

import (
	"strings"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
)

// promptTemplate 是发给补全服务的顾问提示词模板。
// 占位符由用户画像、选中创意和原始问题替换。
const promptTemplate = `
Ты — опытный бизнес-консультант.
Отвечай лаконично и по-делу, только на русском, цифры и примеры приветствуются.

◾ Регион клиента: {region}
◾ Отрасль:        {sector}
◾ Опыт:           {exp}
◾ Цель перехода:  {goal}

💡 Выбранная идея
«{idea_title}» — {idea_descr}

❓ Запрос
{question}

===== Формат ответа (соблюдай строго) =====
1. 🔍 Короткий «диагноз» (1–2 предложения).
2. ✅ 3 быстрых шага (⪅ 40 слов каждый).
3. ⚠️ 2 риска + как их снять.
4. 📈 План на 3 мес: таблица “шаг → метрика”.
5. ⏭ Вопрос клиенту одним предложением (CTA).
=========================================

### Ответ
`

// checklistInstruction 追加在原提示词之后，用于生成行动清单。
const checklistInstruction = "\n\nСформируй чек-лист к плану выше."

// placeholder 是画像字段缺失时的占位符。
const placeholder = "—"

// BuildPrompt 将用户画像、创意卡片和原始问题代入模板。
// 画像字段为空时替换为占位符。
func BuildPrompt(user *model.User, idea *model.TrendingIdea, question string) string {
	replacer := strings.NewReplacer(
		"{region}", orPlaceholder(user.Region),
		"{sector}", orPlaceholder(user.BusinessSector),
		"{exp}", orPlaceholder(user.ExperienceLevel),
		"{goal}", orPlaceholder(user.TransitionGoal),
		"{idea_title}", idea.Title,
		"{idea_descr}", idea.Description,
		"{question}", strings.TrimSpace(question),
	)
	return replacer.Replace(promptTemplate)
}

// BuildChecklistPrompt 在原提示词上下文之后追加固定的清单指令。
func BuildChecklistPrompt(user *model.User, idea *model.TrendingIdea, question string) string {
	return BuildPrompt(user, idea, question) + checklistInstruction
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
