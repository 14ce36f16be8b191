package ai

import (
	"fmt"
	"strings"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

// Russian field names used inside prompts.
var fieldTitles = map[conversation.FieldKey]string{
	conversation.FieldName:    "имя",
	conversation.FieldCity:    "город",
	conversation.FieldAddress: "адрес",
}

// extractionSystemPrompt instructs the model to answer with nothing but the
// delivery-detail tags it can confidently assert from the transcript.
func extractionSystemPrompt(known map[conversation.FieldKey]string) string {
	var b strings.Builder
	b.WriteString("Ты - помощник, созданный для извлечения информации о пользователе. ")
	b.WriteString("Извлеки имя пользователя, город и адрес, если они присутствуют в сообщении или контексте. ")

	if parts := knownFieldLines(known); len(parts) > 0 {
		b.WriteString("Уже известная информация: ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(". Не нужно извлекать уже известные поля, если они не изменились. ")
	}

	b.WriteString("Если ты определил какие-либо из этих данных, добавь их в свой ответ в виде xml-тегов:\n")
	b.WriteString("<user_name>Имя</user_name>\n")
	b.WriteString("<user_city>Город</user_city>\n")
	b.WriteString("<user_address>Адрес</user_address>\n\n")
	b.WriteString("Включай теги ТОЛЬКО для той информации, которую можешь уверенно извлечь. ")
	b.WriteString("Если какой-либо информации нет или она неоднозначна, не включай соответствующий тег. ")
	b.WriteString("В твоем ответе должны быть только xml-теги и только те, что были написаны в списке выше. ")
	b.WriteString("Это сообщение предназначено для парсинга программой, поэтому твой ответ должен быть в формате xml.")
	return b.String()
}

// responderSystemPrompt sets up the shop-assistant persona and steers the
// model toward the still-missing delivery details.
func responderSystemPrompt(missing []conversation.FieldKey, known map[conversation.FieldKey]string) string {
	missingParts := make([]string, 0, len(missing))
	for _, key := range missing {
		missingParts = append(missingParts, fieldTitles[key])
	}

	knownLine := "пока ничего"
	if parts := knownFieldLines(known); len(parts) > 0 {
		knownLine = strings.Join(parts, ", ")
	}

	var b strings.Builder
	b.WriteString("Ты - дружелюбный помощник компании по доставке мороженого. ")
	fmt.Fprintf(&b, "Недостающие данные для оформления заказа: %s. ", strings.Join(missingParts, ", "))
	fmt.Fprintf(&b, "Уже заполненные данные: %s. ", knownLine)
	b.WriteString("У тебя две задачи:\n")
	b.WriteString("1. Ответить на вопросы пользователя вежливо и информативно.\n")
	b.WriteString("2. Направить диалог в сторону получения недостающих данных для заказа. Нужно, чтобы пользователь предоставил недостающие данные.\n\n")
	b.WriteString("Если пользователь задает вопрос вместо предоставления информации, отвечай на его вопрос дружелюбно, но постарайся направить разговор в сторону получения недостающих данных. ")
	b.WriteString("Наша компания занимается доставкой мороженого посылками. Мы отправляем мороженое с северного полюса. Пользователь заказал 10 коробок эскимо. ")
	b.WriteString("Если доставка будет долгой, то нужно предупредить пользователя, что мороженое может растаять. ")
	b.WriteString("Отвечай так, будто ты живой человек, а не бот. Сохраняй непринужденный, разговорный стиль общения, используй эмодзи для оживления диалога. Давай краткие, но дружелюбные ответы. ")
	b.WriteString("Директор завода - Терехов Александр Валерьевич, его почта redmoon.thebest@gmail.com. ")
	b.WriteString("На производстве работают эльфы, в свободное время они играют в шахматы и читают книги.")
	return b.String()
}

func knownFieldLines(known map[conversation.FieldKey]string) []string {
	parts := make([]string, 0, len(known))
	for _, key := range conversation.FieldOrder {
		if value := known[key]; value != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", fieldTitles[key], value))
		}
	}
	return parts
}
