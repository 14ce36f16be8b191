package collect

import (
	"fmt"

	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

// GenericFailureMessage is shown to users when a request cannot be served.
const GenericFailureMessage = "Ой, на сервере произошла ошибка... Напишите нам в поддержку на redmoon.thebest@gmail.com"

const welcomeMessage = "Привет! 👋 Спасибо за заказ в нашем магазине мороженого! 🍦\n\n" +
	"Меня зовут Мороженка, и я помогу вам оформить доставку самого вкусного мороженого до вашей двери! ❄️\n\n" +
	"Чтобы отправить вам заказ, мне нужно знать:\n" +
	"1. Ваше имя 📝\n" +
	"2. Город доставки 🏙️\n" +
	"3. Адрес доставки 🏠\n\n" +
	"Пожалуйста, напишите эту информацию в любой удобной форме. Также я с радостью отвечу на любые вопросы о доставке или нашем мороженом! 😊\n\n" +
	"P.S. Обратите внимание, что мы отправляем мороженое в специальной термоупаковке, но всё же есть небольшой риск, что оно может немного подтаять при доставке в жаркую погоду. Но не переживайте, вкус от этого не пострадает! 🌡️"

const restartNotice = "Перезапускаем бота... 🔄\n\n" +
	"Все данные сброшены! Давайте начнем оформление заказа на мороженое заново! 🍦❄️"

const apologyMessage = "Извините, произошла ошибка при обработке вашего сообщения. Пожалуйста, повторите попытку позже."

func completionMessage(fields conversation.FieldSet) string {
	return fmt.Sprintf("Отлично! 🎉 Спасибо за предоставленную информацию, %s!\n\n"+
		"Ваш заказ будет доставлен по адресу:\n"+
		"🏙️ Город: %s\n"+
		"🏠 Адрес: %s\n\n"+
		"Мы уже начали готовить ваше мороженое к отправке! Оно будет упаковано в специальный термоконтейнер, чтобы минимизировать риск таяния. ❄️\n\n"+
		"Если у вас возникнут вопросы о статусе заказа, пожалуйста, используйте команду /restart, чтобы начать новый диалог с нами.\n\n"+
		"Спасибо за выбор нашего мороженого! 🍦",
		fields.Name, fields.City, fields.Address)
}

func cancelMessage(displayName string) string {
	if displayName != "" {
		return fmt.Sprintf("Жаль, %s, что вы решили отменить оформление заказа на мороженое! 🍦\n\n"+
			"Мы удалили ваши данные из системы.\n\n"+
			"Если захотите вернуться и заказать наше восхитительное мороженое, просто напишите /start, и я с радостью помогу вам! ❄️", displayName)
	}
	return "Жаль, что вы решили отменить оформление заказа на мороженое! 🍦\n\n" +
		"Мы удалили ваши данные из системы.\n\n" +
		"Если захотите вернуться и заказать наше восхитительное мороженое, просто напишите /start, и я с радостью помогу вам! ❄️"
}
