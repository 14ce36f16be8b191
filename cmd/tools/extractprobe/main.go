package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redmoonthebest/morozhenka/backend/internal/config"
	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/ai"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] не удалось загрузить .env, используем системные переменные: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("не удалось загрузить конфигурацию: %v", err)
	}

	if !cfg.AI.Enabled() {
		log.Fatal("LLM не настроен, задайте OPENAI_* или ARK_* переменные окружения")
	}

	mode := flag.String("mode", "", "режим проверки: extract или reply")
	text := flag.String("text", "", "сообщение пользователя")
	name := flag.String("name", "", "уже известное имя")
	city := flag.String("city", "", "уже известный город")
	address := flag.String("address", "", "уже известный адрес")
	timeout := flag.Duration("timeout", 45*time.Second, "таймаут запроса")

	flag.Parse()

	if *mode != "extract" && *mode != "reply" {
		flag.Usage()
		log.Fatal("укажите режим через -mode=extract или -mode=reply")
	}

	if strings.TrimSpace(*text) == "" {
		log.Fatal("укажите сообщение пользователя через -text")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("не удалось инициализировать AI сервис: %v", err)
	}

	known := map[conversation.FieldKey]string{}
	if *name != "" {
		known[conversation.FieldName] = *name
	}
	if *city != "" {
		known[conversation.FieldCity] = *city
	}
	if *address != "" {
		known[conversation.FieldAddress] = *address
	}

	history := []conversation.Message{{Text: *text, Origin: conversation.OriginUser}}

	switch *mode {
	case "extract":
		runExtract(ctx, svc, history, known)
	case "reply":
		runReply(ctx, svc, history, known)
	}
}

func runExtract(ctx context.Context, svc *ai.Service, history []conversation.Message, known map[conversation.FieldKey]string) {
	log.Printf("запускаем извлечение: known=%d", len(known))

	fields, err := svc.ExtractFields(ctx, history, known)
	if err != nil {
		log.Fatalf("извлечение не удалось: %v", err)
	}

	if len(fields) == 0 {
		fmt.Println("ничего не извлечено")
		return
	}
	for _, key := range conversation.FieldOrder {
		if value, ok := fields[key]; ok {
			fmt.Printf("%s: %s\n", key, value)
		}
	}
}

func runReply(ctx context.Context, svc *ai.Service, history []conversation.Message, known map[conversation.FieldKey]string) {
	missing := make([]conversation.FieldKey, 0, len(conversation.FieldOrder))
	for _, key := range conversation.FieldOrder {
		if _, ok := known[key]; !ok {
			missing = append(missing, key)
		}
	}

	log.Printf("запускаем генерацию ответа: missing=%d", len(missing))

	reply, err := svc.ComposeReply(ctx, history, missing, known)
	if err != nil {
		log.Fatalf("генерация ответа не удалась: %v", err)
	}

	fmt.Println(reply)
}
