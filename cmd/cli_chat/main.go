package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ricardoia-chat/internal/config"
	"ricardoia-chat/internal/domain"
	"ricardoia-chat/internal/llm"
	"ricardoia-chat/internal/repository"
	"ricardoia-chat/internal/service"
	"ricardoia-chat/internal/store"
)

func main() {
	conversationFlag := flag.String("conversation", "", "id de conversacion a retomar (por defecto una nueva)")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	chatSvc := service.NewChatService(logger, st.Turns, llmClient, nil, service.ChatOptions{
		HistoryWindow:   cfg.ChatHistoryWindow,
		MaxMessageChars: cfg.ChatMaxMessageChars,
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
		Temperature:     cfg.LLMTemperature,
		RetentionTurns:  cfg.ChatRetentionTurns,
		RequestTimeout:  cfg.ChatRequestTimeout,
	})

	conversationID := strings.TrimSpace(*conversationFlag)
	if conversationID == "" {
		conversationID = uuid.NewString()
	} else if err := printHistory(ctx, st.Turns, conversationID); err != nil {
		fmt.Printf("erro ao carregar histórico: %v\n", err)
	}

	fmt.Printf("---- RicardoIA (conversa %s) ----\n", conversationID)
	fmt.Println("Comandos: /nova, /historico, sair")
	for {
		fmt.Print("Você > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		switch {
		case text == "":
			continue
		case strings.EqualFold(text, "sair") || strings.EqualFold(text, "exit"):
			fmt.Println("Até logo.")
			return
		case text == "/nova":
			conversationID = uuid.NewString()
			fmt.Printf("Nova conversa: %s\n", conversationID)
			continue
		case text == "/historico":
			if err := printHistory(ctx, st.Turns, conversationID); err != nil {
				fmt.Printf("erro ao carregar histórico: %v\n", err)
			}
			continue
		}

		if err := chatTurn(ctx, chatSvc, conversationID, text); err != nil {
			fmt.Printf("\nerror: %v\n", err)
		}
	}
}

// chatTurn transmite la respuesta a stdout; Ctrl+C corta solo el turno en curso.
func chatTurn(ctx context.Context, chatSvc *service.ChatService, conversationID, text string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rs, err := chatSvc.OpenStream(turnCtx, domain.ChatRequest{ConversationID: conversationID, Message: text})
	if err != nil {
		return err
	}

	fmt.Print("RicardoIA > ")
	_, err = rs.Relay(func(fragment string) error {
		_, werr := fmt.Print(fragment)
		return werr
	})
	fmt.Println()

	switch service.KindOf(err) {
	case "":
		return nil
	case service.KindHistoryNotSaved:
		fmt.Println("[aviso: a resposta não foi salva no histórico]")
		return nil
	case service.KindStreamAborted:
		fmt.Println("[interrompido]")
		return nil
	}
	return err
}

func printHistory(ctx context.Context, turns repository.TurnRepository, conversationID string) error {
	history, err := turns.FetchRecent(ctx, conversationID, 100)
	if err != nil {
		return err
	}
	for _, t := range history {
		who := "Você"
		if t.Role == domain.RoleAssistant {
			who = "RicardoIA"
		}
		fmt.Printf("[%s] %s > %s\n", t.CreatedAt.Local().Format("15:04"), who, t.Content)
	}
	return nil
}
