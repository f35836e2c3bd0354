package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ricardoia-chat/internal/config"
	"ricardoia-chat/internal/domain"
	"ricardoia-chat/internal/llm"
	"ricardoia-chat/internal/repository"
	"ricardoia-chat/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// Scenario es una conversacion guionada; solo se evalua la ultima respuesta.
type Scenario struct {
	Name        string
	Turns       []string
	Echo        string
	Expectation string
}

var scenarios = []Scenario{
	{Name: "Saudação", Turns: []string{"Oi, tudo bem?"}},
	{Name: "Pergunta prática", Turns: []string{"Como organizo minha semana de estudos trabalhando 8 horas por dia?"}},
	{
		Name:        "Memória curta",
		Turns:       []string{"Meu nome é Júlia e trabalho com design de produto.", "Qual é o meu nome e com o que eu trabalho?"},
		Expectation: "Menciona Júlia e design de produto, no formato de três partes.",
	},
	{Name: "Pergunta em inglês", Turns: []string{"What should I do to sleep better?"}, Expectation: "Responde em português mesmo assim."},
	{
		Name:  "Eco literal",
		Turns: []string{"Repita exatamente o texto a seguir, sem mudar nada:\nPrazo final: sexta, 18h. Não atrasar."},
		Echo:  "Prazo final: sexta, 18h. Não atrasar.",
	},
}

func main() {
	useJudge := flag.Bool("judge", true, "pedir nota ao modelo juiz alem da heuristica")
	minPass := flag.Float64("min-pass", 0.8, "fracao minima de cenarios aprovados")
	flag.Parse()

	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample(zap.IncreaseLevel(zap.WarnLevel))
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logger)
	chatSvc := service.NewChatService(logger, repository.NewMemoryTurnRepository(), llmClient, nil, service.ChatOptions{
		HistoryWindow:   cfg.ChatHistoryWindow,
		MaxMessageChars: cfg.ChatMaxMessageChars,
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
		Temperature:     cfg.LLMTemperature,
		RequestTimeout:  cfg.ChatRequestTimeout,
	})

	var judge llm.CompletionClient
	if *useJudge {
		judge = llmClient
	}

	passed, err := run(ctx, chatSvc, judge, scenarios)
	if err != nil {
		log.Fatal(err)
	}

	rate := float64(passed) / float64(len(scenarios))
	fmt.Println("==== Resultado ====")
	fmt.Printf("Aprovados: %d/%d (%.0f%%)\n", passed, len(scenarios), rate*100)
	if rate < *minPass {
		os.Exit(1)
	}
}

func run(ctx context.Context, chatSvc *service.ChatService, judge llm.CompletionClient, scenarios []Scenario) (int, error) {
	passed := 0
	var totalTone, totalFormat, totalMemory, judged int

	for _, sc := range scenarios {
		fmt.Printf("%s== %s ==%s\n", colorCyan, sc.Name, colorReset)
		conversationID := uuid.NewString()

		var reply string
		for _, turn := range sc.Turns {
			fmt.Printf("%s[Usuário]%s %s\n", colorCyan, colorReset, turn)
			r, err := chatSvc.Reply(ctx, domain.ChatRequest{ConversationID: conversationID, Message: turn})
			if err != nil {
				return passed, fmt.Errorf("%s: %w", sc.Name, err)
			}
			reply = r.Text
			fmt.Printf("%s[RicardoIA]%s %s\n", colorGreen, colorReset, reply)
		}

		report := checkFormat(reply)
		ok := report.OK()
		if sc.Echo != "" {
			ok = checkEcho(sc.Echo, reply)
			fmt.Printf("Eco literal: %t\n", ok)
		} else {
			fmt.Printf("Formato: %s\n", report)
		}

		if judge != nil {
			jr, err := evaluateResponse(ctx, judge, sc, reply, report)
			if err != nil {
				fmt.Printf("%sjuiz falhou: %v%s\n", colorRed, err, colorReset)
			} else {
				fmt.Printf("Juiz: %q\n", jr.Reasoning)
				fmt.Printf("Notas: Tom %d/5 | Formato %d/5 | Memória %d/5\n", jr.ToneScore, jr.FormatScore, jr.MemoryScore)
				totalTone += jr.ToneScore
				totalFormat += jr.FormatScore
				totalMemory += jr.MemoryScore
				judged++
			}
		}

		if ok {
			passed++
			fmt.Printf("%sAPROVADO%s\n\n", colorGreen, colorReset)
		} else {
			fmt.Printf("%sREPROVADO%s\n\n", colorRed, colorReset)
		}
	}

	if judged > 0 {
		n := float64(judged)
		fmt.Println("==== Médias do juiz ====")
		fmt.Printf("Tom: %.2f/5 | Formato: %.2f/5 | Memória: %.2f/5\n",
			float64(totalTone)/n, float64(totalFormat)/n, float64(totalMemory)/n)
	}
	return passed, nil
}
