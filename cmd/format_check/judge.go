package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ricardoia-chat/internal/llm"
)

const (
	insightPrefix = "insight:"
	actionPrefix  = "acao:"
)

// judgeResponse representa la respuesta estructurada del juez evaluador en formato JSON.
type judgeResponse struct {
	Reasoning   string `json:"reasoning"`
	ToneScore   int    `json:"tone_score"`
	FormatScore int    `json:"format_score"`
	MemoryScore int    `json:"memory_score"`
}

// formatReport resume el chequeo heuristico del formato de tres partes.
type formatReport struct {
	Lines       int
	HasInsight  bool
	HasAction   bool
	ThreeParts  bool
	Portuguese  bool
	EndsCleanly bool
}

func (r formatReport) OK() bool {
	return r.ThreeParts && r.Portuguese && r.EndsCleanly
}

func (r formatReport) String() string {
	return fmt.Sprintf("linhas=%d insight=%t acao=%t tres_partes=%t pt=%t final_limpo=%t",
		r.Lines, r.HasInsight, r.HasAction, r.ThreeParts, r.Portuguese, r.EndsCleanly)
}

// checkFormat valida respuesta directa + "Insight:" + "Ação:", una por linea.
func checkFormat(reply string) formatReport {
	lines := nonEmptyLines(reply)
	r := formatReport{Lines: len(lines)}

	for _, l := range lines {
		norm := strings.ToLower(normalizeASCIIString(l))
		if strings.HasPrefix(norm, insightPrefix) {
			r.HasInsight = true
		}
		if strings.HasPrefix(norm, actionPrefix) {
			r.HasAction = true
		}
	}
	if len(lines) == 3 {
		second := strings.ToLower(normalizeASCIIString(lines[1]))
		third := strings.ToLower(normalizeASCIIString(lines[2]))
		r.ThreeParts = !strings.HasPrefix(strings.ToLower(normalizeASCIIString(lines[0])), insightPrefix) &&
			strings.HasPrefix(second, insightPrefix) &&
			strings.HasPrefix(third, actionPrefix)
	}
	r.Portuguese = looksPortuguese(reply)

	trimmed := strings.TrimSpace(reply)
	r.EndsCleanly = trimmed != "" && !strings.HasSuffix(trimmed, "...") && !strings.HasSuffix(trimmed, "…")
	return r
}

// checkEcho compara la respuesta con el texto pedido, ignorando solo espacios en los extremos.
func checkEcho(expected, reply string) bool {
	return strings.TrimSpace(expected) == strings.TrimSpace(reply)
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func looksPortuguese(s string) bool {
	norm := " " + strings.Join(strings.Fields(strings.ToLower(normalizeASCIIString(s))), " ") + " "
	markers := []string{" voce ", " nao ", " para ", " com ", " uma ", " acao", " seu ", " sua ", " e ", " de "}
	hits := 0
	for _, m := range markers {
		if strings.Contains(norm, m) {
			hits++
		}
	}
	return hits >= 2
}

func evaluateResponse(ctx context.Context, judge llm.CompletionClient, sc Scenario, reply string, report formatReport) (judgeResponse, error) {
	prompt := buildJudgePrompt(sc, reply, report)

	raw, err := judge.Complete(ctx, llm.CompletionRequest{
		System:          "Você é um avaliador rigoroso. Responda apenas JSON.",
		Prompt:          prompt,
		MaxOutputTokens: 300,
	})
	if err != nil {
		return judgeResponse{}, err
	}

	jsonStr := extractFirstJSONObject(raw)
	if jsonStr == "" {
		return judgeResponse{}, fmt.Errorf("juiz devolveu nao-json: %q", raw)
	}

	var jr judgeResponse
	if err := json.Unmarshal([]byte(jsonStr), &jr); err != nil {
		return judgeResponse{}, fmt.Errorf("parse judge json: %w (raw=%q)", err, jsonStr)
	}

	jr.ToneScore = clamp1to5(jr.ToneScore)
	jr.FormatScore = clamp1to5(jr.FormatScore)
	jr.MemoryScore = clamp1to5(jr.MemoryScore)

	// El formato lo decide la heuristica cuando es claramente incorrecto.
	if !report.ThreeParts && sc.Echo == "" && jr.FormatScore > 2 {
		jr.FormatScore = 2
	}
	return jr, nil
}

func buildJudgePrompt(sc Scenario, reply string, report formatReport) string {
	expectation := sc.Expectation
	if expectation == "" {
		expectation = "Resposta direta, um insight e uma ação, em português do Brasil."
	}
	return fmt.Sprintf(
		`Avalie a resposta de um assistente chamado RicardoIA.

Cenário: %s
Mensagens do usuário: %q
Resposta: %q
Expectativa: %s
Indicadores heurísticos: %s

Avalie (1-5):
1) Tom: natural, profissional e direto, sem dizer que é um modelo de linguagem.
2) Formato: exatamente três partes (resposta, "Insight:", "Ação:"), exceto quando o usuário pediu eco literal.
3) Memória: usa corretamente o que foi dito antes na conversa, sem inventar.

Responda SOMENTE JSON (sem markdown):
{
  "reasoning": "...",
  "tone_score": 0,
  "format_score": 0,
  "memory_score": 0
}`,
		sc.Name, sc.Turns, reply, expectation, report.String(),
	)
}

func clamp1to5(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// extractFirstJSONObject devuelve el primer objeto {...} balanceado, ignorando
// llaves dentro de strings.
func extractFirstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	inString := false
	escape := false
	depth := 0
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func normalizeASCIIString(s string) string {
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "ã", "a", "â", "a",
		"Á", "A", "À", "A", "Ã", "A", "Â", "A",
		"é", "e", "ê", "e", "É", "E", "Ê", "E",
		"í", "i", "Í", "I",
		"ó", "o", "õ", "o", "ô", "o",
		"Ó", "O", "Õ", "O", "Ô", "O",
		"ú", "u", "ü", "u", "Ú", "U", "Ü", "U",
		"ç", "c", "Ç", "C",
	)
	return replacer.Replace(s)
}
