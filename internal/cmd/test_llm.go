package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/labrasa/salesdash/internal/llm"
	"github.com/labrasa/salesdash/internal/oraculo"
	"github.com/labrasa/salesdash/internal/types"
	"github.com/spf13/cobra"
)

var testLLMCmd = &cobra.Command{
	Use:   "test-llm",
	Short: "Test the Oráculo LLM provider",
	Long: `Send a short grounded question to the configured generator.
This helps verify API keys and connectivity before opening the chat.`,
	RunE: testLLMProviders,
}

func init() {
	rootCmd.AddCommand(testLLMCmd)
}

func testLLMProviders(cmd *cobra.Command, args []string) error {
	fmt.Println("🧪 Testing LLM provider connection...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("🤖 Testing generator (%s/%s)...\n", cfg.LLM.Generator.Provider, cfg.LLM.Generator.Model)
	generator, err := llm.NewGenerator(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	testPrompt := oraculo.BuildPrompt(
		"## Resumo dos dados\n- Faturamento: R$ 1.234,56\n- Pedidos: 42\n",
		"Qual o ticket médio? Responda em uma frase.",
	)

	start := time.Now()
	response, err := generator.Complete(ctx, testPrompt, types.GenerationOptions{
		MaxTokens: 200,
		System:    oraculo.SystemPrompt,
	}.Map())
	if err != nil {
		return fmt.Errorf("failed to generate response: %w", err)
	}

	fmt.Printf("   ✅ %s answered in %s: %s\n", generator.Model(), time.Since(start).Round(time.Millisecond), response)

	fmt.Println("\n🎉 LLM provider is working correctly!")
	return nil
}
