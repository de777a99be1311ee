package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jeovahfialho/papertrader/internal/bootstrap"
	"github.com/jeovahfialho/papertrader/internal/config"
	"github.com/jeovahfialho/papertrader/internal/events"
	"github.com/jeovahfialho/papertrader/internal/quote"
	"github.com/jeovahfialho/papertrader/internal/report"
	"github.com/jeovahfialho/papertrader/internal/service"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "papertrader",
		Short: "PaperTrader admin CLI",
		Long: `CLI de administração do PaperTrader.
Permite aplicar migrações, criar usuários e consultar carteiras.`,
	}

	// Comando migrate
	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Aplica as migrações do banco",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	}

	// Comando create-user
	var createUserCmd = &cobra.Command{
		Use:   "create-user [username]",
		Short: "Cria um usuário com o saldo inicial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			return createUser(args[0], password)
		},
	}

	createUserCmd.Flags().StringP("password", "p", "", "Senha do usuário")
	_ = createUserCmd.MarkFlagRequired("password")

	// Comando deposit
	var depositCmd = &cobra.Command{
		Use:   "deposit [username] [amount]",
		Short: "Deposita dinheiro na conta de um usuário",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deposit(args[0], args[1])
		},
	}

	// Comando portfolio
	var portfolioCmd = &cobra.Command{
		Use:   "portfolio [username]",
		Short: "Mostra a carteira avaliada de um usuário",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPortfolio(args[0])
		},
	}

	// Comando history
	var historyCmd = &cobra.Command{
		Use:   "history [username]",
		Short: "Lista as negociações de um usuário",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xlsx, _ := cmd.Flags().GetString("xlsx")
			return showHistory(args[0], xlsx)
		},
	}

	historyCmd.Flags().StringP("xlsx", "x", "", "Exporta o histórico para este arquivo .xlsx")

	// Comando quote
	var quoteCmd = &cobra.Command{
		Use:   "quote [symbol]",
		Short: "Consulta a cotação atual de um símbolo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showQuote(args[0])
		},
	}

	// Comando flush-quotes
	var flushQuotesCmd = &cobra.Command{
		Use:   "flush-quotes [symbol...]",
		Short: "Remove cotações do cache Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flushQuotes(args)
		},
	}

	// Comando health
	var healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Verifica saúde do sistema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkHealth()
		},
	}

	// Adiciona todos os comandos
	rootCmd.AddCommand(migrateCmd, createUserCmd, depositCmd, portfolioCmd, historyCmd, quoteCmd, flushQuotesCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrate() error {
	cfg := config.Load()

	fmt.Printf("🔄 Aplicando migrações (%s)...\n", cfg.DatabaseDriver)
	if err := bootstrap.Migrate(cfg); err != nil {
		return fmt.Errorf("erro ao migrar: %w", err)
	}

	fmt.Println("✅ Migrações aplicadas!")
	return nil
}

func createUser(username, password string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := service.NewAuthService(store, cfg.StartingCash()).Register(ctx, username, password)
	if err != nil {
		return fmt.Errorf("erro ao criar usuário: %w", err)
	}

	fmt.Printf("✅ Usuário %s criado (id %d) com %s\n", username, id, service.FormatUSD(cfg.StartingCash()))
	return nil
}

func deposit(username, rawAmount string) error {
	ctx := context.Background()
	cfg := config.Load()

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("valor inválido: %w", err)
	}

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.UserByUsername(ctx, username)
	if err != nil {
		return err
	}

	trades := service.NewTradeService(store, quote.NewClient(cfg), events.NopPublisher{})
	cash, err := trades.Deposit(ctx, user.ID, amount)
	if err != nil {
		return fmt.Errorf("erro ao depositar: %w", err)
	}

	fmt.Printf("✅ Depositado %s. Novo saldo: %s\n", service.FormatUSD(amount), service.FormatUSD(cash))
	return nil
}

func showPortfolio(username string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.UserByUsername(ctx, username)
	if err != nil {
		return err
	}

	p, err := service.NewPortfolioService(store, quote.NewClient(cfg), cfg.QuoteWorkers).Portfolio(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("erro ao avaliar carteira: %w", err)
	}

	fmt.Printf("\n📊 Carteira de %s:\n", username)
	for _, pos := range p.Positions {
		fmt.Printf("├─ %-6s %6d x %12s = %14s\n", pos.Symbol, pos.Shares, service.FormatUSD(pos.Price), service.FormatUSD(pos.Value))
	}
	fmt.Printf("├─ Caixa: %s\n", service.FormatUSD(p.Cash))
	fmt.Printf("└─ Total: %s\n", service.FormatUSD(p.Total))
	return nil
}

func showHistory(username, xlsxPath string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.UserByUsername(ctx, username)
	if err != nil {
		return err
	}

	history := service.NewHistoryService(store, report.NewXLSXGenerator())

	if xlsxPath != "" {
		return exportHistory(ctx, history, user.ID, xlsxPath)
	}

	entries, err := history.History(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("erro ao buscar histórico: %w", err)
	}

	fmt.Printf("\n📜 Histórico de %s (%d negociações):\n", username, len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %-4s %-6s %6d @ %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Side, e.Symbol, e.Shares, e.PriceDisplay)
	}
	return nil
}

func exportHistory(ctx context.Context, history *service.HistoryService, userID int64, path string) error {
	data, err := history.Export(ctx, userID)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("erro ao salvar arquivo: %w", err)
	}

	fmt.Printf("✅ Histórico exportado para %s\n", path)
	return nil
}

func showQuote(symbol string) error {
	cfg := config.Load()

	q, err := quote.NewClient(cfg).Lookup(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("erro ao consultar cotação: %w", err)
	}

	fmt.Printf("💵 %s (%s): %s\n", q.Name, q.Symbol, service.FormatUSD(q.Price))
	return nil
}

func flushQuotes(symbols []string) error {
	cfg := config.Load()

	redisCache, err := bootstrap.ConnectRedis(cfg)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	if err := quote.Evict(context.Background(), redisCache, symbols...); err != nil {
		return err
	}

	if len(symbols) == 0 {
		fmt.Println("✅ Todas as cotações removidas do cache")
	} else {
		fmt.Printf("✅ Cotações removidas do cache: %v\n", symbols)
	}
	return nil
}

// checkHealth verifica a saúde do sistema
func checkHealth() error {
	ctx := context.Background()
	cfg := config.Load()

	fmt.Println("🏥 Verificando saúde do sistema...")

	fmt.Printf("Banco (%s): ", cfg.DatabaseDriver)
	store, err := bootstrap.OpenStore(cfg)
	if err != nil {
		fmt.Printf("❌ Erro: %v\n", err)
	} else {
		defer store.Close()
		printCheck(store.HealthCheck(ctx))
	}

	fmt.Print("Redis: ")
	redisCache, err := bootstrap.ConnectRedis(cfg)
	if err != nil {
		fmt.Printf("❌ Erro: %v\n", err)
	} else {
		defer redisCache.Close()
		printCheck(redisCache.HealthCheck(ctx))
	}

	fmt.Println("\n✅ Verificação concluída!")
	return nil
}

func printCheck(err error) {
	if err != nil {
		fmt.Printf("❌ Erro: %v\n", err)
		return
	}
	fmt.Println("✅ OK")
}
