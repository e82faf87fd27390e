package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"daypass-monitor/classifier"
	"daypass-monitor/client"
	"daypass-monitor/config"
	"daypass-monitor/models"
	"daypass-monitor/scheduler"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional; real deployments set the variables directly
	_ = godotenv.Load()

	cfg := loadConfig(*configPath)
	logger := newLogger(cfg)

	botToken := os.Getenv("DAYPASS_TG_TOKEN")
	if botToken == "" {
		logger.Fatal().Msg("DAYPASS_TG_TOKEN environment variable is not set")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize bot")
	}
	logger.Info().Str("account", bot.Self.UserName).Msg("Authorized on Telegram")

	apiClient := client.New(client.Options{
		Endpoint: cfg.API.Endpoint,
		Secret:   cfg.API.Secret,
		Timeout:  cfg.Timeout(),
		RateRPS:  cfg.API.RateRPS,
		MaxDays:  cfg.Monitor.MaxDays,
	}, logger.With().Str("component", "client").Logger())

	notifier := &telegramNotifier{bot: bot, logger: logger.With().Str("component", "notifier").Logger()}

	sched := scheduler.New(apiClient, classifier.New(), notifier, scheduler.Options{
		InitialDelay: cfg.InitialDelay(),
		Interval:     cfg.Interval(),
		FetchTimeout: cfg.Timeout(),
	}, logger.With().Str("component", "scheduler").Logger())
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := bot.GetUpdatesChan(updateConfig)

	go func() {
		<-ctx.Done()
		bot.StopReceivingUpdates()
	}()

	handler := &commandHandler{
		bot:     bot,
		client:  apiClient,
		sched:   sched,
		maxDays: cfg.Monitor.MaxDays,
		logger:  logger.With().Str("component", "bot").Logger(),
	}

	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		handler.handle(update.Message)
	}

	logger.Info().Msg("Update feed closed, shutting down")
}

// loadConfig loads configuration from file or returns defaults
func loadConfig(configPath string) *config.Config {
	if _, err := os.Stat(configPath); err != nil {
		return config.GetDefaultConfig()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config file: %v. Using defaults.\n", err)
		return config.GetDefaultConfig()
	}
	return cfg
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Log.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// commandHandler dispatches bot commands to the core operations and
// renders whatever structured result they return
type commandHandler struct {
	bot     *tgbotapi.BotAPI
	client  *client.Client
	sched   *scheduler.Scheduler
	maxDays int
	logger  zerolog.Logger
}

func (h *commandHandler) handle(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.Fields(msg.CommandArguments())

	h.logger.Debug().Int64("chat_id", chatID).Str("command", command).Msg("Handling command")

	switch command {
	case "start":
		h.reply(chatID,
			"Welcome to the SBB Day Pass Monitor Bot! 🚂\n"+
				"Use /check <days> for a one-off availability check.\n"+
				"Use /monitor <days> to get notified about price anomalies.\n"+
				"Use /stop to stop monitoring.")
	case "help":
		h.reply(chatID,
			"Commands:\n"+
				"/check <days> [YYYY-MM-DD] - Check day pass availability\n"+
				"/monitor <days> - Check daily and notify on anomalies\n"+
				"/stop - Stop monitoring\n"+
				"/help - Show this help")
	case "check":
		h.handleCheck(chatID, args)
	case "monitor":
		h.handleMonitor(chatID, args)
	case "stop":
		h.handleStop(chatID)
	default:
		h.reply(chatID, "Unknown command. Use /help for available commands.")
	}
}

// handleCheck runs a one-off, unfiltered availability check
func (h *commandHandler) handleCheck(chatID int64, args []string) {
	if len(args) < 1 || len(args) > 2 {
		h.reply(chatID, "Usage: /check <days> [YYYY-MM-DD]\nExample: /check 15")
		return
	}

	days, err := h.parseDays(args[0])
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	startDate := time.Now()
	if len(args) == 2 {
		startDate, err = time.Parse("2006-01-02", args[1])
		if err != nil {
			h.reply(chatID, "Invalid date. Please use YYYY-MM-DD.")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := h.client.FetchAvailability(ctx, startDate, days)
	if err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("On-demand check failed")
		h.reply(chatID, "Failed to fetch availability. Please try again later.")
		return
	}

	h.reply(chatID, formatReport(report))
}

func (h *commandHandler) handleMonitor(chatID int64, args []string) {
	if len(args) != 1 {
		h.reply(chatID, "Usage: /monitor <days>\nExample: /monitor 15")
		return
	}
	days, err := h.parseDays(args[0])
	if err != nil {
		h.reply(chatID, err.Error())
		return
	}

	h.sched.Subscribe(chatID, days)
	h.reply(chatID, fmt.Sprintf(
		"✅ Monitoring %d days of day pass availability. You'll be notified when prices look unusual.", days))
}

func (h *commandHandler) handleStop(chatID int64) {
	if h.sched.Unsubscribe(chatID) {
		h.reply(chatID, "🛑 Monitoring stopped.")
	} else {
		h.reply(chatID, "You are not monitoring anything right now.")
	}
}

// parseDays validates a day-count argument before anything touches the
// network
func (h *commandHandler) parseDays(arg string) (int, error) {
	days, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.New("Invalid input. Please provide a number.")
	}
	if days < 1 || days > h.maxDays {
		return 0, fmt.Errorf("Please provide a number between 1 and %d.", h.maxDays)
	}
	return days, nil
}

func (h *commandHandler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

// telegramNotifier delivers scheduled check results to subscribers.
// Transient Telegram failures are retried with backoff.
type telegramNotifier struct {
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

func (n *telegramNotifier) Notify(chatID int64, flagged []models.FareCell) {
	if len(flagged) == 0 {
		// nothing unusual, nothing to say
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatFlagged(flagged))
	err := retry.Do(func() error {
		_, err := n.bot.Send(msg)
		return err
	}, retry.Attempts(3), retry.Delay(2*time.Second))
	if err != nil {
		n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to deliver notification")
	}
}

// formatReport renders a full availability report for /check
func formatReport(report *models.AvailabilityReport) string {
	if len(report.Entries) == 0 {
		return "No availability data returned for that range."
	}

	var sb strings.Builder
	sb.WriteString("Day Pass Availability:\n")
	for _, day := range report.Entries {
		sb.WriteString(fmt.Sprintf("\n📅 %s\n", day.TravelDate.Format("Mon 2 Jan 2006")))
		for _, cell := range day.Cells() {
			sb.WriteString(fmt.Sprintf("  %s: %.2f CHF (%s)\n",
				cellLabel(cell), float64(cell.Price)/100, cell.Availability))
		}
	}
	return sb.String()
}

// formatFlagged renders an anomaly notification
func formatFlagged(flagged []models.FareCell) string {
	var sb strings.Builder
	sb.WriteString("🚨 Unusual day pass prices detected!\n")
	for _, cell := range flagged {
		sb.WriteString(fmt.Sprintf("\n📅 %s\n  %s: %.2f CHF (availability %s)\n",
			cell.TravelDate.Format("Mon 2 Jan 2006"),
			cellLabel(cell), float64(cell.Price)/100, cell.Availability))
	}
	return sb.String()
}

func cellLabel(cell models.FareCell) string {
	category := "Full fare"
	if cell.Discount == models.HalfFare {
		category = "Half fare"
	}
	class := "2nd class"
	if cell.Class == models.FirstClass {
		class = "1st class"
	}
	return category + ", " + class
}
