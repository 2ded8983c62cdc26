// Terminal driver for the assessor client core. This is the thin stand-in
// for the product UI: it wires the session manager, progress tracker and
// chat controller together and walks the user through the sequence.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hrbooteh/assessor/internal/api"
	"github.com/hrbooteh/assessor/internal/chat"
	"github.com/hrbooteh/assessor/internal/config"
	"github.com/hrbooteh/assessor/internal/domain"
	"github.com/hrbooteh/assessor/internal/progress"
	"github.com/hrbooteh/assessor/internal/session"
	"github.com/hrbooteh/assessor/internal/tokenstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	store, err := tokenstore.NewSQLite(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open token store:", err)
		os.Exit(1)
	}
	defer store.Close()

	client := api.NewClient(api.ClientConfig{BaseURL: cfg.APIBaseURL}, store, logger)
	sessions := session.NewManager(store, client, session.Config{
		PollInterval:     cfg.ExpiryPollInterval,
		RefreshThreshold: cfg.RefreshThreshold,
	}, logger)
	defer sessions.Close()

	tracker := progress.NewDefaultTracker()
	ctx := context.Background()
	stdin := bufio.NewScanner(os.Stdin)

	sessions.Initialize(ctx)
	if !sessions.IsAuthenticated() {
		if !authenticate(ctx, sessions, stdin) {
			os.Exit(1)
		}
	}
	fmt.Printf("Welcome, %s.\n\n", sessions.User().DisplayName())

	for {
		item := tracker.CurrentItem()
		if item == nil {
			fmt.Println("All assessments completed. Well done!")
			return
		}
		printDashboard(tracker)

		fmt.Printf("Press enter to begin %q (or type quit): ", item.Title)
		if !stdin.Scan() || strings.TrimSpace(stdin.Text()) == "quit" {
			return
		}

		if err := runAssessment(ctx, cfg, client, tracker, item, stdin); err != nil {
			fmt.Fprintln(os.Stderr, "assessment aborted:", err)
			return
		}
	}
}

func authenticate(ctx context.Context, sessions *session.Manager, stdin *bufio.Scanner) bool {
	for {
		fmt.Print("login or register? ")
		if !stdin.Scan() {
			return false
		}
		choice := strings.TrimSpace(stdin.Text())

		email := prompt(stdin, "email: ")
		password := prompt(stdin, "password: ")

		var authErr *session.AuthError
		switch choice {
		case "register":
			name := prompt(stdin, "full name: ")
			authErr = sessions.Register(ctx, email, password, name)
		default:
			authErr = sessions.Login(ctx, email, password)
		}

		if authErr == nil {
			return true
		}
		fmt.Println(authErr.Message)
		if authErr.Kind == session.KindUnreachable {
			return false
		}
	}
}

func runAssessment(ctx context.Context, cfg *config.Config, client *api.Client, tracker *progress.Tracker, item *domain.AssessmentItem, stdin *bufio.Scanner) error {
	ctrl := chat.NewController(item.ID, client, tracker, chat.Config{
		Duration: cfg.ChatDuration,
		Tick:     cfg.CountdownTick,
	}, slog.Default())
	defer ctrl.Close()

	ctrl.OnAnalysisReady(func() {
		fmt.Println("\n[the interviewer has gathered enough for your analysis]")
	})

	if err := ctrl.Start(ctx, ""); err != nil {
		return err
	}
	printLastReply(ctrl)

	for ctrl.State() == chat.StateActive {
		fmt.Printf("[%s left] you> ", ctrl.Remaining().Round(time.Second))
		if !stdin.Scan() {
			break
		}
		text := strings.TrimSpace(stdin.Text())
		if text == "done" || ctrl.AnalysisReady() {
			break
		}
		if err := ctrl.Send(ctx, text); err != nil {
			fmt.Println(err)
			continue
		}
		printLastReply(ctrl)
	}

	if err := ctrl.Complete(); err != nil {
		slog.Warn("completion reported an error", "error", err)
	}
	fmt.Printf("\n%q completed.\n\n", item.Title)
	return nil
}

func printLastReply(ctrl *chat.Controller) {
	transcript := ctrl.Transcript()
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Author == domain.AuthorInterviewer {
			fmt.Printf("\ninterviewer> %s\n", transcript[i].Text)
			return
		}
	}
}

func printDashboard(tracker *progress.Tracker) {
	fmt.Println("Your assessments:")
	for _, item := range tracker.Items() {
		glyph := " "
		switch item.Status {
		case domain.StatusCompleted:
			glyph = "x"
		case domain.StatusCurrent:
			glyph = ">"
		}
		fmt.Printf("  [%s] %s\n", glyph, item.Title)
	}
	fmt.Println()
}

func prompt(stdin *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !stdin.Scan() {
		return ""
	}
	return strings.TrimSpace(stdin.Text())
}
