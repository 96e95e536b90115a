package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"confhub-chat-client/internal/config"
	"confhub-chat-client/internal/dto"
	"confhub-chat-client/internal/pkg/logger"
	"confhub-chat-client/internal/pkg/token"
	"confhub-chat-client/internal/rest"
	"confhub-chat-client/internal/session"
	"confhub-chat-client/internal/socket"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Loggers (socket chatter goes to its own file to keep the transcript clean)
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer appLogger.Sync()
	socketLogger := logger.NewIsolatedLogger(cfg.App.SocketLogPath)
	defer socketLogger.Sync()

	// 3. Credentials
	creds := token.NewStore(cfg.App.CredentialsPath)
	if _, err := creds.Load(); err != nil {
		log.Fatalf("No usable credentials at %s: %v\nSign in on the web app and copy your token there.", cfg.App.CredentialsPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Session state + renderer
	renderer := newRenderer(os.Stdout)
	manager := session.NewManager(ctx, appLogger, renderer.hooks(), nil)
	renderer.bind(manager)

	// 5. Gateway connection
	client := socket.NewClient(cfg.Gateway, creds, manager, socketLogger, nil)
	manager.AttachEmitter(client)
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Unable to connect to chat gateway: %v", err)
	}
	defer client.Close()

	// 6. Directory REST API
	api := rest.NewClient(cfg.Api, creds, appLogger)

	fmt.Println("ConfHub chat. Type a message, or /help for commands.")
	repl(ctx, manager, api)
}

func repl(ctx context.Context, manager *session.Manager, api *rest.Client) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, manager, api, line); quit {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, manager *session.Manager, api *rest.Client, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if !strings.HasPrefix(trimmed, "/") {
		if err := manager.SendMessage(trimmed); err != nil {
			fmt.Printf("send failed: %v\n", err)
		}
		return false
	}

	fields := strings.Fields(trimmed)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		printHelp()

	case "/new":
		manager.NewConversation()
		fmt.Println("Started a new chat.")

	case "/list":
		for i, c := range manager.Conversations() {
			marker := " "
			if c.Id == manager.ActiveConversation() {
				marker = "*"
			}
			fmt.Printf("%s %2d. %s (%s)\n", marker, i+1, c.Title, c.UpdatedAt.Format("2006-01-02 15:04"))
		}

	case "/switch":
		if len(args) != 1 {
			fmt.Println("usage: /switch <number from /list>")
			return false
		}
		id, err := conversationIdAt(manager, args[0])
		if err != nil {
			fmt.Println(err)
			return false
		}
		if err := manager.SwitchConversation(id); err != nil {
			fmt.Printf("switch failed: %v\n", err)
		}

	case "/delete":
		if len(args) != 1 {
			fmt.Println("usage: /delete <number from /list>")
			return false
		}
		id, err := conversationIdAt(manager, args[0])
		if err != nil {
			fmt.Println(err)
			return false
		}
		if err := manager.DeleteConversation(id); err != nil {
			fmt.Printf("delete failed: %v\n", err)
		}

	case "/refresh":
		if err := manager.RefreshConversations(); err != nil {
			fmt.Printf("refresh failed: %v\n", err)
		}

	case "/edit":
		if len(args) == 0 {
			fmt.Println("usage: /edit <replacement text>")
			return false
		}
		latest, ok := latestUserMessage(manager)
		if !ok {
			fmt.Println("nothing to edit yet")
			return false
		}
		if err := manager.StartEdit(latest); err != nil {
			fmt.Printf("edit rejected: %v\n", err)
			return false
		}
		if err := manager.SubmitEditedMessage(latest, strings.Join(args, " ")); err != nil {
			manager.CancelEdit()
			fmt.Printf("edit failed: %v\n", err)
		}

	case "/confirm":
		if err := manager.ConfirmEmailAction(); err != nil {
			fmt.Printf("confirm failed: %v\n", err)
		}

	case "/cancel":
		if err := manager.CancelEmailAction(); err != nil {
			fmt.Printf("cancel failed: %v\n", err)
		}

	case "/follow":
		runAPI(func() error { return api.FollowConference(ctx, argOrEmpty(args)) }, "followed")

	case "/unfollow":
		runAPI(func() error { return api.UnfollowConference(ctx, argOrEmpty(args)) }, "unfollowed")

	case "/followed":
		followed, err := api.FollowedConferences(ctx)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		for _, f := range followed {
			fmt.Printf("  %s — %s\n", f.Acronym, f.Title)
		}

	case "/notifications":
		notifs, err := api.Notifications(ctx)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		for _, n := range notifs {
			read := " "
			if !n.IsRead {
				read = "•"
			}
			fmt.Printf("%s %s — %s\n", read, n.Title, n.Message)
		}

	case "/calendar":
		if len(args) < 3 {
			fmt.Println("usage: /calendar <conference-id> <yyyy-mm-dd> <title...>")
			return false
		}
		date, err := time.Parse("2006-01-02", args[1])
		if err != nil {
			fmt.Println("date must be yyyy-mm-dd")
			return false
		}
		entry := dto.CalendarEntryRequest{
			ConferenceId: args[0],
			Title:        strings.Join(args[2:], " "),
			Date:         date,
		}
		runAPI(func() error { return api.AddCalendarEntry(ctx, entry) }, "calendar entry added")

	case "/uncalendar":
		runAPI(func() error { return api.RemoveCalendarEntry(ctx, argOrEmpty(args)) }, "calendar entry removed")

	case "/feedback":
		if len(args) == 0 {
			fmt.Println("usage: /feedback <rating 1-5> [comment]")
			return false
		}
		rating, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("rating must be a number 1-5")
			return false
		}
		fb := dto.FeedbackRequest{Rating: rating, Comment: strings.Join(args[1:], " ")}
		runAPI(func() error { return api.SubmitFeedback(ctx, fb) }, "feedback sent")

	default:
		fmt.Printf("unknown command %s, try /help\n", cmd)
	}
	return false
}

func conversationIdAt(manager *session.Manager, arg string) (string, error) {
	idx, err := strconv.Atoi(arg)
	list := manager.Conversations()
	if err != nil || idx < 1 || idx > len(list) {
		return "", fmt.Errorf("no conversation %q, see /list", arg)
	}
	return list[idx-1].Id, nil
}

func latestUserMessage(manager *session.Manager) (string, bool) {
	msgs := manager.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsUser {
			return msgs[i].Id, true
		}
	}
	return "", false
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runAPI(fn func() error, okMessage string) {
	if err := fn(); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(okMessage)
}

func printHelp() {
	fmt.Print(`Commands:
  /new                      start a blank chat
  /list                     list conversations
  /switch <n>               open conversation n
  /delete <n>               delete conversation n
  /refresh                  re-fetch the conversation list
  /edit <text>              replace your latest message
  /confirm | /cancel        resolve a pending email confirmation
  /follow <id>              follow a conference
  /unfollow <id>            unfollow a conference
  /followed                 list followed conferences
  /calendar <id> <date> <t> add a calendar entry (date yyyy-mm-dd)
  /uncalendar <id>          remove a calendar entry
  /notifications            show notifications
  /feedback <1-5> [text]    send feedback
  /quit                     leave
Anything else is sent to the assistant.
`)
}
