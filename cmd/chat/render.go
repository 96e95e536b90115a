package main

import (
	"fmt"
	"io"
	"sync"

	"confhub-chat-client/internal/constant"
	"confhub-chat-client/internal/dto"
	"confhub-chat-client/internal/session"

	"github.com/fatih/color"
)

// renderer prints transcript updates as they land in the stores. It
// tracks how much of the transcript has been printed so streamed chunks
// append in place instead of repeating the whole message.
type renderer struct {
	out     io.Writer
	manager *session.Manager

	mu      sync.Mutex
	printed int // messages fully printed
	tailLen int // printed length of the in-flight tail message

	user   *color.Color
	bot    *color.Color
	warn   *color.Color
	errc   *color.Color
	dim    *color.Color
	accent *color.Color
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out:    out,
		user:   color.New(color.FgCyan, color.Bold),
		bot:    color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		errc:   color.New(color.FgRed, color.Bold),
		dim:    color.New(color.Faint),
		accent: color.New(color.FgMagenta),
	}
}

func (r *renderer) bind(m *session.Manager) {
	r.manager = m
}

func (r *renderer) hooks() session.Hooks {
	return session.Hooks{
		OnTranscriptChange: r.onTranscriptChange,
		OnConversationsChange: func() {
			r.dim.Fprintln(r.out, "(conversation list updated, /list to view)")
		},
		OnLoadingChange: r.onLoadingChange,
		OnConnectionChange: func(connected bool) {
			if connected {
				r.dim.Fprintln(r.out, "(connected)")
			} else {
				r.warn.Fprintln(r.out, "(disconnected — reconnecting)")
			}
		},
		OnConfirmationRequest: r.onConfirmationRequest,
		OnConfirmationTick: func(remaining int) {
			if remaining <= 5 {
				r.warn.Fprintf(r.out, "(confirmation expires in %ds)\n", remaining)
			}
		},
		OnConfirmationClosed: func() {
			r.dim.Fprintln(r.out, "(confirmation dialog closed)")
		},
	}
}

func (r *renderer) onTranscriptChange() {
	msgs := r.manager.Messages()

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(msgs) < r.printed {
		// Transcript was reset (switch / new chat).
		r.printed = 0
		r.tailLen = 0
		r.dim.Fprintln(r.out, "--- new transcript ---")
	}

	// Extend the streamed tail, if it grew.
	if r.printed > 0 && r.printed <= len(msgs) {
		tail := msgs[r.printed-1]
		if !tail.IsUser && len(tail.Message) > r.tailLen {
			fmt.Fprint(r.out, tail.Message[r.tailLen:])
			r.tailLen = len(tail.Message)
			if r.printed == len(msgs) {
				return
			}
			fmt.Fprintln(r.out)
		}
	}

	for i := r.printed; i < len(msgs); i++ {
		r.printMessage(msgs[i])
		r.tailLen = len(msgs[i].Message)
	}
	r.printed = len(msgs)
}

func (r *renderer) printMessage(msg dto.ChatMessage) {
	switch {
	case msg.IsUser:
		r.user.Fprint(r.out, "you> ")
		fmt.Fprintln(r.out, msg.Message)
	case msg.Type == constant.MessageTypeError:
		r.errc.Fprintf(r.out, "error> %s\n", msg.Message)
	case msg.Type == constant.MessageTypeWarning:
		r.warn.Fprintf(r.out, "warning> %s\n", msg.Message)
	case msg.Type == constant.MessageTypeMap:
		r.bot.Fprint(r.out, "bot> ")
		fmt.Fprintln(r.out, msg.Message)
		if msg.Location != nil {
			r.accent.Fprintf(r.out, "  [map] %s (%.5f, %.5f)\n", msg.Location.Label, msg.Location.Latitude, msg.Location.Longitude)
		}
	case msg.Type == constant.MessageTypeFollowUpdate:
		r.accent.Fprintf(r.out, "follow> %s\n", msg.Message)
	default:
		for _, thought := range msg.Thoughts {
			r.dim.Fprintf(r.out, "  · %s\n", thoughtLine(thought))
		}
		r.bot.Fprint(r.out, "bot> ")
		fmt.Fprintln(r.out, msg.Message)
	}

	for _, f := range append(msg.Files, msg.BotFiles...) {
		r.dim.Fprintf(r.out, "  [file] %s (%s)\n", f.Name, f.MimeType)
	}
}

func (r *renderer) onLoadingChange(state dto.LoadingState) {
	if state.IsLoading {
		label := state.Message
		if label == "" {
			label = state.Step
		}
		r.dim.Fprintf(r.out, "(%s...)\n", label)
	}
}

func (r *renderer) onConfirmationRequest(action dto.ConfirmSendEmailAction) {
	r.warn.Fprintln(r.out, "The assistant wants to send an email:")
	fmt.Fprintf(r.out, "  subject: %s\n", action.Subject)
	fmt.Fprintf(r.out, "  body:    %s\n", action.Message)
	r.warn.Fprintf(r.out, "Type /confirm or /cancel within %ds.\n", action.TimeoutMs/1000)
}

func thoughtLine(t dto.Thought) string {
	if t.Title != "" {
		return t.Title + ": " + t.Detail
	}
	return t.Detail
}
