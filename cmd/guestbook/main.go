package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"unicode"

	"github.com/joho/godotenv"

	"guestbook/internal/client"
	"guestbook/internal/model"
	"guestbook/internal/vote"
)

const usage = `usage: guestbook [-url URL] [-state FILE] <command> [args]

commands:
  health                 check the server
  list                   show all messages, newest first
  post NAME MESSAGE...   leave a message
  like ID                like (repeating keeps one like)
  dislike ID             dislike (repeating keeps one dislike)
  unvote ID              retract your vote
  vote ID CHOICE         set your vote to like, dislike or none
  delete ID              delete a message (needs login)
  login TOKEN            remember the admin token
  logout                 forget the admin token
  watch                  print live board events
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️  failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".guestbook.json"
	}
	return filepath.Join(dir, "guestbook", "state.json")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("guestbook", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	baseURL := os.Getenv("GUESTBOOK_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	fs.StringVar(&baseURL, "url", baseURL, "server base URL (env GUESTBOOK_URL)")
	statePath := fs.String("state", defaultStatePath(), "vote/token state file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	tracker, err := client.LoadTracker(*statePath)
	if err != nil {
		return err
	}
	c := client.New(baseURL, tracker)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "health":
		if err := c.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "✅ ok")
		return nil

	case "list":
		msgList, err := c.List(ctx)
		if err != nil {
			return err
		}
		if len(msgList) == 0 {
			fmt.Fprintln(out, "(no messages yet)")
		}
		for _, msg := range msgList {
			printMessage(out, msg, tracker.Get(msg.ID))
		}
		return nil

	case "post":
		if len(rest) < 2 {
			return errors.New("usage: post NAME MESSAGE...")
		}
		msg, err := c.Post(ctx, rest[0], strings.Join(rest[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✅ posted #%d\n", msg.ID)
		return nil

	case "like", "dislike", "unvote", "vote":
		var next vote.Choice
		switch cmd {
		case "like":
			next = vote.Like
		case "dislike":
			next = vote.Dislike
		case "vote":
			if len(rest) != 2 {
				return errors.New("usage: vote ID like|dislike|none")
			}
			if next, err = vote.ParseChoice(rest[1]); err != nil {
				return err
			}
			rest = rest[:1]
		}
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		msg, err := c.Vote(ctx, id, next)
		if err != nil {
			return err
		}
		printMessage(out, msg, tracker.Get(id))
		return tracker.Save()

	case "delete":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		if tracker.AdminToken() == "" {
			return errors.New("no admin token, run: guestbook login TOKEN")
		}
		err = c.Delete(ctx, id)
		if errors.Is(err, client.ErrForbidden) {
			// 無効なトークンは保存しない
			saveErr := tracker.Save()
			return errors.Join(errors.New("admin token rejected, run login again"), saveErr)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "🗑️  deleted #%d\n", id)
		return tracker.Save()

	case "login":
		if len(rest) != 1 || rest[0] == "" {
			return errors.New("usage: login TOKEN")
		}
		tracker.SetAdminToken(rest[0])
		return tracker.Save()

	case "logout":
		tracker.SetAdminToken("")
		return tracker.Save()

	case "watch":
		fmt.Fprintf(out, "👀 watching %s (Ctrl-C to stop)\n", baseURL)
		err := c.Watch(ctx, func(ev model.Event) error {
			switch ev.Type {
			case model.EventMessageDeleted:
				fmt.Fprintf(out, "%s #%d\n", ev.Type, ev.ID)
			default:
				fmt.Fprintf(out, "%s ", ev.Type)
				if ev.Message != nil {
					printMessage(out, *ev.Message, tracker.Get(ev.ID))
				} else {
					fmt.Fprintf(out, "#%d\n", ev.ID)
				}
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	fs.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one message ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid message ID %q", args[0])
	}
	return id, nil
}

func printMessage(out io.Writer, msg model.Message, mine vote.Choice) {
	marker := ""
	switch mine {
	case vote.Like:
		marker = " (you liked)"
	case vote.Dislike:
		marker = " (you disliked)"
	}
	name := strings.ReplaceAll(terminalSafe(msg.Name), "\n", " ")
	body := strings.ReplaceAll(terminalSafe(msg.Message), "\n", "\n    ")
	fmt.Fprintf(out, "#%d %s  %s  👍 %d 👎 %d%s\n    %s\n",
		msg.ID, name, msg.CreatedAt.Local().Format("2006-01-02 15:04"),
		msg.Likes, msg.Dislikes, marker, body)
}

// terminalSafe drops control characters and bidi overrides from text posted
// by other users so it cannot drive the terminal. Newlines are kept.
func terminalSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
			return -1
		}
		return r
	}, s)
}
