package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/routine/internal/config"
	"github.com/dukerupert/routine/internal/database"
	"github.com/dukerupert/routine/internal/logging"
	"github.com/dukerupert/routine/internal/middleware"
	"github.com/dukerupert/routine/internal/model"
	"github.com/dukerupert/routine/internal/notify"
	"github.com/dukerupert/routine/internal/push"
	"github.com/dukerupert/routine/internal/session"
	"github.com/dukerupert/routine/internal/store"
	"github.com/dukerupert/routine/internal/trigger"
)

// local is a session over the configured database for commands that run
// without the server. Run them while the server is stopped: each process
// keeps its own copy of the collections.
type local struct {
	cfg     *config.Config
	db      *sql.DB
	session *session.Session
	logger  *slog.Logger
}

func openLocal(ctx context.Context, out io.Writer) (*local, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	gateway := notify.Multi{
		notify.Log{Logger: logger.With("component", "notify")},
		notify.GatewayFunc(func(_ context.Context, item model.Item) error {
			_, err := fmt.Fprintf(out, "\a%s: %s\n", item.Title, notify.Body(item))
			return err
		}),
	}
	sess := session.New(
		store.NewItemStore(store.NewItemRepo(db)),
		gateway,
		logger.With("component", "session"),
		session.WithVoice(cfg.Voice),
		session.WithStatus(session.WriterSink{W: out}),
	)
	if _, err := sess.Restore(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("restore items: %w", err)
	}
	return &local{cfg: cfg, db: db, session: sess, logger: logger}, nil
}

func (l *local) Close() {
	l.session.Close()
	l.db.Close()
}

func newREPLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read commands from standard input, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			l, err := openLocal(ctx, out)
			if err != nil {
				return err
			}
			defer l.Close()

			loop := trigger.New(l.session, trigger.Config{
				PollInterval: l.cfg.PollInterval,
				Tolerance:    l.cfg.Tolerance,
			}, l.logger.With("component", "trigger"))
			loop.Start(ctx)
			defer loop.Stop()

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

			fmt.Fprintln(out, `Type a command, e.g. "set alarm for 7 AM tomorrow". Ctrl-D to quit.`)
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if strings.TrimSpace(line) == "" {
						continue
					}
					l.session.OnUtterance(ctx, line)
				}
			}
		},
	}
}

func newSayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <command...>",
		Short: "Run a single command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLocal(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer l.Close()

			// The status line is already printed; any outcome other than
			// success exits non-zero.
			return l.session.OnUtterance(cmd.Context(), strings.Join(args, " ")).Err
		},
	}
}

func newAddCmd() *cobra.Command {
	var title, kind, date, clock string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item without parsing a command",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := model.ParseKind(kind)
			if !ok {
				return fmt.Errorf("kind must be alarm, meeting or reminder")
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.Local)
			if err != nil {
				return fmt.Errorf("invalid date or time: %w", err)
			}

			l, err := openLocal(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer l.Close()

			item, err := l.session.CreateItem(cmd.Context(), title, at, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s) for %s\n", item.Title, item.ID, item.Time.Format("Mon Jan 2 3:04 PM"))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "item title (defaults by kind)")
	cmd.Flags().StringVar(&kind, "kind", string(model.KindReminder), "alarm, meeting or reminder")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&clock, "time", "", "time as HH:MM, 24-hour")
	cmd.MarkFlagRequired("time")
	return cmd
}

func newListCmd() *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLocal(cmd.Context(), io.Discard)
			if err != nil {
				return err
			}
			defer l.Close()

			var items []model.Item
			switch view {
			case "today":
				items = l.session.SchedulesOn(l.session.Now())
			case "alarms":
				items = l.session.ActiveAlarms()
			case "all":
				items = append(l.session.Alarms(), l.session.Schedules()...)
			default:
				return fmt.Errorf("view must be today, alarms or all")
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVar(&view, "view", "all", "today, alarms or all")
	return cmd
}

func printItems(w io.Writer, items []model.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No items")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTIME\tTITLE\tSTATE")
	for _, item := range items {
		state := "active"
		if !item.Active {
			state = "fired"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Kind, item.Time.Format("2006-01-02 15:04"), item.Title, state)
	}
	return tw.Flush()
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLocal(cmd.Context(), io.Discard)
			if err != nil {
				return err
			}
			defer l.Close()

			ok, err := l.session.DeleteItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no item with id %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newVAPIDKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair for Web Push",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ROUTINE_VAPID_PUBLIC_KEY=%s\nROUTINE_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Hash an API token for ROUTINE_API_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ROUTINE_API_TOKEN_HASH=%s\n", hash)
			return nil
		},
	}
}
