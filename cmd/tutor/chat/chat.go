// Package chatcmder provides the chat command for practicing English with
// the tutor in the terminal.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/pkg/cliui"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/dotdir"
	"github.com/papercomputeco/tutor/pkg/logger"
	"github.com/papercomputeco/tutor/pkg/utils"
)

var userPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")

type chatCommander struct {
	userID    string
	threadID  string
	newThread bool
	remote    bool

	apiTarget  string
	driver     string
	sqlitePath string
	postgres   string
	provider   string
	model      string
	baseURL    string
	policy     string

	debug     bool
	configDir string
	cfg       *config.Config

	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive tutoring session.

Every sentence you type is corrected, explained in Korean and offered in
alternative registers. Mistakes are remembered per learner, and recurring
ones are pointed out as they reappear.

The session's thread is remembered in the .tutor/ directory, so running
"tutor chat" again resumes the same conversation. Use --new to start a
fresh thread or --thread to attach to a specific one.

By default the tutor runs in-process against the configured store and
provider. With --remote, turns are sent to a running "tutor serve".

Commands inside the session:
  /exit     Quit (Ctrl+D works too)
  /thread   Show the current thread id

Examples:
  tutor chat -u minji
  tutor chat -u minji --new --provider anthropic
  tutor chat -u minji --remote --api-target http://localhost:8081`

const chatShortDesc string = "Practice English with the tutor"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.cfg, err = config.Resolve(cmd, config.ClientFlags, config.StorageFlags, config.GenerationFlags, config.RecurrenceFlags)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "Learner id (defaults to the last session's learner)")
	cmd.Flags().StringVarP(&cmder.threadID, "thread", "t", "", "Thread id to attach to")
	cmd.Flags().BoolVar(&cmder.newThread, "new", false, "Start a new thread")
	cmd.Flags().BoolVar(&cmder.remote, "remote", false, "Send turns to a running tutor API server")

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.StorageFlags, config.FlagStorageDriver, &cmder.driver)
	config.AddStringFlag(cmd, config.StorageFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.StorageFlags, config.FlagPostgres, &cmder.postgres)
	config.AddStringFlag(cmd, config.GenerationFlags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.GenerationFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.GenerationFlags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.RecurrenceFlags, config.FlagPolicy, &cmder.policy)

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(c.out))

	sessions := dotdir.NewManager()
	session, err := c.resolveSession(sessions)
	if err != nil {
		return err
	}

	t, err := c.newTurner(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.Close(); err != nil {
			c.logger.Error("closing tutor", "error", err)
		}
	}()

	if err := sessions.SaveSession(session, c.configDir); err != nil {
		c.logger.Warn("could not save session", "error", err)
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s  %s %s\n",
		cliui.KeyStyle.Render("Learner:"),
		cliui.NameStyle.Render(session.UserID),
		cliui.KeyStyle.Render("Thread:"),
		cliui.HashStyle.Render(utils.Truncate(session.ThreadID, 16)),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type a sentence and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/thread":
			fmt.Fprintf(c.out, "  %s\n\n", cliui.HashStyle.Render(session.ThreadID))
			continue
		}

		var out *turnResult
		err := cliui.Step(c.out, "Correcting", func() error {
			var err error
			out, err = t.Turn(ctx, session.ThreadID, session.UserID, input)
			return err
		})
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		fmt.Fprintln(c.out, cliui.RenderCorrection(out.Result))
		if out.Compacted {
			fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render(
				fmt.Sprintf("Earlier conversation summarized (%d messages so far)", out.MessageCount)))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// resolveSession picks the thread and learner for this run. Explicit flags
// win, then the saved session, then a new thread.
func (c *chatCommander) resolveSession(sessions *dotdir.Manager) (*dotdir.SessionState, error) {
	saved, err := sessions.LoadSession(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	userID := c.userID
	if userID == "" && saved != nil {
		userID = saved.UserID
	}
	if userID == "" {
		return nil, errors.New("a learner id is required: pass --user")
	}

	switch {
	case c.threadID != "":
		return &dotdir.SessionState{ThreadID: c.threadID, UserID: userID, StartedAt: time.Now()}, nil
	case !c.newThread && saved != nil && saved.UserID == userID:
		return saved, nil
	default:
		return &dotdir.SessionState{ThreadID: uuid.NewString(), UserID: userID, StartedAt: time.Now()}, nil
	}
}
