// Package dualityctl builds the dualityctl command tree: one-shot duality
// commands and sheet edits against the local store or a remote game service.
package dualityctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/service"
	entrypoint "github.com/louisbranch/dualitydice/internal/platform/cmd"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	dualitygrpc "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/duality"
	"github.com/louisbranch/dualitydice/internal/storage"
	"github.com/spf13/cobra"
)

// Config holds dualityctl configuration. Flags override these values.
type Config struct {
	ActorID   string `env:"DUALITY_ACTOR_ID"   envDefault:"local"`
	ActorName string `env:"DUALITY_ACTOR_NAME"`
	GroupID   string `env:"DUALITY_GROUP_ID"   envDefault:"local"`
	// GameAddr sends commands to a running game service instead of opening
	// the store directly.
	GameAddr string `env:"DUALITY_CTL_GAME_ADDR"`

	Service service.Config `env:"-"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	svc, err := service.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Service = svc
	return cfg, nil
}

// Backend is what the commands run against.
type Backend interface {
	dualitygrpc.Backend
	io.Closer
}

// Opener connects a Backend for one invocation.
type Opener func(ctx context.Context, cfg Config) (Backend, error)

// OpenBackend opens the configured store, or dials the game service when
// GameAddr is set.
func OpenBackend(ctx context.Context, cfg Config) (Backend, error) {
	if addr := strings.TrimSpace(cfg.GameAddr); addr != "" {
		return dialRemote(ctx, addr)
	}
	return service.Open(cfg.Service, log.New(io.Discard, "", 0))
}

// ReplyError reports a command whose reply was not OK. The reply text has
// already been printed.
type ReplyError struct {
	Code apperrors.Code
}

func (e *ReplyError) Error() string {
	if e.Code == "" {
		return "command failed"
	}
	return "command failed: " + string(e.Code)
}

// NewRootCommand builds the command tree. A nil open uses OpenBackend.
func NewRootCommand(cfg Config, open Opener) *cobra.Command {
	if open == nil {
		open = OpenBackend
	}
	cli := &cli{cfg: cfg, open: open}

	root := &cobra.Command{
		Use:           "dualityctl",
		Short:         "Roll Duality dice and edit character sheets",
		Long:          "dualityctl runs duality commands for one actor, against the local store or a running game service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&cli.cfg.ActorID, "actor", cli.cfg.ActorID, "actor id")
	flags.StringVar(&cli.cfg.ActorName, "name", cli.cfg.ActorName, "actor display name")
	flags.StringVar(&cli.cfg.GroupID, "group", cli.cfg.GroupID, "group id; empty for a private roll")
	flags.StringVar(&cli.cfg.GameAddr, "game-addr", cli.cfg.GameAddr, "game service address; empty opens the store directly")
	flags.StringVar(&cli.cfg.Service.StoreDriver, "store-driver", cli.cfg.Service.StoreDriver, "storage driver: sqlite, bbolt or memory")
	flags.StringVar(&cli.cfg.Service.DBPath, "db-path", cli.cfg.Service.DBPath, "storage file for persistent drivers")
	flags.StringVar(&cli.cfg.Service.Locale, "locale", cli.cfg.Service.Locale, "reply locale")

	root.AddCommand(
		cli.checkCommand("roll", "dd", "Make a duality check, e.g. roll +agi adv [15] climb"),
		cli.checkCommand("reaction", "ddr", "Make a reaction roll: no Hope, Stress or Fear changes"),
		cli.testCommand(),
		cli.gmCommand(),
		cli.aliasCommand(),
		cli.setCommand(),
		cli.showCommand(),
	)
	return root
}

type cli struct {
	cfg  Config
	open Opener
}

func (c *cli) actor() storage.Actor {
	return storage.Actor{
		ID:      strings.TrimSpace(c.cfg.ActorID),
		Name:    strings.TrimSpace(c.cfg.ActorName),
		GroupID: strings.TrimSpace(c.cfg.GroupID),
	}
}

func (c *cli) withBackend(ctx context.Context, fn func(Backend) error) error {
	backend, err := c.open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("close backend: %v", err)
		}
	}()
	return fn(backend)
}

// run executes one command line and prints the reply.
func (c *cli) run(cmd *cobra.Command, line string, mentions []string) error {
	return c.withBackend(cmd.Context(), func(b Backend) error {
		reply, err := b.Execute(cmd.Context(), service.Request{
			Actor:    c.actor(),
			Text:     line,
			Locale:   c.cfg.Service.Locale,
			Mentions: mentions,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		if !reply.OK {
			return &ReplyError{Code: reply.Code}
		}
		return nil
	})
}

func commandLine(name string, args ...string) string {
	return strings.TrimSpace("." + name + " " + strings.Join(args, " "))
}

func (c *cli) checkCommand(use, name, short string) *cobra.Command {
	var mentions []string
	cmd := &cobra.Command{
		Use:   use + " [modifiers...] [reason]",
		Short: short,
		// Flags stop at the first argument; a leading negative modifier
		// needs "--" before it.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, commandLine(name, args...), mentions)
		},
	}
	cmd.Flags().StringSliceVar(&mentions, "help-from", nil, "actor ids asked to help")
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (c *cli) testCommand() *cobra.Command {
	var reaction bool
	cmd := &cobra.Command{
		Use:   "test [hope fear]",
		Short: "Resolve preset dice; no arguments rolls one base die",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reaction {
				args = append([]string{"-r"}, args...)
			}
			return c.run(cmd, commandLine("test", args...), nil)
		},
	}
	cmd.Flags().BoolVarP(&reaction, "reaction", "r", false, "resolve as a reaction")
	return cmd
}

func (c *cli) gmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gm [clear]",
		Short: "Take the group's GM seat, or clear it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, commandLine("gm", args...), nil)
		},
	}
}

func (c *cli) aliasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "alias [key]",
		Short: "List attribute keys or explain one key's aliases",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, commandLine("dhalias", args...), nil)
		},
	}
}

func (c *cli) setCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Write a sheet value by key, label or alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value %q is not an integer", args[1])
			}
			return c.withBackend(cmd.Context(), func(b Backend) error {
				key, card, err := b.SetValue(cmd.Context(), c.actor(), args[0], value)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s = %d\n", key, card.Values[string(key)])
				if card.Text != "" {
					fmt.Fprintln(out, card.Text)
				}
				return nil
			})
		},
	}
}

func (c *cli) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the actor's card and stored values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd.Context(), func(b Backend) error {
				card, err := b.Card(cmd.Context(), c.actor())
				if errors.Is(err, apperrors.New(apperrors.CodeNotFound, "")) {
					return fmt.Errorf("actor %q has no sheet yet", c.actor().ID)
				}
				if err != nil {
					return err
				}
				printCard(cmd.OutOrStdout(), card)
				return nil
			})
		},
	}
}
