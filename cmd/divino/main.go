package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/pbaille/divino/internal/api"
	"github.com/pbaille/divino/internal/cellar"
	"github.com/pbaille/divino/internal/config"
	"github.com/pbaille/divino/internal/di"
	"github.com/pbaille/divino/internal/di/providers"
	"github.com/pbaille/divino/internal/domain"
	"github.com/pbaille/divino/internal/fetcher"
	"github.com/pbaille/divino/internal/id"
	"github.com/pbaille/divino/internal/logger"
	"github.com/pbaille/divino/internal/navigation"
	"github.com/pbaille/divino/internal/ranking"
	"github.com/pbaille/divino/internal/sommelier"
)

var overrides config.Overrides

func main() {
	rootCmd := &cobra.Command{
		Use:          "divino",
		Short:        "Pocket sommelier: identify wines from photos, menus and names",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&overrides.Environment, "env", "", "environment (development, staging, production)")
	pf.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&overrides.Storage, "storage", "", "storage backend (sqlite, badger, memory)")
	pf.StringVar(&overrides.StoragePath, "storage-path", "", "storage file or directory")
	pf.StringVar(&overrides.EnvFile, "env-file", "", "path to a .env file")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(menuCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(cellarCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the container for one command invocation.
type app struct {
	injector *do.RootScope
	log      *logger.Logger
	cellar   *cellar.Cellar
	recent   *cellar.Recent
}

func openApp() (*app, error) {
	cfg, err := config.Load(overrides)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return nil, err
	}

	return &app{
		injector: injector,
		log:      do.MustInvoke[*logger.Logger](injector),
		cellar:   do.MustInvoke[*cellar.Cellar](injector),
		recent:   do.MustInvoke[*cellar.Recent](injector),
	}, nil
}

// Close shuts every service down in reverse order.
func (a *app) Close() {
	if err := a.injector.Shutdown(); err != nil {
		a.log.Error("Shutdown error", "error", err)
	}
}

// session starts a navigation session backed by the model gateway.
func (a *app) session() (*navigation.Session, error) {
	gateway, err := do.Invoke[*sommelier.Sommelier](a.injector)
	if err != nil {
		return nil, err
	}
	sid, err := id.NewSessionID()
	if err != nil {
		return nil, err
	}
	return navigation.NewSession(sid, gateway, a.cellar, a.recent, a.log.Logger), nil
}

// withSession runs fn with a fresh session and an interrupt-aware context.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app, s *navigation.Session) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.session()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a, s)
}

func sortFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "sort", "s", string(ranking.DefaultSortMode), "result order (value, rating, original)")
}

func scanCmd() *cobra.Command {
	var mode, sortBy string

	cmd := &cobra.Command{
		Use:   "scan [image]",
		Short: "Identify the wines in a photo of a bottle, a menu or a wall",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanMode, err := domain.ParseScanMode(mode)
			if err != nil {
				return err
			}
			sortMode, err := ranking.ParseSortMode(sortBy)
			if err != nil {
				return err
			}
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			return withSession(cmd, func(ctx context.Context, a *app, s *navigation.Session) error {
				fmt.Fprintln(cmd.ErrOrStderr(), navigation.LoadingMessages[0])
				state, err := s.Scan(ctx, image, "", scanMode)
				if err != nil {
					return err
				}
				return printState(cmd, state, a.cellar, sortMode)
			})
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(domain.ScanBottle), "what the photo shows (bottle, menu, wall)")
	sortFlag(cmd, &sortBy)
	return cmd
}

func menuCmd() *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "menu [url]",
		Short: "Import a restaurant wine list from a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sortMode, err := ranking.ParseSortMode(sortBy)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, a *app, s *navigation.Session) error {
				state, err := s.ImportMenu(ctx, args[0])
				if err != nil {
					return err
				}
				return printState(cmd, state, a.cellar, sortMode)
			})
		},
	}

	sortFlag(cmd, &sortBy)
	return cmd
}

func searchCmd() *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Look a wine up by name, or import the wine list at a URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sortMode, err := ranking.ParseSortMode(sortBy)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, a *app, s *navigation.Session) error {
				query := strings.Join(args, " ")
				run := s.Search
				if fetcher.IsURL(query) {
					run = s.ImportMenu
				}
				state, err := run(ctx, query)
				if err != nil {
					return err
				}
				return printState(cmd, state, a.cellar, sortMode)
			})
		},
	}

	sortFlag(cmd, &sortBy)
	return cmd
}

// selectFirst searches for query and opens the detail of the first hit.
func selectFirst(ctx context.Context, s *navigation.Session, query string) (navigation.Context, error) {
	state, err := s.Search(ctx, query)
	if err != nil {
		return state, err
	}
	if state.Error != "" {
		return state, errors.New(state.Error)
	}
	if state.Screen == navigation.ScreenResults && len(state.Results) > 0 {
		state, err = s.Select(state.Results[0].ID)
		if err != nil {
			return state, err
		}
	}
	if state.Selected == nil {
		return state, fmt.Errorf("no wine found for %q", query)
	}
	return state, nil
}

func similarCmd() *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "similar [query]",
		Short: "Suggest wines similar to the one named",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sortMode, err := ranking.ParseSortMode(sortBy)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, a *app, s *navigation.Session) error {
				state, err := selectFirst(ctx, s, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Simili a %s\n\n", state.Selected.Name)

				state, err = s.Similar(ctx)
				if err != nil {
					return err
				}
				return printState(cmd, state, a.cellar, sortMode)
			})
		},
	}

	sortFlag(cmd, &sortBy)
	return cmd
}

func askCmd() *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask the sommelier a question about a wine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(question) == "" {
				return errors.New("--question is required")
			}

			return withSession(cmd, func(ctx context.Context, a *app, s *navigation.Session) error {
				state, err := selectFirst(ctx, s, strings.Join(args, " "))
				if err != nil {
					return err
				}

				answer, err := s.Ask(ctx, question)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n%s\n", state.Selected.Name, answer)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "question for the sommelier")
	return cmd
}

func cellarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cellar",
		Short: "List the wines saved in the cellar, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			wines := a.cellar.Newest()
			if len(wines) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "La cantina è vuota. Usa 'divino cellar toggle' per salvare un vino.")
				return nil
			}
			for _, w := range wines {
				printRow(cmd.OutOrStdout(), ranking.Row{Wine: w, InCellar: true}, "")
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle [query]",
		Short: "Add the named wine to the cellar, or remove it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, a *app, s *navigation.Session) error {
				state, err := selectFirst(ctx, s, strings.Join(args, " "))
				if err != nil {
					return err
				}

				saved, err := s.ToggleFavorite(ctx, "")
				if err != nil {
					return err
				}
				if saved {
					fmt.Fprintf(cmd.OutOrStdout(), "+ %s salvato in cantina\n", state.Selected.Name)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s rimosso dalla cantina\n", state.Selected.Name)
				}
				return nil
			})
		},
	})

	return cmd
}

func recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			queries := a.recent.List()
			if len(queries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nessuna ricerca recente.")
				return nil
			}
			for _, q := range queries {
				fmt.Fprintln(cmd.OutOrStdout(), q)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			handle, err := do.Invoke[*providers.HTTPServerHandle](a.injector)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.Run(ctx, handle.Server, a.log.Logger)
		},
	}

	cmd.Flags().StringVarP(&overrides.Port, "port", "p", "", "listen port (default 8080)")
	return cmd
}
