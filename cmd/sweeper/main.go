// Command sweeper reconciles a photo library into a local database,
// aggregates it into year and month groups, and drives keep-or-trash
// triage with undo.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sweeper/internal/app"
	"sweeper/internal/config"
	"sweeper/internal/model"
	"sweeper/internal/sweep"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "sweeper",
		Short:         "Photo library triage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default ~/.sweeper/config.toml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log to stderr as well")

	root.AddCommand(configCmd(), scanCmd(), groupsCmd(), photosCmd(), markCmd(), trashCmd(), triageCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// withApp wires the application and runs op against it, closing everything
// afterwards.
func withApp(op func(*app.App) error) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	a, err := app.New(context.Background(), path, flagVerbose)
	if err != nil {
		return err
	}
	defer a.Close()
	return op(a)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config %q already exists", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.Example()), 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Reconcile the photo library into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				stats, err := a.Service.Scan(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("scanned %d, inserted %d, updated %d, skipped %d, removed %d stale records (%d batches)\n",
					stats.Scanned, stats.Inserted, stats.Updated, stats.SkippedFiles, stats.DeletedRecords, stats.Batches)
				return nil
			})
		},
	}
}

func groupsCmd() *cobra.Command {
	var byYear bool
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List photo groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				t := model.GroupTypeMonth
				if byYear {
					t = model.GroupTypeYear
				}
				groups, err := a.Service.Groups(t)
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Printf("%-12s %5d photos %5d keep %5d trash  %s\n",
						g.DisplayName, g.PhotoCount, g.KeepCount, g.TrashCount, g.CoverPath)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&byYear, "year", false, "group by year instead of month")
	return cmd
}

func photosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "photos <group-key>",
		Short: "List photos of a group (key like 2024 or 2024-Jan)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				group, err := a.Service.Group(args[0])
				if err != nil {
					return err
				}
				if group == nil {
					return fmt.Errorf("group %q not found", args[0])
				}
				photos, err := a.Service.Photos(*group, nil)
				if err != nil {
					return err
				}
				for _, p := range photos {
					fmt.Printf("%d\t%s\t%s\t%s\n", p.ID, p.Status,
						time.UnixMilli(p.TakenAt).Format("2006-01-02 15:04"), p.Path)
				}
				return nil
			})
		},
	}
}

func markCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <photo-id> <keep|trash|normal>",
		Short: "Set the triage status of one photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid photo id %q", args[0])
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return withApp(func(a *app.App) error {
				return a.Service.UpdatePhotoStatus(id, status)
			})
		},
	}
}

func trashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Inspect and empty the trash",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List photos marked for trash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				photos, err := a.Service.TrashedPhotos()
				if err != nil {
					return err
				}
				for _, p := range photos {
					fmt.Printf("%d\t%s\n", p.ID, p.Path)
				}
				fmt.Printf("%d photos in trash\n", len(photos))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "empty",
		Short: "Permanently delete all photos marked for trash",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				photos, err := a.Service.TrashedPhotos()
				if err != nil {
					return err
				}
				if len(photos) == 0 {
					fmt.Println("trash is empty")
					return nil
				}
				ids := make([]int64, len(photos))
				for i, p := range photos {
					ids[i] = p.ID
				}
				res, err := a.Service.DeletePhotosPermanently(ids)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d photos, %d failed\n", res.Succeeded, res.Failed)
				return nil
			})
		},
	})
	return cmd
}

func triageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "triage <group-key>",
		Short: "Interactively triage a group: k=keep, t=trash, u=undo, q=quit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app.App) error {
				session, err := a.Service.NewTriageSession(args[0])
				if err != nil {
					return err
				}
				defer session.Close()
				return runTriageLoop(session, os.Stdin, os.Stdout)
			})
		},
	}
}

func parseStatus(s string) (model.Status, error) {
	switch strings.ToLower(s) {
	case "keep":
		return model.StatusKeep, nil
	case "trash":
		return model.StatusTrashed, nil
	case "normal":
		return model.StatusNormal, nil
	default:
		return 0, fmt.Errorf("unknown status %q, want keep, trash or normal", s)
	}
}

// runTriageLoop reads single-letter commands and walks the session's
// untriaged photos in order.
func runTriageLoop(session *sweep.TriageSession, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		next, ok := nextUntriaged(session)
		if !ok {
			fmt.Fprintln(out, "group fully triaged")
			return nil
		}
		fmt.Fprintf(out, "[%d left] %s (k/t/u/q)? ", session.Remaining(), next.Path)
		if !scanner.Scan() {
			return scanner.Err()
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "k":
			session.Decide(next, model.StatusKeep)
		case "t":
			session.Decide(next, model.StatusTrashed)
		case "u":
			if !session.Undo() {
				fmt.Fprintln(out, "nothing to undo")
			}
		case "q":
			return nil
		}
	}
}

func nextUntriaged(session *sweep.TriageSession) (model.Photo, bool) {
	for _, p := range session.Photos() {
		if p.Status == model.StatusNormal {
			return p, true
		}
	}
	return model.Photo{}, false
}
