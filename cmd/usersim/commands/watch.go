package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/moolen/usersim/internal/domain"
	"github.com/moolen/usersim/internal/logging"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <domain.yaml>",
		Short: "Watch a domain file and report every valid change",
		Long: `Load a domain file and keep watching it. Each valid change is loaded and
summarized; invalid changes are logged and the last valid schema is kept.
Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a change is reloaded")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, debounce time.Duration) error {
	logger := logging.GetLogger("watch")
	if debounce <= 0 {
		return fmt.Errorf("--debounce must be positive, got %s", debounce)
	}

	registry, err := domain.NewRegistry(domain.RegistryConfig{
		Size:           1,
		DebounceMillis: int(debounce.Milliseconds()),
	})
	if err != nil {
		return err
	}

	w, err := registry.Watch(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			logger.Warn("failed to stop watcher: %v", err)
		}
	}()

	var last *domain.Schema
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		s, err := registry.Get(path)
		if err != nil {
			return err
		}
		if s != last {
			last = s
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d slots, elicitation=%v inquiry=%v\n",
				path, len(s.SlotNames()), s.SlotNamesElicitation(), s.SlotNamesInquiry())
		}

		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return nil
		case <-ticker.C:
		}
	}
}
