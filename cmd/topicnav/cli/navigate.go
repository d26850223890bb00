package cli

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

const (
	directionNext     = "next"
	directionPrevious = "previous"
)

//nolint:tagliatelle // superior snake-case yo.
type navigateStep struct {
	Step                int             `json:"step"`
	Time                *timestamp.Time `json:"time,omitempty"`
	CanNavigateNext     bool            `json:"can_navigate_next"`
	CanNavigatePrevious bool            `json:"can_navigate_previous"`
}

func newNavigateCmd() *cobra.Command {
	navCfg := navigator.DefaultConfig()

	var (
		topic     string
		direction string
		from      string
		steps     int
		noStats   bool
	)

	cmd := &cobra.Command{
		Use:   "navigate <recording>",
		Short: "Step through the messages of one topic",
		Long: `Seeks a recording to --from and repeatedly navigates to the next or
previous message of --topic, printing the playback time after each step.
Stepping stops early once the playback time no longer moves.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topic == "" {
				return errors.New("--topic is required")
			}

			if direction != directionNext && direction != directionPrevious {
				return fmt.Errorf("--direction must be %q or %q", directionNext, directionPrevious)
			}

			if steps < 1 {
				return errors.New("--steps must be at least 1")
			}

			if navCfg.WindowCount < 1 || navCfg.TargetMessagesInWindow < 1 {
				return errors.New("--window-count and --target-messages must be at least 1")
			}

			logger, err := loggerFromCmd(cmd)
			if err != nil {
				return err
			}

			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			events, err := playback.Load(ctx, args[0])
			if err != nil {
				return err
			}

			player := playback.NewPlayer(logger, events, playback.Options{TopicStats: !noStats})
			if !slices.Contains(player.Topics(), topic) {
				return fmt.Errorf("topic not found: %s", topic)
			}

			if from != "" {
				at, err := timestamp.Parse(from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}

				if err := player.SeekPlayback(at); err != nil {
					return err
				}
			}

			nav := navigator.New(logger, navCfg, player, bounds.NewMemoryCache(), topic)
			defer nav.Close()

			results := make([]navigateStep, 0, steps)

			for i := 1; i <= steps; i++ {
				before := player.CurrentTime()

				if direction == directionNext {
					nav.HandleNext(ctx)
				} else {
					nav.HandlePrevious(ctx)
				}

				if err := ctx.Err(); err != nil {
					return err
				}

				state := nav.State(ctx)
				if state.CurrentTime == nil || (before != nil && state.CurrentTime.Equal(*before)) {
					break
				}

				results = append(results, navigateStep{
					Step:                i,
					Time:                state.CurrentTime,
					CanNavigateNext:     state.CanNavigateNext,
					CanNavigatePrevious: state.CanNavigatePrevious,
				})
			}

			if p.isJSON() {
				return p.json(results)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					strconv.Itoa(r.Step),
					formatTime(r.Time),
					strconv.FormatBool(r.CanNavigateNext),
					strconv.FormatBool(r.CanNavigatePrevious),
				})
			}

			return p.table([]string{"STEP", "TIME", "NEXT", "PREVIOUS"}, rows)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "topic to navigate")
	cmd.Flags().StringVar(&direction, "direction", directionNext, "navigation direction: next or previous")
	cmd.Flags().StringVar(&from, "from", "", "start time as seconds, e.g. 12.5 (default: recording start)")
	cmd.Flags().IntVar(&steps, "steps", 1, "number of navigation steps")
	cmd.Flags().BoolVar(&noStats, "no-stats", false, "hide per-topic statistics from the navigator")
	cmd.Flags().IntVar(&navCfg.WindowCount, "window-count", navCfg.WindowCount, "number of backward windows")
	cmd.Flags().IntVar(&navCfg.TargetMessagesInWindow, "target-messages", navCfg.TargetMessagesInWindow,
		"messages the first backward window aims to contain")

	return cmd
}

func formatTime(t *timestamp.Time) string {
	if t == nil {
		return "-"
	}

	return t.String()
}
