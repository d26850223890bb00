package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/source"
)

//nolint:tagliatelle // superior snake-case yo.
type topicRow struct {
	Topic string            `json:"topic"`
	Stats source.TopicStats `json:"stats"`
}

func newTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics <recording>",
		Short: "List the topics of a recording with message statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFromCmd(cmd)
			if err != nil {
				return err
			}

			p, err := printerFromCmd(cmd)
			if err != nil {
				return err
			}

			events, err := playback.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			player := playback.NewPlayer(logger, events, playback.Options{TopicStats: true})
			stats := player.Stats()

			rows := make([]topicRow, 0, len(stats))
			for topic, s := range stats {
				rows = append(rows, topicRow{Topic: topic, Stats: s})
			}

			sort.Slice(rows, func(i, j int) bool { return rows[i].Topic < rows[j].Topic })

			if p.isJSON() {
				return p.json(rows)
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{
					r.Topic,
					strconv.FormatInt(r.Stats.NumMessages, 10),
					formatTime(r.Stats.FirstMessageTime),
					formatTime(r.Stats.LastMessageTime),
				})
			}

			return p.table([]string{"TOPIC", "MESSAGES", "FIRST", "LAST"}, table)
		},
	}
}
