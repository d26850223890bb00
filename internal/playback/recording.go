//nolint:tagliatelle // superior snake-case yo.
package playback

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

const (
	recordingExt     = ".jsonl"
	maxLineBytes     = 16 << 20
	maxParallelFiles = 4
)

// record is one line of a recording file.
type record struct {
	Topic       string          `json:"topic"`
	ReceiveTime *timestamp.Time `json:"receive_time"`
	SchemaName  string          `json:"schema_name,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
}

// Load reads a recording from path, which is either a JSON-lines file or a
// directory of them.
func Load(ctx context.Context, path string) ([]source.MessageEvent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat recording: %w", err)
	}

	if info.IsDir() {
		return LoadDir(ctx, path)
	}

	return LoadFile(path)
}

// LoadFile reads one JSON-lines recording file. Blank lines are skipped.
func LoadFile(path string) ([]source.MessageEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var (
		events []source.MessageEvent
		line   int
	)

	for scanner.Scan() {
		line++

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: invalid record: %w", path, line, err)
		}

		if rec.Topic == "" {
			return nil, fmt.Errorf("%s:%d: topic is required", path, line)
		}

		if rec.ReceiveTime == nil {
			return nil, fmt.Errorf("%s:%d: receive_time is required", path, line)
		}

		events = append(events, source.MessageEvent{
			Topic:       rec.Topic,
			ReceiveTime: timestamp.New(rec.ReceiveTime.Sec, rec.ReceiveTime.Nsec),
			SchemaName:  rec.SchemaName,
			Message:     rec.Message,
			SizeInBytes: len(rec.Message),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return events, nil
}

// LoadDir reads every recording file in dir concurrently. Events keep the
// order of the sorted file names, then of the lines within each file.
func LoadDir(ctx context.Context, dir string) ([]source.MessageEvent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording directory: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordingExt {
			continue
		}

		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files in %s", recordingExt, dir)
	}

	loaded := make([][]source.MessageEvent, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			events, err := LoadFile(file)
			if err != nil {
				return err
			}

			loaded[i] = events

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var events []source.MessageEvent
	for _, chunk := range loaded {
		events = append(events, chunk...)
	}

	return events, nil
}
