package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/wickbot/internal/id"
)

type CSV struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var csvHeader = []string{
	"id", "ticket", "symbol", "side", "volume",
	"entry_price", "exit_price", "opened_at", "closed_at", "pnl", "comment",
}

func NewCSV(path string) (*CSV, error) {
	info, err := os.Stat(path)
	fresh := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trades csv: %w", err)
	}

	j := &CSV{file: file, writer: csv.NewWriter(file)}
	if fresh {
		if err := j.writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, err
		}
		j.writer.Flush()
	}
	return j, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if t.ID == "" {
		t.ID = id.New()
	}
	closedAt := ""
	if !t.ClosedAt.IsZero() {
		closedAt = t.ClosedAt.UTC().Format(time.RFC3339)
	}

	row := []string{
		t.ID,
		t.Ticket,
		t.Symbol,
		string(t.Side),
		strconv.FormatFloat(t.Volume, 'f', -1, 64),
		strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
		strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
		t.OpenedAt.UTC().Format(time.RFC3339),
		closedAt,
		strconv.FormatFloat(t.PnL, 'f', -1, 64),
		t.Comment,
	}
	if err := j.writer.Write(row); err != nil {
		return err
	}
	j.writer.Flush()
	return j.writer.Error()
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}
