// Package memory keeps store tabs in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Backend struct {
	mu   sync.Mutex
	tabs map[string][][]string
	err  error

	Reads   int
	Appends int
	Writes  int
	Updates int
}

func New() *Backend {
	return &Backend{tabs: map[string][][]string{}}
}

func (b *Backend) Name() string { return "memory" }

// Fail makes every following call return err. Pass nil to recover.
func (b *Backend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *Backend) Read(ctx context.Context, tab string) ([][]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.Reads++
	return cloneRows(b.tabs[tab]), nil
}

func (b *Backend) Write(ctx context.Context, tab string, rows [][]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.Writes++
	b.tabs[tab] = cloneRows(rows)
	return nil
}

func (b *Backend) Append(ctx context.Context, tab string, rows [][]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.Appends++
	b.tabs[tab] = append(b.tabs[tab], cloneRows(rows)...)
	return nil
}

func (b *Backend) Update(ctx context.Context, tab string, index int, row []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	rows := b.tabs[tab]
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row %d out of range in %q", index, tab)
	}
	b.Updates++
	rows[index] = append([]string(nil), row...)
	return nil
}

// Rows returns a copy of a tab.
func (b *Backend) Rows(tab string) [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneRows(b.tabs[tab])
}

func cloneRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
