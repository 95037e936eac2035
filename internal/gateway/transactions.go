package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTransactionMaxAge bounds how long a pending login stays usable.
const DefaultTransactionMaxAge = 15 * time.Minute

// Transaction is the state of one issued redirect that the callback has to
// match: the anti-CSRF state and the ID token nonce.
type Transaction struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	CreatedAt time.Time `json:"created_at"`
}

// Transactions keeps the pending Transaction between BeginLogin and
// ParseCallback. The two usually run in different processes, since the
// redirect ends the process that issued it.
type Transactions interface {
	// Put records tx as the pending transaction, replacing any previous one.
	Put(ctx context.Context, tx Transaction) error
	// Take returns and forgets the pending transaction. ok is false when
	// there is none.
	Take(ctx context.Context) (tx Transaction, ok bool, err error)
}

// MemoryTransactions keeps the pending transaction in memory.
type MemoryTransactions struct {
	mu      sync.Mutex
	pending *Transaction
}

// Put implements Transactions.
func (m *MemoryTransactions) Put(_ context.Context, tx Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = &tx
	return nil
}

// Take implements Transactions.
func (m *MemoryTransactions) Take(_ context.Context) (Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return Transaction{}, false, nil
	}
	tx := *m.pending
	m.pending = nil
	return tx, true, nil
}

// FileTransactions keeps the pending transaction in a 0600 JSON file.
type FileTransactions struct {
	mu   sync.Mutex
	path string
}

// NewFileTransactions stores the pending transaction at path.
func NewFileTransactions(path string) *FileTransactions {
	return &FileTransactions{path: path}
}

// Put implements Transactions.
func (f *FileTransactions) Put(ctx context.Context, tx Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create transaction directory: %w", err)
	}
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return nil
}

// Take implements Transactions.
func (f *FileTransactions) Take(ctx context.Context) (Transaction, bool, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, fmt.Errorf("failed to read transaction: %w", err)
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Transaction{}, false, fmt.Errorf("failed to remove transaction: %w", err)
	}

	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return Transaction{}, false, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return tx, true, nil
}
