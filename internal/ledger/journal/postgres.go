package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"credledger/internal/ledger"
	"credledger/pkg/domain"
)

// PostgresJournal persists entries in the ledger_journal table.
type PostgresJournal struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Append inserts the entry only if it extends the current head.
func (j *PostgresJournal) Append(ctx context.Context, entry Entry) error {
	args, err := json.Marshal(nonNilArgs(entry.Args))
	if err != nil {
		return fmt.Errorf("encode journal args: %w", err)
	}
	events, err := json.Marshal(nonNilEvents(entry.Events))
	if err != nil {
		return fmt.Errorf("encode journal events: %w", err)
	}

	query := `
		INSERT INTO ledger_journal (block, tx_hash, from_address, to_address, method, args, events, committed_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE (SELECT COALESCE(MAX(block), 0) FROM ledger_journal) = $1 - 1
		ON CONFLICT (block) DO NOTHING
	`
	res, err := j.db.ExecContext(ctx, query,
		int64(entry.Block),
		entry.TxHash.String(),
		entry.From.String(),
		entry.To.String(),
		entry.Method,
		args,
		events,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append journal block %d: %w", entry.Block, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append journal block %d: %w", entry.Block, err)
	}
	if n == 0 {
		return fmt.Errorf("append block %d: %w", entry.Block, ErrOutOfOrder)
	}
	return nil
}

func (j *PostgresJournal) Range(ctx context.Context, from, to uint64) ([]Entry, error) {
	query := `
		SELECT block, tx_hash, from_address, to_address, method, args, events, committed_at
		FROM ledger_journal
		WHERE block >= $1 AND block <= $2
		ORDER BY block
	`
	rows, err := j.db.QueryContext(ctx, query, int64(from), int64(to))
	if err != nil {
		return nil, fmt.Errorf("range journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                    Entry
			block                int64
			txHash, fromAddr, to string
			args, events         []byte
		)
		if err := rows.Scan(&block, &txHash, &fromAddr, &to, &e.Method, &args, &events, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Block = uint64(block)
		e.TxHash = domain.TxHash(txHash)
		e.From = domain.Address(fromAddr)
		e.To = domain.Address(to)
		if err := json.Unmarshal(args, &e.Args); err != nil {
			return nil, fmt.Errorf("decode journal args for block %d: %w", block, err)
		}
		if err := json.Unmarshal(events, &e.Events); err != nil {
			return nil, fmt.Errorf("decode journal events for block %d: %w", block, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func (j *PostgresJournal) Height(ctx context.Context) (uint64, error) {
	var height int64
	if err := j.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(block), 0) FROM ledger_journal`).Scan(&height); err != nil {
		return 0, fmt.Errorf("journal height: %w", err)
	}
	return uint64(height), nil
}

func nonNilArgs(args []json.RawMessage) []json.RawMessage {
	if args == nil {
		return []json.RawMessage{}
	}
	return args
}

func nonNilEvents(events []ledger.Event) []ledger.Event {
	if events == nil {
		return []ledger.Event{}
	}
	return events
}
