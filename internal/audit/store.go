package audit

import "context"

// Store persists audit events. Subjects match case-insensitively since
// addresses arrive in mixed checksum case; tx hashes match exactly.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListByTx(ctx context.Context, txHash string) ([]Event, error)
}
