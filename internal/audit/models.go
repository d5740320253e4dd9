package audit

import "time"

// Event records one successful mutation. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	Action    Action
	// Actor is the ledger account that submitted the transaction.
	Actor string
	// Subject is the account or record the action is about.
	Subject   string
	Contract  string
	TxHash    string
	Reason    string
	RequestID string
}

type Action string

const (
	ActionPubKeyRegistered   Action = "pubkey_registered"
	ActionIssuerAdded        Action = "issuer_added"
	ActionIssuerRemoved      Action = "issuer_removed"
	ActionDeputyChanged      Action = "deputy_changed"
	ActionCertificateAdded   Action = "certificate_added"
	ActionCertificateRevoked Action = "certificate_revoked"
	ActionTokensTransferred  Action = "tokens_transferred"
	ActionTokensApproved     Action = "tokens_approved"
	ActionEscrowDeposited    Action = "escrow_deposited"
	ActionEscrowRefunded     Action = "escrow_refunded"
	ActionRequestSubmitted   Action = "request_submitted"
	ActionRequestApproved    Action = "request_approved"
	ActionRequestDenied      Action = "request_denied"
	ActionRequestCancelled   Action = "request_cancelled"
	ActionRequestCompleted   Action = "request_completed"
	ActionRequestFailed      Action = "request_failed"
	ActionRevokeRaceDetected Action = "revoke_race_detected"
)
