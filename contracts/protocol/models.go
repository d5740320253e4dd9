package protocol

import "fmt"

// ContractVersion identifies the contract interface shared by the ledger and its clients.
const ContractVersion = "v0.1.0"

// Contract names reported by the ledger when a binding connects.
const (
	PublicKeys   = "PublicKeys"
	Issuers      = "Issuers"
	Certificates = "Certificates"
	PathToken    = "PathToken"
	Escrow       = "Escrow"
)

// IssuerStatus mirrors the Issuers contract enum. Transitions only go
// None -> Active -> Inactive; an inactive issuer stays inactive.
type IssuerStatus uint8

const (
	IssuerNone IssuerStatus = iota
	IssuerActive
	IssuerInactive
)

func (s IssuerStatus) String() string {
	switch s {
	case IssuerNone:
		return "none"
	case IssuerActive:
		return "active"
	case IssuerInactive:
		return "inactive"
	default:
		return fmt.Sprintf("issuer_status(%d)", uint8(s))
	}
}

// IsValid reports whether s is one of the declared statuses.
func (s IssuerStatus) IsValid() bool {
	return s <= IssuerInactive
}

// ParseIssuerStatus converts the string form back to a status.
func ParseIssuerStatus(v string) (IssuerStatus, error) {
	switch v {
	case "none":
		return IssuerNone, nil
	case "active":
		return IssuerActive, nil
	case "inactive":
		return IssuerInactive, nil
	}
	return IssuerNone, fmt.Errorf("unknown issuer status %q", v)
}

// RequestStatus mirrors the Escrow contract enum.
type RequestStatus uint8

const (
	RequestNone RequestStatus = iota
	// RequestInitial is the status of a freshly submitted request.
	RequestInitial
	// RequestUserCompleted means the user approved and attached a content locator.
	RequestUserCompleted
	// RequestUserDenied means the user refused; the seeker's deposit is refundable.
	RequestUserDenied
	// RequestSeekerCompleted means the retrieved certificate matched the registered hash.
	RequestSeekerCompleted
	// RequestSeekerFailed means the retrieved certificate did not match. Funds stay in flight.
	RequestSeekerFailed
	// RequestSeekerCancelled is only reachable from RequestInitial.
	RequestSeekerCancelled
)

func (s RequestStatus) String() string {
	switch s {
	case RequestNone:
		return "none"
	case RequestInitial:
		return "initial"
	case RequestUserCompleted:
		return "user_completed"
	case RequestUserDenied:
		return "user_denied"
	case RequestSeekerCompleted:
		return "seeker_completed"
	case RequestSeekerFailed:
		return "seeker_failed"
	case RequestSeekerCancelled:
		return "seeker_cancelled"
	default:
		return fmt.Sprintf("request_status(%d)", uint8(s))
	}
}

// IsValid reports whether s is one of the declared statuses.
func (s RequestStatus) IsValid() bool {
	return s <= RequestSeekerCancelled
}

// IsTerminal reports whether no further transition leaves s.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestUserDenied, RequestSeekerCompleted, RequestSeekerFailed, RequestSeekerCancelled:
		return true
	case RequestNone, RequestInitial, RequestUserCompleted:
		return false
	}
	return false
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestNone:          {RequestInitial},
	RequestInitial:       {RequestUserCompleted, RequestUserDenied, RequestSeekerCancelled},
	RequestUserCompleted: {RequestSeekerCompleted, RequestSeekerFailed},
}

// CanTransition reports whether the escrow state machine allows from -> to.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Method names exposed by the contracts.
const (
	MethodOwner     = "owner"
	MethodDeputy    = "deputy"
	MethodSetDeputy = "setDeputy"

	MethodAddPublicKey   = "addPublicKey"
	MethodPublicKeyStore = "publicKeyStore"

	MethodAddIssuer       = "addIssuer"
	MethodRemoveIssuer    = "removeIssuer"
	MethodGetIssuerStatus = "getIssuerStatus"

	MethodAddCertificate         = "addCertificate"
	MethodRevokeCertificate      = "revokeCertificate"
	MethodGetCertificateIndex    = "getCertificateIndex"
	MethodGetCertificateCount    = "getCertificateCount"
	MethodGetCertificateMetadata = "getCertificateMetadata"
	MethodGetCertificateAt       = "getCertificateAt"

	MethodBalanceOf    = "balanceOf"
	MethodTotalSupply  = "totalSupply"
	MethodTransfer     = "transfer"
	MethodApprove      = "approve"
	MethodAllowance    = "allowance"
	MethodTransferFrom = "transferFrom"

	MethodIncreaseAvailableBalance = "increaseAvailableBalance"
	MethodRefundAvailableBalance   = "refundAvailableBalance"
	MethodSeekerAvailableBalance   = "seekerAvailableBalance"
	MethodSeekerInflightBalance    = "seekerInflightBalance"
	MethodRequestCost              = "requestCost"
	MethodSubmitRequest            = "submitRequest"
	MethodUserCompleteRequest      = "userCompleteRequest"
	MethodUserDenyRequest          = "userDenyRequest"
	MethodSeekerCancelRequest      = "seekerCancelRequest"
	MethodSeekerCompleteRequest    = "seekerCompleteRequest"
	MethodGetRequest               = "getRequest"
	MethodGetSeekerRequests        = "getSeekerRequests"
)

// CertificateMetadata is the result of getCertificateMetadata.
type CertificateMetadata struct {
	Issuer  string `json:"issuer"`
	Revoked bool   `json:"revoked"`
}

// CertificateEntry is the result of getCertificateAt.
type CertificateEntry struct {
	Hash    string `json:"hash"`
	Issuer  string `json:"issuer"`
	Revoked bool   `json:"revoked"`
}

// Request is the result of getRequest.
type Request struct {
	ID      uint64        `json:"id"`
	Seeker  string        `json:"seeker"`
	User    string        `json:"user"`
	Hash    string        `json:"hash"`
	Cost    uint64        `json:"cost"`
	Status  RequestStatus `json:"status"`
	Locator string        `json:"locator,omitempty"`
}

// Event names emitted on receipts.
const (
	EventPublicKeyAdded       = "PublicKeyAdded"
	EventIssuerStatusChanged  = "IssuerStatusChanged"
	EventDeputyChanged        = "DeputyChanged"
	EventCertificateAdded     = "CertificateAdded"
	EventCertificateRevoked   = "CertificateRevoked"
	EventTransfer             = "Transfer"
	EventApproval             = "Approval"
	EventBalanceIncreased     = "BalanceIncreased"
	EventBalanceRefunded      = "BalanceRefunded"
	EventRequestSubmitted     = "RequestSubmitted"
	EventRequestStatusChanged = "RequestStatusChanged"
)
