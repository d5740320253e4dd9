package handler

// PublicKeyResponse carries "0x" in PublicKey when nothing is registered.
type PublicKeyResponse struct {
	Identity   string `json:"identity"`
	PublicKey  string `json:"public_key"`
	Registered bool   `json:"registered"`
}
