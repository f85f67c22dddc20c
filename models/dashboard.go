package models

// AggregateView is the dashboard summary derived from one StatusSnapshot.
// It is recomputed on every request or stream tick and never stored.
type AggregateView struct {
	ActiveCount int       `json:"active"`
	TotalRx     int64     `json:"total_rx"`
	TotalTx     int64     `json:"total_tx"`
	Rx          string    `json:"rx"`
	Tx          string    `json:"tx"`
	Updated     string    `json:"updated"`
	GeneratedAt int64     `json:"generated_at"`
	Rows        []PeerRow `json:"rows"`
}

// PeerRow is one table line. PublicKey only ever holds the truncated prefix.
type PeerRow struct {
	Interface  string `json:"interface"`
	PeerName   string `json:"peer_name"`
	PublicKey  string `json:"public_key"`
	Endpoint   string `json:"endpoint"`
	Country    string `json:"country,omitempty"`
	Active     bool   `json:"active"`
	Status     string `json:"status"`
	Handshake  string `json:"handshake"`
	StatusText string `json:"status_text"`
	Rx         string `json:"rx"`
	Tx         string `json:"tx"`
	RxBytes    int64  `json:"rx_bytes"`
	TxBytes    int64  `json:"tx_bytes"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
