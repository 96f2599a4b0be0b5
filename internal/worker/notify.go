package worker

// RenderNotifyMessage is the WebSocket message protocol relayed to clients
// through Redis pub/sub. Field names match what the frontend parses.
type RenderNotifyMessage struct {
	Status        string   `json:"status"`
	CertificateID uint     `json:"certificate_id"`
	Format        string   `json:"format"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}
