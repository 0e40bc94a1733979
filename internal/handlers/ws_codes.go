// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the table socket.
const (
	BadSubprotocolError   = 3000 // Client connected without the fourcolor subprotocol.
	InvalidAuthTokenError = 3001 // Auth token missing, invalid or expired.
	InvalidTableIDError   = 3003 // Table id in the URL is malformed or unknown.
	NotSeatedError        = 3004 // Player is not seated at the table.
	SlowConsumerError     = 3005 // Client fell too far behind the event stream.
)
