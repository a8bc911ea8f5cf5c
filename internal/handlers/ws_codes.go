// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Session token was missing, invalid or expired.
	InvalidRoomIDError    = 3003 // Room in the WS URL does not exist.
	NotSeatedError        = 3004 // Token is valid but the player is not on the room's roster.
	ReplacedError         = 3005 // The same player opened a newer connection.
)
