package olca

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the IPC client.
var (
	// ErrNotFound indicates the requested entity does not exist in the database.
	ErrNotFound = errors.New("entity not found")

	// ErrCalculationFailed indicates the server reported an error for a result.
	ErrCalculationFailed = errors.New("calculation failed")

	// ErrEmptyEndpoint indicates the client was built without an endpoint.
	ErrEmptyEndpoint = errors.New("IPC endpoint cannot be empty")
)

// RPCError is a JSON-RPC error object returned by the IPC server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`

	Method string `json:"-"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("IPC %s failed (code %d): %s", e.Method, e.Code, e.Message)
}

// NotFoundError wraps ErrNotFound with the entity type and id.
func NotFoundError(typ EntityType, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, typ, id)
}
