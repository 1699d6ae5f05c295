package irys

import "fmt"

// NetworkError reports a transport-level failure on a read operation
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("irys %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports an unresolvable content identifier
type NotFoundError struct {
	Cid string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("irys content not found: %s", e.Cid)
}

// InsufficientBalanceError reports the network rejecting an upload because the
// account balance cannot cover the byte cost. Classification comes from the
// network's own rejection, never from a local estimate.
type InsufficientBalanceError struct {
	Account string
	Detail  string
}

func (e *InsufficientBalanceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("irys balance insufficient for upload: %s", e.Detail)
	}
	return "irys balance insufficient for upload"
}

// UploadError reports an upload failure. Ambiguous is set when the transport
// failed after the request body was sent, meaning the provider may already
// have accepted (and charged for) the bytes. An ambiguous upload must never be
// retried automatically.
type UploadError struct {
	Ambiguous bool
	Err       error
}

func (e *UploadError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("irys upload outcome ambiguous: %v", e.Err)
	}
	return fmt.Sprintf("irys upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
