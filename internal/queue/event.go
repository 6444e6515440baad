// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves password reset mail off the
// request path.
package queue

// PasswordResetQueue is the durable queue carrying reset mail requests.
const PasswordResetQueue = "auth.password_reset"

// PasswordResetRequestedEvent is published when a reset token has been
// stored for a user.  It carries the raw token because the consumer must
// put it in the link; the queue is internal infrastructure.
type PasswordResetRequestedEvent struct {
    Email       string `json:"email"`
    Token       string `json:"token"`
    RequestedAt string `json:"requested_at"`
}
