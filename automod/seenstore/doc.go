// Automod component for remembering recently processed message deliveries, with a fixed TTL.
//
// The gateway may deliver the same message more than once (reconnects, retried webhooks). The engine marks each message id before running rules, and skips ids it has already seen, so a redelivery does not count twice against the sender's rate window or enforce twice.
//
// Includes an interface and implementations using redis and in-process memory.
package seenstore
