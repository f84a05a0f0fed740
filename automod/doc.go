// Auto-Moderation rules engine for anti-spam and content moderation in group chat servers.
//
// This package (`github.com/guildwarden/warden/automod`) contains a "rules engine" to augment human moderators. Every inbound chat message first passes a per-user rate monitor; messages which are not spam are then run through a fixed set of content rules (links, excessive caps, mass mentions). The outcome of rules are moderation actions like "delete message" or "timeout author", and an append-only ledger of cases. Moderator commands (warn, ban, mute, etc) go through the same engine, and warnings escalate automatically to a timeout and then a ban.
//
// Per-user state (rate windows, warning counts) lives in stores behind interfaces with atomic per-key operations, with in-memory, Redis and SQL implementations.
//
// See `cmd/warden` for a daemon built on this package.
package automod
