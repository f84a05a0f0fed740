// Automod component remembering confirmed guild memberships for a short TTL.
//
// Admin commands check that their target is still in the guild. Positive answers are kept here so bursts of commands against one member cost a single platform lookup; removals are forgotten explicitly. Absence is never cached, since anybody may join at any time.
//
// Includes an interface and implementations using redis (with a local TinyLFU tier) and in-process memory.
package cachestore
