package discord

import (
	"errors"
	"net/http"

	"github.com/guildwarden/warden/automod/engine"

	"github.com/bwmarrin/discordgo"
)

// Maps discord REST rejections onto the engine's error taxonomy. Anything else is returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return err
	}
	switch restErr.Response.StatusCode {
	case http.StatusForbidden:
		return &engine.PermissionError{Op: op, Err: err}
	case http.StatusNotFound:
		return &engine.NotFoundError{Op: op, Err: err}
	default:
		return err
	}
}
