// Package command decides if an issue comment may trigger bot commands and
// extracts them from the comment body.
package command

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/simplesurance/github-comment/internal/webhook"
)

// ErrSelfTriggered is returned by Check when the comment was written by one
// of the bots. Commands in it are ignored to prevent trigger loops.
var ErrSelfTriggered = errors.New("comment was written by a bot")

// ErrCommentDeleted is returned by Check when the webhook was sent for a
// deleted comment.
var ErrCommentDeleted = errors.New("comment was deleted")

// PermissionDeniedError is returned by Check when the author of the comment
// is not allowed to trigger commands.
type PermissionDeniedError struct {
	Association string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("commenter does not have sufficient rights: %q", e.Association)
}

// allowedAssociations are the author associations that are permitted to
// trigger commands. Values are matched case-sensitive.
var allowedAssociations = map[string]struct{}{
	"OWNER":        {},
	"COLLABORATOR": {},
}

// BotCommand is a command addressed to a bot in a comment line.
type BotCommand struct {
	Bot     string
	Command string
	Args    string
}

func (c BotCommand) String() string {
	if c.Args == "" {
		return fmt.Sprintf("@%s %s", c.Bot, c.Command)
	}

	return fmt.Sprintf("@%s %s %s", c.Bot, c.Command, c.Args)
}

// Check returns nil if commands in the comment of ev may be executed.
// Otherwise ErrSelfTriggered, ErrCommentDeleted or a *PermissionDeniedError is
// returned, checked in that order.
func Check(ev *webhook.Event, bots []string) error {
	for _, bot := range bots {
		if ev.AuthorLogin == bot {
			return ErrSelfTriggered
		}
	}

	if ev.Action == "deleted" {
		return ErrCommentDeleted
	}

	if _, ok := allowedAssociations[ev.AuthorAssociation]; !ok {
		return &PermissionDeniedError{Association: ev.AuthorAssociation}
	}

	return nil
}

// Extract returns the commands in the comment of ev that are addressed to
// one of the bots.
// If Check returns an error for the event, nil is returned.
func Extract(ev *webhook.Event, bots []string) []BotCommand {
	if Check(ev, bots) != nil {
		return nil
	}

	return Tokenize(ev.CommentBody, bots)
}

// Tokenize returns a BotCommand for every line of text that starts with
// "@<bot> ".
// The remainder of the line is split at the first whitespace into the
// command and its arguments.
// Commands are ordered by the position of their bot in bots, then by the
// position of the line in text. A line matching the prefixes of multiple bots
// results in one command per bot.
func Tokenize(text string, bots []string) []BotCommand {
	var result []BotCommand

	lines := splitLines(text)

	for _, bot := range bots {
		prefix := "@" + bot + " "

		for _, line := range lines {
			rest, found := strings.CutPrefix(line, prefix)
			if !found {
				continue
			}

			cmd, args := splitFirstWhitespace(rest)
			result = append(result, BotCommand{
				Bot:     bot,
				Command: cmd,
				Args:    args,
			})
		}
	}

	return result
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")

	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	return lines
}

func splitFirstWhitespace(s string) (before, after string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx == -1 {
		return s, ""
	}

	_, size := utf8.DecodeRuneInString(s[idx:])

	return s[:idx], s[idx+size:]
}
