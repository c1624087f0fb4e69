package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reminder_service/internal/app"
	"reminder_service/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unauthorizedText = "Error: you are not allowed to run this command."

// RegisterOpsHandlers registers the operator commands. Only adminTelegramID may use them.
func RegisterOpsHandlers(ctx context.Context, b *telebot.Bot, ops *app.OpsService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/start", func(c telebot.Context) error {
		if c.Sender().ID == adminTelegramID {
			return c.Send(fmt.Sprintf("Hi %s! Reminder engine is running. Use /help for commands.", c.Sender().FirstName))
		}
		return c.Send("Hi! This bot delivers reminders. Ask an administrator to set your address to tg:" + fmt.Sprint(c.Chat().ID) + ".")
	})

	b.Handle("/help", func(c telebot.Context) error {
		if c.Sender().ID != adminTelegramID {
			return c.Send("No commands are available for you.")
		}
		return c.Send(helpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/run_reminders", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/run_reminders",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(unauthorizedText)
		}

		args := c.Args()
		domains := reminder.Domains
		if len(args) == 1 {
			d, err := reminder.ParseDomain(args[0])
			if err != nil {
				return c.Send(fmt.Sprintf("Unknown domain %q. Use one of: %s", args[0], domainList()))
			}
			domains = []reminder.Domain{d}
		} else if len(args) > 1 {
			return c.Send("Usage: /run_reminders [anniversary|plan|task]")
		}

		var lines []string
		for _, d := range domains {
			summary, err := ops.RunNowAsAdmin(ctx, c.Sender().ID, d)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				handlerLogger.WithError(err).Warn("Admin not authorized (service level)")
				return c.Send(unauthorizedText)
			case errors.Is(err, reminder.ErrUnknownDomain):
				lines = append(lines, fmt.Sprintf("%s: not configured", d))
			case err != nil:
				handlerLogger.WithError(err).WithField("domain", d).Error("Manual scan failed")
				lines = append(lines, fmt.Sprintf("%s: failed (%s)", d, err.Error()))
			default:
				lines = append(lines, FormatSummary(summary))
			}
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/reminder_status", func(c telebot.Context) error {
		if c.Sender().ID != adminTelegramID {
			return c.Send(unauthorizedText)
		}
		var sb strings.Builder
		for _, st := range ops.Status() {
			sb.WriteString(fmt.Sprintf("%s: %s\n", st.Domain, st.State))
		}
		if sb.Len() == 0 {
			return c.Send("No domains configured.")
		}
		return c.Send(sb.String())
	})

	b.Handle("/reminders", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/reminders",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(unauthorizedText)
		}
		domain, id, enabled, err := ParseToggleArgs(c.Args())
		if err != nil {
			return c.Send(err.Error())
		}
		if err := ops.SetReminderEnabled(ctx, domain, id, enabled); err != nil {
			handlerLogger.WithError(err).Warn("Failed to toggle reminders")
			if errors.Is(err, reminder.ErrEntityNotFound) {
				return c.Send(fmt.Sprintf("%s %s not found.", domain, id))
			}
			return c.Send(fmt.Sprintf("Could not update reminders: %s", err.Error()))
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		return c.Send(fmt.Sprintf("Reminders %s for %s %s.", state, domain, id))
	})
}

// ParseToggleArgs parses "<domain> <id> on|off".
func ParseToggleArgs(args []string) (reminder.Domain, string, bool, error) {
	if len(args) != 3 {
		return "", "", false, errors.New("Usage: /reminders <domain> <id> on|off")
	}
	d, err := reminder.ParseDomain(args[0])
	if err != nil {
		return "", "", false, fmt.Errorf("Unknown domain %q. Use one of: %s", args[0], domainList())
	}
	switch strings.ToLower(args[2]) {
	case "on", "enable", "true":
		return d, args[1], true, nil
	case "off", "disable", "false":
		return d, args[1], false, nil
	default:
		return "", "", false, errors.New("Last argument must be on or off")
	}
}

// FormatSummary renders a scan summary as one line.
func FormatSummary(s app.Summary) string {
	return fmt.Sprintf("%s: %d entities, %d sent, %d skipped, %d failed", s.Domain, s.Entities, s.Sent, s.Skipped, s.Failed)
}

func domainList() string {
	names := make([]string, len(reminder.Domains))
	for i, d := range reminder.Domains {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

func helpText() string {
	var help strings.Builder
	help.WriteString("Operator commands:\n\n")
	help.WriteString("`/run_reminders [domain]`\n - Scan now (all domains by default).\n\n")
	help.WriteString("`/reminder_status`\n - Show the scheduler state of each domain.\n\n")
	help.WriteString("`/reminders <domain> <id> on|off`\n - Enable or disable reminders for one entity.\n\n")
	help.WriteString("`/help`\n - Show this message.")
	return help.String()
}
