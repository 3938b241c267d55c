package ui

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"time"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(ctx context.Context, title, message string) error
}

// commandSender runs a platform notifier binary
type commandSender struct {
	build func(title, message string) (string, []string)
}

func (c commandSender) Send(ctx context.Context, title, message string) error {
	name, args := c.build(title, message)
	return exec.CommandContext(ctx, name, args...).Run()
}

func platformSender(goos string) NotificationSender {
	switch goos {
	case "linux":
		return commandSender{func(title, message string) (string, []string) {
			return "notify-send", []string{"--app-name=redditscraper", title, message}
		}}
	case "darwin":
		return commandSender{func(title, message string) (string, []string) {
			return "osascript", []string{"-e", fmt.Sprintf("display notification %q with title %q", message, title)}
		}}
	case "windows":
		return commandSender{func(title, message string) (string, []string) {
			script := fmt.Sprintf(`New-BurntToastNotification -Text %q, %q`, title, message)
			return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}
		}}
	}
	return nil
}

// Notifier echoes a message to the terminal and, when the platform has
// a notifier, to the desktop. Desktop failures are ignored.
type Notifier struct {
	w       io.Writer
	sender  NotificationSender
	timeout time.Duration
}

func NewNotifier(w io.Writer) *Notifier {
	return &Notifier{w: w, sender: platformSender(runtime.GOOS), timeout: 5 * time.Second}
}

// NewNotifierWithSender is used when the caller supplies its own sender
func NewNotifierWithSender(w io.Writer, sender NotificationSender) *Notifier {
	return &Notifier{w: w, sender: sender, timeout: 5 * time.Second}
}

func (n *Notifier) Success(title, message string) {
	fmt.Fprintf(n.w, "%s: %s\n", Green(title), message)
	n.desktop(title, message)
}

func (n *Notifier) Error(title, message string) {
	fmt.Fprintf(n.w, "%s: %s\n", Red(title), Red(message))
	n.desktop(title, message)
}

func (n *Notifier) desktop(title, message string) {
	if n.sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	_ = n.sender.Send(ctx, title, message)
}
