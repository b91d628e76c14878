package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"hdexport/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, quoteAppleScript(message), quoteAppleScript(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("hdexport").Show($toast)
	`, escapeXML(title), escapeXML(message))

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

func quoteAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func escapeXML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// Notifier sends console and desktop notifications for batch events.
// The "terminal" type writes to Output only, "desktop" also raises a
// desktop notification and "none" is silent.
type Notifier struct {
	sender NotificationSender
	prefs  config.NotificationConfig
}

func (n *Notifier) silent() bool {
	return !n.prefs.Enabled || strings.EqualFold(n.prefs.NotificationType, "none")
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(prefs config.NotificationConfig) *Notifier {
	var sender NotificationSender

	if prefs.Enabled && strings.EqualFold(prefs.NotificationType, "desktop") {
		switch runtime.GOOS {
		case "linux":
			sender = &LinuxNotificationSender{}
		case "darwin":
			sender = &MacOSNotificationSender{}
		case "windows":
			sender = &WindowsNotificationSender{}
		}
	}

	return &Notifier{sender: sender, prefs: prefs}
}

// SetSender replaces the desktop sender; nil keeps console output only
func (n *Notifier) SetSender(s NotificationSender) {
	n.sender = s
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// Desktop notifications are best effort
		_ = n.sender.Send(title, message)
	}
}

// Completed reports a finished run
func (n *Notifier) Completed(saved, failed int) {
	if n.silent() || !n.prefs.OnComplete {
		return
	}
	message := fmt.Sprintf("%d invoices saved, %d failed", saved, failed)
	fmt.Fprintf(Output, "\n%s: %s\n", Green("Export complete"), Green(message))
	n.send("Export complete", message)
}

// Failed reports a run that stopped on an error
func (n *Notifier) Failed(err error) {
	if n.silent() || !n.prefs.OnError {
		return
	}
	fmt.Fprintf(Output, "\n%s: %s\n", Red("Export failed"), Red(err.Error()))
	n.send("Export failed", err.Error())
}

// RateLimited reports a 429 from the portal
func (n *Notifier) RateLimited(invoice string) {
	if n.silent() || !n.prefs.OnRateLimit {
		return
	}
	message := "Portal rate limit hit at " + invoice
	fmt.Fprintf(Output, "\n%s: %s\n", Yellow("Rate limited"), Yellow(message))
	n.send("Rate limited", message)
}
