package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Notifier delivers task, day and alert notifications to an external
// channel. It matches core.NotificationSink.
type Notifier interface {
	NotifyTask(n models.TaskNotification) error
	NotifyDay(n models.DayNotification) error
	NotifyAlerts(alerts []models.Alert) error
}

// slackNotifier posts Block Kit messages to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given Slack webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *slackNotifier) NotifyTask(n models.TaskNotification) error {
	text := fmt.Sprintf("%s *%s* %s (%s)\n_%s_",
		statusEmoji(n.Status), n.TaskID, n.Name, n.Owner, n.Message)
	return s.post(slackMessage{Blocks: []slackBlock{
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}},
	}})
}

func (s *slackNotifier) NotifyDay(n models.DayNotification) error {
	return s.post(slackMessage{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("Day %d report (%s)", n.Day, n.Date)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Progress*\n%d%%", n.ProgressPercent)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Tasks today*\n%d", n.TasksToday)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Success rate*\n%s%%", n.SuccessRate)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Efficiency*\n%d", n.Efficiency)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Total time*\n%d min", n.TotalTimeMinutes)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Tomorrow*\n%d tasks", n.TomorrowTaskCount)},
			},
		},
	}})
}

// NotifyAlerts sends the alerts as one message. It returns nil without
// making a request if alerts is empty.
func (s *slackNotifier) NotifyAlerts(alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "phaseops alerts"}},
	}
	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* %s\n_%s | %s_",
			levelEmoji(alert.Level),
			strings.ToUpper(string(alert.Level)),
			alert.Message,
			alert.Component,
			alert.Timestamp.UTC().Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: text}})
	}
	return s.post(slackMessage{Blocks: blocks})
}

func (s *slackNotifier) post(msg slackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}
	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func statusEmoji(status models.ExecutionStatus) string {
	switch status {
	case models.StatusCompleted:
		return "\u2705"
	case models.StatusFailed:
		return "\u274c"
	case models.StatusBlocked:
		return "\u23f8\ufe0f"
	default:
		return "\u2753"
	}
}

func levelEmoji(level models.AlertLevel) string {
	switch level {
	case models.AlertError:
		return "\U0001f534"
	case models.AlertWarning:
		return "\U0001f7e1"
	case models.AlertInfo:
		return "\U0001f535"
	default:
		return "\u2753"
	}
}

// logNotifier writes notifications to the structured logger. It is used when
// no external channel is configured and never fails.
type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that only logs.
func NewLogNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &logNotifier{logger: logger}
}

func (l *logNotifier) NotifyTask(n models.TaskNotification) error {
	l.logger.Info("task notification",
		"task_id", n.TaskID, "owner", n.Owner, "status", n.Status, "duration_seconds", n.DurationSeconds)
	return nil
}

func (l *logNotifier) NotifyDay(n models.DayNotification) error {
	l.logger.Info("day notification",
		"date", n.Date, "day", n.Day, "progress", n.ProgressPercent,
		"tasks", n.TasksToday, "success_rate", n.SuccessRate, "efficiency", n.Efficiency)
	return nil
}

func (l *logNotifier) NotifyAlerts(alerts []models.Alert) error {
	for _, a := range alerts {
		l.logger.Warn("alert", "id", a.ID, "level", a.Level, "component", a.Component, "message", a.Message)
	}
	return nil
}

// multiNotifier fans every notification out to several notifiers. Every
// notifier is called even when an earlier one fails.
type multiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers; nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) Notifier {
	m := &multiNotifier{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *multiNotifier) NotifyTask(n models.TaskNotification) error {
	var errs []error
	for _, t := range m.notifiers {
		errs = append(errs, t.NotifyTask(n))
	}
	return errors.Join(errs...)
}

func (m *multiNotifier) NotifyDay(n models.DayNotification) error {
	var errs []error
	for _, t := range m.notifiers {
		errs = append(errs, t.NotifyDay(n))
	}
	return errors.Join(errs...)
}

func (m *multiNotifier) NotifyAlerts(alerts []models.Alert) error {
	var errs []error
	for _, t := range m.notifiers {
		errs = append(errs, t.NotifyAlerts(alerts))
	}
	return errors.Join(errs...)
}
