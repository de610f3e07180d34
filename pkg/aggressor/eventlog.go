package aggressor

import (
	"fmt"
	"sort"
	"strings"

	"agbridge/pkg/conf"
	"agbridge/pkg/script"
)

// EventType selects the header written in front of an event log message
type EventType int

const (
	StringLog EventType = iota
	IndicatorOfCompromise
	ExternalAction
)

func (e EventType) Header() string {
	switch e {
	case IndicatorOfCompromise:
		return "Indicator of Compromise"
	case ExternalAction:
		return "External Action Taken"
	}
	return "Striker String Log"
}

// LogToEventLog writes message to the team server event log
func (t *TeamServer) LogToEventLog(message string, kind EventType) error {
	return t.elog(kind.Header() + ": " + message)
}

func (t *TeamServer) elog(message string) error {
	return t.caller.SendFireAndForget("elog("+script.Quote(message)+")", conf.SettleLog)
}

type Email struct {
	To       string
	From     string
	SenderIP string
	Subject  string
	// IoCs are indicators tied to the email, such as attachments or links
	IoCs map[string]string
}

// LogEmail records a sent phishing email in the event log
func (t *TeamServer) LogEmail(e Email) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Phishing email sent:\nSending IP: %s\nTo: %s\nFrom: %s\nSubject: %s\n",
		e.SenderIP, e.To, e.From, e.Subject)
	if len(e.IoCs) > 0 {
		names := make([]string, 0, len(e.IoCs))
		for name := range e.IoCs {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("Email IoCs: \n")
		for _, name := range names {
			fmt.Fprintf(&sb, "- %s: %s\n", name, e.IoCs[name])
		}
	}
	return t.elog(sb.String())
}

// TaskBeacon acknowledges a task in the beacon console. attackID is the
// MITRE ATT&CK technique, if any.
func (t *TeamServer) TaskBeacon(bid string, message string, attackID string) error {
	cmd := fmt.Sprintf("btask(%s, %s, %s)", script.Quote(bid), script.Quote(message), script.Quote(attackID))
	return t.caller.SendFireAndForget(cmd, conf.SettleLog)
}

// LogToBeaconLog writes message to the beacon log of bid
func (t *TeamServer) LogToBeaconLog(bid string, message string) error {
	return t.caller.SendFireAndForget(fmt.Sprintf("blog(%s, %s)", script.Quote(bid), script.Quote(message)), conf.SettleLog)
}

// LogToBeaconLogAlt is LogToBeaconLog with the alternate output style
func (t *TeamServer) LogToBeaconLogAlt(bid string, message string) error {
	return t.caller.SendFireAndForget(fmt.Sprintf("blog2(%s, %s)", script.Quote(bid), script.Quote(message)), conf.SettleLog)
}

// archiveExpression collects archived entries whose data matches pattern,
// stamped with their date unless raw is set
func archiveExpression(pattern string, raw bool) string {
	entry := `"$entry['data'] at " . dstamp($entry['when'])`
	if raw {
		entry = `$entry['data']`
	}
	return fmt.Sprintf(`
		@found = @();
		foreach $entry (archives()) {
			if (%s iswm $entry["data"]) {
				add(@found, %s);
			}
		}
		return @found;
		`, script.Quote(pattern), entry)
}

func (t *TeamServer) EmailLogs() ([]string, error) {
	return t.texts(archiveExpression("Phishing email sent:*", true))
}

func (t *TeamServer) EmailIoCs() ([]string, error) {
	return t.texts(archiveExpression("Email Indicator of Compromise:*", false))
}

func (t *TeamServer) IoCs() ([]string, error) {
	return t.texts(archiveExpression("*"+IndicatorOfCompromise.Header()+":*", false))
}

func (t *TeamServer) ExternalActions() ([]string, error) {
	return t.texts(archiveExpression(ExternalAction.Header()+":*", false))
}

func (t *TeamServer) StringLogs() ([]string, error) {
	return t.texts(archiveExpression(StringLog.Header()+":*", false))
}
