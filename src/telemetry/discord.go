package telemetry

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/stratum-ops/opsdeck/src/console/types"
)

const alertColor = 0xe74c3c

// AlertNotifier announces agents newly entering alert to a Discord
// channel. Without a token and channel it stays disabled and Publish is
// a no-op. It only sends messages, so the gateway is never opened.
type AlertNotifier struct {
	session   *discordgo.Session
	channelID string
	enabled   bool
	prev      map[types.AgentID]types.AgentStatus
}

func NewAlertNotifier(token, channelID string) (*AlertNotifier, error) {
	n := &AlertNotifier{
		channelID: channelID,
		prev:      make(map[types.AgentID]types.AgentStatus),
	}
	if token == "" || channelID == "" {
		return n, nil
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	n.session = session
	n.enabled = true
	return n, nil
}

// Enabled reports whether alerts will actually be sent.
func (n *AlertNotifier) Enabled() bool { return n.enabled }

// Publish implements the session sink. It runs on the single pump
// goroutine, so the previous-status map needs no lock.
func (n *AlertNotifier) Publish(snap types.Snapshot) {
	alerts := n.newlyAlerting(snap.Agents)
	if !n.enabled {
		return
	}
	for _, rec := range alerts {
		go n.sendAlert(rec, snap.Tick)
	}
}

// newlyAlerting returns the records that just transitioned into alert,
// updating the tracked previous statuses. An agent already alerting does
// not re-notify until it leaves alert and comes back.
func (n *AlertNotifier) newlyAlerting(records []types.AgentRecord) []types.AgentRecord {
	var out []types.AgentRecord
	for _, rec := range records {
		prev, seen := n.prev[rec.ID]
		n.prev[rec.ID] = rec.Status
		if rec.Status != types.StatusAlert {
			continue
		}
		if seen && prev == types.StatusAlert {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (n *AlertNotifier) sendAlert(rec types.AgentRecord, tick int) {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🚨 %s alert", rec.ID),
		Description: rec.Message,
		Color:       alertColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tick", Value: strconv.Itoa(tick), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "opsdeck crisis console"},
	}
	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		log.Printf("telemetry: discord alert: %v", err)
	}
}

// Name implements the lifecycle module interface.
func (n *AlertNotifier) Name() string { return "telemetry.discord" }

// Start logs the notifier state; the REST session needs no standing
// connection.
func (n *AlertNotifier) Start(ctx context.Context) error {
	if n.enabled {
		log.Printf("telemetry: discord alerts on channel %s", n.channelID)
	} else {
		log.Printf("telemetry: discord alerts disabled")
	}
	return nil
}

// Stop releases the Discord session.
func (n *AlertNotifier) Stop(ctx context.Context) {
	if n.session != nil {
		_ = n.session.Close()
	}
}
