package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds the bridge's topic names under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "volctrld"}
//	topics.DeviceState("10.0.0.11", "volume")
//	// Returns: "volctrld/10.0.0.11/volume"
type Topics struct {
	Prefix string
}

// DeviceState returns the retained state topic for one field of a monitor.
func (t Topics) DeviceState(address, field string) string {
	return fmt.Sprintf("%s/%s/%s", t.Prefix, segment(address), field)
}

// CompanionAvailable returns the retained companion availability topic.
func (t Topics) CompanionAvailable() string {
	return t.Prefix + "/companion/available"
}

// Status returns the bridge's own online/offline topic, used as the will.
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// SetVolume returns the command topic for absolute volume requests.
func (t Topics) SetVolume() string {
	return t.Prefix + "/set/volume"
}

// SetMuteToggle returns the command topic for mute toggles.
func (t Topics) SetMuteToggle() string {
	return t.Prefix + "/set/mute/toggle"
}

// SetCompanion returns the command topic for companion commands.
func (t Topics) SetCompanion() string {
	return t.Prefix + "/set/companion"
}

// segment makes s safe to use as a single topic level.
func segment(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
