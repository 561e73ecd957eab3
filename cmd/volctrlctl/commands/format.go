package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/volctrld/pkg/client"
)

// Output formats accepted by --output.
const (
	outputTable     = "table"
	outputJSON      = "json"
	outputYAML      = "yaml"
	outputParseable = "parseable"
)

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case outputTable, outputJSON, outputYAML, outputParseable:
		return format, nil
	case "":
		return outputTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (table, json, yaml, parseable)", format)
	}
}

// writeStructured writes v as JSON or YAML. It returns false for the
// human-readable formats so the caller renders those itself.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

func formatVolume(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatStandby(d client.Device) string {
	switch {
	case d.StandbyCountdown == nil:
		return "unknown"
	case d.InStandby():
		return "in standby"
	default:
		return fmt.Sprintf("%ds", *d.StandbyCountdown)
	}
}

// DeviceTableData returns one header row plus a row per monitor.
func DeviceTableData(devices []client.Device) pterm.TableData {
	data := pterm.TableData{{"Name", "Address", "Reachable", "Volume", "Muted", "Standby"}}
	for _, d := range devices {
		data = append(data, []string{
			pterm.Bold.Sprint(d.Name),
			d.Address,
			strconv.FormatBool(d.Reachable),
			formatVolume(d.Volume),
			strconv.FormatBool(d.Muted),
			formatStandby(d),
		})
	}
	return data
}

// DeviceParseable returns the key=value line for a monitor.
func DeviceParseable(d client.Device) string {
	standby := "-1"
	if d.StandbyCountdown != nil {
		standby = strconv.Itoa(*d.StandbyCountdown)
	}
	volume := ""
	if d.Volume != nil {
		volume = strconv.FormatFloat(*d.Volume, 'f', -1, 64)
	}
	return fmt.Sprintf("address=%q name=%q reachable=%t volume=%s muted=%t standby=%s",
		d.Address, d.Name, d.Reachable, volume, d.Muted, standby)
}

// ModeParseable returns the key=value line for the control surface mode.
func ModeParseable(m client.Mode) string {
	parts := []string{
		fmt.Sprintf("mode=%s", m.Mode),
		fmt.Sprintf("level=%d", m.Level),
		fmt.Sprintf("position=%d", m.Position),
		fmt.Sprintf("brightness=%d", m.Brightness),
	}
	if m.Title != "" {
		parts = append(parts, fmt.Sprintf("title=%q", m.Title))
	}
	if m.Item != "" {
		parts = append(parts, fmt.Sprintf("item=%q", m.Item))
	}
	return strings.Join(parts, " ")
}

// ModeSummary is a one-line human description of the mode.
func ModeSummary(m client.Mode) string {
	switch m.Mode {
	case "menu":
		return fmt.Sprintf("menu %q, item %q", m.Title, m.Item)
	case "brightness":
		return fmt.Sprintf("brightness %d%%", m.Brightness)
	default:
		return m.Mode
	}
}

// CompanionParseable returns the key=value line for the companion.
func CompanionParseable(c client.Companion) string {
	return fmt.Sprintf("address=%q availability=%s upnp=%t input=%q", c.Address, c.Availability, c.UPnP, c.Input)
}

// CompanionTableData returns the property table for the companion.
func CompanionTableData(c client.Companion) pterm.TableData {
	input := c.Input
	if input == "" {
		input = "unknown"
	}
	return pterm.TableData{
		{"Property", "Value"},
		{"Address", c.Address},
		{"Availability", c.Availability},
		{"UPnP", strconv.FormatBool(c.UPnP)},
		{"Input", input},
	}
}
