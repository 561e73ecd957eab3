// Package companion controls the optional streaming device paired with the
// monitors. It speaks the vendor query-string HTTP API for status and input
// selection and UPnP AVTransport SOAP for transport control, and gates both
// behind an availability state machine.
package companion

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// DefaultHTTPTimeout bounds one query-string API request.
const DefaultHTTPTimeout = 500 * time.Millisecond

// Input is an audio source selectable on the companion device.
type Input string

const (
	InputNetwork   Input = "wifi"
	InputBluetooth Input = "bluetooth"
	InputOptical   Input = "optical"
	InputLineIn    Input = "line-in"
	InputUnknown   Input = "unknown"
)

// InputCycle is the order CycleInput steps through.
var InputCycle = []Input{InputNetwork, InputBluetooth, InputOptical, InputLineIn}

// ParseInput validates an input name.
func ParseInput(s string) (Input, error) {
	in := Input(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range InputCycle {
		if in == known {
			return in, nil
		}
	}
	return InputUnknown, errors.InvalidInputf("unknown input %q", s)
}

// inputForMode maps the player status "mode" code to an Input.
func inputForMode(code string) Input {
	switch code {
	case "1", "10", "11", "16", "31", "32", "36":
		return InputNetwork
	case "40":
		return InputLineIn
	case "41":
		return InputBluetooth
	case "43":
		return InputOptical
	default:
		return InputUnknown
	}
}

// PlayerStatus is the subset of getPlayerStatus the daemon uses.
type PlayerStatus struct {
	Mode   string `json:"mode"`
	Status string `json:"status"`
	Volume string `json:"vol"`
	Mute   string `json:"mute"`
	Title  string `json:"Title"`
	Input  Input  `json:"-"`
}

// HTTPAPI is a client for the query-string command API at /httpapi.asp.
type HTTPAPI struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPAPI creates a client for the device at address (host or host:port).
// The device serves a self-signed certificate, so verification is disabled.
func NewHTTPAPI(address string, timeout time.Duration, logger *slog.Logger) *HTTPAPI {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAPI{
		baseURL: "https://" + hostForURL(address),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // device uses a self-signed certificate
				TLSHandshakeTimeout: timeout,
				DialContext:         (&net.Dialer{Timeout: 300 * time.Millisecond}).DialContext,
			},
		},
		logger: logger,
	}
}

// Command runs one API command and returns the response body.
func (a *HTTPAPI) Command(ctx context.Context, command string) ([]byte, error) {
	u := a.baseURL + "/httpapi.asp?command=" + url.PathEscape(command)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Internalf("build request: %v", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Transportf("companion %s: %v", command, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, errors.Transportf("companion %s: read body: %v", command, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Transportf("companion %s: status %d", command, resp.StatusCode)
	}

	a.logger.Debug("companion: command", "command", command, "response", string(body))
	return body, nil
}

// PlayerStatus fetches and decodes getPlayerStatus.
func (a *HTTPAPI) PlayerStatus(ctx context.Context) (PlayerStatus, error) {
	body, err := a.Command(ctx, "getPlayerStatus")
	if err != nil {
		return PlayerStatus{}, err
	}

	var st PlayerStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return PlayerStatus{}, errors.Parsef("player status: %v", err)
	}
	st.Input = inputForMode(st.Mode)
	return st, nil
}

// SwitchMode selects the active input.
func (a *HTTPAPI) SwitchMode(ctx context.Context, in Input) error {
	return a.PlayerCmd(ctx, "switchmode:"+string(in))
}

// PlayerCmd runs setPlayerCmd:<cmd>. The device answers "OK" on success.
func (a *HTTPAPI) PlayerCmd(ctx context.Context, cmd string) error {
	body, err := a.Command(ctx, "setPlayerCmd:"+cmd)
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), "OK") {
		return errors.InvalidInputf("companion rejected %s: %s", cmd, strings.TrimSpace(string(body)))
	}
	return nil
}

func hostForURL(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	if strings.Contains(address, ":") && !strings.HasPrefix(address, "[") {
		return "[" + address + "]"
	}
	return address
}
