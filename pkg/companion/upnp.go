package companion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// DefaultSOAPTimeout bounds one SOAP request.
const DefaultSOAPTimeout = 1500 * time.Millisecond

// DefaultDescriptionPorts are tried in order when looking for description.xml.
var DefaultDescriptionPorts = []int{49152, 49153, 49154, 8080}

// Discovery runs on the control loop, so each description fetch gets its own
// short budget: the usual port first, then the fallbacks.
const (
	FirstDescriptionTimeout    = time.Second
	FallbackDescriptionTimeout = 500 * time.Millisecond
)

const avTransportURN = "urn:schemas-upnp-org:service:AVTransport:1"

// TransportState is the AVTransport CurrentTransportState.
type TransportState string

const (
	StateStopped        TransportState = "STOPPED"
	StatePaused         TransportState = "PAUSED_PLAYBACK"
	StatePlaying        TransportState = "PLAYING"
	StateTransitioning  TransportState = "TRANSITIONING"
	StateNoMediaPresent TransportState = "NO_MEDIA_PRESENT"
	StateUnknown        TransportState = "UNKNOWN"
)

func parseTransportState(s string) TransportState {
	switch st := TransportState(strings.TrimSpace(s)); st {
	case StateStopped, StatePaused, StatePlaying, StateTransitioning, StateNoMediaPresent:
		return st
	default:
		return StateUnknown
	}
}

// UPnP is an AVTransport SOAP client.
type UPnP struct {
	host       string
	ports      []int
	client     *http.Client
	controlURL string
	logger     *slog.Logger
}

// NewUPnP creates a client for host. Nil ports selects DefaultDescriptionPorts.
func NewUPnP(host string, ports []int, timeout time.Duration, logger *slog.Logger) *UPnP {
	if len(ports) == 0 {
		ports = DefaultDescriptionPorts
	}
	if timeout <= 0 {
		timeout = DefaultSOAPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return &UPnP{
		host:  strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"),
		ports: ports,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext,
			},
		},
		logger: logger,
	}
}

// Ready reports whether Discover found an AVTransport control URL.
func (u *UPnP) Ready() bool {
	return u.controlURL != ""
}

// ControlURL returns the discovered AVTransport control URL.
func (u *UPnP) ControlURL() string {
	return u.controlURL
}

// Discover locates the AVTransport control URL from the device description.
func (u *UPnP) Discover(ctx context.Context) error {
	for i, port := range u.ports {
		base := "http://" + net.JoinHostPort(u.host, strconv.Itoa(port))
		timeout := FallbackDescriptionTimeout
		if i == 0 {
			timeout = FirstDescriptionTimeout
		}
		body, err := u.fetchDescription(ctx, base+"/description.xml", timeout)
		if err != nil {
			u.logger.Debug("upnp: description unavailable", "url", base, "error", err)
			continue
		}

		control, ok := avTransportControlURL(body)
		if !ok {
			continue
		}
		if !strings.HasPrefix(control, "/") {
			control = "/" + control
		}
		u.controlURL = base + control
		u.logger.Info("upnp: found AVTransport", "control_url", u.controlURL)
		return nil
	}

	u.controlURL = ""
	return errors.NotFoundf("AVTransport service on %s", u.host)
}

// TransportState returns the current transport state.
func (u *UPnP) TransportState(ctx context.Context) (TransportState, error) {
	resp, err := u.Action(ctx, "GetTransportInfo", "")
	if err != nil {
		return StateUnknown, err
	}
	v, _ := tagValue(resp, "CurrentTransportState")
	return parseTransportState(v), nil
}

// Play starts playback at normal speed.
func (u *UPnP) Play(ctx context.Context) error {
	_, err := u.Action(ctx, "Play", "<Speed>1</Speed>")
	return err
}

// Pause pauses playback.
func (u *UPnP) Pause(ctx context.Context) error {
	_, err := u.Action(ctx, "Pause", "")
	return err
}

// Stop stops playback.
func (u *UPnP) Stop(ctx context.Context) error {
	_, err := u.Action(ctx, "Stop", "")
	return err
}

// Next skips to the next track.
func (u *UPnP) Next(ctx context.Context) error {
	_, err := u.Action(ctx, "Next", "")
	return err
}

// Previous skips to the previous track.
func (u *UPnP) Previous(ctx context.Context) error {
	_, err := u.Action(ctx, "Previous", "")
	return err
}

// Action posts one AVTransport SOAP action with InstanceID 0 and the given
// extra argument elements, returning the response body.
func (u *UPnP) Action(ctx context.Context, action, args string) (string, error) {
	if !u.Ready() {
		return "", errors.DeviceUnavailablef("AVTransport not discovered")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.controlURL, strings.NewReader(envelope(action, args)))
	if err != nil {
		return "", errors.Internalf("build soap request: %v", err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf(`"%s#%s"`, avTransportURN, action))

	resp, err := u.client.Do(req)
	if err != nil {
		return "", errors.Transportf("soap %s: %v", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.Transportf("soap %s: read body: %v", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Transportf("soap %s: status %d", action, resp.StatusCode)
	}

	u.logger.Debug("upnp: action", "action", action)
	return string(body), nil
}

func (u *UPnP) fetchDescription(ctx context.Context, url string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	return string(body), err
}

func envelope(action, args string) string {
	return `<?xml version="1.0"?>` +
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<s:Body>` +
		`<u:` + action + ` xmlns:u="` + avTransportURN + `">` +
		`<InstanceID>0</InstanceID>` + args +
		`</u:` + action + `>` +
		`</s:Body>` +
		`</s:Envelope>`
}

// avTransportControlURL scans <service> blocks for the AVTransport service.
func avTransportControlURL(xml string) (string, bool) {
	rest := xml
	for {
		start := strings.Index(rest, "<service>")
		if start < 0 {
			return "", false
		}
		end := strings.Index(rest[start:], "</service>")
		if end < 0 {
			return "", false
		}
		block := rest[start : start+end]
		if strings.Contains(block, "AVTransport") {
			if v, ok := tagValue(block, "controlURL"); ok && v != "" {
				return strings.TrimSpace(v), true
			}
		}
		rest = rest[start+end+len("</service>"):]
	}
}

// tagValue returns the text between the first <tag> and the following </tag>.
func tagValue(xml, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	start := strings.Index(xml, open)
	if start < 0 {
		return "", false
	}
	start += len(open)
	end := strings.Index(xml[start:], closing)
	if end < 0 {
		return "", false
	}
	return xml[start : start+end], true
}
