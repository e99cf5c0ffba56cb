// Package rtc holds the ICE setup browsers use for their peer connections.
// Media never reaches the server; it only hands out the configuration.
package rtc

import (
	"fmt"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ICEServer is the browser-facing RTCIceServer shape.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// NewConfiguration builds the ICE configuration from config, falling back to
// the public STUN server when none is configured.
func NewConfiguration(servers []config.ICEServer) webrtc.Configuration {
	if len(servers) == 0 {
		return DefaultWebRTCConfig()
	}
	cfg := webrtc.Configuration{ICEServers: make([]webrtc.ICEServer, 0, len(servers))}
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: append([]string(nil), s.URLs...)}
		if s.Username != "" || s.Credential != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		cfg.ICEServers = append(cfg.ICEServers, srv)
	}
	return cfg
}

// Validate lets pion parse every ICE URL by opening and closing a peer
// connection with cfg.
func Validate(cfg webrtc.Configuration) error {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return fmt.Errorf("invalid ice configuration: %w", err)
	}
	if err := pc.Close(); err != nil {
		log.Warn().Err(err).Str("module", "rtc").Msg("close probe peer connection")
	}
	log.Info().Str("module", "rtc").Int("servers", len(cfg.ICEServers)).Msg("ice configuration ok")
	return nil
}

// Public converts cfg to what /api/ice-servers returns.
func Public(cfg webrtc.Configuration) []ICEServer {
	out := make([]ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		srv := ICEServer{URLs: s.URLs, Username: s.Username}
		if cred, ok := s.Credential.(string); ok {
			srv.Credential = cred
		}
		out = append(out, srv)
	}
	return out
}
