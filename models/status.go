package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusSnapshot is one atomic read of every interface the wg-proxy reports.
// Interfaces keep the order in which the upstream object listed them.
type StatusSnapshot struct {
	Interfaces []InterfaceStatus
}

type InterfaceStatus struct {
	Name  string       `json:"-"`
	Peers []PeerStatus `json:"peers"`
}

// PeerStatus is a single peer as dumped by `wg show all dump`.
// Counters use the canonical rx/tx names.
type PeerStatus struct {
	PublicKey       string `json:"public_key"`
	PeerName        string `json:"peer_name,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	AllowedIPs      string `json:"allowed_ips,omitempty"`
	LatestHandshake int64  `json:"latest_handshake"`
	Rx              int64  `json:"rx"`
	Tx              int64  `json:"tx"`
}

func (p *PeerStatus) UnmarshalJSON(data []byte) error {
	type wirePeer PeerStatus
	var w wirePeer
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	// wg prints "(none)" for peers that never connected
	if w.Endpoint == "(none)" {
		w.Endpoint = ""
	}
	if w.LatestHandshake < 0 {
		w.LatestHandshake = 0
	}
	*p = PeerStatus(w)
	return nil
}

// UnmarshalJSON accepts only an object of `{ "<iface>": { "peers": [...] } }`
// and rejects anything else, including `{"error": "..."}` bodies.
func (s *StatusSnapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("status payload is not a JSON object")
	}

	interfaces := make([]InterfaceStatus, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		var body struct {
			Peers *[]PeerStatus `json:"peers"`
		}
		if err := dec.Decode(&body); err != nil {
			return fmt.Errorf("interface %q: %w", name, err)
		}
		if body.Peers == nil {
			return fmt.Errorf("interface %q has no peers list", name)
		}

		interfaces = append(interfaces, InterfaceStatus{Name: name, Peers: *body.Peers})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	s.Interfaces = interfaces
	return nil
}

// MarshalJSON writes the snapshot back in upstream shape, interface order kept.
func (s StatusSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, iface := range s.Interfaces {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(iface.Name)
		if err != nil {
			return nil, err
		}
		peers := iface.Peers
		if peers == nil {
			peers = []PeerStatus{}
		}
		val, err := json.Marshal(InterfaceStatus{Peers: peers})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *StatusSnapshot) PeerCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, iface := range s.Interfaces {
		n += len(iface.Peers)
	}
	return n
}
