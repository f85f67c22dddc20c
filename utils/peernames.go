package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

const publicKeyLen = 44

// PeerNames maps normalized public keys to the names written as comments
// in a wg config's [Peer] sections, e.g.
//
//	[Peer]
//	# Peer_alice
//	PublicKey = ...
type PeerNames struct {
	names map[string]string
}

func LoadPeerNames(path string) (*PeerNames, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open peer names file: %w", err)
	}
	defer f.Close()
	return ParsePeerNames(f)
}

func ParsePeerNames(r io.Reader) (*PeerNames, error) {
	names := make(map[string]string)
	inPeer := false
	current := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "[Peer]") {
			inPeer = true
			current = ""
			continue
		}
		if !inPeer {
			continue
		}

		switch {
		case line == "" || strings.HasPrefix(line, "["):
			inPeer = false
			current = ""
		case strings.HasPrefix(line, "#"):
			current = commentName(line)
		case strings.HasPrefix(strings.ToLower(line), "publickey"):
			_, value, ok := strings.Cut(line, "=")
			if ok && current != "" {
				names[NormalizePublicKey(value)] = current
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &PeerNames{names: names}, nil
}

// "# Peer_alice" -> "alice"; a comment without an underscore is used whole.
func commentName(line string) string {
	text := strings.TrimSpace(strings.TrimLeft(line, "#"))
	parts := strings.Split(text, "_")
	if len(parts) > 1 {
		return strings.TrimSpace(parts[1])
	}
	return text
}

// NormalizePublicKey strips whitespace and pads a base64 key to 44 characters.
func NormalizePublicKey(key string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, key)
	if len(clean) < publicKeyLen {
		clean += strings.Repeat("=", publicKeyLen-len(clean))
	}
	return clean[:publicKeyLen]
}

// Lookup is safe on a nil directory.
func (p *PeerNames) Lookup(publicKey string) (string, bool) {
	if p == nil {
		return "", false
	}
	name, ok := p.names[NormalizePublicKey(publicKey)]
	return name, ok
}

func (p *PeerNames) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}
