package services

import (
	"context"
	"time"

	"wgdash/models"
	"wgdash/utils"
)

// activeWindow is how recent a handshake must be for a peer to count as up.
const activeWindow = 300

const (
	unnamedPeer     = "Unnamed"
	missingEndpoint = "—"
)

// SnapshotSource hands out the current StatusSnapshot, usually via the cache.
type SnapshotSource interface {
	GetOrFetch(ctx context.Context) (*models.StatusSnapshot, error)
}

type DataAggregator struct {
	source SnapshotSource
	geo    *utils.GeoResolver
	names  *utils.PeerNames
	now    func() time.Time
}

// NewDataAggregator wires the snapshot source with optional enrichment;
// geo and names may be nil.
func NewDataAggregator(source SnapshotSource, geo *utils.GeoResolver, names *utils.PeerNames) *DataAggregator {
	return &DataAggregator{
		source: source,
		geo:    geo,
		names:  names,
		now:    time.Now,
	}
}

// Build reads the snapshot through the cache and aggregates it for "now".
func (da *DataAggregator) Build(ctx context.Context) (models.AggregateView, error) {
	snapshot, err := da.source.GetOrFetch(ctx)
	if err != nil {
		return models.AggregateView{}, err
	}
	return aggregate(snapshot, da.now(), da.names, da.geo), nil
}

// Snapshot returns the raw cached snapshot.
func (da *DataAggregator) Snapshot(ctx context.Context) (*models.StatusSnapshot, error) {
	return da.source.GetOrFetch(ctx)
}

// Aggregate is the pure summary of a snapshot at a given instant.
func Aggregate(snapshot *models.StatusSnapshot, now time.Time) models.AggregateView {
	return aggregate(snapshot, now, nil, nil)
}

// HandshakeAge is the number of seconds since latest, or 0 when the peer
// never completed a handshake.
func HandshakeAge(now time.Time, latest int64) int64 {
	if latest > 0 {
		return now.Unix() - latest
	}
	return 0
}

// IsActive reports whether a handshake age falls inside the liveness window.
func IsActive(age int64) bool {
	return age > 0 && age < activeWindow
}

func aggregate(snapshot *models.StatusSnapshot, now time.Time, names *utils.PeerNames, geo *utils.GeoResolver) models.AggregateView {
	view := models.AggregateView{
		Updated:     now.Format(time.RFC1123Z),
		GeneratedAt: now.Unix(),
		Rows:        make([]models.PeerRow, 0, snapshot.PeerCount()),
	}

	if snapshot != nil {
		for _, iface := range snapshot.Interfaces {
			for _, peer := range iface.Peers {
				age := HandshakeAge(now, peer.LatestHandshake)
				active := IsActive(age)
				if active {
					view.ActiveCount++
					view.TotalRx += peer.Rx
					view.TotalTx += peer.Tx
				}
				view.Rows = append(view.Rows, buildRow(iface.Name, peer, age, active, names, geo))
			}
		}
	}

	view.Rx = utils.FormatBytes(view.TotalRx)
	view.Tx = utils.FormatBytes(view.TotalTx)
	return view
}

func buildRow(iface string, peer models.PeerStatus, age int64, active bool, names *utils.PeerNames, geo *utils.GeoResolver) models.PeerRow {
	name := peer.PeerName
	if name == "" {
		if known, ok := names.Lookup(peer.PublicKey); ok {
			name = known
		} else {
			name = unnamedPeer
		}
	}

	endpoint := peer.Endpoint
	if endpoint == "" {
		endpoint = missingEndpoint
	}

	status := "Idle"
	if active {
		status = "Active"
	}
	handshake := utils.FormatDuration(age)

	return models.PeerRow{
		Interface:  iface,
		PeerName:   name,
		PublicKey:  utils.TruncateKey(peer.PublicKey),
		Endpoint:   endpoint,
		Country:    geo.Country(peer.Endpoint),
		Active:     active,
		Status:     status,
		Handshake:  handshake,
		StatusText: status + " (" + handshake + ")",
		Rx:         utils.FormatBytes(peer.Rx),
		Tx:         utils.FormatBytes(peer.Tx),
		RxBytes:    peer.Rx,
		TxBytes:    peer.Tx,
	}
}
