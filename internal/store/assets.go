package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Asset is the persistent inventory record for a recurring emitter
// (spec.md §3). Optional fields use sql.Null* so a zero value is
// distinguishable from "not yet known".
type Asset struct {
	ID                    string
	Name                  string
	AssetType             string // rf_only, network_only, correlated
	FirstSeen             time.Time
	LastSeen              time.Time
	CorrelationConfidence sql.NullFloat64

	RFFrequencyHz       sql.NullFloat64
	RFSignalStrengthDB  sql.NullFloat64
	RFBandwidthHz       sql.NullFloat64
	ModulationType      sql.NullString
	FingerprintHash     sql.NullString

	NetMACAddress sql.NullString
	NetIPAddress  sql.NullString
	Hostname      sql.NullString
	OpenPorts     sql.NullString
	Vendor        sql.NullString
	OSGuess       sql.NullString

	CMDBCIClass     sql.NullString
	RFProtocol      sql.NullString
	SecurityPosture sql.NullString
	RiskLevel       sql.NullString
	PurdueLevel     sql.NullInt64
	DeviceCategory  sql.NullString
	OTProtocol      sql.NullString
	OTCriticality   sql.NullString

	DiscoverySource string
	CMDBSysID       sql.NullString
	Metadata        map[string]any
}

const assetColumns = `id, name, asset_type, first_seen, last_seen, correlation_confidence,
	rf_frequency_hz, rf_signal_strength_db, rf_bandwidth_hz, modulation_type, fingerprint_hash,
	net_mac_address, net_ip_address, hostname, open_ports, vendor, os_guess,
	cmdb_ci_class, rf_protocol, security_posture, risk_level, purdue_level, device_category,
	ot_protocol, ot_criticality, discovery_source, cmdb_sys_id, metadata`

func scanAsset(row interface{ Scan(...any) error }) (Asset, error) {
	var a Asset
	var metadata sql.NullString
	err := row.Scan(
		&a.ID, &a.Name, &a.AssetType, &a.FirstSeen, &a.LastSeen, &a.CorrelationConfidence,
		&a.RFFrequencyHz, &a.RFSignalStrengthDB, &a.RFBandwidthHz, &a.ModulationType, &a.FingerprintHash,
		&a.NetMACAddress, &a.NetIPAddress, &a.Hostname, &a.OpenPorts, &a.Vendor, &a.OSGuess,
		&a.CMDBCIClass, &a.RFProtocol, &a.SecurityPosture, &a.RiskLevel, &a.PurdueLevel, &a.DeviceCategory,
		&a.OTProtocol, &a.OTCriticality, &a.DiscoverySource, &a.CMDBSysID, &metadata,
	)
	if err != nil {
		return Asset{}, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
			return Asset{}, fmt.Errorf("decoding asset metadata: %w", err)
		}
	}
	return a, nil
}

// InsertAsset inserts a new asset, minting an ID if a.ID is empty.
func (s *Store) InsertAsset(ctx context.Context, a Asset) (Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssetType == "" {
		a.AssetType = "rf_only"
	}
	now := time.Now()
	if a.FirstSeen.IsZero() {
		a.FirstSeen = now
	}
	if a.LastSeen.IsZero() {
		a.LastSeen = now
	}

	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return Asset{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.AssetType, a.FirstSeen, a.LastSeen, a.CorrelationConfidence,
		a.RFFrequencyHz, a.RFSignalStrengthDB, a.RFBandwidthHz, a.ModulationType, a.FingerprintHash,
		a.NetMACAddress, a.NetIPAddress, a.Hostname, a.OpenPorts, a.Vendor, a.OSGuess,
		a.CMDBCIClass, a.RFProtocol, a.SecurityPosture, a.RiskLevel, a.PurdueLevel, a.DeviceCategory,
		a.OTProtocol, a.OTCriticality, a.DiscoverySource, a.CMDBSysID, metadata,
	)
	if err != nil {
		return Asset{}, fmt.Errorf("inserting asset: %w", err)
	}
	return a, nil
}

// UpdateAsset persists every mutable field of an already-inserted asset.
func (s *Store) UpdateAsset(ctx context.Context, a Asset) error {
	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE assets SET
			name = ?, asset_type = ?, last_seen = ?, correlation_confidence = ?,
			rf_frequency_hz = ?, rf_signal_strength_db = ?, rf_bandwidth_hz = ?, modulation_type = ?, fingerprint_hash = ?,
			net_mac_address = ?, net_ip_address = ?, hostname = ?, open_ports = ?, vendor = ?, os_guess = ?,
			cmdb_ci_class = ?, rf_protocol = ?, security_posture = ?, risk_level = ?, purdue_level = ?, device_category = ?,
			ot_protocol = ?, ot_criticality = ?, discovery_source = ?, cmdb_sys_id = ?, metadata = ?
		WHERE id = ?`,
		a.Name, a.AssetType, a.LastSeen, a.CorrelationConfidence,
		a.RFFrequencyHz, a.RFSignalStrengthDB, a.RFBandwidthHz, a.ModulationType, a.FingerprintHash,
		a.NetMACAddress, a.NetIPAddress, a.Hostname, a.OpenPorts, a.Vendor, a.OSGuess,
		a.CMDBCIClass, a.RFProtocol, a.SecurityPosture, a.RiskLevel, a.PurdueLevel, a.DeviceCategory,
		a.OTProtocol, a.OTCriticality, a.DiscoverySource, a.CMDBSysID, metadata,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating asset %s: %w", a.ID, err)
	}
	return nil
}

// GetAsset returns the asset with the given id, or sql.ErrNoRows.
func (s *Store) GetAsset(ctx context.Context, id string) (Asset, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	return scanAsset(row)
}

// FindAssetsByFrequency returns assets within tolerance Hz of freqHz,
// nearest first, per the bounded-range query contract of spec.md §4.6.
func (s *Store) FindAssetsByFrequency(ctx context.Context, freqHz, toleranceHz float64) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE rf_frequency_hz BETWEEN ? AND ?
		ORDER BY ABS(rf_frequency_hz - ?)`,
		freqHz-toleranceHz, freqHz+toleranceHz, freqHz,
	)
	if err != nil {
		return nil, fmt.Errorf("finding assets by frequency: %w", err)
	}
	defer closeRows(rows)
	return scanAssetRows(rows)
}

// FindAssetsByMAC returns assets matching mac, case-insensitively.
func (s *Store) FindAssetsByMAC(ctx context.Context, mac string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE LOWER(net_mac_address) = LOWER(?)`, mac)
	if err != nil {
		return nil, fmt.Errorf("finding assets by MAC: %w", err)
	}
	defer closeRows(rows)
	return scanAssetRows(rows)
}

// FindAssetsByProtocol returns every asset tagged with the given RF protocol.
func (s *Store) FindAssetsByProtocol(ctx context.Context, protocol string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+` FROM assets WHERE rf_protocol = ?`, protocol)
	if err != nil {
		return nil, fmt.Errorf("finding assets by protocol: %w", err)
	}
	defer closeRows(rows)
	return scanAssetRows(rows)
}

func scanAssetRows(rows *sql.Rows) ([]Asset, error) {
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func marshalMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding metadata: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func lowerOrEmpty(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
