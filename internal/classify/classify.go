// Package classify implements the pure classification rules of spec.md §4.8:
// device category, CMDB CI class, Purdue level, security posture, and risk
// level inference over asset attributes.
package classify

import "strings"

type RFProtocol string

const (
	ProtocolUnknown       RFProtocol = "unknown"
	ProtocolWiFi          RFProtocol = "wifi"
	ProtocolBluetooth     RFProtocol = "bluetooth"
	ProtocolBLE           RFProtocol = "ble"
	ProtocolZigbee        RFProtocol = "zigbee"
	ProtocolZWave         RFProtocol = "zwave"
	ProtocolLoRa          RFProtocol = "lora"
	ProtocolLoRaWAN       RFProtocol = "lorawan"
	ProtocolWirelessHART  RFProtocol = "wirelesshart"
	ProtocolISA100        RFProtocol = "isa100"
	ProtocolTPMS          RFProtocol = "tpms"
	ProtocolWeatherStation RFProtocol = "weather_station"
	ProtocolFMBroadcast   RFProtocol = "fm_broadcast"
	ProtocolAMBroadcast   RFProtocol = "am_broadcast"
	ProtocolADSB          RFProtocol = "adsb"
)

type DeviceCategory string

const (
	CategorySensor     DeviceCategory = "sensor"
	CategoryEndpoint   DeviceCategory = "endpoint"
	CategoryController DeviceCategory = "controller"
	CategoryGateway    DeviceCategory = "gateway"
)

type CMDBCIClass string

const (
	CIWAP          CMDBCIClass = "wap"
	CINetworkGear  CMDBCIClass = "network_gear"
	CIIoTGateway   CMDBCIClass = "iot_gateway"
	CIIoTSensor    CMDBCIClass = "iot_sensor"
	CIIoTDevice    CMDBCIClass = "iot_device"
	CIOTController CMDBCIClass = "ot_controller"
	CIOTDevice     CMDBCIClass = "ot_device"
	CIRFEmitter    CMDBCIClass = "rf_emitter"
)

type PurdueLevel int

const (
	PurduePhysicalProcess PurdueLevel = 0
	PurdueBasicControl    PurdueLevel = 1
	PurdueSupervisory     PurdueLevel = 2
	PurdueSiteOperations  PurdueLevel = 3
	PurdueEnterpriseIT    PurdueLevel = 4
)

type SecurityPosture string

const (
	PostureVerified     SecurityPosture = "verified"
	PostureKnown        SecurityPosture = "known"
	PostureSuspicious   SecurityPosture = "suspicious"
	PostureUnauthorized SecurityPosture = "unauthorized"
	PostureUnknown      SecurityPosture = "unknown"
)

type RiskLevel string

const (
	RiskCritical     RiskLevel = "critical"
	RiskHigh         RiskLevel = "high"
	RiskMedium       RiskLevel = "medium"
	RiskLow          RiskLevel = "low"
	RiskInformational RiskLevel = "informational"
)

// Asset carries the subset of fields the classification rules consult. It
// mirrors the columns of the store's assets table (internal/store).
type Asset struct {
	RFProtocol       RFProtocol
	RFFrequencyHz    float64
	HasFrequency     bool
	DeviceCategory   DeviceCategory
	HasCategory      bool
	OTProtocol       string
	CMDBCIClass      CMDBCIClass
	HasCMDBCIClass   bool
	PurdueLevel      PurdueLevel
	HasPurdueLevel   bool
	SecurityPosture  SecurityPosture
	RiskLevel        RiskLevel
	CMDBSysID        string
	NetMACAddress    string
	NetIPAddress     string
	RFFingerprintHash string
	AssetType        string // "rf_only", "network_only", "correlated"
}

// InferDeviceCategory maps a protocol (and optional frequency context) to a
// device category.
func InferDeviceCategory(protocol RFProtocol, freqHz float64, hasFreq bool) DeviceCategory {
	switch protocol {
	case ProtocolTPMS, ProtocolWeatherStation, ProtocolWirelessHART, ProtocolISA100, ProtocolLoRa, ProtocolLoRaWAN:
		return CategorySensor
	case ProtocolBLE, ProtocolBluetooth, ProtocolZigbee, ProtocolZWave, ProtocolWiFi:
		return CategoryEndpoint
	default:
		return CategoryEndpoint
	}
}

// InferCMDBCIClass implements the decision list over (protocol, category).
func InferCMDBCIClass(a Asset) CMDBCIClass {
	protocol := a.RFProtocol
	category := a.DeviceCategory

	if protocol == ProtocolWiFi {
		if category == CategoryGateway {
			return CIWAP
		}
		return CINetworkGear
	}
	if protocol == ProtocolLoRaWAN && category == CategoryGateway {
		return CIIoTGateway
	}
	if category == CategorySensor {
		switch protocol {
		case ProtocolZigbee, ProtocolBLE, ProtocolZWave:
			return CIIoTSensor
		}
		return CIIoTDevice
	}
	if protocol == ProtocolWirelessHART || protocol == ProtocolISA100 {
		if category == CategoryController {
			return CIOTController
		}
		return CIOTDevice
	}
	if category == CategoryController {
		return CIOTController
	}
	if category == CategoryGateway {
		return CIIoTGateway
	}
	switch protocol {
	case ProtocolFMBroadcast, ProtocolAMBroadcast, ProtocolADSB:
		return CIRFEmitter
	}
	return CIIoTDevice
}

// InferPurdueLevel returns the ISA-95 level, or (0, false) if not applicable.
func InferPurdueLevel(a Asset) (PurdueLevel, bool) {
	protocol := a.RFProtocol
	category := a.DeviceCategory

	if protocol == ProtocolWirelessHART || protocol == ProtocolISA100 || a.OTProtocol != "" {
		switch category {
		case CategorySensor:
			return PurduePhysicalProcess, true
		case CategoryGateway, CategoryController:
			return PurdueBasicControl, true
		}
		return PurduePhysicalProcess, true
	}
	if protocol == ProtocolLoRaWAN && category == CategoryGateway {
		return PurdueSiteOperations, true
	}
	switch protocol {
	case ProtocolBluetooth, ProtocolBLE, ProtocolWiFi:
		return PurdueEnterpriseIT, true
	}
	if protocol == ProtocolZigbee || protocol == ProtocolZWave {
		if category == CategoryController {
			return PurdueSupervisory, true
		}
		return PurdueEnterpriseIT, true
	}
	return 0, false
}

// AssessSecurityPosture assesses posture against known-good allowlists.
func AssessSecurityPosture(a Asset, knownMACs, knownFingerprints map[string]struct{}) SecurityPosture {
	if a.CMDBSysID != "" {
		return PostureVerified
	}
	if a.NetMACAddress != "" {
		if _, ok := knownMACs[strings.ToLower(a.NetMACAddress)]; ok {
			return PostureKnown
		}
	}
	if a.RFFingerprintHash != "" {
		if _, ok := knownFingerprints[a.RFFingerprintHash]; ok {
			return PostureKnown
		}
	}
	if a.RFProtocol == ProtocolUnknown && a.NetIPAddress != "" && a.AssetType == "correlated" {
		return PostureSuspicious
	}
	return PostureUnknown
}

// CalculateRiskLevel derives a risk level from posture, protocol, and known
// vulnerabilities (CVE identifiers; "CRITICAL" in the id string escalates).
func CalculateRiskLevel(a Asset, knownVulns []string) RiskLevel {
	if len(knownVulns) > 0 {
		for _, v := range knownVulns {
			if strings.Contains(strings.ToUpper(v), "CRITICAL") {
				return RiskCritical
			}
		}
		return RiskHigh
	}
	if a.SecurityPosture == PostureUnauthorized {
		return RiskCritical
	}
	if a.SecurityPosture == PostureSuspicious {
		return RiskHigh
	}
	if a.RFProtocol == ProtocolWirelessHART || a.RFProtocol == ProtocolISA100 {
		if a.SecurityPosture == PostureUnknown {
			return RiskMedium
		}
		return RiskLow
	}
	if a.SecurityPosture == PostureUnknown && a.NetIPAddress != "" {
		return RiskMedium
	}
	switch a.RFProtocol {
	case ProtocolTPMS, ProtocolWeatherStation, ProtocolFMBroadcast:
		return RiskLow
	}
	return RiskInformational
}

// ModelPattern pairs a case-insensitive substring list with the protocol it
// implies when matched against a free-text device-model string.
type ModelPattern struct {
	Substrings []string
	Protocol   RFProtocol
}

// ModelPatterns is the ordered device-model to protocol pattern map; earlier
// entries take precedence.
var ModelPatterns = []ModelPattern{
	{Substrings: []string{"zigbee"}, Protocol: ProtocolZigbee},
	{Substrings: []string{"z-wave", "zwave"}, Protocol: ProtocolZWave},
	{Substrings: []string{"lorawan"}, Protocol: ProtocolLoRaWAN},
	{Substrings: []string{"lora"}, Protocol: ProtocolLoRa},
	{Substrings: []string{"wirelesshart"}, Protocol: ProtocolWirelessHART},
	{Substrings: []string{"isa100"}, Protocol: ProtocolISA100},
	{Substrings: []string{"ble", "bluetooth low energy"}, Protocol: ProtocolBLE},
	{Substrings: []string{"bluetooth"}, Protocol: ProtocolBluetooth},
	{Substrings: []string{"wifi", "wi-fi", "802.11"}, Protocol: ProtocolWiFi},
	{Substrings: []string{"tpms", "tire pressure"}, Protocol: ProtocolTPMS},
	{Substrings: []string{"weather station", "weather sensor"}, Protocol: ProtocolWeatherStation},
}

// MatchModel returns the first pattern matching model, case-insensitively.
func MatchModel(model string) (RFProtocol, bool) {
	lower := strings.ToLower(model)
	for _, p := range ModelPatterns {
		for _, s := range p.Substrings {
			if strings.Contains(lower, s) {
				return p.Protocol, true
			}
		}
	}
	return ProtocolUnknown, false
}

// AutoClassify fills in any unset classification fields on a, in the order
// category -> CMDB class -> Purdue level -> posture -> risk, matching the
// original auto_classify_asset dependency order. RiskLevel is always
// recomputed, even when a already carries one.
func AutoClassify(a Asset, knownMACs, knownFingerprints map[string]struct{}, knownVulns []string) Asset {
	if !a.HasCategory {
		a.DeviceCategory = InferDeviceCategory(a.RFProtocol, a.RFFrequencyHz, a.HasFrequency)
		a.HasCategory = true
	}
	if !a.HasCMDBCIClass {
		a.CMDBCIClass = InferCMDBCIClass(a)
		a.HasCMDBCIClass = true
	}
	if !a.HasPurdueLevel {
		if level, ok := InferPurdueLevel(a); ok {
			a.PurdueLevel = level
			a.HasPurdueLevel = true
		}
	}
	if a.SecurityPosture == "" || a.SecurityPosture == PostureUnknown {
		a.SecurityPosture = AssessSecurityPosture(a, knownMACs, knownFingerprints)
	}
	a.RiskLevel = CalculateRiskLevel(a, knownVulns)
	return a
}
