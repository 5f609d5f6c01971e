package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInferCMDBCIClassWiFiGateway(t *testing.T) {
	a := Asset{RFProtocol: ProtocolWiFi, DeviceCategory: CategoryGateway}
	require.Equal(t, CIWAP, InferCMDBCIClass(a))
}

func TestInferCMDBCIClassSensorZigbee(t *testing.T) {
	a := Asset{RFProtocol: ProtocolZigbee, DeviceCategory: CategorySensor}
	require.Equal(t, CIIoTSensor, InferCMDBCIClass(a))
}

func TestInferCMDBCIClassBroadcastEmitter(t *testing.T) {
	a := Asset{RFProtocol: ProtocolFMBroadcast, DeviceCategory: CategoryEndpoint}
	require.Equal(t, CIRFEmitter, InferCMDBCIClass(a))
}

func TestInferPurdueLevelIndustrialSensor(t *testing.T) {
	a := Asset{RFProtocol: ProtocolWirelessHART, DeviceCategory: CategorySensor}
	level, ok := InferPurdueLevel(a)
	require.True(t, ok)
	require.Equal(t, PurduePhysicalProcess, level)
}

func TestInferPurdueLevelConsumerWiFi(t *testing.T) {
	a := Asset{RFProtocol: ProtocolWiFi}
	level, ok := InferPurdueLevel(a)
	require.True(t, ok)
	require.Equal(t, PurdueEnterpriseIT, level)
}

func TestInferPurdueLevelUnknownProtocolAbsent(t *testing.T) {
	a := Asset{RFProtocol: ProtocolTPMS, DeviceCategory: CategorySensor}
	_, ok := InferPurdueLevel(a)
	require.False(t, ok)
}

func TestAssessSecurityPostureKnownMAC(t *testing.T) {
	a := Asset{NetMACAddress: "AA:BB:CC:DD:EE:FF"}
	known := map[string]struct{}{"aa:bb:cc:dd:ee:ff": {}}
	require.Equal(t, PostureKnown, AssessSecurityPosture(a, known, nil))
}

func TestAssessSecurityPostureSuspiciousUnknownCorrelated(t *testing.T) {
	a := Asset{RFProtocol: ProtocolUnknown, NetIPAddress: "10.0.0.5", AssetType: "correlated"}
	require.Equal(t, PostureSuspicious, AssessSecurityPosture(a, nil, nil))
}

func TestCalculateRiskLevelCriticalCVE(t *testing.T) {
	a := Asset{}
	require.Equal(t, RiskCritical, CalculateRiskLevel(a, []string{"CVE-2024-0001 CRITICAL"}))
}

func TestCalculateRiskLevelIndustrialUnknownPosture(t *testing.T) {
	a := Asset{RFProtocol: ProtocolWirelessHART, SecurityPosture: PostureUnknown}
	require.Equal(t, RiskMedium, CalculateRiskLevel(a, nil))
}

func TestMatchModelCaseInsensitive(t *testing.T) {
	proto, ok := MatchModel("Acme ZigBee Bridge v2")
	require.True(t, ok)
	require.Equal(t, ProtocolZigbee, proto)
}

func TestMatchModelNoMatch(t *testing.T) {
	_, ok := MatchModel("Mystery Device X")
	require.False(t, ok)
}

func TestAutoClassifyFillsAllFields(t *testing.T) {
	a := Asset{RFProtocol: ProtocolZigbee}
	out := AutoClassify(a, nil, nil, nil)
	require.True(t, out.HasCategory)
	require.True(t, out.HasCMDBCIClass)
	require.NotEmpty(t, out.SecurityPosture)
	require.NotEmpty(t, out.RiskLevel)
}
