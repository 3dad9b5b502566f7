package rtcmdata

import (
	"strings"
	"testing"
)

func TestEntryTypeBitPositions(t *testing.T) {
	if C1Data != 0 {
		t.Errorf("C1Data = %d, want 0", C1Data)
	}
	if L1CData != 1 {
		t.Errorf("L1CData = %d, want 1", L1CData)
	}
	if S1NData != NumEntryTypes-1 {
		t.Errorf("S1NData = %d, want %d", S1NData, NumEntryTypes-1)
	}
}

func TestEntryFlagSetAndHas(t *testing.T) {
	var f EntryFlag
	f = f.Set(C1Data)
	f = f.Set(L2CData)

	if !f.Has(C1Data) {
		t.Error("expected C1Data to be set")
	}
	if !f.Has(L2CData) {
		t.Error("expected L2CData to be set")
	}
	if f.Has(P1Data) {
		t.Error("did not expect P1Data to be set")
	}
}

func TestAuxFlagBits(t *testing.T) {
	f := FlagLockLossL1 | FlagLockLossSAIF
	if f&FlagLockLossL1 == 0 {
		t.Error("expected FlagLockLossL1 bit")
	}
	if f&FlagLockLossSAIF == 0 {
		t.Error("expected FlagLockLossSAIF bit")
	}
	if f&FlagXCorrL2 != 0 {
		t.Error("did not expect FlagXCorrL2 bit")
	}
}

func TestFindSatelliteCreatesAndReuses(t *testing.T) {
	e := &Epoch{}

	s1 := e.FindSatellite(5)
	s1.SNRL1 = 42

	s2 := e.FindSatellite(5)
	if s2.SNRL1 != 42 {
		t.Errorf("expected the same satellite entry to be reused, got SNRL1=%d", s2.SNRL1)
	}
	if len(e.Satellites) != 1 {
		t.Fatalf("expected 1 satellite, got %d", len(e.Satellites))
	}

	e.FindSatellite(10)
	if len(e.Satellites) != 2 {
		t.Errorf("expected 2 satellites, got %d", len(e.Satellites))
	}
}

func TestEpochStringReportsWeekTowAndSatellites(t *testing.T) {
	e := &Epoch{Week: 1680, TimeOfWeekMS: 432000000, AmbiguityWarning: true}
	sat := e.FindSatellite(5)
	sat.DataFlags = sat.DataFlags.Set(C1Data).Set(L1CData)
	sat.SNRL1 = 8

	got := e.String()
	for _, want := range []string{"week 1680", "432000.000s", "1 satellite", "ambiguity unresolved", "PRN  5", "2 measurement(s)", "SNR L1 8"} {
		if !strings.Contains(got, want) {
			t.Errorf("Epoch.String() = %q, want it to contain %q", got, want)
		}
	}
}

func TestSatelliteStringOmitsZeroSNR(t *testing.T) {
	s := Satellite{PRN: 12}
	got := s.String()
	if strings.Contains(got, "SNR") {
		t.Errorf("Satellite.String() = %q, did not expect an SNR field with both SNRs zero", got)
	}
}
