package epoch

import (
	"testing"

	"github.com/goblimey/rtcm2rinex/rtcmdata"
)

func TestFeedHoldsEpochOpenWhileSyncFlagSet(t *testing.T) {
	var a Assembler

	got := a.Feed(Observation{
		Week:         2000,
		TimeOfWeekMS: 100000,
		SyncFlag:     true, // more messages for this epoch are coming
		Satellites: []rtcmdata.Satellite{
			{PRN: 5, DataFlags: rtcmdata.C1Data.Bit(), Measurements: measurementsWith(rtcmdata.C1Data, 111.0)},
		},
	})
	if got != nil {
		t.Fatalf("expected the epoch to stay open, got %+v", got)
	}

	got = a.Feed(Observation{
		Week:         2000,
		TimeOfWeekMS: 100000,
		SyncFlag:     false, // last message for this epoch
		Satellites: []rtcmdata.Satellite{
			{PRN: 5, DataFlags: rtcmdata.P2Data.Bit(), Measurements: measurementsWith(rtcmdata.P2Data, 222.0)},
		},
	})
	if got == nil {
		t.Fatal("expected a completed epoch once the sync flag clears")
	}
	if len(got.Satellites) != 1 {
		t.Fatalf("expected 1 satellite, got %d", len(got.Satellites))
	}
	sat := got.Satellites[0]
	if !sat.DataFlags.Has(rtcmdata.C1Data) || sat.Measurements[rtcmdata.C1Data] != 111.0 {
		t.Errorf("C1Data not merged from the first message: %+v", sat)
	}
	if !sat.DataFlags.Has(rtcmdata.P2Data) || sat.Measurements[rtcmdata.P2Data] != 222.0 {
		t.Errorf("P2Data not merged from the second message: %+v", sat)
	}
}

func TestFeedPromotesOnTimestampChangeEvenWithSyncSet(t *testing.T) {
	var a Assembler

	if got := a.Feed(Observation{
		Week: 2000, TimeOfWeekMS: 100000, SyncFlag: true,
		Satellites: []rtcmdata.Satellite{{PRN: 1, DataFlags: rtcmdata.C1Data.Bit(), Measurements: measurementsWith(rtcmdata.C1Data, 1.0)}},
	}); got != nil {
		t.Fatalf("expected no epoch yet, got %+v", got)
	}

	// A message with a new timestamp arrives before the first epoch's sync
	// flag ever cleared: the assembler must not wait for it forever.
	got := a.Feed(Observation{
		Week: 2000, TimeOfWeekMS: 101000, SyncFlag: true,
		Satellites: []rtcmdata.Satellite{{PRN: 2, DataFlags: rtcmdata.C1Data.Bit(), Measurements: measurementsWith(rtcmdata.C1Data, 2.0)}},
	})
	if got == nil {
		t.Fatal("expected the timestamp change to promote the previous epoch")
	}
	if got.TimeOfWeekMS != 100000 {
		t.Errorf("promoted epoch has timestamp %v, want 100000", got.TimeOfWeekMS)
	}
	if len(got.Satellites) != 1 || got.Satellites[0].PRN != 1 {
		t.Errorf("promoted epoch has wrong satellites: %+v", got.Satellites)
	}
}

func TestFeedDoesNotPromoteTwiceForOneMessage(t *testing.T) {
	var a Assembler
	a.Feed(Observation{Week: 2000, TimeOfWeekMS: 100000, SyncFlag: true})

	// New timestamp and a clear sync flag in the same message: the
	// timestamp-change promotion must not be followed by a second,
	// spurious promotion of the (freshly reset) current epoch.
	got := a.Feed(Observation{
		Week: 2000, TimeOfWeekMS: 101000, SyncFlag: false,
		Satellites: []rtcmdata.Satellite{{PRN: 3, DataFlags: rtcmdata.C1Data.Bit(), Measurements: measurementsWith(rtcmdata.C1Data, 3.0)}},
	})
	if got == nil || got.TimeOfWeekMS != 100000 {
		t.Fatalf("expected the stale epoch promoted, got %+v", got)
	}

	flushed := a.Flush()
	if flushed == nil {
		t.Fatal("expected the new epoch still open, ready to flush")
	}
	if flushed.TimeOfWeekMS != 101000 || len(flushed.Satellites) != 1 {
		t.Errorf("unexpected flushed epoch: %+v", flushed)
	}
}

func TestFlushOnEmptyAssemblerReturnsNil(t *testing.T) {
	var a Assembler
	if got := a.Flush(); got != nil {
		t.Errorf("expected nil flush on an empty assembler, got %+v", got)
	}
}

func measurementsWith(e rtcmdata.EntryType, v float64) [rtcmdata.NumEntryTypes]float64 {
	var m [rtcmdata.NumEntryTypes]float64
	m[e] = v
	return m
}
