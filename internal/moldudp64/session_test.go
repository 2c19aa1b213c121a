package moldudp64

import (
	"encoding/binary"
	"testing"
)

func sessionID(s string) [SessionIDSize]byte {
	var id [SessionIDSize]byte
	copy(id[:], s)
	for i := len(s); i < SessionIDSize; i++ {
		id[i] = ' '
	}
	return id
}

// buildPacket encodes a MoldUDP64 header followed by len(blocks) messages,
// each wrapped in its own 2-byte big-endian length prefix.
func buildPacket(session [SessionIDSize]byte, firstSeq uint64, blocks [][]byte) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:10], session[:])
	binary.BigEndian.PutUint64(buf[10:18], firstSeq)
	binary.BigEndian.PutUint16(buf[18:20], uint16(len(blocks)))
	for _, b := range blocks {
		lenPrefix := make([]byte, 2)
		binary.BigEndian.PutUint16(lenPrefix, uint16(len(b)))
		buf = append(buf, lenPrefix...)
		buf = append(buf, b...)
	}
	return buf
}

func msgBlock(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestFirstPacketLatchesSessionAndGoesActive(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")
	pkt := buildPacket(id, 1, [][]byte{msgBlock(5, 'a')})

	var got [][]byte
	sess.OnMessage = func(data []byte, length int, seq uint64) {
		got = append(got, append([]byte(nil), data...))
	}

	if ok := sess.ProcessPacket(pkt); !ok {
		t.Fatal("ProcessPacket returned false")
	}
	if sess.State() != StateActive {
		t.Errorf("State() = %v, want Active", sess.State())
	}
	if sess.ExpectedSeq() != 2 {
		t.Errorf("ExpectedSeq() = %d, want 2", sess.ExpectedSeq())
	}
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
}

func TestSessionIDMismatchGoesToError(t *testing.T) {
	sess := NewSession()
	sess.ProcessPacket(buildPacket(sessionID("NASDAQ"), 1, [][]byte{msgBlock(1, 'a')}))

	ok := sess.ProcessPacket(buildPacket(sessionID("OTHER"), 2, [][]byte{msgBlock(1, 'a')}))
	if ok {
		t.Error("expected ProcessPacket to reject mismatched session id")
	}
	if sess.State() != StateError {
		t.Errorf("State() = %v, want Error", sess.State())
	}

	// Error is terminal: further packets are rejected outright.
	if sess.ProcessPacket(buildPacket(sessionID("NASDAQ"), 2, [][]byte{msgBlock(1, 'a')})) {
		t.Error("expected terminal Error state to reject further packets")
	}
}

// Scenario 2: gap then heal via retransmission.
func TestGapThenHeal(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")

	var gaps []Gap
	sess.OnGap = func(g Gap) { gaps = append(gaps, g) }
	var seqs []uint64
	sess.OnMessage = func(data []byte, length int, seq uint64) { seqs = append(seqs, seq) }

	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a')}))
	sess.ProcessPacket(buildPacket(id, 5, [][]byte{msgBlock(1, 'a')}))

	if len(gaps) != 1 {
		t.Fatalf("got %d gap callbacks, want 1", len(gaps))
	}
	if gaps[0].Start != 2 || gaps[0].End != 4 {
		t.Errorf("gap = {%d,%d}, want {2,4}", gaps[0].Start, gaps[0].End)
	}
	if sess.State() != StateStale {
		t.Fatalf("State() = %v, want Stale", sess.State())
	}

	emitted := sess.ProcessRetransmission(2, buildRetransmissionBody(3), 3)
	if emitted != 3 {
		t.Fatalf("ProcessRetransmission emitted %d, want 3", emitted)
	}
	if len(sess.PendingGaps()) != 0 {
		t.Errorf("PendingGaps() not empty after full retransmission: %+v", sess.PendingGaps())
	}
	if sess.State() != StateActive {
		t.Errorf("State() = %v after heal, want Active", sess.State())
	}
	if want := []uint64{1, 5, 2, 3, 4}; !seqEqual(seqs, want) {
		t.Errorf("seqs = %v, want %v", seqs, want)
	}
}

func buildRetransmissionBody(count int) []byte {
	var buf []byte
	for i := 0; i < count; i++ {
		lenPrefix := make([]byte, 2)
		binary.BigEndian.PutUint16(lenPrefix, 1)
		buf = append(buf, lenPrefix...)
		buf = append(buf, 'r')
	}
	return buf
}

func seqEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Scenario 3: heartbeat never touches state.
func TestHeartbeatIsNoOp(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")
	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a')}))
	before := sess.ExpectedSeq()

	hb := make([]byte, HeaderSize)
	copy(hb[0:10], id[:])
	// first_seq = 0, count = 0 already zero-valued.
	if ok := sess.ProcessPacket(hb); !ok {
		t.Fatal("heartbeat rejected")
	}
	if sess.Stats.HeartbeatsReceived != 1 {
		t.Errorf("HeartbeatsReceived = %d, want 1", sess.Stats.HeartbeatsReceived)
	}
	if sess.ExpectedSeq() != before {
		t.Errorf("ExpectedSeq() changed on heartbeat: %d -> %d", before, sess.ExpectedSeq())
	}
	if sess.State() != StateActive {
		t.Errorf("State() = %v after heartbeat, want unchanged Active", sess.State())
	}
	if len(sess.PendingGaps()) != 0 {
		t.Errorf("heartbeat created gaps: %+v", sess.PendingGaps())
	}
}

// Scenario 4: truncated trailing block.
func TestTruncatedTrailingBlockStopsSilently(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")

	pkt := buildPacket(id, 1, [][]byte{msgBlock(1, 'a'), msgBlock(1, 'a')})
	// Declare a count of 3 but only ship two complete blocks.
	binary.BigEndian.PutUint16(pkt[18:20], 3)

	var seqs []uint64
	sess.OnMessage = func(data []byte, length int, seq uint64) { seqs = append(seqs, seq) }

	if ok := sess.ProcessPacket(pkt); !ok {
		t.Fatal("ProcessPacket returned false on truncated packet")
	}
	if len(seqs) != 2 {
		t.Fatalf("got %d messages, want 2", len(seqs))
	}
	if sess.ExpectedSeq() != 4 {
		t.Errorf("ExpectedSeq() = %d, want 4 (first_seq + declared count)", sess.ExpectedSeq())
	}
}

func TestDuplicatePacketNeverAdvancesOrCreatesGap(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")
	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a')}))
	sess.ProcessPacket(buildPacket(id, 2, [][]byte{msgBlock(1, 'a')}))
	before := sess.ExpectedSeq()

	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a')}))
	if sess.ExpectedSeq() != before {
		t.Errorf("ExpectedSeq() changed on duplicate: %d -> %d", before, sess.ExpectedSeq())
	}
	if len(sess.PendingGaps()) != 0 {
		t.Errorf("duplicate created a gap: %+v", sess.PendingGaps())
	}
}

func TestNoGapsWhenSequenceIsContinuous(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")
	sess.OnGap = func(g Gap) { t.Errorf("unexpected gap: %+v", g) }

	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a'), msgBlock(1, 'a')}))
	sess.ProcessPacket(buildPacket(id, 3, [][]byte{msgBlock(1, 'a')}))

	if sess.ExpectedSeq() != 4 {
		t.Errorf("ExpectedSeq() = %d, want 4", sess.ExpectedSeq())
	}
	if len(sess.PendingGaps()) != 0 {
		t.Errorf("PendingGaps() not empty: %+v", sess.PendingGaps())
	}
}

func TestResetClearsEverything(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")
	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a')}))
	sess.ProcessPacket(buildPacket(id, 5, [][]byte{msgBlock(1, 'a')}))

	sess.Reset()
	if sess.State() != StateUnknown {
		t.Errorf("State() = %v after Reset, want Unknown", sess.State())
	}
	if sess.ExpectedSeq() != 1 {
		t.Errorf("ExpectedSeq() = %d after Reset, want 1", sess.ExpectedSeq())
	}
	if len(sess.PendingGaps()) != 0 {
		t.Errorf("PendingGaps() not empty after Reset")
	}
	if sess.Stats != (Stats{}) {
		t.Errorf("Stats not zeroed after Reset: %+v", sess.Stats)
	}
}

func TestGapFillShrinksFromLeftAndRight(t *testing.T) {
	sess := NewSession()
	id := sessionID("NASDAQ")
	sess.ProcessPacket(buildPacket(id, 1, [][]byte{msgBlock(1, 'a')}))
	sess.ProcessPacket(buildPacket(id, 11, [][]byte{msgBlock(1, 'a')})) // gap [2,10]

	// Retransmission covering a prefix of the gap: shrinks from the left.
	sess.ProcessRetransmission(2, buildRetransmissionBody(3), 3) // covers [2,4]
	gaps := sess.PendingGaps()
	if len(gaps) != 1 || gaps[0].Start != 5 || gaps[0].End != 10 {
		t.Fatalf("after left shrink: %+v", gaps)
	}

	// Retransmission covering a suffix of the remaining gap.
	sess.ProcessRetransmission(8, buildRetransmissionBody(3), 3) // covers [8,10]
	gaps = sess.PendingGaps()
	if len(gaps) != 1 || gaps[0].Start != 5 || gaps[0].End != 7 {
		t.Fatalf("after right shrink: %+v", gaps)
	}
	if sess.State() != StateStale {
		t.Errorf("State() = %v, want still Stale", sess.State())
	}
}
