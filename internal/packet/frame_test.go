package packet

import "testing"

func TestFlagsString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flags Flags
		want  string
	}{
		{flags: 0, want: "NONE"},
		{flags: SYN, want: "SYN"},
		{flags: SYNACK, want: "SYN|ACK"},
		{flags: RSTACK, want: "RST|ACK"},
		{flags: FIN | PSH | URG, want: "FIN|PSH|URG"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			if got := tt.flags.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlagsWireValues(t *testing.T) {
	t.Parallel()

	if SYNACK != 0x12 {
		t.Errorf("SYNACK = %#x, want 0x12", uint8(SYNACK))
	}
	if RSTACK != 0x14 {
		t.Errorf("RSTACK = %#x, want 0x14", uint8(RSTACK))
	}
	if FIN|PSH|URG != 0x29 {
		t.Errorf("FIN|PSH|URG = %#x, want 0x29", uint8(FIN|PSH|URG))
	}
}

func TestFlagsHas(t *testing.T) {
	t.Parallel()

	if !SYNACK.Has(SYN) {
		t.Error("SYN|ACK should have SYN")
	}
	if !SYNACK.Has(SYNACK) {
		t.Error("SYN|ACK should have SYN|ACK")
	}
	if SYN.Has(SYNACK) {
		t.Error("SYN should not have SYN|ACK")
	}
}
