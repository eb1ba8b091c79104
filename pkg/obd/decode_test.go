package obd

import "testing"

func TestDecodeFormulas(t *testing.T) {
	tests := []struct {
		name string
		cmd  *Command
		data []byte
		want string
	}{
		{"rpm", RPM, []byte{0x1A, 0x40}, "1680"},
		{"rpm idle", RPM, []byte{0x0B, 0xB8}, "750"},
		{"speed", Speed, []byte{0x3C}, "60"},
		{"speed zero", Speed, []byte{0x00}, "0"},
		{"coolant", CoolantTemp, []byte{0x5A}, "50"},
		{"coolant minimum", CoolantTemp, []byte{0x00}, "-40"},
		{"intake temp", IntakeTemp, []byte{0x28}, "0"},
		{"engine load", EngineLoad, []byte{0xFF}, "100.0"},
		{"throttle", ThrottlePosition, []byte{0x80}, "50.2"},
		{"fuel level", FuelLevel, []byte{0x00}, "0.0"},
		{"manifold pressure", ManifoldPressure, []byte{0x64}, "100"},
		{"maf", MAF, []byte{0x01, 0xF4}, "5.00"},
		{"maf single byte clone", MAF, []byte{0x64}, "255.00"},
		{"timing advance", TimingAdvance, []byte{0x90}, "8.0"},
		{"timing advance retard", TimingAdvance, []byte{0x00}, "-64.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode(% X) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeShortPayload(t *testing.T) {
	for _, cmd := range []*Command{RPM, Speed, CoolantTemp, EngineLoad, MAF, TimingAdvance} {
		if _, err := cmd.Decode(nil); err == nil {
			t.Errorf("%s: expected error on empty payload", cmd.Name)
		}
	}
	if _, err := RPM.Decode([]byte{0x1A}); err == nil {
		t.Error("rpm: expected error on single byte payload")
	}
}

func TestDecodeSupportedPIDs(t *testing.T) {
	got, err := decodeSupportedPIDs([]byte{0xBE, 0x3F, 0xA8, 0x13})
	if err != nil {
		t.Fatalf("decodeSupportedPIDs() error = %v", err)
	}
	want := "01,03,04,05,06,07,0B,0C,0D,0E,0F,10,11,13,15,1C,1F,20"
	if got != want {
		t.Errorf("decodeSupportedPIDs() = %q, want %q", got, want)
	}
}

func TestLookupPollableOnly(t *testing.T) {
	cmd, ok := Lookup("04")
	if !ok || cmd != EngineLoad {
		t.Fatalf("Lookup(04) = %v, want Engine Load", cmd)
	}
	cmd, ok = Lookup("03")
	if ok {
		t.Fatalf("Lookup(03) = %v, mode 03 must not be reachable by PID", cmd)
	}
	if _, ok := Lookup("02"); ok {
		t.Error("Lookup(02) should not resolve, VIN is mode 09")
	}
	for pid, c := range commands {
		if c.Mode != 0x01 {
			t.Errorf("PID %s resolves to mode %02X command %q", pid, c.Mode, c.Name)
		}
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		cmd  *Command
		want string
	}{
		{RPM, "010C"},
		{SupportedPIDs, "0100"},
		{VIN, "0902"},
		{ReadDTC, "03"},
		{ClearDTC, "04"},
	}
	for _, tt := range tests {
		if got := tt.cmd.Build(); got != tt.want {
			t.Errorf("%s.Build() = %q, want %q", tt.cmd.Name, got, tt.want)
		}
	}
}
