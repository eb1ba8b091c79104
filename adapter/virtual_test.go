package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/mironalin/carsense"
	"github.com/mironalin/carsense/pkg/obd"
)

func newTestVirtual(t *testing.T) *Virtual {
	t.Helper()
	a, err := NewVirtual(&carsense.AdapterConfig{
		OnMessage: func(string) {},
		OnError:   func(error) {},
	})
	if err != nil {
		t.Fatal(err)
	}
	v := a.(*Virtual)
	v.Latency = 0
	return v
}

func exchange(t *testing.T, v *Virtual, cmd string) *carsense.RawResponse {
	t.Helper()
	v.Send() <- cmd
	select {
	case resp := <-v.Recv():
		return resp
	case <-time.After(time.Second):
		t.Fatalf("no response to %q", cmd)
		return nil
	}
}

func TestVirtualIdentifies(t *testing.T) {
	v := newTestVirtual(t)
	if err := v.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	if resp := exchange(t, v, "ATI"); resp.Text != "ELM327 v1.5" {
		t.Errorf("ATI = %q", resp.Text)
	}
	if resp := exchange(t, v, "ATE0"); resp.Text != "OK" {
		t.Errorf("ATE0 = %q", resp.Text)
	}
}

func TestVirtualSensorReadings(t *testing.T) {
	v := newTestVirtual(t)
	if err := v.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	for _, cmd := range []*obd.Command{obd.RPM, obd.Speed, obd.CoolantTemp, obd.MAF} {
		resp := exchange(t, v, cmd.Build())
		reading := obd.DecodeReading(cmd, resp)
		if reading.IsError {
			t.Errorf("%s: error reading %q", cmd.Name, resp.Text)
		}
	}
}

func TestVirtualVIN(t *testing.T) {
	v := newTestVirtual(t)
	if err := v.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	resp := exchange(t, v, obd.VIN.Build())
	vin, err := obd.DecodeVIN(resp.Text)
	if err != nil {
		t.Fatal(err)
	}
	if vin != "W0L000036V1940069" {
		t.Errorf("DecodeVIN() = %q", vin)
	}
}

func TestVirtualOverride(t *testing.T) {
	v := newTestVirtual(t)
	if err := v.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	v.SetResponse("03", "7E8 06 43 02 01 95 01 96")
	resp := exchange(t, v, "03")
	codes, err := obd.DecodeDTCs(resp.Text)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 2 || codes[0].Code != "P0195" || codes[1].Code != "P0196" {
		t.Errorf("DecodeDTCs() = %v", codes)
	}
}

func TestVirtualUnknownPID(t *testing.T) {
	v := newTestVirtual(t)
	if err := v.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	resp := exchange(t, v, "01FF")
	if !resp.IsNoData() {
		t.Errorf("unknown PID answered %q", resp.Text)
	}
}
