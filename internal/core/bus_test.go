package core

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

func startEmbeddedBus(t *testing.T) *FindingBus {
	t.Helper()
	bus, err := NewFindingBus(&BusConfig{
		Embedded:      true,
		Host:          "127.0.0.1",
		Port:          -1,
		SubjectPrefix: "test",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFindingBus: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestFindingBus_Subject(t *testing.T) {
	b := &FindingBus{prefix: "forensec"}
	if got := b.Subject("findings", "trace"); got != "forensec.findings.trace" {
		t.Errorf("Subject = %q", got)
	}
}

func TestFindingBus_PublishDelivers(t *testing.T) {
	bus := startEmbeddedBus(t)
	if !bus.IsConnected() {
		t.Fatal("bus should be connected")
	}

	sub, err := bus.Conn().SubscribeSync("test.findings.>")
	if err != nil {
		t.Fatalf("SubscribeSync: %v", err)
	}
	if err := bus.Flush(time.Second); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	f := NewFinding("alerts", SeverityCritical, "top alert severity 9")
	if err := bus.Publish(f); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	if msg.Subject != "test.findings.alerts" {
		t.Errorf("subject = %q, want test.findings.alerts", msg.Subject)
	}
	got, err := UnmarshalFinding(msg.Data)
	if err != nil {
		t.Fatalf("UnmarshalFinding: %v", err)
	}
	if got.ID != f.ID {
		t.Errorf("ID = %q, want %q", got.ID, f.ID)
	}

	if m := bus.GetMetrics(); m["findings_published"] != 1 {
		t.Errorf("findings_published = %d, want 1", m["findings_published"])
	}
}

func TestFindingBus_ExternalClient(t *testing.T) {
	bus := startEmbeddedBus(t)

	nc, err := nats.Connect(bus.ClientURL())
	if err != nil {
		t.Fatalf("external connect: %v", err)
	}
	defer nc.Close()

	if !nc.IsConnected() {
		t.Error("external client should connect to the embedded server")
	}
}

func TestNewFindingBus_Unreachable(t *testing.T) {
	_, err := NewFindingBus(&BusConfig{URL: "nats://127.0.0.1:1"}, zerolog.Nop())
	if err == nil {
		t.Error("expected connection error for unreachable server")
	}
}
