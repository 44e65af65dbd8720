package core

import "testing"

func TestMultiReporter_FansOut(t *testing.T) {
	a, b := &mockReporter{}, &mockReporter{}
	m := MultiReporter{a, nil, b}

	m.Report(Event{Name: "Homepage", Success: true})
	m.Report(Event{Name: "Checkout"})

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("expected 2 events on each reporter, got %d and %d", len(a.events), len(b.events))
	}
}

func TestReporterFunc(t *testing.T) {
	var got []string
	rep := ReporterFunc(func(e Event) { got = append(got, e.Key()) })

	rep.Report(Event{Step: "exit"})
	rep.Report(Event{Step: "homepage", Name: "Homepage"})

	if len(got) != 2 || got[0] != "exit" || got[1] != "Homepage" {
		t.Errorf("unexpected keys: %v", got)
	}
}

func TestNullReporter(t *testing.T) {
	// Must not panic.
	NullReporter.Report(Event{Name: "ignored"})
}
