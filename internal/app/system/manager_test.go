package system

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recorder struct {
	name     string
	log      *[]string
	startErr error
}

func (r recorder) Name() string { return r.name }

func (r recorder) Start(context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	*r.log = append(*r.log, "start "+r.name)
	return nil
}

func (r recorder) Stop(context.Context) error {
	*r.log = append(*r.log, "stop "+r.name)
	return nil
}

func TestManagerOrdering(t *testing.T) {
	var log []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(recorder{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := m.Register(NoopService{ServiceName: "a"}); err == nil {
		t.Fatal("duplicate name accepted")
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "late"}); err == nil {
		t.Fatal("registration after start accepted")
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start a", "start b", "start c", "stop c", "stop b", "stop a"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	if !reflect.DeepEqual(m.Names(), []string{"a", "b", "c"}) {
		t.Fatalf("names = %v", m.Names())
	}
}

func TestManagerStartFailureUnwinds(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager()
	_ = m.Register(recorder{name: "a", log: &log})
	_ = m.Register(recorder{name: "b", log: &log, startErr: boom})
	_ = m.Register(recorder{name: "c", log: &log})

	err := m.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	want := []string{"start a", "stop a"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("log = %v, want %v", log, want)
	}

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("services stopped twice: %v", log)
	}
}
