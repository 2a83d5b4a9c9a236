package page

import (
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	p := New("abc123")

	if p.ID == "" {
		t.Error("Expected page ID to be set")
	}

	state := p.Snapshot()
	if state.SubjectID != "abc123" {
		t.Errorf("Expected subject abc123, got %q", state.SubjectID)
	}
	if state.Result != DefaultResultText {
		t.Errorf("Expected default result text, got %q", state.Result)
	}
	if state.ButtonLabel != DefaultButtonLabel || state.ButtonDisabled {
		t.Errorf("Unexpected button state: %q disabled=%v", state.ButtonLabel, state.ButtonDisabled)
	}

	if New("").ID == p.ID {
		t.Error("Expected distinct IDs for each page")
	}
}

func TestButton_DisableIsExclusive(t *testing.T) {
	p := New("")

	if !p.Train.Disable() {
		t.Fatal("Expected first Disable to succeed")
	}
	if p.Train.Disable() {
		t.Error("Expected second Disable to report already disabled")
	}

	p.Train.Enable()
	if p.Train.Disabled() {
		t.Error("Expected button to be enabled")
	}
}

func TestSubscribe_ReceivesUpdates(t *testing.T) {
	p := New("")
	updates, cancel := p.Subscribe()
	defer cancel()

	p.Result.SetText("Радость 😄")

	select {
	case state := <-updates:
		if state.Result != "Радость 😄" {
			t.Errorf("Expected updated result, got %q", state.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a state update")
	}
}

func TestSubscribe_SlowSubscriberGetsLatest(t *testing.T) {
	p := New("")
	updates, cancel := p.Subscribe()
	defer cancel()

	// バッファを超える更新を送っても通知がブロックしない
	for i := 0; i < 20; i++ {
		p.Subject.Set("id")
	}
	p.Result.SetText("last")

	var last State
	for {
		select {
		case state := <-updates:
			last = state
			continue
		default:
		}
		break
	}

	if last.Result != "last" {
		t.Errorf("Expected latest state to be delivered, got %q", last.Result)
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	p := New("")
	updates, cancel := p.Subscribe()

	cancel()
	cancel() // 二重解除しても安全

	if _, ok := <-updates; ok {
		t.Error("Expected channel to be closed after cancel")
	}

	// 解除後の更新でパニックしない
	p.Result.SetText("after")
}
