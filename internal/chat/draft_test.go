package chat

import "testing"

func TestEdit_Commit(t *testing.T) {
	d := NewDraft("Hello")
	e := BeginEdit(d)

	if got := d.Value(); got != "" {
		t.Errorf("Value() after BeginEdit = %q, want empty", got)
	}
	if got := e.Text(); got != "Hello" {
		t.Errorf("Text() = %q, want %q", got, "Hello")
	}

	e.Commit()
	if e.Rollback() {
		t.Error("Rollback() after Commit = true, want false")
	}
	if got := d.Value(); got != "" {
		t.Errorf("Value() after Commit = %q, want empty", got)
	}
}

func TestEdit_Rollback(t *testing.T) {
	d := NewDraft("Hello")
	e := BeginEdit(d)

	if !e.Rollback() {
		t.Fatal("Rollback() = false, want true")
	}
	if got := d.Value(); got != "Hello" {
		t.Errorf("Value() after Rollback = %q, want %q", got, "Hello")
	}
	if e.Rollback() {
		t.Error("second Rollback() = true, want false")
	}
}

func TestEdit_RollbackKeepsNewText(t *testing.T) {
	d := NewDraft("Hello")
	e := BeginEdit(d)
	d.SetValue("typed meanwhile")

	if e.Rollback() {
		t.Error("Rollback() = true, want false when the field was edited")
	}
	if got := d.Value(); got != "typed meanwhile" {
		t.Errorf("Value() = %q, want %q", got, "typed meanwhile")
	}
}
